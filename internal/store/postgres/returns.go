package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

func (s *Store) CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error) {
	if len(ret.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, txError("begin", err)
	}
	defer func() { _ = pgTx.Rollback() }()

	if ret.PaymentID != 0 {
		if err := checkReturnable(ctx, pgTx, ret); err != nil {
			return nil, txError("check returnable", err)
		}
	}

	created := ret
	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO returns (reason, payment_id, created_by, created_by_user_id, created_at)
		VALUES ($1,$2,$3,$4,COALESCE($5, now()))
		RETURNING id, created_at
	`, created.Reason, nullIfZero(created.PaymentID), created.CreatedBy, nullIfZero(created.CreatedByUserID),
		nullIfZeroTime(created.CreatedAt)).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: return row was not written", store.ErrTransactionFailed)
		}
		return nil, txError("insert return", err)
	}
	created.CreatedAt = created.CreatedAt.UTC()

	created.Items = make([]domain.ReturnItem, 0, len(ret.Items))
	for _, item := range ret.Items {
		item.ReturnID = created.ID
		err := pgTx.QueryRowContext(ctx, `
			INSERT INTO return_items (return_id, product_id, product_name, price, quantity)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`, item.ReturnID, item.ProductID, item.ProductName, item.Price, item.Quantity).Scan(&item.ID)
		if err != nil {
			return nil, txError("insert return item", err)
		}
		created.Items = append(created.Items, item)
	}

	if _, err := pgTx.ExecContext(ctx, `DELETE FROM cart`); err != nil {
		return nil, txError("clear cart", err)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txError("commit", err)
	}
	return &created, nil
}

// checkReturnable locks the payment row so concurrent returns against the
// same receipt see each other's quantities.
func checkReturnable(ctx context.Context, pgTx *sql.Tx, ret domain.Return) error {
	var locked int64
	err := pgTx.QueryRowContext(ctx, `SELECT id FROM payments WHERE id = $1 FOR UPDATE`, ret.PaymentID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: payment %d", store.ErrNotFound, ret.PaymentID)
		}
		return err
	}

	rows, err := pgTx.QueryContext(ctx, `
		SELECT sold.product_id, sold.qty - COALESCE(returned.qty, 0)
		FROM (
			SELECT product_id, SUM(quantity) AS qty
			FROM payment_items
			WHERE payment_id = $1
			GROUP BY product_id
		) sold
		LEFT JOIN (
			SELECT ri.product_id, SUM(ri.quantity) AS qty
			FROM return_items ri
			JOIN returns r ON r.id = ri.return_id
			WHERE r.payment_id = $1
			GROUP BY ri.product_id
		) returned ON returned.product_id = sold.product_id
	`, ret.PaymentID)
	if err != nil {
		return err
	}
	remaining := make(map[int64]int, 8)
	for rows.Next() {
		var productID int64
		var qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			_ = rows.Close()
			return err
		}
		remaining[productID] = qty
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, item := range ret.Items {
		remaining[item.ProductID] -= item.Quantity
		if remaining[item.ProductID] < 0 {
			return fmt.Errorf("%w: return quantity for product %d exceeds quantity sold", store.ErrBusinessRule, item.ProductID)
		}
	}
	return nil
}

func (s *Store) ListReturns(ctx context.Context, limit int) ([]domain.Return, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reason, COALESCE(payment_id, 0), created_by, COALESCE(created_by_user_id, 0), created_at
		FROM returns
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	returns := make([]domain.Return, 0, limit)
	index := make(map[int64]int, limit)
	ids := make([]int64, 0, limit)
	for rows.Next() {
		var r domain.Return
		if err := rows.Scan(&r.ID, &r.Reason, &r.PaymentID, &r.CreatedBy, &r.CreatedByUserID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		r.Items = []domain.ReturnItem{}
		index[r.ID] = len(returns)
		ids = append(ids, r.ID)
		returns = append(returns, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return returns, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, return_id, product_id, product_name, price, quantity
		FROM return_items
		WHERE return_id = ANY($1)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.ReturnItem
		if err := itemRows.Scan(&item.ID, &item.ReturnID, &item.ProductID, &item.ProductName, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		i := index[item.ReturnID]
		returns[i].Items = append(returns[i].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return returns, nil
}
