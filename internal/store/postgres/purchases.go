package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

// CreatePurchaseBatch records purchase-in rows, snapshots the resulting
// stock per row and moves each product's last cost, all in one transaction.
func (s *Store) CreatePurchaseBatch(ctx context.Context, rows []domain.ProductIn) ([]domain.ProductIn, error) {
	if len(rows) == 0 {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, txError("begin", err)
	}
	defer func() { _ = pgTx.Rollback() }()

	onHand := make(map[int64]int, len(rows))
	names := make(map[int64]string, len(rows))
	created := make([]domain.ProductIn, 0, len(rows))
	for _, row := range rows {
		if _, seen := onHand[row.ProductID]; !seen {
			var name string
			err := pgTx.QueryRowContext(ctx, `SELECT name FROM products WHERE id = $1 FOR UPDATE`, row.ProductID).Scan(&name)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, fmt.Errorf("%w: product %d", store.ErrNotFound, row.ProductID)
				}
				return nil, txError("lock product", err)
			}
			qty, err := onHandTx(ctx, pgTx, row.ProductID)
			if err != nil {
				return nil, txError("read stock", err)
			}
			onHand[row.ProductID] = qty
			names[row.ProductID] = name
		}

		row.ProductName = names[row.ProductID]
		onHand[row.ProductID] += row.Quantity
		row.Stock = onHand[row.ProductID]
		row.TotalCost = row.Cost.Mul(decimal.NewFromInt(int64(row.Quantity)))
		if row.Date.IsZero() {
			row.Date = time.Now().UTC()
		}

		err := pgTx.QueryRowContext(ctx, `
			INSERT INTO productin (date, product_id, product_name, cost, quantity, total_cost, stock, supplier)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id
		`, row.Date, row.ProductID, row.ProductName, row.Cost, row.Quantity, row.TotalCost, row.Stock, row.Supplier).Scan(&row.ID)
		if err != nil {
			return nil, txError("insert productin", err)
		}

		if _, err := pgTx.ExecContext(ctx, `UPDATE products SET last_cost = $2 WHERE id = $1`, row.ProductID, row.Cost); err != nil {
			return nil, txError("update last cost", err)
		}
		created = append(created, row)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txError("commit", err)
	}
	return created, nil
}

func onHandTx(ctx context.Context, pgTx *sql.Tx, productID int64) (int, error) {
	var qty int
	err := pgTx.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT SUM(quantity) FROM productin WHERE product_id = $1), 0)
			- COALESCE((
				SELECT SUM(it.quantity)
				FROM payment_items it
				JOIN payments p ON p.id = it.payment_id
				WHERE it.product_id = $1 AND p.status = 'Active'
			), 0)
	`, productID).Scan(&qty)
	return qty, err
}

func (s *Store) ListPurchases(ctx context.Context, from time.Time, to time.Time) ([]domain.ProductIn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, product_id, product_name, cost, quantity, total_cost, stock, supplier
		FROM productin
		WHERE date >= $1 AND date < $2
		ORDER BY date ASC, id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.ProductIn, 0, 64)
	for rows.Next() {
		var row domain.ProductIn
		if err := rows.Scan(&row.ID, &row.Date, &row.ProductID, &row.ProductName, &row.Cost, &row.Quantity, &row.TotalCost, &row.Stock, &row.Supplier); err != nil {
			return nil, err
		}
		row.Date = row.Date.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
