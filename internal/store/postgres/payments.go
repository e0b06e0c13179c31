package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

// CreatePayment writes the payment header, its items, an optional voucher
// redemption and the cart clear on one connection inside one transaction.
func (s *Store) CreatePayment(ctx context.Context, payment domain.Payment, opts store.CheckoutOptions) (*domain.Payment, error) {
	if payment.IdempotencyKey == "" || len(payment.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, txError("begin", err)
	}
	defer func() { _ = pgTx.Rollback() }()

	created := payment
	created.Status = domain.PaymentStatusActive
	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO payments (
			payment_method, total_amount, customer, phone, receipt_number, cash, card,
			created_by, created_by_user_id, status, idempotency_key, voucher_code, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,COALESCE($13, now()))
		RETURNING id, created_at
	`,
		created.PaymentMethod, created.TotalAmount, created.Customer, created.Phone, created.ReceiptNumber,
		created.Cash, created.Card, created.CreatedBy, nullIfZero(created.CreatedByUserID), created.Status,
		created.IdempotencyKey, nullIfEmpty(created.VoucherCode), nullIfZeroTime(created.CreatedAt),
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, txError("insert payment", err)
	}
	created.CreatedAt = created.CreatedAt.UTC()

	created.Items = make([]domain.PaymentItem, 0, len(payment.Items))
	for _, item := range payment.Items {
		item.PaymentID = created.ID
		err := pgTx.QueryRowContext(ctx, `
			INSERT INTO payment_items (payment_id, product_id, product_name, price, quantity, discount)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id
		`, item.PaymentID, item.ProductID, item.ProductName, item.Price, item.Quantity, item.Discount).Scan(&item.ID)
		if err != nil {
			return nil, txError("insert payment item", err)
		}
		created.Items = append(created.Items, item)
	}

	if created.VoucherCode != "" {
		voucher, err := lockVoucher(ctx, pgTx, created.VoucherCode)
		if err != nil {
			return nil, txError("lock voucher", err)
		}
		if err := voucher.Apply(domain.VoucherRedeem, created.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrBusinessRule, err)
		}
		if err := voucher.CoverTotal(created.TotalAmount, created.Cash, created.Card); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
		}
		voucher.PaymentID = created.ID
		if err := saveVoucherState(ctx, pgTx, voucher); err != nil {
			return nil, txError("redeem voucher", err)
		}
	}

	if opts.ClearCart {
		if _, err := pgTx.ExecContext(ctx, `DELETE FROM cart`); err != nil {
			return nil, txError("clear cart", err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txError("commit", err)
	}
	return &created, nil
}

func (s *Store) FindPaymentByIdempotency(ctx context.Context, key string) (*domain.Payment, error) {
	return s.findPayment(ctx, "idempotency_key", key)
}

func (s *Store) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	return s.findPayment(ctx, "id", id)
}

func (s *Store) findPayment(ctx context.Context, column string, value any) (*domain.Payment, error) {
	if column != "id" && column != "idempotency_key" {
		return nil, fmt.Errorf("unsupported lookup column")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE %s = $1
	`, paymentColumns, column)
	payment, err := scanPayment(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.paymentItems(ctx, []int64{payment.ID})
	if err != nil {
		return nil, err
	}
	payment.Items = items[payment.ID]
	return &payment, nil
}

func (s *Store) ListPayments(ctx context.Context, limit int) ([]domain.Payment, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM payments
		ORDER BY id DESC
		LIMIT $1
	`, paymentColumns), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, limit)
	ids := make([]int64, 0, limit)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := s.paymentItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		payments[i].Items = items[payments[i].ID]
	}
	return payments, nil
}

const paymentColumns = `id, payment_method, total_amount, customer, phone, receipt_number, cash, card,
	created_by, COALESCE(created_by_user_id, 0), status, idempotency_key, COALESCE(voucher_code, ''), created_at`

func scanPayment(row rowScanner) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.PaymentMethod, &p.TotalAmount, &p.Customer, &p.Phone, &p.ReceiptNumber,
		&p.Cash, &p.Card, &p.CreatedBy, &p.CreatedByUserID, &p.Status, &p.IdempotencyKey, &p.VoucherCode, &p.CreatedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, err
}

func (s *Store) paymentItems(ctx context.Context, paymentIDs []int64) (map[int64][]domain.PaymentItem, error) {
	result := make(map[int64][]domain.PaymentItem, len(paymentIDs))
	if len(paymentIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_id, product_id, product_name, price, quantity, discount
		FROM payment_items
		WHERE payment_id = ANY($1)
		ORDER BY id ASC
	`, paymentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.PaymentItem
		if err := rows.Scan(&item.ID, &item.PaymentID, &item.ProductID, &item.ProductName, &item.Price, &item.Quantity, &item.Discount); err != nil {
			return nil, err
		}
		result[item.PaymentID] = append(result[item.PaymentID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
