package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

const voucherColumns = `id, code, value, valid_from, valid_until, status, active, COALESCE(payment_id, 0),
	redeemed_at, cancelled_at, created_at`

func scanVoucher(row rowScanner) (domain.Voucher, error) {
	var v domain.Voucher
	var validUntil, redeemedAt, cancelledAt sql.NullTime
	err := row.Scan(&v.ID, &v.Code, &v.Value, &v.ValidFrom, &validUntil, &v.Status, &v.Active, &v.PaymentID,
		&redeemedAt, &cancelledAt, &v.CreatedAt)
	if err != nil {
		return v, err
	}
	v.ValidFrom = v.ValidFrom.UTC()
	if validUntil.Valid {
		v.ValidUntil = validUntil.Time.UTC()
	}
	v.RedeemedAt = timePtr(redeemedAt)
	v.CancelledAt = timePtr(cancelledAt)
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

func (s *Store) CreateVoucher(ctx context.Context, voucher domain.Voucher) (*domain.Voucher, error) {
	if voucher.Status == "" {
		voucher.Status = domain.VoucherIssued
		voucher.Active = true
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO vouchers (code, value, valid_from, valid_until, status, active)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, voucher.Code, voucher.Value, voucher.ValidFrom, nullIfZeroTime(voucher.ValidUntil), voucher.Status, voucher.Active,
	).Scan(&voucher.ID, &voucher.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	voucher.CreatedAt = voucher.CreatedAt.UTC()
	return &voucher, nil
}

func (s *Store) ListVouchers(ctx context.Context) ([]domain.Voucher, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM vouchers
		ORDER BY id DESC
	`, voucherColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vouchers := make([]domain.Voucher, 0, 32)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vouchers, nil
}

func (s *Store) GetVoucher(ctx context.Context, code string) (*domain.Voucher, error) {
	v, err := scanVoucher(s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM vouchers
		WHERE code = $1
	`, voucherColumns), code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (s *Store) TransitionVoucher(ctx context.Context, code string, action domain.VoucherAction, at time.Time) (*domain.Voucher, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, txError("begin", err)
	}
	defer func() { _ = pgTx.Rollback() }()

	voucher, err := lockVoucher(ctx, pgTx, code)
	if err != nil {
		return nil, txError("lock voucher", err)
	}
	if err := voucher.Apply(action, at); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrBusinessRule, err)
	}
	if err := saveVoucherState(ctx, pgTx, voucher); err != nil {
		return nil, txError("update voucher", err)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, txError("commit", err)
	}
	return &voucher, nil
}

func lockVoucher(ctx context.Context, pgTx *sql.Tx, code string) (domain.Voucher, error) {
	v, err := scanVoucher(pgTx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM vouchers
		WHERE code = $1
		FOR UPDATE
	`, voucherColumns), code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Voucher{}, fmt.Errorf("%w: voucher %s", store.ErrNotFound, code)
		}
		return domain.Voucher{}, err
	}
	return v, nil
}

// saveVoucherState only updates rows still Issued, so a transition can
// never overwrite a terminal state.
func saveVoucherState(ctx context.Context, pgTx *sql.Tx, v domain.Voucher) error {
	var redeemedAt, cancelledAt any
	if v.RedeemedAt != nil {
		redeemedAt = *v.RedeemedAt
	}
	if v.CancelledAt != nil {
		cancelledAt = *v.CancelledAt
	}

	res, err := pgTx.ExecContext(ctx, `
		UPDATE vouchers
		SET status = $2, active = $3, payment_id = $4, redeemed_at = $5, cancelled_at = $6
		WHERE id = $1 AND status = 'Issued'
	`, v.ID, v.Status, v.Active, nullIfZero(v.PaymentID), redeemedAt, cancelledAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: voucher %s is no longer issued", store.ErrBusinessRule, v.Code)
	}
	return nil
}
