package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
	"posadmin/backend/internal/xid"
)

func (s *Service) CreateVoucher(ctx context.Context, req domain.VoucherCreateRequest) (domain.Voucher, error) {
	if req.Value == nil || !req.Value.IsPositive() {
		return domain.Voucher{}, fmt.Errorf("%w: value must be greater than zero", store.ErrInvalidInput)
	}

	validFrom, err := parseDate(req.ValidFrom, s.now())
	if err != nil {
		return domain.Voucher{}, fmt.Errorf("%w: validFrom must be YYYY-MM-DD or RFC3339", store.ErrInvalidInput)
	}
	validUntil, err := parseValidUntil(req.ValidUntil)
	if err != nil {
		return domain.Voucher{}, fmt.Errorf("%w: validUntil must be YYYY-MM-DD or RFC3339", store.ErrInvalidInput)
	}
	if !validUntil.IsZero() && validUntil.Before(validFrom) {
		return domain.Voucher{}, fmt.Errorf("%w: validUntil is before validFrom", store.ErrInvalidInput)
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		code = xid.Code("vcr")
	}

	created, err := s.repo.CreateVoucher(ctx, domain.Voucher{
		Code:       code,
		Value:      *req.Value,
		ValidFrom:  validFrom,
		ValidUntil: validUntil,
		Status:     domain.VoucherIssued,
		Active:     true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Voucher{}, fmt.Errorf("%w: voucher code %s already exists", store.ErrBusinessRule, code)
		}
		return domain.Voucher{}, err
	}

	s.logAudit(ctx, "voucher_create", "voucher", created.Code, fmt.Sprintf("value=%s", created.Value))
	return *created, nil
}

// parseValidUntil treats a bare date as valid through the end of that day.
// An empty value means the voucher never expires.
func parseValidUntil(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.AddDate(0, 0, 1).Add(-time.Microsecond), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (s *Service) ListVouchers(ctx context.Context) ([]domain.Voucher, error) {
	return s.repo.ListVouchers(ctx)
}

func (s *Service) RedeemVoucher(ctx context.Context, code string) (domain.Voucher, error) {
	return s.transitionVoucher(ctx, code, domain.VoucherRedeem)
}

func (s *Service) CancelVoucher(ctx context.Context, code string) (domain.Voucher, error) {
	return s.transitionVoucher(ctx, code, domain.VoucherCancel)
}

func (s *Service) transitionVoucher(ctx context.Context, code string, action domain.VoucherAction) (domain.Voucher, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Voucher{}, fmt.Errorf("%w: voucher code is required", store.ErrInvalidInput)
	}

	txCtx, cancel := s.txContext(ctx)
	defer cancel()

	voucher, err := s.repo.TransitionVoucher(txCtx, code, action, s.now())
	if err != nil {
		return domain.Voucher{}, err
	}

	s.logAudit(ctx, "voucher_"+string(action), "voucher", voucher.Code,
		fmt.Sprintf("status=%s,payment=%s", voucher.Status, strconv.FormatInt(voucher.PaymentID, 10)))
	return *voucher, nil
}
