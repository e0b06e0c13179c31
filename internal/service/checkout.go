package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
	"posadmin/backend/internal/xid"
)

// Checkout turns the submitted cart lines into one payment. The payment,
// its items, an optional voucher redemption and the cart clear commit
// together or not at all.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	payment, err := s.buildPayment(ctx, req)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	if existing, err := s.repo.FindPaymentByIdempotency(ctx, payment.IdempotencyKey); err == nil {
		return domain.CheckoutResponse{Payment: *existing, Duplicate: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.CheckoutResponse{}, err
	}

	txCtx, cancel := s.txContext(ctx)
	defer cancel()

	created, err := s.repo.CreatePayment(txCtx, payment, store.CheckoutOptions{ClearCart: s.settings.Checkout.ClearCart})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, findErr := s.repo.FindPaymentByIdempotency(ctx, payment.IdempotencyKey)
			if findErr != nil {
				return domain.CheckoutResponse{}, findErr
			}
			return domain.CheckoutResponse{Payment: *existing, Duplicate: true}, nil
		}
		return domain.CheckoutResponse{}, err
	}

	s.events.Publish(domain.LiveEvent{
		Type:      domain.EventPaymentCreated,
		EntityID:  created.ID,
		Amount:    created.TotalAmount.String(),
		Actor:     created.CreatedBy,
		CreatedAt: created.CreatedAt,
	})
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "checkout", "payment", strconv.FormatInt(created.ID, 10),
		fmt.Sprintf("total=%s,method=%s,items=%d,voucher=%s", created.TotalAmount, created.PaymentMethod, len(created.Items), created.VoucherCode))

	return domain.CheckoutResponse{Payment: *created}, nil
}

// buildPayment validates the request and applies the configured defaults.
// It performs no writes.
func (s *Service) buildPayment(ctx context.Context, req domain.CheckoutRequest) (domain.Payment, error) {
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return domain.Payment{}, fmt.Errorf("%w: paymentMethod is required", store.ErrInvalidInput)
	}
	if req.TotalAmount == nil {
		return domain.Payment{}, fmt.Errorf("%w: totalAmount is required", store.ErrInvalidInput)
	}
	if req.TotalAmount.IsNegative() {
		return domain.Payment{}, fmt.Errorf("%w: totalAmount must not be negative", store.ErrInvalidInput)
	}
	if len(req.CartItems) == 0 {
		return domain.Payment{}, fmt.Errorf("%w: cartItems must not be empty", store.ErrInvalidInput)
	}

	items := make([]domain.PaymentItem, 0, len(req.CartItems))
	sum := decimal.Zero
	for i, item := range req.CartItems {
		switch {
		case item.ID < 1:
			return domain.Payment{}, fmt.Errorf("%w: cartItems[%d].id is required", store.ErrInvalidInput, i)
		case item.Quantity < 1:
			return domain.Payment{}, fmt.Errorf("%w: cartItems[%d].quantity must be greater than zero", store.ErrInvalidInput, i)
		case item.Price.IsNegative():
			return domain.Payment{}, fmt.Errorf("%w: cartItems[%d].price must not be negative", store.ErrInvalidInput, i)
		case item.Discount.IsNegative():
			return domain.Payment{}, fmt.Errorf("%w: cartItems[%d].discount must not be negative", store.ErrInvalidInput, i)
		}

		name := strings.TrimSpace(item.Name)
		if name == "" {
			product, err := s.repo.GetProduct(ctx, item.ID)
			if err != nil {
				return domain.Payment{}, err
			}
			name = product.Name
		}

		items = append(items, domain.PaymentItem{
			ProductID:   item.ID,
			ProductName: name,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Discount:    item.Discount,
		})
		sum = sum.Add(domain.LineTotal(item.Price, item.Quantity, item.Discount))
	}

	total := *req.TotalAmount
	if s.settings.Checkout.EnforceTotal && !sum.Equal(total) {
		return domain.Payment{}, fmt.Errorf("%w: totalAmount %s does not match cart total %s", store.ErrInvalidInput, total, sum)
	}

	voucherCode := strings.ToUpper(strings.TrimSpace(req.VoucherCode))
	if voucherCode == "" && domain.SameMethod(method, domain.PaymentMethodVoucher) {
		return domain.Payment{}, fmt.Errorf("%w: voucherCode is required for Voucher payments", store.ErrInvalidInput)
	}
	voucher := domain.Voucher{}
	if voucherCode != "" {
		found, err := s.repo.GetVoucher(ctx, voucherCode)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Payment{}, fmt.Errorf("%w: voucher %s", store.ErrNotFound, voucherCode)
			}
			return domain.Payment{}, err
		}
		voucher = *found
	}

	cash := total.Sub(voucher.Tender(total))
	if req.Cash != nil {
		cash = *req.Cash
	}
	card := decimal.Zero
	if req.Card != nil {
		card = *req.Card
	}
	if cash.IsNegative() || card.IsNegative() {
		return domain.Payment{}, fmt.Errorf("%w: cash and card must not be negative", store.ErrInvalidInput)
	}
	if err := voucher.CoverTotal(total, cash, card); err != nil {
		return domain.Payment{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = xid.New("idem")
	}

	createdBy, createdByUserID := s.creator(ctx)
	defaults := s.settings.Checkout

	return domain.Payment{
		PaymentMethod:   method,
		TotalAmount:     total,
		Customer:        defaultString(req.Customer, defaults.WalkInCustomer),
		Phone:           defaultString(req.Phone, defaults.PlaceholderPhone),
		ReceiptNumber:   defaultString(req.ReceiptNumber, defaults.PlaceholderReceipt),
		Cash:            cash,
		Card:            card,
		CreatedBy:       createdBy,
		CreatedByUserID: createdByUserID,
		Status:          domain.PaymentStatusActive,
		IdempotencyKey:  key,
		VoucherCode:     voucherCode,
		CreatedAt:       s.now(),
		Items:           items,
	}, nil
}

func (s *Service) LookupCheckoutByIdempotency(ctx context.Context, idempotencyKey string) (domain.CheckoutLookupResponse, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		return domain.CheckoutLookupResponse{}, fmt.Errorf("%w: idempotency key is required", store.ErrInvalidInput)
	}

	payment, err := s.repo.FindPaymentByIdempotency(ctx, idempotencyKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CheckoutLookupResponse{Found: false}, nil
		}
		return domain.CheckoutLookupResponse{}, err
	}
	return domain.CheckoutLookupResponse{Found: true, Payment: payment}, nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (domain.Payment, error) {
	if id < 1 {
		return domain.Payment{}, fmt.Errorf("%w: payment id is required", store.ErrInvalidInput)
	}
	payment, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return domain.Payment{}, err
	}
	return *payment, nil
}

func (s *Service) ListPayments(ctx context.Context, limit int) ([]domain.Payment, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListPayments(ctx, limit)
}

func (s *Service) invalidateDashboard(ctx context.Context) {
	s.dashboardGen.Add(1)
	if err := s.reports.Delete(ctx, dashboardCacheKey(s.now().Year())); err != nil {
		log.Printf("[service] WARN: failed to invalidate dashboard cache: %v", err)
	}
}
