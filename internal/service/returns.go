package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

// ProcessReturn records a return and its lines in one transaction. When a
// payment is referenced, returned quantities are capped by what it sold.
func (s *Service) ProcessReturn(ctx context.Context, req domain.ReturnRequest) (domain.Return, error) {
	reason := strings.TrimSpace(req.ReturnReason)
	if reason == "" {
		return domain.Return{}, fmt.Errorf("%w: returnReason is required", store.ErrInvalidInput)
	}
	if len(req.CartItems) == 0 {
		return domain.Return{}, fmt.Errorf("%w: cartItems must not be empty", store.ErrInvalidInput)
	}
	if req.PaymentID < 0 {
		return domain.Return{}, fmt.Errorf("%w: paymentId must not be negative", store.ErrInvalidInput)
	}

	items := make([]domain.ReturnItem, 0, len(req.CartItems))
	for i, item := range req.CartItems {
		switch {
		case item.ID < 1:
			return domain.Return{}, fmt.Errorf("%w: cartItems[%d].id is required", store.ErrInvalidInput, i)
		case item.Quantity < 1:
			return domain.Return{}, fmt.Errorf("%w: cartItems[%d].quantity must be greater than zero", store.ErrInvalidInput, i)
		case item.Price.IsNegative():
			return domain.Return{}, fmt.Errorf("%w: cartItems[%d].price must not be negative", store.ErrInvalidInput, i)
		}

		name := strings.TrimSpace(item.Name)
		if name == "" {
			product, err := s.repo.GetProduct(ctx, item.ID)
			if err != nil {
				return domain.Return{}, err
			}
			name = product.Name
		}
		items = append(items, domain.ReturnItem{
			ProductID:   item.ID,
			ProductName: name,
			Price:       item.Price,
			Quantity:    item.Quantity,
		})
	}

	createdBy, createdByUserID := s.creator(ctx)

	txCtx, cancel := s.txContext(ctx)
	defer cancel()

	created, err := s.repo.CreateReturn(txCtx, domain.Return{
		Reason:          reason,
		PaymentID:       req.PaymentID,
		CreatedBy:       createdBy,
		CreatedByUserID: createdByUserID,
		CreatedAt:       s.now(),
		Items:           items,
	})
	if err != nil {
		return domain.Return{}, err
	}

	value := decimal.Zero
	for _, item := range created.Items {
		value = value.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	s.events.Publish(domain.LiveEvent{
		Type:      domain.EventReturnCreated,
		EntityID:  created.ID,
		Amount:    value.String(),
		Actor:     created.CreatedBy,
		CreatedAt: created.CreatedAt,
	})
	s.logAudit(ctx, "return", "return", strconv.FormatInt(created.ID, 10),
		fmt.Sprintf("reason=%s,payment=%d,items=%d,value=%s", created.Reason, created.PaymentID, len(created.Items), value))

	return *created, nil
}

func (s *Service) ListReturns(ctx context.Context, limit int) ([]domain.Return, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListReturns(ctx, limit)
}
