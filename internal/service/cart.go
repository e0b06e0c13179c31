package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

func (s *Service) AddToCart(ctx context.Context, req domain.CartAddRequest) (domain.CartItem, error) {
	if req.ProductID < 1 {
		return domain.CartItem{}, fmt.Errorf("%w: productId is required", store.ErrInvalidInput)
	}
	if req.Quantity < 1 {
		return domain.CartItem{}, fmt.Errorf("%w: quantity must be greater than zero", store.ErrInvalidInput)
	}

	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.CartItem{}, err
	}

	created, err := s.repo.AddCartItem(ctx, domain.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Price:       product.Price,
		Quantity:    req.Quantity,
		Status:      defaultString(strings.ToLower(req.Status), domain.CartStatusPending),
	})
	if err != nil {
		return domain.CartItem{}, err
	}
	created.Total = created.Price.Mul(decimal.NewFromInt(int64(created.Quantity)))
	return *created, nil
}

func (s *Service) UpdateCartItem(ctx context.Context, id int64, req domain.CartUpdateRequest) (domain.CartItem, error) {
	if id < 1 {
		return domain.CartItem{}, fmt.Errorf("%w: cart item id is required", store.ErrInvalidInput)
	}
	if req.Quantity == nil || *req.Quantity < 1 {
		return domain.CartItem{}, fmt.Errorf("%w: quantity must be greater than zero", store.ErrInvalidInput)
	}

	updated, err := s.repo.UpdateCartItemQuantity(ctx, id, *req.Quantity)
	if err != nil {
		return domain.CartItem{}, err
	}
	updated.Total = updated.Price.Mul(decimal.NewFromInt(int64(updated.Quantity)))
	return *updated, nil
}

func (s *Service) ListCart(ctx context.Context) (domain.CartListResponse, error) {
	items, err := s.repo.ListCartItems(ctx)
	if err != nil {
		return domain.CartListResponse{}, err
	}
	if len(items) == 0 && s.settings.CartEmptyAsNotFound {
		return domain.CartListResponse{}, fmt.Errorf("%w: cart is empty", store.ErrNotFound)
	}

	total := decimal.Zero
	for i := range items {
		items[i].Total = items[i].Price.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		total = total.Add(items[i].Total)
	}
	return domain.CartListResponse{Items: items, Total: total}, nil
}

func (s *Service) ClearCart(ctx context.Context) (int64, error) {
	return s.repo.ClearCart(ctx)
}
