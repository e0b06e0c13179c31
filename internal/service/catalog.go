package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if id < 1 {
		return domain.Product{}, fmt.Errorf("%w: product id is required", store.ErrInvalidInput)
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Barcode = strings.TrimSpace(req.Barcode)
	if req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	if req.Price == nil || req.Price.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: price must be zero or more", store.ErrInvalidInput)
	}
	if req.Discount.IsNegative() || req.LastCost.IsNegative() || req.MinQuantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: discount, lastCost and minQuantity must not be negative", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:        req.Name,
		Barcode:     req.Barcode,
		Category:    strings.TrimSpace(req.Category),
		Supplier:    strings.TrimSpace(req.Supplier),
		Price:       *req.Price,
		Discount:    req.Discount,
		MinQuantity: req.MinQuantity,
		LastCost:    req.LastCost,
		Status:      domain.ProductStatusActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.Product{}, fmt.Errorf("%w: barcode %s already exists", store.ErrBusinessRule, req.Barcode)
		}
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", strconv.FormatInt(created.ID, 10),
		fmt.Sprintf("name=%s,price=%s", created.Name, created.Price))
	s.invalidateDashboard(ctx)
	return *created, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:   name,
		Phone:  strings.TrimSpace(req.Phone),
		Active: true,
	})
	if err != nil {
		return domain.Customer{}, err
	}
	s.invalidateDashboard(ctx)
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if req.Amount == nil || req.Amount.IsNegative() {
		return domain.Expense{}, fmt.Errorf("%w: amount must be zero or more", store.ErrInvalidInput)
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return domain.Expense{}, fmt.Errorf("%w: category is required", store.ErrInvalidInput)
	}
	date, err := parseDate(req.Date, s.now())
	if err != nil {
		return domain.Expense{}, fmt.Errorf("%w: date must be YYYY-MM-DD or RFC3339", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		Date:        date,
		Category:    category,
		Description: strings.TrimSpace(req.Description),
		Amount:      *req.Amount,
	})
	if err != nil {
		return domain.Expense{}, err
	}

	s.logAudit(ctx, "expense_create", "expense", strconv.FormatInt(created.ID, 10),
		fmt.Sprintf("category=%s,amount=%s", created.Category, created.Amount))
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, startDate string, endDate string) ([]domain.Expense, error) {
	from, to, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, from, to)
}
