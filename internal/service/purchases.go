package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

// RecordPurchases writes a purchase-in batch. Each row carries the stock
// on hand after it was applied, and the product's last cost moves to the
// row's cost.
func (s *Service) RecordPurchases(ctx context.Context, req domain.PurchaseRequest) ([]domain.ProductIn, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items must not be empty", store.ErrInvalidInput)
	}
	date, err := parseDate(req.Date, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD or RFC3339", store.ErrInvalidInput)
	}

	rows := make([]domain.ProductIn, 0, len(req.Items))
	for i, line := range req.Items {
		switch {
		case line.ProductID < 1:
			return nil, fmt.Errorf("%w: items[%d].productId is required", store.ErrInvalidInput, i)
		case line.Quantity < 1:
			return nil, fmt.Errorf("%w: items[%d].quantity must be greater than zero", store.ErrInvalidInput, i)
		case line.Cost == nil || line.Cost.IsNegative():
			return nil, fmt.Errorf("%w: items[%d].cost must be zero or more", store.ErrInvalidInput, i)
		}
		rows = append(rows, domain.ProductIn{
			Date:      date,
			ProductID: line.ProductID,
			Cost:      *line.Cost,
			Quantity:  line.Quantity,
			Supplier:  strings.TrimSpace(line.Supplier),
		})
	}

	txCtx, cancel := s.txContext(ctx)
	defer cancel()

	created, err := s.repo.CreatePurchaseBatch(txCtx, rows)
	if err != nil {
		return nil, err
	}

	for _, row := range created {
		s.logAudit(ctx, "purchase_in", "productin", strconv.FormatInt(row.ID, 10),
			fmt.Sprintf("product=%d,qty=%d,cost=%s,stock=%d", row.ProductID, row.Quantity, row.Cost, row.Stock))
	}
	return created, nil
}

func (s *Service) ListPurchases(ctx context.Context, startDate string, endDate string) ([]domain.ProductIn, error) {
	from, to, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPurchases(ctx, from, to)
}
