package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

func dashboardCacheKey(year int) string {
	return fmt.Sprintf("dashboard:summary:%d", year)
}

// ProductMovement lists purchases and sales in the range with the running
// inventory at each event. Inventory counts everything before the range too.
func (s *Service) ProductMovement(ctx context.Context, startDate string, endDate string, productID int64) (domain.MovementReport, error) {
	from, to, err := parseRange(startDate, endDate)
	if err != nil {
		return domain.MovementReport{}, err
	}

	events, err := s.repo.ListLedgerEvents(ctx, to, productID)
	if err != nil {
		return domain.MovementReport{}, err
	}
	events = annotateInventory(events)

	report := domain.MovementReport{
		Movements: make([]domain.LedgerEvent, 0, len(events)),
		Summary: domain.MovementSummary{
			TotalSales: decimal.Zero,
			TotalCost:  decimal.Zero,
			ProfitLoss: decimal.Zero,
		},
	}
	for _, e := range events {
		if e.Date.Before(from) {
			continue
		}
		report.Movements = append(report.Movements, e)
		if e.Type == domain.LedgerSale {
			qty := decimal.NewFromInt(int64(e.Quantity))
			report.Summary.TotalSales = report.Summary.TotalSales.Add(e.Price.Mul(qty))
			report.Summary.TotalCost = report.Summary.TotalCost.Add(e.LastCost.Mul(qty))
		}
	}
	report.Summary.ProfitLoss = report.Summary.TotalSales.Sub(report.Summary.TotalCost)
	return report, nil
}

func (s *Service) ProfitLoss(ctx context.Context, startDate string, endDate string) (domain.ProfitLossReport, error) {
	from, to, err := parseRange(startDate, endDate)
	if err != nil {
		return domain.ProfitLossReport{}, err
	}

	lines, err := s.repo.ListSaleLines(ctx, from, to)
	if err != nil {
		return domain.ProfitLossReport{}, err
	}
	expenses, err := s.repo.SumExpenses(ctx, from, to)
	if err != nil {
		return domain.ProfitLossReport{}, err
	}

	report := domain.ProfitLossReport{
		StartDate: strings.TrimSpace(startDate),
		EndDate:   strings.TrimSpace(endDate),
		Sales:     decimal.Zero,
		Cost:      decimal.Zero,
		Expenses:  expenses,
		Receipts:  make([]domain.ProfitLossReceipt, 0, 16),
	}

	index := make(map[int64]int, 16)
	names := make(map[int64][]string, 16)
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		amount := line.Price.Mul(qty)
		report.Sales = report.Sales.Add(amount)
		report.Cost = report.Cost.Add(line.LastCost.Mul(qty))

		i, ok := index[line.PaymentID]
		if !ok {
			i = len(report.Receipts)
			index[line.PaymentID] = i
			report.Receipts = append(report.Receipts, domain.ProfitLossReceipt{
				PaymentID:     line.PaymentID,
				ReceiptNumber: line.ReceiptNumber,
				Date:          line.CreatedAt,
				Sales:         decimal.Zero,
			})
		}
		report.Receipts[i].Sales = report.Receipts[i].Sales.Add(amount)
		names[line.PaymentID] = append(names[line.PaymentID], line.ProductName)
	}
	for i := range report.Receipts {
		report.Receipts[i].Items = strings.Join(names[report.Receipts[i].PaymentID], ", ")
	}

	report.ProfitLoss = report.Sales.Sub(report.Cost).Sub(report.Expenses)
	return report, nil
}

// unitCost is the product's last cost, or the configured fallback ratio of
// the sale price when no cost has been recorded.
func (s *Service) unitCost(lastCost decimal.Decimal, price decimal.Decimal) decimal.Decimal {
	if lastCost.IsPositive() {
		return lastCost
	}
	return price.Mul(s.settings.CostFallbackRatio)
}

func profitPercent(profit decimal.Decimal, sales decimal.Decimal) decimal.Decimal {
	if sales.IsZero() {
		return decimal.Zero
	}
	return profit.Div(sales).Mul(hundred).Round(2)
}

func (s *Service) SalesProfit(ctx context.Context, startDate string, endDate string) (domain.SalesProfitReport, error) {
	from, to, err := parseRange(startDate, endDate)
	if err != nil {
		return domain.SalesProfitReport{}, err
	}

	lines, err := s.repo.ListSaleLines(ctx, from, to)
	if err != nil {
		return domain.SalesProfitReport{}, err
	}

	report := domain.SalesProfitReport{
		StartDate: strings.TrimSpace(startDate),
		EndDate:   strings.TrimSpace(endDate),
		Rows:      make([]domain.SalesProfitRow, 0, 16),
		Totals: domain.SalesProfitTotals{
			Sales:         decimal.Zero,
			Discount:      decimal.Zero,
			Cost:          decimal.Zero,
			Profit:        decimal.Zero,
			ProfitPercent: decimal.Zero,
		},
	}

	index := make(map[int64]int, 16)
	for _, line := range lines {
		i, ok := index[line.PaymentID]
		if !ok {
			i = len(report.Rows)
			index[line.PaymentID] = i
			report.Rows = append(report.Rows, domain.SalesProfitRow{
				PaymentID:     line.PaymentID,
				ReceiptNumber: line.ReceiptNumber,
				Date:          line.CreatedAt,
				Customer:      line.Customer,
				Sales:         decimal.Zero,
				Discount:      decimal.Zero,
				Cost:          decimal.Zero,
			})
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		row := &report.Rows[i]
		row.Sales = row.Sales.Add(line.Price.Mul(qty))
		row.Discount = row.Discount.Add(line.Discount)
		row.Cost = row.Cost.Add(s.unitCost(line.LastCost, line.Price).Mul(qty))
	}

	for i := range report.Rows {
		row := &report.Rows[i]
		row.Profit = row.Sales.Sub(row.Discount).Sub(row.Cost)
		row.ProfitPercent = profitPercent(row.Profit, row.Sales)

		report.Totals.Sales = report.Totals.Sales.Add(row.Sales)
		report.Totals.Discount = report.Totals.Discount.Add(row.Discount)
		report.Totals.Cost = report.Totals.Cost.Add(row.Cost)
		report.Totals.Profit = report.Totals.Profit.Add(row.Profit)
	}
	report.Totals.ProfitPercent = profitPercent(report.Totals.Profit, report.Totals.Sales)
	return report, nil
}

// Reorder reports, per active product, how far trailing sales have eaten
// into the minimum quantity alongside the true stock on hand.
func (s *Service) Reorder(ctx context.Context) (domain.ReorderReport, error) {
	now := s.now()
	windowStart := now.AddDate(0, 0, -s.settings.ReorderWindowDays)

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.ReorderReport{}, err
	}
	lines, err := s.repo.ListSaleLines(ctx, windowStart, now.Add(time.Nanosecond))
	if err != nil {
		return domain.ReorderReport{}, err
	}
	events, err := s.repo.ListLedgerEvents(ctx, now.Add(time.Nanosecond), 0)
	if err != nil {
		return domain.ReorderReport{}, err
	}

	sold := make(map[int64]int, len(products))
	for _, line := range lines {
		sold[line.ProductID] += line.Quantity
	}
	onHand := onHandByProduct(events)

	report := domain.ReorderReport{
		WindowDays: s.settings.ReorderWindowDays,
		Items:      make([]domain.ReorderRow, 0, len(products)),
	}
	for _, p := range products {
		if p.Status != domain.ProductStatusActive {
			continue
		}
		report.Items = append(report.Items, domain.ReorderRow{
			ProductID:    p.ID,
			Name:         p.Name,
			Barcode:      p.Barcode,
			Supplier:     p.Supplier,
			MinQuantity:  p.MinQuantity,
			SaleQty:      sold[p.ID],
			CurrentStock: p.MinQuantity - sold[p.ID],
			OnHand:       onHand[p.ID],
			BelowMinimum: onHand[p.ID] < p.MinQuantity,
			LastCost:     p.LastCost,
		})
	}
	return report, nil
}

// DashboardSummary covers the current calendar year and is served from the
// report cache while fresh.
func (s *Service) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	year := s.now().Year()
	key := dashboardCacheKey(year)

	var cached domain.DashboardSummary
	if hit, err := s.reports.Get(ctx, key, &cached); err != nil {
		log.Printf("[service] WARN: dashboard cache read failed: %v", err)
	} else if hit {
		return cached, nil
	}

	gen := s.dashboardGen.Load()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	summary, err := s.repo.DashboardTotals(ctx, from, from.AddDate(1, 0, 0))
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	summary.Year = year

	if s.dashboardGen.Load() != gen {
		return summary, nil
	}
	if err := s.reports.Set(ctx, key, summary, s.settings.DashboardCacheTTL); err != nil {
		log.Printf("[service] WARN: dashboard cache write failed: %v", err)
	} else if s.dashboardGen.Load() != gen {
		_ = s.reports.Delete(ctx, key)
	}
	return summary, nil
}

func (s *Service) CashierPerformance(ctx context.Context, startDate string, endDate string) ([]domain.CashierPerformance, error) {
	from, to, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return s.repo.CashierPerformance(ctx, from, to)
}
