package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/domain"
)

func (s *Store) ListLedgerEvents(ctx context.Context, until time.Time, productID int64) ([]domain.LedgerEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT 'Purchase' AS type, pin.date, pin.product_id, pin.product_name, pin.quantity,
			pin.cost, p.last_cost, pin.id, '' AS receipt_number
		FROM productin pin
		JOIN products p ON p.id = pin.product_id
		WHERE pin.date < $1 AND ($2::bigint = 0 OR pin.product_id = $2::bigint)
		UNION ALL
		SELECT 'Sale', pay.created_at, it.product_id, it.product_name, it.quantity,
			it.price, p.last_cost, pay.id, pay.receipt_number
		FROM payment_items it
		JOIN payments pay ON pay.id = it.payment_id
		JOIN products p ON p.id = it.product_id
		WHERE pay.status = 'Active' AND pay.created_at < $1 AND ($2::bigint = 0 OR it.product_id = $2::bigint)
		ORDER BY 2 ASC, 1 ASC, 8 ASC, 3 ASC
	`, until, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.LedgerEvent, 0, 256)
	for rows.Next() {
		var e domain.LedgerEvent
		if err := rows.Scan(&e.Type, &e.Date, &e.ProductID, &e.ProductName, &e.Quantity, &e.Price, &e.LastCost, &e.Reference, &e.ReceiptNumber); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) ListSaleLines(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pay.id, pay.receipt_number, pay.created_at, pay.customer, pay.payment_method,
			pay.created_by, COALESCE(pay.created_by_user_id, 0),
			it.product_id, it.product_name, it.price, it.quantity, it.discount, p.last_cost
		FROM payments pay
		JOIN payment_items it ON it.payment_id = pay.id
		JOIN products p ON p.id = it.product_id
		WHERE pay.status = 'Active'
			AND pay.created_at >= $1
			AND pay.created_at < $2
		ORDER BY pay.created_at ASC, pay.id ASC, it.id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.SaleLine, 0, 256)
	for rows.Next() {
		var l domain.SaleLine
		if err := rows.Scan(&l.PaymentID, &l.ReceiptNumber, &l.CreatedAt, &l.Customer, &l.PaymentMethod,
			&l.CreatedBy, &l.CreatedByUserID, &l.ProductID, &l.ProductName, &l.Price, &l.Quantity, &l.Discount, &l.LastCost); err != nil {
			return nil, err
		}
		l.CreatedAt = l.CreatedAt.UTC()
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) DashboardTotals(ctx context.Context, from time.Time, to time.Time) (domain.DashboardSummary, error) {
	summary := domain.DashboardSummary{MonthlySales: make([]domain.MonthlySales, 12)}
	for i := range summary.MonthlySales {
		summary.MonthlySales[i] = domain.MonthlySales{Month: i + 1, Total: decimal.Zero}
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE lower(payment_method) = 'cash'), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE lower(payment_method) = 'voucher'), 0),
			COUNT(*)
		FROM payments
		WHERE status = 'Active' AND created_at >= $1 AND created_at < $2
	`, from, to).Scan(&summary.TotalSales, &summary.CashSales, &summary.VoucherSales, &summary.ReceiptCount)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products WHERE status = 'Active'),
			(SELECT COUNT(*) FROM customers WHERE active)
	`).Scan(&summary.ActiveProducts, &summary.ActiveCustomers)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month, SUM(total_amount)
		FROM payments
		WHERE status = 'Active' AND created_at >= $1 AND created_at < $2
		GROUP BY 1
	`, from, to)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var month int
		var total decimal.Decimal
		if err := rows.Scan(&month, &total); err != nil {
			return domain.DashboardSummary{}, err
		}
		if month >= 1 && month <= 12 {
			summary.MonthlySales[month-1].Total = total
		}
	}
	if err := rows.Err(); err != nil {
		return domain.DashboardSummary{}, err
	}
	return summary, nil
}

// CashierPerformance joins payments to users by id. Rows written before
// created_by_user_id existed fall back to a username match.
func (s *Store) CashierPerformance(ctx context.Context, from time.Time, to time.Time) ([]domain.CashierPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username,
			COALESCE(SUM(pay.total_amount), 0),
			COALESCE(SUM(pay.total_amount) FILTER (WHERE lower(pay.payment_method) = 'cash'), 0),
			COALESCE(SUM(pay.total_amount) FILTER (WHERE lower(pay.payment_method) = 'voucher'), 0),
			COUNT(pay.id)
		FROM payments pay
		JOIN users u ON u.id = pay.created_by_user_id
			OR (pay.created_by_user_id IS NULL AND lower(pay.created_by) = lower(u.username))
		WHERE pay.status = 'Active'
			AND pay.created_at >= $1
			AND pay.created_at < $2
		GROUP BY u.id, u.username
		ORDER BY 3 DESC, u.username ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.CashierPerformance, 0, 16)
	for rows.Next() {
		var row domain.CashierPerformance
		if err := rows.Scan(&row.UserID, &row.Username, &row.TotalSales, &row.CashSales, &row.VoucherSales, &row.Receipts); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
