package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/domain"
)

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, active)
		VALUES ($1,$2,$3)
		RETURNING id, created_at
	`, customer.Name, customer.Phone, customer.Active).Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, active, created_at
		FROM customers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO expenses (date, category, description, amount)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at
	`, expense.Date, expense.Category, expense.Description, expense.Amount).Scan(&expense.ID, &expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	expense.CreatedAt = expense.CreatedAt.UTC()
	return &expense, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, category, description, amount, created_at
		FROM expenses
		WHERE date >= $1 AND date < $2
		ORDER BY date ASC, id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Date, &e.Category, &e.Description, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		e.CreatedAt = e.CreatedAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) SumExpenses(ctx context.Context, from time.Time, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE date >= $1 AND date < $2
	`, from, to).Scan(&total)
	return total, err
}
