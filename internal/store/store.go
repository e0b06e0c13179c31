package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrBusinessRule      = errors.New("business rule violation")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrDuplicate         = errors.New("duplicate entry")
)

// CheckoutOptions tunes the side effects CreatePayment runs inside its
// transaction.
type CheckoutOptions struct {
	ClearCart bool
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	AddCartItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, id int64, quantity int) (*domain.CartItem, error)
	ListCartItems(ctx context.Context) ([]domain.CartItem, error)
	ClearCart(ctx context.Context) (int64, error)

	CreatePayment(ctx context.Context, payment domain.Payment, opts CheckoutOptions) (*domain.Payment, error)
	FindPaymentByIdempotency(ctx context.Context, key string) (*domain.Payment, error)
	GetPayment(ctx context.Context, id int64) (*domain.Payment, error)
	ListPayments(ctx context.Context, limit int) ([]domain.Payment, error)

	CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error)
	ListReturns(ctx context.Context, limit int) ([]domain.Return, error)

	CreatePurchaseBatch(ctx context.Context, rows []domain.ProductIn) ([]domain.ProductIn, error)
	ListPurchases(ctx context.Context, from time.Time, to time.Time) ([]domain.ProductIn, error)

	ListLedgerEvents(ctx context.Context, until time.Time, productID int64) ([]domain.LedgerEvent, error)
	ListSaleLines(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleLine, error)
	SumExpenses(ctx context.Context, from time.Time, to time.Time) (decimal.Decimal, error)
	DashboardTotals(ctx context.Context, from time.Time, to time.Time) (domain.DashboardSummary, error)
	CashierPerformance(ctx context.Context, from time.Time, to time.Time) ([]domain.CashierPerformance, error)

	CreateVoucher(ctx context.Context, voucher domain.Voucher) (*domain.Voucher, error)
	ListVouchers(ctx context.Context) ([]domain.Voucher, error)
	GetVoucher(ctx context.Context, code string) (*domain.Voucher, error)
	TransitionVoucher(ctx context.Context, code string, action domain.VoucherAction, at time.Time) (*domain.Voucher, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
