package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Barcode     string          `json:"barcode"`
	Category    string          `json:"category"`
	Supplier    string          `json:"supplier"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	MinQuantity int             `json:"minQuantity"`
	LastCost    decimal.Decimal `json:"lastCost"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ProductCreateRequest struct {
	Name        string           `json:"name"`
	Barcode     string           `json:"barcode"`
	Category    string           `json:"category"`
	Supplier    string           `json:"supplier"`
	Price       *decimal.Decimal `json:"price"`
	Discount    decimal.Decimal  `json:"discount"`
	MinQuantity int              `json:"minQuantity"`
	LastCost    decimal.Decimal  `json:"lastCost"`
}

type CartItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type CartAddRequest struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
}

type CartUpdateRequest struct {
	Quantity *int `json:"quantity"`
}

type CartListResponse struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// CheckoutItem is a cart line as submitted by the front end; ID is the product id.
type CheckoutItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Discount decimal.Decimal `json:"discount"`
}

type CheckoutRequest struct {
	PaymentMethod  string           `json:"paymentMethod"`
	TotalAmount    *decimal.Decimal `json:"totalAmount"`
	CartItems      []CheckoutItem   `json:"cartItems"`
	Customer       string           `json:"customer"`
	Phone          string           `json:"phone"`
	ReceiptNumber  string           `json:"receiptNumber"`
	Cash           *decimal.Decimal `json:"cash"`
	Card           *decimal.Decimal `json:"card"`
	IdempotencyKey string           `json:"idempotencyKey"`
	VoucherCode    string           `json:"voucherCode"`
}

type Payment struct {
	ID              int64           `json:"id"`
	PaymentMethod   string          `json:"paymentMethod"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Customer        string          `json:"customer"`
	Phone           string          `json:"phone"`
	ReceiptNumber   string          `json:"receiptNumber"`
	Cash            decimal.Decimal `json:"cash"`
	Card            decimal.Decimal `json:"card"`
	CreatedBy       string          `json:"createdBy"`
	CreatedByUserID int64           `json:"createdByUserId,omitempty"`
	Status          string          `json:"status"`
	IdempotencyKey  string          `json:"idempotencyKey"`
	VoucherCode     string          `json:"voucherCode,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	Items           []PaymentItem   `json:"items"`
}

type PaymentItem struct {
	ID          int64           `json:"id"`
	PaymentID   int64           `json:"paymentId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Discount    decimal.Decimal `json:"discount"`
}

type CheckoutResponse struct {
	Payment   Payment `json:"payment"`
	Duplicate bool    `json:"duplicate"`
}

type CheckoutLookupResponse struct {
	Found   bool     `json:"found"`
	Payment *Payment `json:"payment,omitempty"`
}

type ReturnItemInput struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type ReturnRequest struct {
	ReturnReason string            `json:"returnReason"`
	CartItems    []ReturnItemInput `json:"cartItems"`
	PaymentID    int64             `json:"paymentId"`
}

type Return struct {
	ID              int64        `json:"id"`
	Reason          string       `json:"reason"`
	PaymentID       int64        `json:"paymentId,omitempty"`
	CreatedBy       string       `json:"createdBy"`
	CreatedByUserID int64        `json:"createdByUserId,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	Items           []ReturnItem `json:"items"`
}

type ReturnItem struct {
	ID          int64           `json:"id"`
	ReturnID    int64           `json:"returnId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// ProductIn is one purchase-in ledger row. Stock is the on-hand quantity
// right after the row was recorded.
type ProductIn struct {
	ID          int64           `json:"id"`
	Date        time.Time       `json:"date"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Cost        decimal.Decimal `json:"cost"`
	Quantity    int             `json:"quantity"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	Stock       int             `json:"stock"`
	Supplier    string          `json:"supplier"`
}

type PurchaseLine struct {
	ProductID int64            `json:"productId"`
	Cost      *decimal.Decimal `json:"cost"`
	Quantity  int              `json:"quantity"`
	Supplier  string           `json:"supplier"`
}

type PurchaseRequest struct {
	Date  string         `json:"date"`
	Items []PurchaseLine `json:"items"`
}

type Voucher struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Value       decimal.Decimal `json:"value"`
	ValidFrom   time.Time       `json:"validFrom"`
	ValidUntil  time.Time       `json:"validUntil"`
	Status      string          `json:"status"`
	Active      bool            `json:"active"`
	PaymentID   int64           `json:"paymentId,omitempty"`
	RedeemedAt  *time.Time      `json:"redeemedAt,omitempty"`
	CancelledAt *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type VoucherCreateRequest struct {
	Code       string           `json:"code"`
	Value      *decimal.Decimal `json:"value"`
	ValidFrom  string           `json:"validFrom"`
	ValidUntil string           `json:"validUntil"`
}

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Expense struct {
	ID          int64           `json:"id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ExpenseCreateRequest struct {
	Date        string           `json:"date"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	UserID      int64  `json:"userId"`
	Role        Role   `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}

type Actor struct {
	UserID   int64
	Username string
	Role     Role
}

// UserAccount is the stored credential row; Password holds a bcrypt hash.
type UserAccount struct {
	ID        int64
	Username  string
	Password  string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actorUsername"`
	ActorRole     string    `json:"actorRole"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entityType"`
	EntityID      string    `json:"entityId"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"createdAt"`
}

// LedgerEvent is one stock movement. Price is the sale price for sales and
// the unit cost for purchases.
type LedgerEvent struct {
	Type          string          `json:"type"`
	Date          time.Time       `json:"date"`
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	LastCost      decimal.Decimal `json:"-"`
	Reference     int64           `json:"reference"`
	ReceiptNumber string          `json:"receiptNumber,omitempty"`
	Inventory     int             `json:"inventory"`
}

type MovementSummary struct {
	TotalSales decimal.Decimal `json:"totalSales"`
	TotalCost  decimal.Decimal `json:"totalCost"`
	ProfitLoss decimal.Decimal `json:"profitLoss"`
}

type MovementReport struct {
	Movements []LedgerEvent   `json:"movements"`
	Summary   MovementSummary `json:"summary"`
}

// SaleLine is a payment item joined with its payment header and the
// product's current last cost.
type SaleLine struct {
	PaymentID       int64
	ReceiptNumber   string
	CreatedAt       time.Time
	Customer        string
	PaymentMethod   string
	CreatedBy       string
	CreatedByUserID int64
	ProductID       int64
	ProductName     string
	Price           decimal.Decimal
	Quantity        int
	Discount        decimal.Decimal
	LastCost        decimal.Decimal
}

type ProfitLossReceipt struct {
	PaymentID     int64           `json:"paymentId"`
	ReceiptNumber string          `json:"receiptNumber"`
	Date          time.Time       `json:"date"`
	Sales         decimal.Decimal `json:"sales"`
	Items         string          `json:"items"`
}

type ProfitLossReport struct {
	StartDate  string              `json:"startDate"`
	EndDate    string              `json:"endDate"`
	Sales      decimal.Decimal     `json:"sales"`
	Cost       decimal.Decimal     `json:"cost"`
	Expenses   decimal.Decimal     `json:"expenses"`
	ProfitLoss decimal.Decimal     `json:"profitLoss"`
	Receipts   []ProfitLossReceipt `json:"receipts"`
}

type SalesProfitRow struct {
	PaymentID     int64           `json:"paymentId"`
	ReceiptNumber string          `json:"receiptNumber"`
	Date          time.Time       `json:"date"`
	Customer      string          `json:"customer"`
	Sales         decimal.Decimal `json:"sales"`
	Discount      decimal.Decimal `json:"discount"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profitPercent"`
}

type SalesProfitTotals struct {
	Sales         decimal.Decimal `json:"sales"`
	Discount      decimal.Decimal `json:"discount"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profitPercent"`
}

type SalesProfitReport struct {
	StartDate string            `json:"startDate"`
	EndDate   string            `json:"endDate"`
	Rows      []SalesProfitRow  `json:"rows"`
	Totals    SalesProfitTotals `json:"totals"`
}

// ReorderRow.CurrentStock is minQuantity minus trailing sales, a figure
// relative to the threshold. OnHand is the running inventory.
type ReorderRow struct {
	ProductID    int64           `json:"productId"`
	Name         string          `json:"name"`
	Barcode      string          `json:"barcode"`
	Supplier     string          `json:"supplier"`
	MinQuantity  int             `json:"minQuantity"`
	SaleQty      int             `json:"saleQty"`
	CurrentStock int             `json:"currentStock"`
	OnHand       int             `json:"onHand"`
	BelowMinimum bool            `json:"belowMinimum"`
	LastCost     decimal.Decimal `json:"lastCost"`
}

type ReorderReport struct {
	WindowDays int          `json:"windowDays"`
	Items      []ReorderRow `json:"items"`
}

type MonthlySales struct {
	Month int             `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type DashboardSummary struct {
	Year            int             `json:"year"`
	CashSales       decimal.Decimal `json:"cashSales"`
	VoucherSales    decimal.Decimal `json:"voucherSales"`
	TotalSales      decimal.Decimal `json:"totalSales"`
	ReceiptCount    int             `json:"receiptCount"`
	ActiveProducts  int             `json:"activeProducts"`
	ActiveCustomers int             `json:"activeCustomers"`
	MonthlySales    []MonthlySales  `json:"monthlySales"`
}

type CashierPerformance struct {
	UserID       int64           `json:"userId"`
	Username     string          `json:"username"`
	TotalSales   decimal.Decimal `json:"totalSales"`
	CashSales    decimal.Decimal `json:"cashSales"`
	VoucherSales decimal.Decimal `json:"voucherSales"`
	Receipts     int             `json:"receipts"`
}

type LiveEvent struct {
	Type      string    `json:"type"`
	EntityID  int64     `json:"entityId"`
	Amount    string    `json:"amount,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	ProductStatusActive   = "Active"
	ProductStatusInactive = "Inactive"
)

const (
	PaymentStatusActive = "Active"
	PaymentStatusVoided = "Voided"
)

const (
	PaymentMethodCash    = "Cash"
	PaymentMethodCard    = "Card"
	PaymentMethodVoucher = "Voucher"
)

const (
	LedgerSale     = "Sale"
	LedgerPurchase = "Purchase"
)

const (
	CartStatusPending = "pending"
)

const (
	EventPaymentCreated = "payment.created"
	EventReturnCreated  = "return.created"
)
