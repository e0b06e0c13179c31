package memory

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

type Store struct {
	mu             sync.RWMutex
	seq            map[string]int64
	products       map[int64]domain.Product
	cart           map[int64]domain.CartItem
	payments       map[int64]*domain.Payment
	paymentsByIdem map[string]int64
	returns        map[int64]*domain.Return
	productIns     []domain.ProductIn
	vouchers       map[string]domain.Voucher
	customers      map[int64]domain.Customer
	expenses       []domain.Expense
	auditLogs      []domain.AuditLog
	users          map[string]domain.UserAccount

	// itemInsertHook runs before each staged payment item; an error aborts
	// the checkout.
	itemInsertHook func(index int) error
}

func New() *Store {
	return &Store{
		seq:            make(map[string]int64),
		products:       make(map[int64]domain.Product),
		cart:           make(map[int64]domain.CartItem),
		payments:       make(map[int64]*domain.Payment),
		paymentsByIdem: make(map[string]int64),
		returns:        make(map[int64]*domain.Return),
		productIns:     make([]domain.ProductIn, 0, 64),
		vouchers:       make(map[string]domain.Voucher),
		customers:      make(map[int64]domain.Customer),
		expenses:       make([]domain.Expense, 0, 16),
		auditLogs:      make([]domain.AuditLog, 0, 128),
		users:          make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD.
// When unset, dev defaults are used with a warning.
func (s *Store) seedUsers() {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	for _, u := range []struct {
		username string
		password string
		role     domain.Role
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		s.users[u.username] = domain.UserAccount{
			ID:        s.next("users"),
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with demo users, a small grocery catalog and an
// opening purchase of 120 units per product.
func NewSeeded() *Store {
	s := New()
	s.seedUsers()

	catalog := []struct {
		name     string
		barcode  string
		category string
		supplier string
		price    int64
		cost     int64
		min      int
	}{
		{"Mie Goreng Instan", "8991002101", "grocery", "PT Sumber Pangan", 3500, 2730, 40},
		{"Telur 10 Butir", "8991002102", "grocery", "CV Ayam Jaya", 26500, 23050, 40},
		{"Susu UHT 1L", "8991002103", "dairy", "PT Susu Segar", 18900, 13600, 35},
		{"Roti Tawar", "8991002104", "bakery", "Roti Pagi", 17800, 12460, 20},
		{"Kopi Sachet", "8991002105", "beverage", "PT Kopi Nusantara", 2600, 1710, 40},
		{"Gula 1kg", "8991002106", "grocery", "PT Sumber Pangan", 17400, 15310, 40},
		{"Teh Celup", "8991002107", "beverage", "PT Kopi Nusantara", 9800, 7250, 30},
		{"Air Mineral 600ml", "8991002108", "beverage", "PT Tirta", 3900, 3200, 40},
		{"Keripik Singkong", "8991002109", "snack", "UD Camilan", 12800, 8060, 35},
		{"Coklat Batang", "8991002110", "snack", "UD Camilan", 8600, 5590, 35},
		{"Sabun Mandi", "8991002111", "household", "PT Bersih", 7400, 5030, 30},
		{"Shampoo Sachet", "8991002112", "household", "PT Bersih", 3200, 2140, 30},
	}

	opened := time.Now().UTC().Add(-24 * time.Hour)
	for _, c := range catalog {
		id := s.next("products")
		s.products[id] = domain.Product{
			ID:          id,
			Name:        c.name,
			Barcode:     c.barcode,
			Category:    c.category,
			Supplier:    c.supplier,
			Price:       decimal.NewFromInt(c.price),
			MinQuantity: c.min,
			LastCost:    decimal.NewFromInt(c.cost),
			Status:      domain.ProductStatusActive,
			CreatedAt:   opened,
		}
		s.productIns = append(s.productIns, domain.ProductIn{
			ID:          s.next("productin"),
			Date:        opened,
			ProductID:   id,
			ProductName: c.name,
			Cost:        decimal.NewFromInt(c.cost),
			Quantity:    120,
			TotalCost:   decimal.NewFromInt(c.cost * 120),
			Stock:       120,
			Supplier:    c.supplier,
		})
	}

	return s
}

func (s *Store) next(name string) int64 {
	s.seq[name]++
	return s.seq[name]
}

func txFailed(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrTransactionFailed, err)
	}
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Barcode != "" {
		for _, p := range s.products {
			if p.Barcode == product.Barcode {
				return nil, store.ErrDuplicate
			}
		}
	}
	product.ID = s.next("products")
	if product.Status == "" {
		product.Status = domain.ProductStatusActive
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) AddCartItem(_ context.Context, item domain.CartItem) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[item.ProductID]; !ok {
		return nil, store.ErrNotFound
	}
	item.ID = s.next("cart")
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.cart[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) UpdateCartItemQuantity(_ context.Context, id int64, quantity int) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cart[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	item.Quantity = quantity
	s.cart[id] = item
	return &item, nil
}

func (s *Store) ListCartItems(_ context.Context) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CartItem, 0, len(s.cart))
	for _, item := range s.cart {
		result = append(result, item)
	}
	slices.SortFunc(result, func(a, b domain.CartItem) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

func (s *Store) ClearCart(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := int64(len(s.cart))
	s.cart = make(map[int64]domain.CartItem)
	return removed, nil
}

// CreatePayment stages the payment, its items and any voucher redemption,
// and applies them only when every step succeeded.
func (s *Store) CreatePayment(ctx context.Context, payment domain.Payment, opts store.CheckoutOptions) (*domain.Payment, error) {
	if payment.IdempotencyKey == "" || len(payment.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := txFailed(ctx); err != nil {
		return nil, err
	}
	if _, exists := s.paymentsByIdem[payment.IdempotencyKey]; exists {
		return nil, store.ErrDuplicate
	}

	staged := payment
	staged.ID = s.seq["payments"] + 1
	staged.Status = domain.PaymentStatusActive
	if staged.CreatedAt.IsZero() {
		staged.CreatedAt = time.Now().UTC()
	}

	itemSeq := s.seq["payment_items"]
	staged.Items = make([]domain.PaymentItem, 0, len(payment.Items))
	for i, item := range payment.Items {
		if s.itemInsertHook != nil {
			if err := s.itemInsertHook(i); err != nil {
				return nil, fmt.Errorf("%w: insert payment item: %v", store.ErrTransactionFailed, err)
			}
		}
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %d", store.ErrNotFound, item.ProductID)
		}
		itemSeq++
		item.ID = itemSeq
		item.PaymentID = staged.ID
		staged.Items = append(staged.Items, item)
	}

	var voucher *domain.Voucher
	if staged.VoucherCode != "" {
		v, ok := s.vouchers[staged.VoucherCode]
		if !ok {
			return nil, fmt.Errorf("%w: voucher %s", store.ErrNotFound, staged.VoucherCode)
		}
		if err := v.Apply(domain.VoucherRedeem, staged.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrBusinessRule, err)
		}
		if err := v.CoverTotal(staged.TotalAmount, staged.Cash, staged.Card); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
		}
		v.PaymentID = staged.ID
		voucher = &v
	}

	if err := txFailed(ctx); err != nil {
		return nil, err
	}

	s.seq["payments"] = staged.ID
	s.seq["payment_items"] = itemSeq
	s.payments[staged.ID] = &staged
	s.paymentsByIdem[staged.IdempotencyKey] = staged.ID
	if voucher != nil {
		s.vouchers[voucher.Code] = *voucher
	}
	if opts.ClearCart {
		s.cart = make(map[int64]domain.CartItem)
	}

	return clonePayment(&staged), nil
}

func (s *Store) FindPaymentByIdempotency(_ context.Context, key string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.paymentsByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clonePayment(s.payments[id]), nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *Store) ListPayments(_ context.Context, limit int) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		result = append(result, *clonePayment(p))
	}
	slices.SortFunc(result, func(a, b domain.Payment) int { return cmp.Compare(b.ID, a.ID) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error) {
	if len(ret.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := txFailed(ctx); err != nil {
		return nil, err
	}

	if ret.PaymentID != 0 {
		payment, ok := s.payments[ret.PaymentID]
		if !ok {
			return nil, fmt.Errorf("%w: payment %d", store.ErrNotFound, ret.PaymentID)
		}
		remaining := make(map[int64]int, len(payment.Items))
		for _, item := range payment.Items {
			remaining[item.ProductID] += item.Quantity
		}
		for _, prior := range s.returns {
			if prior.PaymentID != ret.PaymentID {
				continue
			}
			for _, item := range prior.Items {
				remaining[item.ProductID] -= item.Quantity
			}
		}
		for _, item := range ret.Items {
			remaining[item.ProductID] -= item.Quantity
			if remaining[item.ProductID] < 0 {
				return nil, fmt.Errorf("%w: return quantity for product %d exceeds quantity sold", store.ErrBusinessRule, item.ProductID)
			}
		}
	}

	staged := ret
	staged.ID = s.seq["returns"] + 1
	if staged.CreatedAt.IsZero() {
		staged.CreatedAt = time.Now().UTC()
	}
	itemSeq := s.seq["return_items"]
	staged.Items = make([]domain.ReturnItem, 0, len(ret.Items))
	for _, item := range ret.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %d", store.ErrNotFound, item.ProductID)
		}
		itemSeq++
		item.ID = itemSeq
		item.ReturnID = staged.ID
		staged.Items = append(staged.Items, item)
	}

	s.seq["returns"] = staged.ID
	s.seq["return_items"] = itemSeq
	s.returns[staged.ID] = &staged
	s.cart = make(map[int64]domain.CartItem)

	return cloneReturn(&staged), nil
}

func (s *Store) ListReturns(_ context.Context, limit int) ([]domain.Return, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Return, 0, len(s.returns))
	for _, r := range s.returns {
		result = append(result, *cloneReturn(r))
	}
	slices.SortFunc(result, func(a, b domain.Return) int { return cmp.Compare(b.ID, a.ID) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreatePurchaseBatch(ctx context.Context, rows []domain.ProductIn) ([]domain.ProductIn, error) {
	if len(rows) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := txFailed(ctx); err != nil {
		return nil, err
	}

	onHand := make(map[int64]int, len(rows))
	lastCost := make(map[int64]decimal.Decimal, len(rows))
	seq := s.seq["productin"]
	staged := make([]domain.ProductIn, 0, len(rows))
	for _, row := range rows {
		product, ok := s.products[row.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", store.ErrNotFound, row.ProductID)
		}
		if _, seen := onHand[row.ProductID]; !seen {
			onHand[row.ProductID] = s.onHandLocked(row.ProductID)
		}
		onHand[row.ProductID] += row.Quantity

		seq++
		row.ID = seq
		row.ProductName = product.Name
		row.TotalCost = row.Cost.Mul(decimal.NewFromInt(int64(row.Quantity)))
		row.Stock = onHand[row.ProductID]
		lastCost[row.ProductID] = row.Cost
		staged = append(staged, row)
	}

	s.seq["productin"] = seq
	s.productIns = append(s.productIns, staged...)
	for id, cost := range lastCost {
		p := s.products[id]
		p.LastCost = cost
		s.products[id] = p
	}

	return slices.Clone(staged), nil
}

func (s *Store) ListPurchases(_ context.Context, from time.Time, to time.Time) ([]domain.ProductIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ProductIn, 0, 32)
	for _, row := range s.productIns {
		if row.Date.Before(from) || !row.Date.Before(to) {
			continue
		}
		result = append(result, row)
	}
	slices.SortStableFunc(result, func(a, b domain.ProductIn) int { return a.Date.Compare(b.Date) })
	return result, nil
}

func (s *Store) onHandLocked(productID int64) int {
	qty := 0
	for _, row := range s.productIns {
		if row.ProductID == productID {
			qty += row.Quantity
		}
	}
	for _, p := range s.payments {
		if p.Status != domain.PaymentStatusActive {
			continue
		}
		for _, item := range p.Items {
			if item.ProductID == productID {
				qty -= item.Quantity
			}
		}
	}
	return qty
}

func (s *Store) ListLedgerEvents(_ context.Context, until time.Time, productID int64) ([]domain.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.LedgerEvent, 0, len(s.productIns)+len(s.payments))
	for _, row := range s.productIns {
		if !row.Date.Before(until) || (productID != 0 && row.ProductID != productID) {
			continue
		}
		events = append(events, domain.LedgerEvent{
			Type:        domain.LedgerPurchase,
			Date:        row.Date,
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			Price:       row.Cost,
			LastCost:    s.products[row.ProductID].LastCost,
			Reference:   row.ID,
		})
	}
	for _, p := range s.payments {
		if p.Status != domain.PaymentStatusActive || !p.CreatedAt.Before(until) {
			continue
		}
		for _, item := range p.Items {
			if productID != 0 && item.ProductID != productID {
				continue
			}
			events = append(events, domain.LedgerEvent{
				Type:          domain.LedgerSale,
				Date:          p.CreatedAt,
				ProductID:     item.ProductID,
				ProductName:   item.ProductName,
				Quantity:      item.Quantity,
				Price:         item.Price,
				LastCost:      s.products[item.ProductID].LastCost,
				Reference:     p.ID,
				ReceiptNumber: p.ReceiptNumber,
			})
		}
	}
	slices.SortStableFunc(events, domain.CompareLedgerEvents)
	return events, nil
}

func (s *Store) ListSaleLines(_ context.Context, from time.Time, to time.Time) ([]domain.SaleLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]*domain.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if p.Status != domain.PaymentStatusActive || p.CreatedAt.Before(from) || !p.CreatedAt.Before(to) {
			continue
		}
		payments = append(payments, p)
	}
	slices.SortFunc(payments, func(a, b *domain.Payment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	lines := make([]domain.SaleLine, 0, len(payments)*2)
	for _, p := range payments {
		for _, item := range p.Items {
			lines = append(lines, domain.SaleLine{
				PaymentID:       p.ID,
				ReceiptNumber:   p.ReceiptNumber,
				CreatedAt:       p.CreatedAt,
				Customer:        p.Customer,
				PaymentMethod:   p.PaymentMethod,
				CreatedBy:       p.CreatedBy,
				CreatedByUserID: p.CreatedByUserID,
				ProductID:       item.ProductID,
				ProductName:     item.ProductName,
				Price:           item.Price,
				Quantity:        item.Quantity,
				Discount:        item.Discount,
				LastCost:        s.products[item.ProductID].LastCost,
			})
		}
	}
	return lines, nil
}

func (s *Store) SumExpenses(_ context.Context, from time.Time, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, e := range s.expenses {
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (s *Store) DashboardTotals(_ context.Context, from time.Time, to time.Time) (domain.DashboardSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.DashboardSummary{
		CashSales:    decimal.Zero,
		VoucherSales: decimal.Zero,
		TotalSales:   decimal.Zero,
		MonthlySales: emptyMonths(),
	}
	for _, p := range s.payments {
		if p.Status != domain.PaymentStatusActive || p.CreatedAt.Before(from) || !p.CreatedAt.Before(to) {
			continue
		}
		summary.ReceiptCount++
		summary.TotalSales = summary.TotalSales.Add(p.TotalAmount)
		switch {
		case domain.SameMethod(p.PaymentMethod, domain.PaymentMethodCash):
			summary.CashSales = summary.CashSales.Add(p.TotalAmount)
		case domain.SameMethod(p.PaymentMethod, domain.PaymentMethodVoucher):
			summary.VoucherSales = summary.VoucherSales.Add(p.TotalAmount)
		}
		month := int(p.CreatedAt.Month()) - 1
		summary.MonthlySales[month].Total = summary.MonthlySales[month].Total.Add(p.TotalAmount)
	}
	for _, p := range s.products {
		if p.Status == domain.ProductStatusActive {
			summary.ActiveProducts++
		}
	}
	for _, c := range s.customers {
		if c.Active {
			summary.ActiveCustomers++
		}
	}
	return summary, nil
}

func emptyMonths() []domain.MonthlySales {
	months := make([]domain.MonthlySales, 12)
	for i := range months {
		months[i] = domain.MonthlySales{Month: i + 1, Total: decimal.Zero}
	}
	return months
}

func (s *Store) CashierPerformance(_ context.Context, from time.Time, to time.Time) ([]domain.CashierPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := make(map[int64]*domain.CashierPerformance)
	for _, p := range s.payments {
		if p.Status != domain.PaymentStatusActive || p.CreatedAt.Before(from) || !p.CreatedAt.Before(to) {
			continue
		}
		userID := p.CreatedByUserID
		username := p.CreatedBy
		if userID == 0 {
			// Rows written before user ids were recorded match on username.
			u, ok := s.users[strings.ToLower(p.CreatedBy)]
			if !ok {
				continue
			}
			userID = u.ID
			username = u.Username
		} else if u, ok := s.userByIDLocked(userID); ok {
			username = u.Username
		}

		row, ok := byUser[userID]
		if !ok {
			row = &domain.CashierPerformance{
				UserID:       userID,
				Username:     username,
				TotalSales:   decimal.Zero,
				CashSales:    decimal.Zero,
				VoucherSales: decimal.Zero,
			}
			byUser[userID] = row
		}
		row.Receipts++
		row.TotalSales = row.TotalSales.Add(p.TotalAmount)
		switch {
		case domain.SameMethod(p.PaymentMethod, domain.PaymentMethodCash):
			row.CashSales = row.CashSales.Add(p.TotalAmount)
		case domain.SameMethod(p.PaymentMethod, domain.PaymentMethodVoucher):
			row.VoucherSales = row.VoucherSales.Add(p.TotalAmount)
		}
	}

	result := make([]domain.CashierPerformance, 0, len(byUser))
	for _, row := range byUser {
		result = append(result, *row)
	}
	slices.SortFunc(result, func(a, b domain.CashierPerformance) int {
		if c := b.TotalSales.Cmp(a.TotalSales); c != 0 {
			return c
		}
		return strings.Compare(a.Username, b.Username)
	})
	return result, nil
}

func (s *Store) userByIDLocked(id int64) (domain.UserAccount, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.UserAccount{}, false
}

func (s *Store) CreateVoucher(_ context.Context, voucher domain.Voucher) (*domain.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vouchers[voucher.Code]; exists {
		return nil, store.ErrDuplicate
	}
	voucher.ID = s.next("vouchers")
	if voucher.Status == "" {
		voucher.Status = domain.VoucherIssued
		voucher.Active = true
	}
	if voucher.CreatedAt.IsZero() {
		voucher.CreatedAt = time.Now().UTC()
	}
	s.vouchers[voucher.Code] = voucher
	created := voucher
	return &created, nil
}

func (s *Store) ListVouchers(_ context.Context) ([]domain.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Voucher, 0, len(s.vouchers))
	for _, v := range s.vouchers {
		result = append(result, v)
	}
	slices.SortFunc(result, func(a, b domain.Voucher) int { return cmp.Compare(b.ID, a.ID) })
	return result, nil
}

func (s *Store) GetVoucher(_ context.Context, code string) (*domain.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vouchers[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) TransitionVoucher(ctx context.Context, code string, action domain.VoucherAction, at time.Time) (*domain.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := txFailed(ctx); err != nil {
		return nil, err
	}
	v, ok := s.vouchers[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := v.Apply(action, at); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrBusinessRule, err)
	}
	s.vouchers[code] = v
	return &v, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.ID = s.next("customers")
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		result = append(result, c)
	}
	slices.SortFunc(result, func(a, b domain.Customer) int { return strings.Compare(a.Name, b.Name) })
	return result, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expense.ID = s.next("expenses")
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	s.expenses = append(s.expenses, expense)
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		result = append(result, e)
	}
	slices.SortStableFunc(result, func(a, b domain.Expense) int { return a.Date.Compare(b.Date) })
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(result) < limit; i-- {
		entry := s.auditLogs[i]
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, exists := s.users[key]; exists {
		return nil, store.ErrDuplicate
	}
	user.ID = s.next("users")
	s.users[key] = user
	created := user
	return &created, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	slices.SortFunc(result, func(a, b domain.UserAccount) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	u, ok := s.users[key]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = password
	s.users[key] = u
	return nil
}

func clonePayment(p *domain.Payment) *domain.Payment {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Items = slices.Clone(p.Items)
	return &clone
}

func cloneReturn(r *domain.Return) *domain.Return {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Items = slices.Clone(r.Items)
	return &clone
}
