package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
)

func mustProduct(t *testing.T, s *Store, name string, price int64) domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), domain.Product{
		Name:     name,
		Price:    decimal.NewFromInt(price),
		LastCost: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return *p
}

func paymentFor(key string, items ...domain.PaymentItem) domain.Payment {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(domain.LineTotal(item.Price, item.Quantity, item.Discount))
	}
	return domain.Payment{
		PaymentMethod:  domain.PaymentMethodCash,
		TotalAmount:    total,
		Customer:       "Walk-in Customer",
		IdempotencyKey: key,
		Items:          items,
	}
}

func TestCreatePaymentFailureAfterHeaderLeavesNothingVisible(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 100)
	s.itemInsertHook = func(index int) error {
		if index == 1 {
			return errors.New("simulated crash")
		}
		return nil
	}

	_, err := s.CreatePayment(ctx, paymentFor("idem-fail",
		domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1},
		domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 2},
	), store.CheckoutOptions{ClearCart: true})
	if !errors.Is(err, store.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}

	payments, _ := s.ListPayments(ctx, 0)
	if len(payments) != 0 {
		t.Fatalf("expected no payments after failed checkout, got %d", len(payments))
	}
	if _, err := s.FindPaymentByIdempotency(ctx, "idem-fail"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected idempotency key to stay free, got %v", err)
	}
	lines, _ := s.ListSaleLines(ctx, time.Time{}, time.Now().Add(time.Hour))
	if len(lines) != 0 {
		t.Fatalf("expected no payment items, got %d", len(lines))
	}

	s.itemInsertHook = nil
	created, err := s.CreatePayment(ctx, paymentFor("idem-fail",
		domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1},
	), store.CheckoutOptions{})
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if created.ID != 1 || created.Items[0].ID != 1 {
		t.Fatalf("expected sequences untouched by failed attempt, got payment %d item %d", created.ID, created.Items[0].ID)
	}
}

func TestCreatePaymentRejectsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 100)
	item := domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1}

	if _, err := s.CreatePayment(ctx, paymentFor("idem-1", item), store.CheckoutOptions{}); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if _, err := s.CreatePayment(ctx, paymentFor("idem-1", item), store.CheckoutOptions{}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreatePaymentClearsCart(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 100)
	if _, err := s.AddCartItem(ctx, domain.CartItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 2}); err != nil {
		t.Fatalf("add cart: %v", err)
	}

	item := domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 2}
	if _, err := s.CreatePayment(ctx, paymentFor("idem-cart", item), store.CheckoutOptions{ClearCart: true}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	items, _ := s.ListCartItems(ctx)
	if len(items) != 0 {
		t.Fatalf("expected cart cleared, got %d rows", len(items))
	}
}

func TestCreatePaymentCancelledContextFails(t *testing.T) {
	s := New()
	p := mustProduct(t, s, "Widget", 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	item := domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1}
	if _, err := s.CreatePayment(ctx, paymentFor("idem-ctx", item), store.CheckoutOptions{}); !errors.Is(err, store.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
}

func TestPurchaseBatchRecordsStockSnapshotAndLastCost(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 100)
	now := time.Now().UTC()

	rows, err := s.CreatePurchaseBatch(ctx, []domain.ProductIn{
		{Date: now, ProductID: p.ID, Cost: decimal.NewFromInt(60), Quantity: 10},
		{Date: now, ProductID: p.ID, Cost: decimal.NewFromInt(65), Quantity: 5},
	})
	if err != nil {
		t.Fatalf("purchase batch: %v", err)
	}
	if rows[0].Stock != 10 || rows[1].Stock != 15 {
		t.Fatalf("unexpected stock snapshots: %d, %d", rows[0].Stock, rows[1].Stock)
	}
	if !rows[1].TotalCost.Equal(decimal.NewFromInt(325)) {
		t.Fatalf("expected total cost 325, got %s", rows[1].TotalCost)
	}
	updated, _ := s.GetProduct(ctx, p.ID)
	if !updated.LastCost.Equal(decimal.NewFromInt(65)) {
		t.Fatalf("expected last cost 65, got %s", updated.LastCost)
	}
}

func TestPurchaseBatchUnknownProductAppliesNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 100)

	_, err := s.CreatePurchaseBatch(ctx, []domain.ProductIn{
		{Date: time.Now(), ProductID: p.ID, Cost: decimal.NewFromInt(60), Quantity: 10},
		{Date: time.Now(), ProductID: 999, Cost: decimal.NewFromInt(60), Quantity: 10},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	rows, _ := s.ListPurchases(ctx, time.Time{}, time.Now().Add(time.Hour))
	if len(rows) != 0 {
		t.Fatalf("expected no purchase rows, got %d", len(rows))
	}
}

func TestCreateReturnGuardsQuantitySold(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 100)
	item := domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 2}
	payment, err := s.CreatePayment(ctx, paymentFor("idem-ret", item), store.CheckoutOptions{})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}

	first := domain.Return{Reason: "damaged", PaymentID: payment.ID, Items: []domain.ReturnItem{{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 2}}}
	if _, err := s.CreateReturn(ctx, first); err != nil {
		t.Fatalf("first return: %v", err)
	}
	second := domain.Return{Reason: "damaged", PaymentID: payment.ID, Items: []domain.ReturnItem{{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1}}}
	if _, err := s.CreateReturn(ctx, second); !errors.Is(err, store.ErrBusinessRule) {
		t.Fatalf("expected ErrBusinessRule, got %v", err)
	}
}

func TestCashierPerformanceFallsBackToUsername(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 100)
	user, err := s.CreateUser(ctx, domain.UserAccount{Username: "sari", Role: domain.RoleCashier, Active: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	legacy := paymentFor("idem-legacy", domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1})
	legacy.CreatedBy = "sari"
	linked := paymentFor("idem-linked", domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 2})
	linked.CreatedBy = "sari"
	linked.CreatedByUserID = user.ID
	for _, payment := range []domain.Payment{legacy, linked} {
		if _, err := s.CreatePayment(ctx, payment, store.CheckoutOptions{}); err != nil {
			t.Fatalf("payment: %v", err)
		}
	}

	rows, err := s.CashierPerformance(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("cashier performance: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one cashier row, got %d", len(rows))
	}
	if rows[0].Receipts != 2 || !rows[0].TotalSales.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected cashier row: %+v", rows[0])
	}
}

func TestCreatePaymentRejectsVoucherShortfall(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 500)
	if _, err := s.CreateVoucher(ctx, domain.Voucher{Code: "TEN", Value: decimal.NewFromInt(10), ValidFrom: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("create voucher: %v", err)
	}

	payment := paymentFor("idem-short", domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1})
	payment.PaymentMethod = domain.PaymentMethodVoucher
	payment.VoucherCode = "TEN"
	if _, err := s.CreatePayment(ctx, payment, store.CheckoutOptions{}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	v, err := s.GetVoucher(ctx, "TEN")
	if err != nil {
		t.Fatalf("get voucher: %v", err)
	}
	if v.Status != domain.VoucherIssued || v.PaymentID != 0 {
		t.Fatalf("expected voucher untouched, got %+v", v)
	}
	if _, err := s.FindPaymentByIdempotency(ctx, "idem-short"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no payment, got %v", err)
	}
}

func TestCreateReturnClearsWholeCart(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 100)
	other := mustProduct(t, s, "Gadget", 40)
	for _, prod := range []domain.Product{p, other} {
		if _, err := s.AddCartItem(ctx, domain.CartItem{ProductID: prod.ID, ProductName: prod.Name, Price: prod.Price, Quantity: 1, Status: domain.CartStatusPending}); err != nil {
			t.Fatalf("add cart item: %v", err)
		}
	}

	ret := domain.Return{Reason: "damaged", Items: []domain.ReturnItem{{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1}}}
	if _, err := s.CreateReturn(ctx, ret); err != nil {
		t.Fatalf("return: %v", err)
	}

	cart, err := s.ListCartItems(ctx)
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	if len(cart) != 0 {
		t.Fatalf("expected empty cart after return, got %d rows", len(cart))
	}
}

func TestCreateReturnFailureKeepsCartAndReturns(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := mustProduct(t, s, "Widget", 100)
	payment, err := s.CreatePayment(ctx, paymentFor("idem-keep", domain.PaymentItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1}), store.CheckoutOptions{})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := s.AddCartItem(ctx, domain.CartItem{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 3, Status: domain.CartStatusPending}); err != nil {
		t.Fatalf("add cart item: %v", err)
	}

	over := domain.Return{Reason: "damaged", PaymentID: payment.ID, Items: []domain.ReturnItem{{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 2}}}
	if _, err := s.CreateReturn(ctx, over); !errors.Is(err, store.ErrBusinessRule) {
		t.Fatalf("expected ErrBusinessRule, got %v", err)
	}
	unknown := domain.Return{Reason: "damaged", Items: []domain.ReturnItem{
		{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 1},
		{ProductID: 999, ProductName: "ghost", Price: p.Price, Quantity: 1},
	}}
	if _, err := s.CreateReturn(ctx, unknown); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cart, _ := s.ListCartItems(ctx)
	if len(cart) != 1 || cart[0].Quantity != 3 {
		t.Fatalf("expected cart untouched, got %+v", cart)
	}
	returns, _ := s.ListReturns(ctx, 0)
	if len(returns) != 0 {
		t.Fatalf("expected no returns recorded, got %d", len(returns))
	}
}
