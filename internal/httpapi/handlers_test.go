package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"posadmin/backend/internal/cache"
	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/service"
	"posadmin/backend/internal/store/memory"
)

// newTestAPI builds a full API with a seeded in-memory store, real
// AuthManager and real Service so handler tests exercise the complete path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, service.DefaultSettings(), cache.NewMemoryReportCache(), nil)
	auth := NewAuthManager("test-secret-key-with-enough-length!!", time.Hour, repo)

	return New(svc, auth, nil, []string{"*"}, false)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`

	body   []byte
	fields map[string]json.RawMessage
}

// decode reads the whole body, where payload fields sit beside success.
func (e envelope) decode(t *testing.T, dest any) {
	t.Helper()
	if err := json.Unmarshal(e.body, dest); err != nil {
		t.Fatalf("decode body %s: %v", e.body, err)
	}
}

func (e envelope) field(t *testing.T, key string, dest any) {
	t.Helper()
	raw, ok := e.fields[key]
	if !ok {
		t.Fatalf("expected top-level %q in %s", key, e.body)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		t.Fatalf("decode %q: %v", key, err)
	}
}

func doJSON(t *testing.T, api *API, method string, path string, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	env.body = rec.Body.Bytes()
	if err := json.Unmarshal(env.body, &env.fields); err != nil {
		t.Fatalf("decode fields %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func login(t *testing.T, api *API, username string, password string) string {
	t.Helper()
	rec, env := doJSON(t, api, http.MethodPost, "/auth/login", "", domain.LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	env.decode(t, &resp)
	return resp.AccessToken
}

func loginAsAdmin(t *testing.T, api *API) string {
	return login(t, api, "admin", "admin123")
}

func loginAsCashier(t *testing.T, api *API) string {
	return login(t, api, "cashier", "cashier123")
}

func createProduct(t *testing.T, api *API, token string, name string, price int64) domain.Product {
	t.Helper()
	rec, env := doJSON(t, api, http.MethodPost, "/products", token, map[string]any{
		"name":        name,
		"price":       price,
		"minQuantity": 5,
		"lastCost":    price / 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var product domain.Product
	env.field(t, "product", &product)
	return product
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true || body["success"] != true {
		t.Fatalf("expected ok and success, got %v", body)
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	rec, env := doJSON(t, api, http.MethodPost, "/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrongpassword"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if env.Success {
		t.Fatal("expected success=false")
	}
}

func TestProtectedRouteWithoutTokenIs401(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := doJSON(t, api, http.MethodGet, "/cart", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec, _ = doJSON(t, api, http.MethodGet, "/cart", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rec.Code)
	}
}

func TestCashierCannotReachAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsCashier(t, api)

	for _, path := range []string{"/reorders", "/users", "/audit-logs?startDate=2026-01-01&endDate=2026-01-31", "/vouchers"} {
		rec, _ := doJSON(t, api, http.MethodGet, path, token, nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", path, rec.Code)
		}
	}

	rec, _ := doJSON(t, api, http.MethodGet, "/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cashier should list products, got %d", rec.Code)
	}
}

func TestCheckoutCreatesPaymentWithItems(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)
	product := createProduct(t, api, admin, "Widget", 100)
	cashier := loginAsCashier(t, api)

	rec, env := doJSON(t, api, http.MethodPost, "/payment", cashier, map[string]any{
		"paymentMethod": "Cash",
		"totalAmount":   200,
		"cartItems": []map[string]any{
			{"id": product.ID, "name": "Widget", "price": 100, "quantity": 2},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp domain.CheckoutResponse
	env.decode(t, &resp)
	if resp.Payment.TotalAmount.IntPart() != 200 {
		t.Fatalf("expected total 200, got %s", resp.Payment.TotalAmount)
	}
	if len(resp.Payment.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(resp.Payment.Items))
	}
	item := resp.Payment.Items[0]
	if item.Quantity != 2 || item.Price.IntPart() != 100 || item.ProductID != product.ID {
		t.Fatalf("unexpected item %+v", item)
	}
	if resp.Payment.CreatedBy != "cashier" {
		t.Fatalf("expected payment attributed to cashier, got %q", resp.Payment.CreatedBy)
	}

	rec, env = doJSON(t, api, http.MethodGet, "/payments", cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list payments: expected 200, got %d", rec.Code)
	}
	var payments []domain.Payment
	env.field(t, "payments", &payments)
	if len(payments) != 1 {
		t.Fatalf("expected exactly one payment, got %d", len(payments))
	}
}

func TestCheckoutIdempotencyHeaderReplaysPayment(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)
	product := createProduct(t, api, admin, "Widget", 100)

	body, _ := json.Marshal(map[string]any{
		"paymentMethod": "Cash",
		"totalAmount":   100,
		"cartItems":     []map[string]any{{"id": product.ID, "price": 100, "quantity": 1}},
	})
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payment", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+admin)
		req.Header.Set("Idempotency-Key", "till-7-0001")
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusCreated {
		t.Fatalf("first checkout: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("replayed checkout: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec, env := doJSON(t, api, http.MethodGet, "/payments/idempotency/till-7-0001", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup: expected 200, got %d", rec.Code)
	}
	var lookup domain.CheckoutLookupResponse
	env.decode(t, &lookup)
	if !lookup.Found || lookup.Payment == nil {
		t.Fatalf("expected lookup to find the payment, got %+v", lookup)
	}
}

func TestCheckoutEmptyCartIs400(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsCashier(t, api)

	rec, env := doJSON(t, api, http.MethodPost, "/payment", token, map[string]any{
		"paymentMethod": "Cash",
		"totalAmount":   0,
		"cartItems":     []map[string]any{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env.Error == "" {
		t.Fatal("expected error detail outside production")
	}
}

func TestUnknownPaymentIs404(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsCashier(t, api)

	rec, _ := doJSON(t, api, http.MethodGet, "/payments/9999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCartFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)
	product := createProduct(t, api, admin, "Widget", 100)

	rec, env := doJSON(t, api, http.MethodPost, "/cart", admin, map[string]any{"productId": product.ID, "quantity": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add to cart: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var item domain.CartItem
	env.field(t, "item", &item)

	rec, _ = doJSON(t, api, http.MethodPut, "/cart/"+strconv.FormatInt(item.ID, 10), admin, map[string]any{"quantity": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("update cart: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec, env = doJSON(t, api, http.MethodGet, "/cart", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list cart: expected 200, got %d", rec.Code)
	}
	if _, nested := env.fields["data"]; nested {
		t.Fatalf("expected cart fields at the top level, got %s", env.body)
	}
	var cart domain.CartListResponse
	env.field(t, "items", &cart.Items)
	env.decode(t, &cart)
	if len(cart.Items) != 1 || cart.Total.IntPart() != 300 {
		t.Fatalf("expected one line totalling 300, got %+v", cart)
	}

	rec, _ = doJSON(t, api, http.MethodDelete, "/cart", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear cart: expected 200, got %d", rec.Code)
	}
	rec, _ = doJSON(t, api, http.MethodGet, "/cart", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty cart: expected 404, got %d", rec.Code)
	}
}

func TestVoucherTransitionsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	rec, _ := doJSON(t, api, http.MethodPost, "/vouchers", admin, map[string]any{"code": "gift50", "value": 50})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create voucher: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, api, http.MethodPost, "/vouchers/GIFT50/redeem", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec, _ = doJSON(t, api, http.MethodPost, "/vouchers/GIFT50/cancel", admin, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel redeemed: expected 409, got %d", rec.Code)
	}
	rec, _ = doJSON(t, api, http.MethodPost, "/vouchers/NOPE/redeem", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown voucher: expected 404, got %d", rec.Code)
	}
}

func TestReportsRequireDateRange(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	for _, path := range []string{"/productMovement", "/profitLoss", "/sales", "/dashboard/cashiers"} {
		rec, _ := doJSON(t, api, http.MethodGet, path, admin, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
	}

	rec, env := doJSON(t, api, http.MethodGet, "/profitLoss?startDate=2020-01-01&endDate=2020-01-31", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profit/loss: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var report domain.ProfitLossReport
	env.decode(t, &report)
	if !report.Sales.IsZero() || !report.Cost.IsZero() || !report.ProfitLoss.IsZero() {
		t.Fatalf("expected zeros for an empty range, got %+v", report)
	}

	for _, path := range []string{"/reorders", "/dashboard/summary"} {
		rec, _ := doJSON(t, api, http.MethodGet, path, admin, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", path, rec.Code, rec.Body.String())
		}
	}
}

func TestAdminCreatesCashierWhoCanLogIn(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	rec, _ := doJSON(t, api, http.MethodPost, "/users", admin, domain.UserCreateRequest{Username: "till02", Password: "secret99", Role: "cashier"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec, _ = doJSON(t, api, http.MethodPost, "/users", admin, domain.UserCreateRequest{Username: "till02", Password: "secret99"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate user: expected 409, got %d", rec.Code)
	}

	token := login(t, api, "till02", "secret99")
	rec, _ = doJSON(t, api, http.MethodGet, "/cart", token, nil)
	if rec.Code == http.StatusUnauthorized || rec.Code == http.StatusForbidden {
		t.Fatalf("new cashier should reach the cart, got %d", rec.Code)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	api := newTestAPI(t)

	rec, env := doJSON(t, api, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound || env.Success {
		t.Fatalf("expected 404 envelope, got %d %+v", rec.Code, env)
	}
}

func TestReturnOverHTTPClearsCart(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)
	product := createProduct(t, api, admin, "Widget", 100)

	rec, env := doJSON(t, api, http.MethodPost, "/payment", admin, map[string]any{
		"paymentMethod": "Cash",
		"totalAmount":   200,
		"cartItems":     []map[string]any{{"id": product.ID, "price": 100, "quantity": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var sale domain.CheckoutResponse
	env.decode(t, &sale)

	rec, _ = doJSON(t, api, http.MethodPost, "/cart", admin, map[string]any{"productId": product.ID, "quantity": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add to cart: expected 201, got %d", rec.Code)
	}

	rec, env = doJSON(t, api, http.MethodPost, "/returns", admin, map[string]any{
		"returnReason": "damaged",
		"paymentId":    sale.Payment.ID,
		"cartItems":    []map[string]any{{"id": product.ID, "price": 100, "quantity": 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("return: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var ret domain.Return
	env.field(t, "return", &ret)
	if ret.ID == 0 || len(ret.Items) != 1 || ret.Items[0].Quantity != 1 {
		t.Fatalf("unexpected return %+v", ret)
	}

	rec, _ = doJSON(t, api, http.MethodGet, "/cart", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cart after return: expected 404, got %d", rec.Code)
	}

	rec, _ = doJSON(t, api, http.MethodPost, "/returns", admin, map[string]any{
		"cartItems": []map[string]any{{"id": product.ID, "price": 100, "quantity": 1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("return without reason: expected 400, got %d", rec.Code)
	}
	rec, _ = doJSON(t, api, http.MethodPost, "/returns", admin, map[string]any{
		"returnReason": "damaged",
		"paymentId":    sale.Payment.ID,
		"cartItems":    []map[string]any{{"id": product.ID, "price": 100, "quantity": 5}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("over-return: expected 409, got %d", rec.Code)
	}

	rec, env = doJSON(t, api, http.MethodGet, "/returns", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returns: expected 200, got %d", rec.Code)
	}
	var returns []domain.Return
	env.field(t, "returns", &returns)
	if len(returns) != 1 {
		t.Fatalf("expected one recorded return, got %d", len(returns))
	}
}
