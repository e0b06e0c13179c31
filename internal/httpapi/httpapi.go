package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/service"
	"posadmin/backend/internal/store"
	"posadmin/backend/internal/ws"
)

type API struct {
	service        *service.Service
	auth           *AuthManager
	hub            *ws.Hub
	allowedOrigins []string
	production     bool
	loginLimiter   *attemptLimiter
	requestLog     middleware.LoggerInterface
}

func New(svc *service.Service, auth *AuthManager, hub *ws.Hub, allowedOrigins []string, production bool) *API {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &API{
		service:        svc,
		auth:           auth,
		hub:            hub,
		allowedOrigins: allowedOrigins,
		production:     production,
		loginLimiter:   newAttemptLimiter(5, time.Minute),
		requestLog:     log.Default(),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&pathLogFormatter{logger: a.requestLog}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(securityHeaders)

	r.Get("/healthz", a.handleHealth)
	r.Post("/auth/login", a.handleLogin)
	r.Get("/ws/events", a.handleEvents)

	r.Group(func(r chi.Router) {
		r.Use(a.requireCapability(domain.CapSell))
		r.Post("/cart", a.handleAddToCart)
		r.Get("/cart", a.handleListCart)
		r.Delete("/cart", a.handleClearCart)
		r.Put("/cart/{id}", a.handleUpdateCartItem)
		r.Post("/payment", a.handleCheckout)
		r.Get("/payments", a.handleListPayments)
		r.Get("/payments/{id}", a.handleGetPayment)
		r.Get("/payments/idempotency/{key}", a.handleCheckoutLookup)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireCapability(domain.CapReturn))
		r.Post("/returns", a.handleCreateReturn)
		r.Get("/returns", a.handleListReturns)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireCapability(domain.CapPurchase))
		r.Post("/purchases", a.handleRecordPurchases)
		r.Get("/purchases", a.handleListPurchases)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireCapability(domain.CapViewCatalog))
		r.Get("/products", a.handleListProducts)
		r.Get("/products/{id}", a.handleGetProduct)
	})
	r.With(a.requireCapability(domain.CapManageCatalog)).Post("/products", a.handleCreateProduct)

	r.Group(func(r chi.Router) {
		r.Use(a.requireCapability(domain.CapManageCustomers))
		r.Post("/customers", a.handleCreateCustomer)
		r.Get("/customers", a.handleListCustomers)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireCapability(domain.CapManageExpenses))
		r.Post("/expenses", a.handleCreateExpense)
		r.Get("/expenses", a.handleListExpenses)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireCapability(domain.CapManageVouchers))
		r.Post("/vouchers", a.handleCreateVoucher)
		r.Get("/vouchers", a.handleListVouchers)
		r.Post("/vouchers/{code}/redeem", a.handleRedeemVoucher)
		r.Post("/vouchers/{code}/cancel", a.handleCancelVoucher)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireCapability(domain.CapViewReports))
		r.Get("/reorders", a.handleReorders)
		r.Get("/productMovement", a.handleProductMovement)
		r.Get("/profitLoss", a.handleProfitLoss)
		r.Get("/sales", a.handleSalesProfit)
		r.Get("/dashboard/summary", a.handleDashboardSummary)
		r.Get("/dashboard/cashiers", a.handleCashierPerformance)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireCapability(domain.CapManageUsers))
		r.Post("/users", a.handleCreateUser)
		r.Get("/users", a.handleListUsers)
	})

	r.With(a.requireCapability(domain.CapViewAudit)).Get("/audit-logs", a.handleAuditLogs)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// requireCapability authenticates the bearer token and checks that the
// actor's role grants capability.
func (a *API) requireCapability(capability domain.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				a.writeError(w, http.StatusUnauthorized, err)
				return
			}
			if !actor.Role.Can(capability) {
				a.writeError(w, http.StatusForbidden, errors.New("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ok":      true,
		"at":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts, try again later"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeData(w, http.StatusOK, "login successful", resp)
}

// handleEvents upgrades to the live event feed. Browsers cannot set headers
// on a websocket handshake, so the token travels in the query string.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if a.hub == nil {
		a.writeError(w, http.StatusServiceUnavailable, errors.New("live feed is disabled"))
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		if bearer, ok := bearerToken(r); ok {
			token = bearer
		}
	}
	if token == "" {
		a.writeError(w, http.StatusUnauthorized, errors.New("missing token"))
		return
	}
	actor, err := a.auth.ParseToken(token)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}
	if !actor.Role.Can(domain.CapViewReports) {
		a.writeError(w, http.StatusForbidden, errors.New("insufficient permissions"))
		return
	}
	ws.ServeWS(a.hub, w, r)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return id, nil
}

// statusFor maps service and store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrBusinessRule), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	a.writeError(w, statusFor(err), err)
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		log.Printf("[http] internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	body := map[string]any{
		"success": false,
		"message": msg,
	}
	if !a.production {
		body["error"] = err.Error()
	}
	writeJSON(w, status, body)
}

// writeData writes the success envelope with the payload's fields at the top
// level. Payloads must marshal to a JSON object.
func writeData(w http.ResponseWriter, status int, message string, payload any) {
	body := map[string]any{}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[http] encode response: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "internal server error"})
		return
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		log.Printf("[http] response payload %T is not an object", payload)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "internal server error"})
		return
	}
	for key, value := range fields {
		body[key] = value
	}
	body["success"] = true
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
