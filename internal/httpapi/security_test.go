package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"posadmin/backend/internal/cache"
	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/service"
	"posadmin/backend/internal/store/memory"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	repo := memory.New()
	svc := service.New(repo, service.DefaultSettings(), cache.NoopReportCache{}, nil)
	api := New(svc, NewAuthManager("test-secret-key-with-enough-length!!", time.Hour, repo), nil, []string{"https://backoffice.example.com"}, true)

	req := httptest.NewRequest(http.MethodOptions, "/payment", nil)
	req.Header.Set("Origin", "https://backoffice.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "https://backoffice.example.com" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/payment", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res = httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin for unknown origin, got %q", got)
	}
}

func TestLoginRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)
	body, _ := json.Marshal(domain.LoginRequest{Username: "admin", Password: "wrong-pass"})

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		api.Handler().ServeHTTP(res, req)

		if i < 5 && res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401 before limit, got %d", i+1, res.Code)
		}
		if i == 5 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 6 expected 429, got %d", res.Code)
		}
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"username":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", res.Code)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"admin","password":"admin123","role":"Admin"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", res.Code)
	}
}

func TestProductionHidesErrorDetail(t *testing.T) {
	repo := memory.NewSeeded()
	svc := service.New(repo, service.DefaultSettings(), cache.NoopReportCache{}, nil)
	api := New(svc, NewAuthManager("test-secret-key-with-enough-length!!", time.Hour, repo), nil, nil, true)
	token := loginAsAdmin(t, api)

	rec, env := doJSON(t, api, http.MethodGet, "/profitLoss", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env.Error != "" {
		t.Fatalf("expected no error detail in production, got %q", env.Error)
	}
	if env.Message == "" {
		t.Fatal("expected a message")
	}
}

func TestEventsFeedRequiresReportCapability(t *testing.T) {
	api := newTestAPI(t)
	cashier := loginAsCashier(t, api)

	rec, _ := doJSON(t, api, http.MethodGet, "/ws/events", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a hub, got %d", rec.Code)
	}

	withHub := newTestAPI(t)
	withHub.hub = startTestHub(t)
	rec, _ = doJSON(t, withHub, http.MethodGet, "/ws/events", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec, _ = doJSON(t, withHub, http.MethodGet, "/ws/events?token="+cashier, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a cashier, got %d", rec.Code)
	}
}

func TestRequestLogOmitsQueryString(t *testing.T) {
	api := newTestAPI(t)
	var buf bytes.Buffer
	api.requestLog = log.New(&buf, "", 0)
	api.hub = startTestHub(t)
	token := loginAsAdmin(t, api)
	buf.Reset()

	req := httptest.NewRequest(http.MethodGet, "/ws/events?token="+token, nil)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	line := buf.String()
	if !strings.Contains(line, "GET /ws/events") {
		t.Fatalf("expected request path in log, got %q", line)
	}
	if strings.Contains(line, token) || strings.Contains(line, "token=") {
		t.Fatalf("expected token to stay out of the log, got %q", line)
	}
}
