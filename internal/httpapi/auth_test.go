package httpapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
	"posadmin/backend/internal/ws"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
	nextID  int64
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	if _, ok := s.users[user.Username]; ok {
		return nil, store.ErrDuplicate
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.Username] = user
	return &user, nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func startTestHub(t *testing.T) *ws.Hub {
	t.Helper()
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	users := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				ID:        1,
				Username:  "admin",
				Password:  "admin123",
				Role:      domain.RoleAdmin,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, users)
	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	stored, err := users.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 user, got %d", len(stored))
	}
	if stored[0].Password == "admin123" || !isPasswordHash(stored[0].Password) {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if users.updates == 0 {
		t.Fatalf("expected user store password update")
	}
}

func TestAuthManagerTokenCarriesActor(t *testing.T) {
	users := &userStoreStub{}
	manager := NewAuthManager("test-secret", time.Hour, users)

	created, err := manager.CreateUser(context.Background(), domain.UserCreateRequest{Username: "Till01", Password: "secret99", Role: "admin"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Username != "till01" || created.Role != domain.RoleAdmin {
		t.Fatalf("unexpected user %+v", created)
	}

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "TILL01", Password: "secret99"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "till01" || actor.Role != domain.RoleAdmin || actor.UserID != created.ID {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestAuthManagerRejectsInactiveAndWrongPassword(t *testing.T) {
	hash, err := hashPassword("secret99")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := &userStoreStub{users: map[string]domain.UserAccount{
		"gone": {ID: 7, Username: "gone", Password: hash, Role: domain.RoleCashier, Active: false},
	}}
	manager := NewAuthManager("test-secret", time.Hour, users)

	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "gone", Password: "secret99"}); !errors.Is(err, errInactiveAccount) {
		t.Fatalf("expected inactive error, got %v", err)
	}
	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "gone", Password: "nope"}); !errors.Is(err, errInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthManagerCreateUserValidation(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, &userStoreStub{})
	ctx := context.Background()

	cases := map[string]domain.UserCreateRequest{
		"short username": {Username: "abc", Password: "secret99"},
		"spaces":         {Username: "till 01", Password: "secret99"},
		"short password": {Username: "till01", Password: "abc"},
		"unknown role":   {Username: "till01", Password: "secret99", Role: "owner"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := manager.CreateUser(ctx, req); !errors.Is(err, store.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if _, err := manager.CreateUser(ctx, domain.UserCreateRequest{Username: "till01", Password: "secret99"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := manager.CreateUser(ctx, domain.UserCreateRequest{Username: "till01", Password: "secret99"}); !errors.Is(err, store.ErrBusinessRule) {
		t.Fatalf("expected ErrBusinessRule for duplicate, got %v", err)
	}
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, &userStoreStub{})

	other := NewAuthManager("other-secret", time.Hour, &userStoreStub{})
	foreign, err := other.sign("admin", credential{id: 1, role: domain.RoleAdmin}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(foreign); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}

	expired, err := manager.sign("admin", credential{id: 1, role: domain.RoleAdmin}, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	none := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, posClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: "admin", Issuer: tokenIssuer},
		Role:             domain.RoleAdmin,
	})
	unsigned, err := none.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := manager.ParseToken(unsigned); err == nil {
		t.Fatal("expected alg=none token to be rejected")
	}
}

func TestEventsFeedStreamsToAdmin(t *testing.T) {
	api := newTestAPI(t)
	api.hub = startTestHub(t)
	token := loginAsAdmin(t, api)

	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for api.hub.ClientCount() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	api.hub.Publish(domain.LiveEvent{Type: domain.EventPaymentCreated, EntityID: 42})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), `"entityId":42`) {
		t.Fatalf("unexpected message %s", msg)
	}
}

func TestEnsureAdminSeedsOnlyEmptyStore(t *testing.T) {
	users := &userStoreStub{}
	manager := NewAuthManager("test-secret", time.Hour, users)
	ctx := context.Background()

	if err := manager.EnsureAdmin(ctx, ""); err == nil {
		t.Fatal("expected an error when no password is configured")
	}
	if err := manager.EnsureAdmin(ctx, "first-admin-pass"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if err := manager.EnsureAdmin(ctx, "second-admin-pass"); err != nil {
		t.Fatalf("ensure admin on populated store: %v", err)
	}

	list, err := manager.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(list) != 1 || list[0].Role != domain.RoleAdmin {
		t.Fatalf("expected a single admin, got %+v", list)
	}
	if _, err := manager.Login(ctx, domain.LoginRequest{Username: "admin", Password: "first-admin-pass"}); err != nil {
		t.Fatalf("login with seeded password: %v", err)
	}
}
