package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"posadmin/backend/internal/cache"
	"posadmin/backend/internal/config"
	"posadmin/backend/internal/domain"
	"posadmin/backend/internal/store"
	"posadmin/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// EventPublisher receives live events after a write commits.
type EventPublisher interface {
	Publish(event domain.LiveEvent)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(domain.LiveEvent) {}

type Settings struct {
	TxTimeout           time.Duration
	DashboardCacheTTL   time.Duration
	ReorderWindowDays   int
	CostFallbackRatio   decimal.Decimal
	CartEmptyAsNotFound bool
	Checkout            config.CheckoutDefaults
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		TxTimeout:           cfg.TxTimeout(),
		DashboardCacheTTL:   cfg.DashboardCacheTTL(),
		ReorderWindowDays:   cfg.ReorderWindowDays,
		CostFallbackRatio:   cfg.CostFallbackRatio,
		CartEmptyAsNotFound: cfg.CartEmptyAsNotFound,
		Checkout:            cfg.Checkout,
	}
}

func DefaultSettings() Settings {
	return Settings{
		TxTimeout:           10 * time.Second,
		DashboardCacheTTL:   time.Minute,
		ReorderWindowDays:   30,
		CostFallbackRatio:   decimal.RequireFromString("0.6"),
		CartEmptyAsNotFound: true,
		Checkout: config.CheckoutDefaults{
			WalkInCustomer:     "Walk-in Customer",
			PlaceholderPhone:   "-",
			PlaceholderReceipt: "-",
			SystemUser:         "system",
			ClearCart:          true,
			EnforceTotal:       true,
		},
	}
}

type Service struct {
	repo     store.Repository
	settings Settings
	reports  cache.ReportCache
	events   EventPublisher
	now      func() time.Time

	// dashboardGen advances on every invalidation. A summary read under an
	// older generation is returned but never cached.
	dashboardGen atomic.Uint64
}

func New(repo store.Repository, settings Settings, reports cache.ReportCache, events EventPublisher) *Service {
	if settings.TxTimeout <= 0 {
		settings.TxTimeout = 10 * time.Second
	}
	if settings.ReorderWindowDays < 1 {
		settings.ReorderWindowDays = 30
	}
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if events == nil {
		events = NoopPublisher{}
	}

	return &Service{
		repo:     repo,
		settings: settings,
		reports:  reports,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// txContext bounds a transactional store call.
func (s *Service) txContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.settings.TxTimeout)
}

// creator resolves who a write is recorded against. Requests without an
// authenticated actor fall back to the configured system user.
func (s *Service) creator(ctx context.Context) (string, int64) {
	if actor, ok := ActorFromContext(ctx); ok && actor.Username != "" {
		return actor.Username, actor.UserID
	}
	return s.settings.Checkout.SystemUser, 0
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: s.settings.Checkout.SystemUser, Role: domain.RoleSystem}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     string(actor.Role),
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, startDate string, endDate string, limit int) ([]domain.AuditLog, error) {
	from, to, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

const dateLayout = "2006-01-02"

// parseRange turns an inclusive YYYY-MM-DD pair into a half-open UTC range.
func parseRange(startDate string, endDate string) (time.Time, time.Time, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate == "" || endDate == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate and endDate are required", store.ErrInvalidInput)
	}

	from, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	if end.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate is before startDate", store.ErrInvalidInput)
	}
	return from, end.AddDate(0, 0, 1), nil
}

// parseDate accepts YYYY-MM-DD or RFC3339. An empty value yields fallback.
func parseDate(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
