package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// CheckoutDefaults fills optional checkout fields and switches the
// checkout side effects.
type CheckoutDefaults struct {
	WalkInCustomer     string
	PlaceholderPhone   string
	PlaceholderReceipt string
	SystemUser         string
	ClearCart          bool
	EnforceTotal       bool
}

type Config struct {
	Port                     string
	AllowedOrigins           []string
	DatabaseURL              string
	RunMigrations            bool
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	AuthSecret               string
	AccessTokenTTLMinutes    int
	AppEnv                   string
	TxTimeoutSeconds         int
	DashboardCacheTTLSeconds int
	ReorderWindowDays        int
	CostFallbackRatio        decimal.Decimal
	CartEmptyAsNotFound      bool
	Checkout                 CheckoutDefaults
	SeedAdminPassword        string
}

// Load reads a .env file when one exists, then the process environment.
// Variables already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		AllowedOrigins:           splitList(getEnv("ALLOWED_ORIGINS", "http://127.0.0.1:3000")),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RunMigrations:            getBool("RUN_MIGRATIONS", false),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  getInt("REDIS_DB", 0, 0),
		AuthSecret:               strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		SeedAdminPassword:        os.Getenv("SEED_ADMIN_PASSWORD"),
		AccessTokenTTLMinutes:    getInt("ACCESS_TOKEN_TTL_MINUTES", 480, 1),
		AppEnv:                   strings.ToLower(getEnv("APP_ENV", "development")),
		TxTimeoutSeconds:         getInt("TX_TIMEOUT_SECONDS", 10, 1),
		DashboardCacheTTLSeconds: getInt("DASHBOARD_CACHE_TTL_SECONDS", 60, 1),
		ReorderWindowDays:        getInt("REORDER_WINDOW_DAYS", 30, 1),
		CostFallbackRatio:        getDecimal("COST_FALLBACK_RATIO", decimal.RequireFromString("0.6")),
		CartEmptyAsNotFound:      getBool("CART_EMPTY_AS_NOT_FOUND", true),
		Checkout: CheckoutDefaults{
			WalkInCustomer:     getEnv("CHECKOUT_WALK_IN_CUSTOMER", "Walk-in Customer"),
			PlaceholderPhone:   getEnv("CHECKOUT_PLACEHOLDER_PHONE", "-"),
			PlaceholderReceipt: getEnv("CHECKOUT_PLACEHOLDER_RECEIPT", "-"),
			SystemUser:         getEnv("CHECKOUT_SYSTEM_USER", "system"),
			ClearCart:          getBool("CHECKOUT_CLEAR_CART", true),
			EnforceTotal:       getBool("CHECKOUT_ENFORCE_TOTAL", true),
		},
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}

func (c Config) TxTimeout() time.Duration {
	return time.Duration(c.TxTimeoutSeconds) * time.Second
}

func (c Config) DashboardCacheTTL() time.Duration {
	return time.Duration(c.DashboardCacheTTLSeconds) * time.Second
}

func getEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int, min int) int {
	val, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || val < min {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return val
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	val, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || val.IsNegative() {
		return fallback
	}
	return val
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
