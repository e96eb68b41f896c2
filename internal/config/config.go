package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	Processor ProcessorConfig
	Billing   BillingConfig

	AdminIDs []int64
}

// ProcessorConfig configures the outbound payment processor client.
type ProcessorConfig struct {
	BaseURL string
	Token   string
	Asset   string
	Timeout time.Duration
}

// BillingConfig carries the static tier price table and invoice lifetimes.
type BillingConfig struct {
	Prices        map[string]decimal.Decimal
	InvoiceTTL    time.Duration
	SweepInterval time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "subgate"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:     getenv("DB_TYPE", "sqlite"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBName:     getenv("DB_NAME", "subgate"),
		DBUser:     getenv("DB_USER", "subgate"),
		DBPassword: getenv("DB_PASSWORD", ""),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		Processor: ProcessorConfig{
			BaseURL: getenv("CRYPTOPAY_BASE_URL", "https://pay.crypt.bot/api"),
			Token:   strings.TrimSpace(getenv("CRYPTOPAY_TOKEN", "")),
			Asset:   getenv("CRYPTOPAY_ASSET", "USDT"),
			Timeout: getenvDuration("CRYPTOPAY_TIMEOUT", 10*time.Second),
		},
		Billing: BillingConfig{
			Prices: map[string]decimal.Decimal{
				"DAY":     getenvDecimal("TIER_PRICE_DAY", "0.5"),
				"WEEK":    getenvDecimal("TIER_PRICE_WEEK", "2"),
				"MONTH":   getenvDecimal("TIER_PRICE_MONTH", "5"),
				"FOREVER": getenvDecimal("TIER_PRICE_FOREVER", "8"),
			},
			InvoiceTTL:    getenvDuration("INVOICE_TTL", time.Hour),
			SweepInterval: getenvDuration("SWEEP_INTERVAL", 5*time.Minute),
		},

		AdminIDs: getenvInt64List("ADMIN_IDS"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid duration %s=%q, using default", key, v)
		return fallback
	}
	return d
}

func getenvDecimal(key, fallback string) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		log.Printf("config: invalid decimal %s=%q, using default", key, v)
		return decimal.RequireFromString(fallback)
	}
	return d
}

func getenvInt64List(key string) []int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("config: skipping invalid id %q in %s", part, key)
			continue
		}
		out = append(out, id)
	}
	return out
}

// IsAdmin reports whether the external id is in the configured admin list.
func (c Config) IsAdmin(externalID int64) bool {
	for _, id := range c.AdminIDs {
		if id == externalID {
			return true
		}
	}
	return false
}
