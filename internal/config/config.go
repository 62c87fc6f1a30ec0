// Package config loads the worker configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openquiver/congresstrader/internal/alpaca"
	"github.com/openquiver/congresstrader/internal/quiver"
)

// Config is the full worker configuration.
type Config struct {
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Broker
	AlpacaKeyID       string
	AlpacaSecretKey   string
	AlpacaBaseURL     string
	AlpacaDataBaseURL string

	// Filings feed
	QuiverAPIKey  string
	QuiverBaseURL string

	// Trading policy
	TradingEnabled    bool
	PaperTrading      bool
	TradeNotionalUSD  decimal.Decimal
	DailyMaxFilings   *int
	PerTickerDailyMax *int
	StrictErrors      bool

	// Telegram notifications (optional)
	TelegramToken  string
	TelegramChatID int64
}

// ValidationError carries every missing or malformed variable; the CLI maps
// it to exit code 2.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "config: invalid environment: " + strings.Join(e.Problems, "; ")
}

// Load reads the environment. Trading defaults off outside production.
func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:               env,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AlpacaKeyID:       os.Getenv("ALPACA_KEY_ID"),
		AlpacaSecretKey:   os.Getenv("ALPACA_SECRET_KEY"),
		AlpacaBaseURL:     getEnv("ALPACA_BASE_URL", alpaca.DefaultPaperBaseURL),
		AlpacaDataBaseURL: getEnv("ALPACA_DATA_BASE_URL", alpaca.DefaultDataBaseURL),
		QuiverAPIKey:      os.Getenv("QUIVER_API_KEY"),
		QuiverBaseURL:     getEnv("QUIVER_BASE_URL", quiver.DefaultBaseURL),
		TradingEnabled:    getEnvBool("TRADING_ENABLED", env == "production"),
		PaperTrading:      getEnvBool("PAPER_TRADING", true),
		TradeNotionalUSD:  getEnvDecimal("TRADE_NOTIONAL_USD", decimal.NewFromInt(1000)),
		StrictErrors:      getEnvBool("STRICT_ERRORS", false),
		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	cfg.DailyMaxFilings = getEnvIntPtr("DAILY_MAX_FILINGS")
	cfg.PerTickerDailyMax = getEnvIntPtr("PER_TICKER_DAILY_MAX")

	var problems []string
	for name, val := range map[string]string{
		"DATABASE_URL":      cfg.DatabaseURL,
		"ALPACA_KEY_ID":     cfg.AlpacaKeyID,
		"ALPACA_SECRET_KEY": cfg.AlpacaSecretKey,
		"QUIVER_API_KEY":    cfg.QuiverAPIKey,
	} {
		if val == "" {
			problems = append(problems, name+" is required")
		}
	}
	if cfg.TradeNotionalUSD.LessThanOrEqual(decimal.Zero) {
		problems = append(problems, "TRADE_NOTIONAL_USD must be positive")
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid TELEGRAM_CHAT_ID: %v", err))
		}
		cfg.TelegramChatID = id
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvIntPtr(key string) *int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return &i
		}
	}
	return nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
