// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPriceID is the Stripe price used for both tiers unless overridden.
const DefaultPriceID = "price_1PXkvYKdmVvRSiVymFPRUye5"

type TelegramConfig struct {
	Token          string `validate:"required"`
	MaxConnections int    `validate:"min=1,max=100"`
}

type DatabaseConfig struct {
	URL          string `validate:"required"`
	Key          string
	MaxConns     int `validate:"min=1"`
	MinConns     int `validate:"min=0"`
	ConnLifetime time.Duration
	Migrate      bool
}

type StripeConfig struct {
	APIKey        string `validate:"required"`
	WebhookSecret string `validate:"required"`
	Currency      string `validate:"required,len=3"`
	Price15       string `validate:"required"`
	Price30       string `validate:"required"`
}

type ServerConfig struct {
	BaseURL string `validate:"required,url"`
	Port    string `validate:"required,numeric"`
}

type RedisConfig struct {
	URL string
}

type LoggingConfig struct {
	Level       string `validate:"oneof=debug info warn error"`
	Development bool
}

type Config struct {
	Telegram        TelegramConfig
	Database        DatabaseConfig
	Stripe          StripeConfig
	Server          ServerConfig
	Redis           RedisConfig
	Logging         LoggingConfig
	SessionTTL      time.Duration
	ShutdownTimeout time.Duration
}

// envBindings maps config keys to the environment variables that may set them,
// in order of precedence.
var envBindings = map[string][]string{
	"telegram.token":          {"BOT_TOKEN", "TELEGRAM_TOKEN"},
	"telegram.maxconnections": {"TELEGRAM_MAX_CONNECTIONS"},
	"database.url":            {"DATABASE_URL"},
	"database.key":            {"DATABASE_KEY"},
	"database.maxconns":       {"DATABASE_MAX_CONNS"},
	"database.minconns":       {"DATABASE_MIN_CONNS"},
	"database.connlifetime":   {"DATABASE_CONN_LIFETIME"},
	"database.migrate":        {"DATABASE_MIGRATE"},
	"stripe.apikey":           {"STRIPE_API_KEY"},
	"stripe.webhooksecret":    {"STRIPE_SECRET", "STRIPE_WEBHOOK_SECRET"},
	"stripe.currency":         {"STRIPE_CURRENCY"},
	"stripe.price15":          {"STRIPE_PRICE_15"},
	"stripe.price30":          {"STRIPE_PRICE_30"},
	"server.baseurl":          {"WEBHOOK_URL"},
	"server.port":             {"PORT"},
	"redis.url":               {"REDIS_URL"},
	"logging.level":           {"LOG_LEVEL"},
	"logging.development":     {"LOG_DEVELOPMENT"},
	"sessionttl":              {"SESSION_TTL"},
	"shutdowntimeout":         {"SHUTDOWN_TIMEOUT"},
}

// Load loads the configuration
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.subscription-bot")

	v.SetDefault("telegram.maxconnections", 30)
	v.SetDefault("database.maxconns", 10)
	v.SetDefault("database.minconns", 2)
	v.SetDefault("database.connlifetime", 5*time.Minute)
	v.SetDefault("database.migrate", true)
	v.SetDefault("stripe.currency", "eur")
	v.SetDefault("stripe.price15", DefaultPriceID)
	v.SetDefault("stripe.price30", DefaultPriceID)
	v.SetDefault("server.port", "3000")
	v.SetDefault("logging.level", "info")
	v.SetDefault("sessionttl", 24*time.Hour)
	v.SetDefault("shutdowntimeout", 10*time.Second)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Stripe.Currency = strings.ToLower(cfg.Stripe.Currency)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
