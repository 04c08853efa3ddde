package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting the service needs. It is constructed
// once at process start and passed by reference; no component reads process
// environment directly.
type Config struct {
	AppEnv  string `validate:"oneof=dev prod"`
	AppHost string
	AppPort string

	DB struct {
		Host     string `validate:"required"`
		Port     string `validate:"required"`
		User     string `validate:"required"`
		Password string
		Name     string `validate:"required"`
	}

	Cache struct {
		Host string
		Port string
	}

	Provider struct {
		// Name prefixes the signature header (`<name>-signature`) and tags
		// persisted rows.
		Name          string `validate:"required"`
		WebhookSecret string
		APIKey        string
		BaseURL       string
	}

	// APIKey protects the operator read API (/api/v1).
	APIKey string

	MetricsUser string
	MetricsPass string

	SMTP struct {
		Host     string
		Port     string
		Username string
		Password string
		Sender   string
	}
	// DisputeNotifyEmail receives operational alerts for dispute.created.
	DisputeNotifyEmail string

	// EventRetention bounds how long processed webhook events are kept for
	// dedup before the pruner removes them.
	EventRetention time.Duration
	RequestTimeout time.Duration
}

// Load reads an optional .env file, overlays OS environment variables and
// validates the result.
func Load() (*Config, error) {
	env := map[string]string{}
	for _, envFile := range []string{".env", "../../.env", "../../../.env"} {
		if m, err := godotenv.Read(envFile); err == nil {
			env = m
			break
		}
	}

	get := func(key, def string) string {
		if val, ok := env[key]; ok && val != "" {
			return val
		}
		if val := os.Getenv(key); val != "" {
			return val
		}
		return def
	}

	cfg := &Config{
		AppEnv:  get("APP_ENV", "prod"),
		AppHost: get("APP_HOST", "localhost"),
		AppPort: get("APP_PORT", "4000"),

		APIKey:             strings.TrimSpace(get("API_KEY", "")),
		MetricsUser:        get("METRICS_USER", "admin"),
		MetricsPass:        get("METRICS_PASS", ""),
		DisputeNotifyEmail: strings.TrimSpace(get("DISPUTE_NOTIFY_EMAIL", "")),
	}
	cfg.DB.Host = get("DB_HOST", "127.0.0.1")
	cfg.DB.Port = get("DB_PORT", "3306")
	cfg.DB.User = get("DB_USER", "paysync")
	cfg.DB.Password = get("DB_PASSWORD", "")
	cfg.DB.Name = get("DB_NAME", "paysync_db")

	cfg.Cache.Host = get("CACHE_HOST", "localhost")
	cfg.Cache.Port = get("CACHE_PORT", "6379")

	cfg.SMTP.Host = get("SMTP_HOST", "")
	cfg.SMTP.Port = get("SMTP_PORT", "587")
	cfg.SMTP.Username = get("SMTP_USERNAME", "")
	cfg.SMTP.Password = get("SMTP_PASSWORD", "")
	cfg.SMTP.Sender = get("SMTP_SENDER", "")

	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(get("PROVIDER_NAME", "payments")))
	cfg.Provider.WebhookSecret = strings.TrimSpace(get("PROVIDER_WEBHOOK_SECRET", ""))
	cfg.Provider.APIKey = strings.TrimSpace(get("PROVIDER_API_KEY", ""))
	cfg.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(get("PROVIDER_BASE_URL", "")), "/")

	retentionDays, err := strconv.Atoi(get("EVENT_RETENTION_DAYS", "30"))
	if err != nil || retentionDays < 1 {
		return nil, fmt.Errorf("invalid EVENT_RETENTION_DAYS: %q", get("EVENT_RETENTION_DAYS", "30"))
	}
	cfg.EventRetention = time.Duration(retentionDays) * 24 * time.Hour

	timeoutSec, err := strconv.Atoi(get("REQUEST_TIMEOUT_SECONDS", "15"))
	if err != nil || timeoutSec < 1 {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT_SECONDS: %q", get("REQUEST_TIMEOUT_SECONDS", "15"))
	}
	cfg.RequestTimeout = time.Duration(timeoutSec) * time.Second

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// SignatureHeader returns the header name the provider signs payloads with.
func (c *Config) SignatureHeader() string {
	return c.Provider.Name + "-signature"
}

// DSN builds the MySQL data source name for GORM.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// MigrateURL builds the golang-migrate database URL.
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// CacheAddr returns the Redis address.
func (c *Config) CacheAddr() string {
	return fmt.Sprintf("%s:%s", c.Cache.Host, c.Cache.Port)
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}
