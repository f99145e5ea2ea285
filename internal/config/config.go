package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration

	Currency       string
	CartTTL        time.Duration
	CartPricesTTL  time.Duration
	LockTTL        time.Duration
	LockRetry      time.Duration
	LockMaxWait    time.Duration
	LegacyDiscount bool
	LegacyChannels []string

	PromoCodeRateLimit  int64
	PromoCodeRatePeriod time.Duration

	OrderWebhookURL     string
	OrderWebhookSecret  string
	OrderWebhookTimeout time.Duration

	Obs ObsConfig
}

// ObsConfig controls logging, metrics and tracing.
type ObsConfig struct {
	ServiceName      string
	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	TracingExporter  string
	TracingEndpoint  string
	TracingRatio     float64
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ShutdownTimeout:    durationOrDefault(k, "SHUTDOWN_TIMEOUT", 15*time.Second),

		Currency:       strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "USD")),
		CartTTL:        durationOrDefault(k, "CART_TTL", 7*24*time.Hour),
		CartPricesTTL:  durationOrDefault(k, "CART_PRICES_TTL", time.Hour),
		LockTTL:        durationOrDefault(k, "LOCK_TTL", 10*time.Second),
		LockRetry:      durationOrDefault(k, "LOCK_RETRY_BACKOFF", 25*time.Millisecond),
		LockMaxWait:    durationOrDefault(k, "LOCK_MAX_WAIT", 5*time.Second),
		LegacyDiscount: k.Bool("LEGACY_DISCOUNT_PROPAGATION"),
		LegacyChannels: splitAndTrim(k.String("LEGACY_DISCOUNT_CHANNELS")),

		PromoCodeRateLimit:  k.Int64("PROMO_CODE_RATE_LIMIT"),
		PromoCodeRatePeriod: durationOrDefault(k, "PROMO_CODE_RATE_PERIOD", time.Minute),

		OrderWebhookURL:     strings.TrimSpace(k.String("ORDER_WEBHOOK_URL")),
		OrderWebhookSecret:  k.String("ORDER_WEBHOOK_SECRET"),
		OrderWebhookTimeout: durationOrDefault(k, "ORDER_WEBHOOK_TIMEOUT", 5*time.Second),

		Obs: ObsConfig{
			ServiceName:      valueOrDefault(k.String("OBS_SERVICE_NAME"), "toko-pricing"),
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:   !k.Exists("OBS_METRICS_ENABLED") || k.Bool("OBS_METRICS_ENABLED"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pricing"),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "none"),
			TracingEndpoint:  strings.TrimSpace(k.String("OBS_TRACING_ENDPOINT")),
			TracingRatio:     k.Float64("OBS_TRACING_SAMPLE_RATIO"),
		},
	}
	if cfg.PromoCodeRateLimit <= 0 {
		cfg.PromoCodeRateLimit = 10
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if len(cfg.Currency) != 3 {
		return nil, fmt.Errorf("CURRENCY_CODE must be a 3-letter code, got %q", cfg.Currency)
	}
	if cfg.OrderWebhookURL != "" && cfg.OrderWebhookSecret == "" {
		return nil, errors.New("ORDER_WEBHOOK_SECRET is required when ORDER_WEBHOOK_URL is set")
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// LegacyDiscountFor reports whether orders placed in channelID fold voucher
// shares into the persisted line discount.
func (c *Config) LegacyDiscountFor(channelID string) bool {
	return c.LegacyDiscount || slices.Contains(c.LegacyChannels, channelID)
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(k *koanf.Koanf, key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(k.String(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests sets env for the duration of Load and restores the previous values.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []error
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
