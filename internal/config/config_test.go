package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":                "postgres://localhost:5432/pricing?sslmode=disable",
		"REDIS_URL":                   "redis://localhost:6379/0",
		"CURRENCY_CODE":               "",
		"CART_PRICES_TTL":             "",
		"LOCK_MAX_WAIT":               "",
		"LEGACY_DISCOUNT_PROPAGATION": "",
		"LEGACY_DISCOUNT_CHANNELS":    "",
		"PROMO_CODE_RATE_LIMIT":       "",
		"ORDER_WEBHOOK_URL":           "",
		"ORDER_WEBHOOK_SECRET":        "",
		"OBS_METRICS_ENABLED":         "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "USD", cfg.Currency)
	require.Equal(t, time.Hour, cfg.CartPricesTTL)
	require.Equal(t, 5*time.Second, cfg.LockMaxWait)
	require.Equal(t, int64(10), cfg.PromoCodeRateLimit)
	require.True(t, cfg.Obs.MetricsEnabled)
	require.False(t, cfg.LegacyDiscountFor("default"))
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["CURRENCY_CODE"] = "idr"
	env["CART_PRICES_TTL"] = "15m"
	env["LOCK_MAX_WAIT"] = "not-a-duration"
	env["LEGACY_DISCOUNT_CHANNELS"] = "legacy, wholesale"
	env["PROMO_CODE_RATE_LIMIT"] = "3"
	env["OBS_METRICS_ENABLED"] = "false"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "IDR", cfg.Currency)
	require.Equal(t, 15*time.Minute, cfg.CartPricesTTL)
	require.Equal(t, 5*time.Second, cfg.LockMaxWait)
	require.Equal(t, int64(3), cfg.PromoCodeRateLimit)
	require.False(t, cfg.Obs.MetricsEnabled)
	require.True(t, cfg.LegacyDiscountFor("wholesale"))
	require.False(t, cfg.LegacyDiscountFor("default"))

	env["LEGACY_DISCOUNT_PROPAGATION"] = "true"
	cfg, err = LoadForTests(env)
	require.NoError(t, err)
	require.True(t, cfg.LegacyDiscountFor("default"))
}

func TestLoadValidation(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "DATABASE_URL")

	env = baseEnv()
	env["CURRENCY_CODE"] = "EURO"
	_, err = LoadForTests(env)
	require.ErrorContains(t, err, "CURRENCY_CODE")

	env = baseEnv()
	env["ORDER_WEBHOOK_URL"] = "https://hooks.example.com/orders"
	_, err = LoadForTests(env)
	require.ErrorContains(t, err, "ORDER_WEBHOOK_SECRET")
}

func TestHTTPAddr(t *testing.T) {
	require.Equal(t, ":8080", (&Config{}).HTTPAddr())
	require.Equal(t, ":9000", (&Config{Port: "9000"}).HTTPAddr())
	require.Equal(t, ":9001", (&Config{Port: ":9001"}).HTTPAddr())
}
