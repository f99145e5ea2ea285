package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/order"
)

func TestRouterWiring(t *testing.T) {
	cfg := &config.Config{Obs: config.ObsConfig{MetricsEnabled: false}}
	r := newRouter(cfg, zerolog.Nop(), routes{
		cart:     &cart.Handler{},
		checkout: &checkout.Handler{},
		order:    &order.Handler{},
		health:   health.Handler{},
	})

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodPost, "/api/v1/carts", http.StatusInternalServerError},
		{http.MethodPost, "/api/v1/carts/invalidate-prices", http.StatusInternalServerError},
		{http.MethodPost, "/api/v1/carts/abc/promo-code", http.StatusInternalServerError},
		{http.MethodPut, "/api/v1/carts/abc/shipping-method", http.StatusInternalServerError},
		{http.MethodPost, "/api/v1/checkout", http.StatusInternalServerError},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusNotFound},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		require.Equal(t, tc.want, rr.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouterSecurityMiddleware(t *testing.T) {
	cfg := &config.Config{AppEnv: "production"}
	r := newRouter(cfg, zerolog.Nop(), routes{health: health.Handler{}})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, 31536000, hstsMaxAge(cfg))
}
