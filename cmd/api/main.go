package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/db"
	"github.com/noah-isme/toko-pricing/internal/events"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/order"
	"github.com/noah-isme/toko-pricing/internal/ratelimit"
	"github.com/noah-isme/toko-pricing/internal/security"
	"github.com/noah-isme/toko-pricing/internal/voucher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().
		Str("service", cfg.Obs.ServiceName).
		Str("env", cfg.AppEnv).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	}
	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   cfg.Obs.ServiceName,
		Endpoint:      cfg.Obs.TracingEndpoint,
		Exporter:      cfg.Obs.TracingExporter,
		SamplingRatio: cfg.Obs.TracingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise tracing")
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.Obs.ServiceName
	pool, err := pgxpool.NewWithConfig(startCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(startCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	queries := db.New(pool)

	redisClient, err := newRedis(startCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	locker := lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetry, MaxWait: cfg.LockMaxWait}
	voucherSvc := &voucher.Service{Q: queries}
	cartSvc := &cart.Service{
		Store:     cart.NewStore(redisClient, cfg.CartTTL),
		Locker:    locker,
		LockTTL:   cfg.LockTTL,
		Catalogue: cart.DBCatalogue{Q: queries},
		Prices:    cart.DBPrices{Q: queries},
		Vouchers:  voucherSvc,
		PricesTTL: cfg.CartPricesTTL,
		Currency:  cfg.Currency,
		Logger:    logger.With().Str("component", "cart").Logger(),
	}

	notifiers := []events.Notifier{events.LogNotifier{Logger: logger}}
	if cfg.OrderWebhookURL != "" {
		notifiers = append(notifiers, events.WebhookNotifier{
			URL:    cfg.OrderWebhookURL,
			Secret: cfg.OrderWebhookSecret,
			Client: events.NewWebhookClient(cfg.OrderWebhookTimeout),
		})
	}
	checkoutSvc := &checkout.Service{
		Carts:    cartSvc,
		Tx:       checkout.PgxTx{Pool: pool, Q: queries},
		Vouchers: voucherSvc,
		Locker:   locker,
		LockTTL:  cfg.LockTTL,
		Events:   &events.Bus{Store: queries, Notifiers: notifiers},
		Legacy:   cfg.LegacyDiscountFor,
		Logger:   logger.With().Str("component", "checkout").Logger(),
	}

	limiterStore, err := ratelimit.NewRedisStore(redisClient, "pricing:promo")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	promoLimit := ratelimit.Handler{
		Limiter: ratelimit.New(limiterStore, cfg.PromoCodeRateLimit, cfg.PromoCodeRatePeriod),
		Key:     ratelimit.PromoCodeKey,
		OnError: func(err error) { logger.Warn().Err(err).Msg("promo code rate limiter unavailable") },
	}

	validate := validator.New()
	r := newRouter(cfg, logger, routes{
		cart:     &cart.Handler{Svc: cartSvc, Validate: validate},
		checkout: &checkout.Handler{Svc: checkoutSvc, Validate: validate},
		order:    &order.Handler{Q: queries},
		health:   health.Handler{Probes: []health.Probe{health.Postgres(pool), health.Redis(redisClient)}},
		promo:    promoLimit,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           otelhttp.NewHandler(r, "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown http server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

type routes struct {
	cart     *cart.Handler
	checkout *checkout.Handler
	order    *order.Handler
	health   health.Handler
	promo    ratelimit.Handler
}

func newRouter(cfg *config.Config, logger zerolog.Logger, h routes) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.SpanRoute)
	if cfg.Obs.MetricsEnabled {
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, nil)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{HSTSMaxAge: hstsMaxAge(cfg)}.Middleware)
	r.Use(security.BodyLimit{Max: security.DefaultMaxBody}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Channel-ID", "X-Request-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", h.health.Live)
	r.Get("/health/ready", h.health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/carts", func(c chi.Router) {
			c.Post("/", h.cart.Create)
			c.Post("/invalidate-prices", h.cart.InvalidatePrices)
			c.Route("/{id}", func(one chi.Router) {
				one.Get("/", h.cart.Get)
				one.Get("/totals", h.cart.Totals)
				one.Post("/lines", h.cart.AddLine)
				one.Patch("/lines/{lineId}", h.cart.UpdateLine)
				one.Delete("/lines/{lineId}", h.cart.DeleteLine)
				one.With(h.promo.Middleware).Post("/promo-code", h.cart.AddPromoCode)
				one.Delete("/promo-code", h.cart.RemovePromoCode)
				one.Put("/shipping-method", h.cart.SetShippingMethod)
			})
		})
		v.Post("/checkout", h.checkout.Complete)
		v.Get("/orders/{orderId}", h.order.Get)
	})
	return r
}

func hstsMaxAge(cfg *config.Config) int {
	if cfg.AppEnv == "production" {
		return 31536000
	}
	return 0
}

func newRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
