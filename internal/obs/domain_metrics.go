package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartRecomputeTotal counts full cart recomputations by outcome.
	CartRecomputeTotal *prometheus.CounterVec
	// VoucherConsumeTotal counts voucher code consumption attempts.
	VoucherConsumeTotal *prometheus.CounterVec
	// CheckoutCompleteTotal counts checkout completion outcomes.
	CheckoutCompleteTotal *prometheus.CounterVec
	// CheckoutCompleteLatency records checkout completion latency in milliseconds.
	CheckoutCompleteLatency *prometheus.HistogramVec
	// PromoCodeThrottledTotal counts promo code requests rejected by the rate limiter.
	PromoCodeThrottledTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartRecomputeTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_recompute_total",
			Help:      "Count of cart total recomputations by outcome.",
		}, []string{"result"}))
		VoucherConsumeTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_consume_total",
			Help:      "Count of voucher code consumption attempts by outcome.",
		}, []string{"result"}))
		CheckoutCompleteTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_complete_total",
			Help:      "Count of checkout completions by outcome.",
		}, []string{"result"}))
		CheckoutCompleteLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_complete_duration_ms",
			Help:      "Latency for checkout completion in milliseconds.",
			Buckets:   defaultBuckets,
		}, []string{"result"}))
		PromoCodeThrottledTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_code_throttled_total",
			Help:      "Number of promo code requests rejected by the rate limiter.",
		}))
	})
}
