package ratelimit

import (
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRedisStore returns a limiter store keeping counters in Redis under prefix.
func NewRedisStore(client *redis.Client, prefix string) (limiter.Store, error) {
	if prefix == "" {
		prefix = "pricing:ratelimit"
	}
	return limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
}

// New builds a fixed-window limiter allowing limit hits per period.
func New(store limiter.Store, limit int64, period time.Duration) *limiter.Limiter {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}
	return limiter.New(store, limiter.Rate{Period: period, Limit: limit})
}
