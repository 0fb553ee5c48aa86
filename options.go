package gosquirrelshield

import (
	"time"

	"github.com/Keksclan/goSquirrelShield/breaker"
	"github.com/Keksclan/goSquirrelShield/internal/core"
	"github.com/Keksclan/goSquirrelShield/keyer"
	"github.com/Keksclan/goSquirrelShield/metrics"
	"github.com/Keksclan/goSquirrelShield/ratelimit"
	"github.com/Keksclan/goSquirrelShield/retry"
	"github.com/Keksclan/goSquirrelShield/tracing"
	"github.com/Keksclan/goSquirrelShield/ttlcache"
)

// Layer execution order, outermost first. The values are fixed so composition
// is deterministic no matter the order options are passed to New: a cache hit
// is answered before tracing or metrics see the call, the breaker guards the
// retry loop rather than individual attempts, and rate limiting counts calls,
// not retries.
const (
	orderCaching   = 10
	orderRecovery  = 15
	orderTracing   = 20
	orderMetrics   = 30
	orderRateLimit = 40
	orderBreaker   = 50
	orderRetry     = 60
)

// layerFactory builds one middleware for a specific call identity.
type layerFactory func(CallInfo) Middleware

type config struct {
	cache    *ttlcache.Cache
	cacheTTL time.Duration
	keyFn    keyer.Func

	layers  core.Builder[layerFactory]
	ordered []layerFactory

	closers []func()
}

// Option configures a Shield.
type Option func(*config)

// WithCaching adds the caching layer: results of successful calls are stored
// in cache under the derived key for ttl, and later calls with the same key
// are answered from the cache without invoking any inner layer. A ttl <= 0
// uses the cache's default TTL. Errors are never cached.
func WithCaching(cache *ttlcache.Cache, ttl time.Duration) Option {
	return func(c *config) {
		c.cache = cache
		c.cacheTTL = ttl
		c.layers.Add(orderCaching, func(info CallInfo) Middleware {
			return cachingMiddleware(cache, info.Key, ttl)
		})
	}
}

// WithKeyFunc overrides the default cache key derivation. It only has an
// effect together with WithCaching.
func WithKeyFunc(fn keyer.Func) Option {
	return func(c *config) {
		c.keyFn = fn
	}
}

// WithRecovery converts panics in the wrapped operation (or any inner layer)
// into a coded, non-retryable error. It sits just inside the caching layer so
// a recovered failure is never stored.
func WithRecovery() Option {
	return func(c *config) {
		c.layers.Add(orderRecovery, func(CallInfo) Middleware {
			return recoveryMiddleware()
		})
	}
}

// WithRetry adds the retry layer as the innermost wrapper, so every retry
// attempt is an invocation of the bare operation.
func WithRetry(cfg retry.Config) Option {
	return func(c *config) {
		c.layers.Add(orderRetry, func(info CallInfo) Middleware {
			return retryMiddleware(cfg, info.Op)
		})
	}
}

// WithBreaker adds a circuit breaker around the retry layer. One breaker is
// shared by every operation wrapped by this Shield: it models the health of
// the dependency behind the Shield, not of individual operations.
func WithBreaker(cfg breaker.Config) Option {
	b := breaker.New(cfg)
	return func(c *config) {
		c.layers.Add(orderBreaker, func(CallInfo) Middleware {
			return breakerMiddleware(b)
		})
	}
}

// WithRateLimit gates calls through a shared token bucket permitting rps
// calls per second with the given burst. A call that finds the bucket empty
// fails immediately with ratelimit.ErrLimited.
func WithRateLimit(rps float64, burst int) Option {
	l := ratelimit.NewLimiter(rps, burst)
	return func(c *config) {
		c.layers.Add(orderRateLimit, func(CallInfo) Middleware {
			return rateLimitMiddleware(l)
		})
	}
}

// WithMetrics records outcome and duration of each call (cache hits
// excluded) through the given observer.
func WithMetrics(obs *metrics.CallObserver) Option {
	return func(c *config) {
		c.layers.Add(orderMetrics, func(info CallInfo) Middleware {
			return metricsMiddleware(obs, info.Op)
		})
	}
}

// WithTracing wraps each call (cache hits excluded) in an OpenTelemetry span
// named after the operation.
func WithTracing(cfg *tracing.TracingConfig) Option {
	return func(c *config) {
		c.layers.Add(orderTracing, func(info CallInfo) Middleware {
			return tracingMiddleware(cfg, info.Op)
		})
	}
}
