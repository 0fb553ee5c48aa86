package gosquirrelshield

import (
	"context"
	"log/slog"
	"time"

	"github.com/agilira/go-errors"

	"github.com/Keksclan/goSquirrelShield/breaker"
	"github.com/Keksclan/goSquirrelShield/logging"
	"github.com/Keksclan/goSquirrelShield/metrics"
	"github.com/Keksclan/goSquirrelShield/ratelimit"
	"github.com/Keksclan/goSquirrelShield/retry"
	"github.com/Keksclan/goSquirrelShield/tracing"
	"github.com/Keksclan/goSquirrelShield/ttlcache"
)

// cachingMiddleware answers from cache on a hit and stores successful results
// on a miss. Failed calls leave the cache untouched. A ttl <= 0 defers to the
// cache's default TTL.
func cachingMiddleware(cache *ttlcache.Cache, key string, ttl time.Duration) Middleware {
	return func(next Operation) Operation {
		return func(ctx context.Context) (any, error) {
			if v, ok := cache.Get(key); ok {
				return v, nil
			}

			result, err := next(ctx)
			if err != nil {
				return nil, err
			}

			if ttl > 0 {
				cache.Set(key, result, ttl)
			} else {
				cache.SetDefault(key, result)
			}
			return result, nil
		}
	}
}

// ErrCodePanic identifies calls that panicked and were converted to errors
// by the recovery layer.
const ErrCodePanic errors.ErrorCode = "SHIELD_PANIC"

// recoveryMiddleware converts a panic in any inner layer into a coded,
// non-retryable error instead of crashing the process.
func recoveryMiddleware() Middleware {
	return func(next Operation) Operation {
		return func(ctx context.Context) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logging.Error(ctx, "recovered from panic",
						slog.Any("panic", r))
					result = nil
					err = errors.New(ErrCodePanic, "internal error in wrapped operation")
				}
			}()
			return next(ctx)
		}
	}
}

// retryMiddleware runs the inner operation under the retry policy.
func retryMiddleware(cfg retry.Config, op string) Middleware {
	return func(next Operation) Operation {
		return func(ctx context.Context) (any, error) {
			return retry.Do(ctx, cfg, op, next)
		}
	}
}

// breakerMiddleware runs the inner operation under the circuit breaker. The
// breaker sees the retry layer's final verdict, so one exhausted retry loop
// counts as one failure, not MaxRetries+1.
func breakerMiddleware(b *breaker.Breaker) Middleware {
	return func(next Operation) Operation {
		return func(ctx context.Context) (any, error) {
			return b.Execute(ctx, next)
		}
	}
}

// rateLimitMiddleware rejects the call when the token bucket is empty.
func rateLimitMiddleware(l *ratelimit.Limiter) Middleware {
	return func(next Operation) Operation {
		return func(ctx context.Context) (any, error) {
			if !l.Allow() {
				return nil, ratelimit.ErrLimited
			}
			return next(ctx)
		}
	}
}

// metricsMiddleware records outcome and duration of the inner call.
func metricsMiddleware(obs *metrics.CallObserver, op string) Middleware {
	return func(next Operation) Operation {
		return func(ctx context.Context) (any, error) {
			start := time.Now()
			result, err := next(ctx)
			obs.Observe(op, time.Since(start), err)
			return result, err
		}
	}
}

// tracingMiddleware wraps the inner call in a span named after the operation.
func tracingMiddleware(cfg *tracing.TracingConfig, op string) Middleware {
	return func(next Operation) Operation {
		return func(ctx context.Context) (any, error) {
			return tracing.Span(ctx, cfg, op, next)
		}
	}
}
