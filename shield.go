// Package gosquirrelshield wraps unreliable operations (database sessions,
// remote APIs, storage calls) in composable resilience layers: TTL caching,
// retry with exponential backoff, circuit breaking, rate limiting, metrics
// and tracing.
//
// The layers compose in one fixed order regardless of the order options are
// passed: caching is always outermost and retry always innermost, so a cache
// hit never invokes retry logic and a cache miss pays the full
// retry-protected cost exactly once:
//
//	shield := gss.New(
//		gss.WithCaching(cache, time.Minute),
//		gss.WithRetry(retry.DefaultConfig()),
//	)
//	v, err := shield.Call(ctx, "db.FetchUser", fetchUser, userID)
package gosquirrelshield

import (
	"context"
	"time"

	"github.com/Keksclan/goSquirrelShield/contextx"
	"github.com/Keksclan/goSquirrelShield/keyer"
)

// Operation is the minimal unit of work that the resilience layers wrap.
type Operation func(ctx context.Context) (any, error)

// Middleware transforms an Operation, allowing pre/post behavior composition.
type Middleware func(Operation) Operation

// Chain composes middlewares from left to right, i.e., Chain(A, B)(op) => A(B(op)).
func Chain(mw ...Middleware) Middleware {
	return func(next Operation) Operation {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

// Wrap applies the middleware chain to an operation and returns the wrapped
// operation. Wrapping never changes the operation's shape: it only may
// suppress the call on a cache hit, or replace a transient failure with the
// terminal exhaustion error once retries run out.
func Wrap(op Operation, mw ...Middleware) Operation {
	if len(mw) == 0 {
		return op
	}
	return Chain(mw...)(op)
}

// CallInfo identifies one wrapped call: the operation name and, when caching
// is configured, the derived cache key.
type CallInfo struct {
	Op  string
	Key string
}

// Shield composes the configured resilience layers around operations. It is
// an explicitly constructed service object: create one per dependency (or
// per process) at startup and inject it into consumers. It spawns no
// background goroutines of its own; the cache's sweeper lifecycle belongs
// to the cache.
type Shield struct {
	cfg config
}

// New creates a Shield by applying the supplied functional [Option] values.
// Layer execution order is determined by fixed priority levels, not by the
// order options are passed.
func New(opts ...Option) *Shield {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	cfg.ordered = cfg.layers.Build()
	return &Shield{cfg: cfg}
}

// Func returns fn wrapped with the configured layers for the given operation
// identity and arguments. The returned Operation can be stored and invoked
// repeatedly; every invocation uses the same cache key.
func (s *Shield) Func(op string, fn Operation, args ...any) Operation {
	info := CallInfo{Op: op}
	if s.cfg.cache != nil {
		info.Key = s.key(op, args)
	}

	wrapped := fn
	for i := len(s.cfg.ordered) - 1; i >= 0; i-- {
		wrapped = s.cfg.ordered[i](info)(wrapped)
	}

	return func(ctx context.Context) (any, error) {
		ctx = contextx.EnsureCallID(ctx)
		ctx = contextx.WithOperation(ctx, info.Op)
		return wrapped(ctx)
	}
}

// Call wraps fn for op and args and invokes it once.
func (s *Shield) Call(ctx context.Context, op string, fn Operation, args ...any) (any, error) {
	return s.Func(op, fn, args...)(ctx)
}

// key derives the cache key, honoring a caller-supplied key function, which
// takes total precedence over the default derivation.
func (s *Shield) key(op string, args []any) string {
	if s.cfg.keyFn != nil {
		return s.cfg.keyFn(args...)
	}
	return keyer.Key(op, args...)
}

// CacheTTL returns the TTL the caching layer applies, or zero when the cache
// default is in effect.
func (s *Shield) CacheTTL() time.Duration {
	return s.cfg.cacheTTL
}

// Close stops background components the Shield owns, such as the sweeper of
// a cache created by NewFromEnv. Caches passed in by the caller via
// WithCaching stay the caller's responsibility.
func (s *Shield) Close() {
	for _, fn := range s.cfg.closers {
		fn()
	}
}
