package gosquirrelshield

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Keksclan/goSquirrelShield/breaker"
	"github.com/Keksclan/goSquirrelShield/contextx"
	"github.com/Keksclan/goSquirrelShield/metrics"
	"github.com/Keksclan/goSquirrelShield/ratelimit"
	"github.com/Keksclan/goSquirrelShield/retry"
	"github.com/Keksclan/goSquirrelShield/tracing"
	"github.com/Keksclan/goSquirrelShield/ttlcache"
)

func newTestCache() *ttlcache.Cache {
	return ttlcache.New(ttlcache.Config{})
}

func fastRetry(maxRetries int) retry.Config {
	return retry.Config{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestCall_RetriesThenCaches(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		if calls.Add(1) < 3 {
			return nil, retry.Transient(errors.New("connection reset"), "transient failure")
		}
		return "ok", nil
	}

	shield := New(
		WithCaching(newTestCache(), time.Minute),
		WithRetry(fastRetry(3)),
	)

	v, err := shield.Call(t.Context(), "db.FetchUser", fn, 42)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if v != "ok" {
		t.Fatalf("got %v, want ok", v)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("first call invoked fn %d times, want 3", n)
	}

	// The second call must be answered from the cache without invoking fn.
	v, err = shield.Call(t.Context(), "db.FetchUser", fn, 42)
	if err != nil || v != "ok" {
		t.Fatalf("cached call: v=%v err=%v", v, err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("cached call invoked fn again, total %d", n)
	}
}

func TestCall_DistinctArgsDistinctKeys(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		return calls.Add(1), nil
	}

	shield := New(WithCaching(newTestCache(), time.Minute))

	if _, err := shield.Call(t.Context(), "q", fn, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := shield.Call(t.Context(), "q", fn, 2); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("different arguments must not share a cache entry, calls=%d", n)
	}
}

func TestCall_NonRetryablePropagatesUnchanged(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("bad request")
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}

	shield := New(
		WithCaching(newTestCache(), time.Minute),
		WithRetry(fastRetry(3)),
		WithBreaker(breaker.Config{FailureThreshold: 10}),
	)

	_, err := shield.Call(t.Context(), "op", fn)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the original error", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("non-retryable error must not be retried, calls=%d", n)
	}

	// Failed calls are never cached.
	if _, err := shield.Call(t.Context(), "op", fn); !errors.Is(err, boom) {
		t.Fatalf("second call: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("failure was cached, calls=%d", n)
	}
}

func TestCall_ExhaustionSurfacesTerminalError(t *testing.T) {
	fn := func(ctx context.Context) (any, error) {
		return nil, retry.Transient(errors.New("still down"), "transient failure")
	}

	shield := New(WithRetry(fastRetry(2)))

	_, err := shield.Call(t.Context(), "flaky", fn)
	ex, ok := retry.AsExhausted(err)
	if !ok {
		t.Fatalf("got %v, want exhaustion error", err)
	}
	if ex.Attempts != 3 {
		t.Fatalf("Attempts=%d, want 3", ex.Attempts)
	}
}

func TestFixedOrder_CacheHitBypassesOpenBreaker(t *testing.T) {
	var goodCalls atomic.Int32
	good := func(ctx context.Context) (any, error) {
		goodCalls.Add(1)
		return "cached", nil
	}
	bad := func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	}

	shield := New(
		WithCaching(newTestCache(), time.Minute),
		WithBreaker(breaker.Config{FailureThreshold: 1, OpenTimeout: time.Hour}),
	)

	if _, err := shield.Call(t.Context(), "good", good); err != nil {
		t.Fatalf("priming call failed: %v", err)
	}

	// Trip the shared breaker.
	if _, err := shield.Call(t.Context(), "bad", bad); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := shield.Call(t.Context(), "bad", bad); !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("got %v, want breaker rejection", err)
	}

	// Caching sits outside the breaker: a hit is served even while open.
	v, err := shield.Call(t.Context(), "good", good)
	if err != nil || v != "cached" {
		t.Fatalf("cache hit during open breaker: v=%v err=%v", v, err)
	}
	if n := goodCalls.Load(); n != 1 {
		t.Fatalf("cache hit must not invoke fn, calls=%d", n)
	}
}

func TestFixedOrder_RetryRunsInsideBreaker(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, retry.Transient(errors.New("flapping"), "transient failure")
	}

	shield := New(
		WithRetry(fastRetry(2)),
		WithBreaker(breaker.Config{FailureThreshold: 1, OpenTimeout: time.Hour}),
	)

	// The breaker sees one failure for the whole exhausted retry loop.
	if _, err := shield.Call(t.Context(), "op", fn); err == nil {
		t.Fatal("expected exhaustion")
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("retry loop invoked fn %d times, want 3", n)
	}

	// Now the breaker is open and rejects before any attempt is made.
	if _, err := shield.Call(t.Context(), "op", fn); !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("got %v, want breaker rejection", err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("open breaker must not invoke fn, calls=%d", n)
	}
}

func TestFixedOrder_IndependentOfOptionOrder(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "ok", nil
	}

	// Options deliberately passed innermost-first.
	shield := New(
		WithRetry(fastRetry(1)),
		WithBreaker(breaker.Config{}),
		WithCaching(newTestCache(), time.Minute),
	)

	if _, err := shield.Call(t.Context(), "op", fn); err != nil {
		t.Fatal(err)
	}
	if _, err := shield.Call(t.Context(), "op", fn); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("caching must be outermost regardless of option order, calls=%d", n)
	}
}

func TestWithRateLimit_RejectsWhenBucketEmpty(t *testing.T) {
	fn := func(ctx context.Context) (any, error) {
		return "ok", nil
	}

	shield := New(WithRateLimit(0.001, 1))

	if _, err := shield.Call(t.Context(), "op", fn); err != nil {
		t.Fatalf("first call must pass: %v", err)
	}
	if _, err := shield.Call(t.Context(), "op", fn); !errors.Is(err, ratelimit.ErrLimited) {
		t.Fatalf("got %v, want rate limit rejection", err)
	}
}

func TestWithKeyFunc_OverridesDerivation(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		return calls.Add(1), nil
	}

	shield := New(
		WithCaching(newTestCache(), time.Minute),
		WithKeyFunc(func(args ...any) string { return "pinned" }),
	)

	if _, err := shield.Call(t.Context(), "op", fn, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := shield.Call(t.Context(), "op", fn, 2); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("custom key func must collapse both calls onto one entry, calls=%d", n)
	}
}

func TestCall_InjectsCallIDAndOperation(t *testing.T) {
	var gotID, gotOp string
	fn := func(ctx context.Context) (any, error) {
		gotID = contextx.CallIDFromContext(ctx)
		gotOp = contextx.OperationFromContext(ctx)
		return nil, nil
	}

	shield := New()
	if _, err := shield.Call(t.Context(), "svc.Op", fn); err != nil {
		t.Fatal(err)
	}
	if gotID == "" {
		t.Fatal("expected a call ID in the operation context")
	}
	if gotOp != "svc.Op" {
		t.Fatalf("operation=%q, want svc.Op", gotOp)
	}
}

func TestWithMetrics_RecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := metrics.NewCallObserver(reg)

	shield := New(WithMetrics(obs))

	if _, err := shield.Call(t.Context(), "op", func(ctx context.Context) (any, error) {
		return "ok", nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := shield.Call(t.Context(), "op", func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	}); err == nil {
		t.Fatal("expected failure")
	}

	// One success series and one error series.
	if got := testutil.CollectAndCount(reg, "squirrelshield_calls_total"); got != 2 {
		t.Fatalf("calls_total series=%d, want 2", got)
	}
}

func TestWithTracing_SpansSkippedOnCacheHit(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	shield := New(
		WithCaching(newTestCache(), time.Minute),
		WithTracing(&tracing.TracingConfig{TracerProvider: tp}),
	)

	fn := func(ctx context.Context) (any, error) { return "ok", nil }
	if _, err := shield.Call(t.Context(), "traced", fn); err != nil {
		t.Fatal(err)
	}
	if _, err := shield.Call(t.Context(), "traced", fn); err != nil {
		t.Fatal(err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans=%d, want 1 (cache hit must not be traced)", len(spans))
	}
	if spans[0].Name() != "traced" {
		t.Fatalf("span name=%q", spans[0].Name())
	}
}

func TestWithRecovery_ConvertsPanicToError(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		panic("boom")
	}

	shield := New(
		WithCaching(newTestCache(), time.Minute),
		WithRecovery(),
		WithRetry(fastRetry(3)),
	)

	_, err := shield.Call(t.Context(), "op", fn)
	if err == nil {
		t.Fatal("expected an error from the recovered panic")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("panic must abort the retry loop, calls=%d", n)
	}

	// The recovered failure must not have been cached.
	if _, err := shield.Call(t.Context(), "op", fn); err == nil {
		t.Fatal("expected second call to fail too")
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("recovered failure was cached, calls=%d", n)
	}
}

func TestNewFromEnv_OwnsCacheLifecycle(t *testing.T) {
	t.Setenv("CACHE_TTL", "120")
	t.Setenv("MAX_RETRIES", "1")

	shield, cache := NewFromEnv()
	cache.StartSweeper()

	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		return calls.Add(1), nil
	}
	if _, err := shield.Call(t.Context(), "op", fn); err != nil {
		t.Fatal(err)
	}
	if _, err := shield.Call(t.Context(), "op", fn); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("env-built shield must cache, calls=%d", n)
	}

	shield.Close()
	if cache.SweeperRunning() {
		t.Fatal("Close must stop the owned cache sweeper")
	}
}

func TestChain_AppliesLeftToRight(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Operation) Operation {
			return func(ctx context.Context) (any, error) {
				order = append(order, name)
				return next(ctx)
			}
		}
	}

	op := Wrap(func(ctx context.Context) (any, error) {
		order = append(order, "op")
		return nil, nil
	}, tag("outer"), tag("inner"))

	if _, err := op(t.Context()); err != nil {
		t.Fatal(err)
	}
	want := []string{"outer", "inner", "op"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("order=%v, want %v", order, want)
		}
	}
}
