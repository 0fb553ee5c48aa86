package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/Keksclan/goSquirrelShield/contextx"
	"github.com/Keksclan/goSquirrelShield/logging"
)

// Default configuration values, matching the MAX_RETRIES, RETRY_DELAY and
// MAX_DELAY environment defaults understood by the config package.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1000 * time.Millisecond
	DefaultMaxDelay   = 30000 * time.Millisecond
	DefaultMultiplier = 2.0
)

// Config controls the retry behaviour of [Do].
type Config struct {
	// MaxRetries is the maximum number of retries after the first attempt,
	// so an operation is invoked at most MaxRetries+1 times. Zero means a
	// single attempt with no retries.
	MaxRetries int

	// BaseDelay is the delay before the first retry. Subsequent retries use
	// exponential back-off: BaseDelay * Multiplier^(retry-1). Values <= 0
	// fall back to DefaultBaseDelay.
	BaseDelay time.Duration

	// MaxDelay caps the computed back-off delay before jitter is applied.
	// Values <= 0 fall back to DefaultMaxDelay.
	MaxDelay time.Duration

	// Multiplier is the back-off growth factor. Values <= 0 fall back to
	// DefaultMultiplier.
	Multiplier float64

	// Jitter perturbs each delay by a flat ±20% so that concurrent callers
	// hitting the same failing dependency do not retry in lockstep.
	Jitter bool

	// Classifier decides whether an error is transient and worth retrying.
	// Nil installs [ClassifyTransient]. A non-retryable error is returned
	// to the caller unchanged, on its first occurrence, with no delay.
	Classifier Classifier
}

// DefaultConfig returns the production defaults: 3 retries, 1 s base delay,
// 30 s cap, multiplier 2, jitter on, transient classification.
func DefaultConfig() Config {
	return Config{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Multiplier: DefaultMultiplier,
		Jitter:     true,
	}
}

func (c *Config) defaults() {
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = DefaultMultiplier
	}
	if c.Classifier == nil {
		c.Classifier = ClassifyTransient
	}
}

// Do calls fn, retrying transient failures with exponential back-off until it
// succeeds, a non-retryable error occurs, or cfg.MaxRetries is exhausted.
//
// Classification always precedes any delay: a non-retryable error is
// returned unchanged on its first occurrence with zero added latency.
// Exhaustion returns an [*ExhaustedError] carrying the final attempt count
// and wrapping the last transient error; callers never see the raw transient
// error after exhaustion.
//
// The context is checked before every attempt and while sleeping between
// attempts; when ctx is done the context error is returned immediately. Each
// retry is logged with operation identity, attempt number, computed delay
// and triggering error before the delay is applied.
func Do[T any](ctx context.Context, cfg Config, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	cfg.defaults()
	ctx = contextx.WithOperation(ctx, op)

	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if !cfg.Classifier(err) {
			logging.Warn(ctx, "non-retryable error, not retrying",
				slog.Any("error", err))
			return zero, err
		}

		retries++
		if retries > cfg.MaxRetries {
			logging.Error(ctx, "retries exhausted",
				slog.Int("attempts", retries),
				slog.Any("error", err))
			return zero, &ExhaustedError{Op: op, Attempts: retries, Last: err}
		}

		delay := backoff(cfg, retries)
		logging.Info(ctx, "retrying after transient error",
			slog.Int("attempt", retries),
			slog.Int("max_retries", cfg.MaxRetries),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		// The sleep suspends only this caller; no shared lock is held here.
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// Executor is a reusable retry policy. It exists so consumers can be handed
// one configured instance (constructor injection) instead of rebuilding
// Config values at every call site.
type Executor struct {
	cfg Config
}

// NewExecutor creates an Executor with the given configuration.
func NewExecutor(cfg Config) *Executor {
	cfg.defaults()
	return &Executor{cfg: cfg}
}

// Execute runs fn under the executor's policy. It is the untyped form of
// [Do] for callers that do not need generics.
func (e *Executor) Execute(ctx context.Context, op string, fn func(context.Context) (any, error)) (any, error) {
	return Do(ctx, e.cfg, op, fn)
}

// Config returns a copy of the executor's policy.
func (e *Executor) Config() Config {
	return e.cfg
}
