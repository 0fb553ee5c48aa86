// Package retry provides a generic retry helper with exponential backoff,
// jitter and pluggable transient-error classification, for wrapping
// unreliable calls to external services (database sessions, remote APIs,
// storage operations).
package retry

import (
	"math"
	"math/rand"
	"time"
)

// jitterFraction is the flat ±20% multiplicative perturbation applied to
// every delay when jitter is enabled, regardless of attempt number.
const jitterFraction = 0.2

// backoff returns the delay before the given retry (1-indexed): the first
// retry waits BaseDelay, subsequent retries grow by Multiplier. The computed
// delay is capped at MaxDelay before jitter is applied, and clamped to >= 0
// after it.
func backoff(cfg Config, retryNo int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(retryNo-1))
	if max := float64(cfg.MaxDelay); delay > max {
		delay = max
	}
	if cfg.Jitter {
		delay *= 1 + jitterFraction*(rand.Float64()*2-1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
