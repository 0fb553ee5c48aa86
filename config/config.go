// Package config assembles the resilience settings from environment
// variables, with an optional file watcher for hot-reloading the
// runtime-tunable subset.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/Keksclan/goSquirrelShield/retry"
	"github.com/Keksclan/goSquirrelShield/ttlcache"
)

// Environment variables understood by FromEnv. Durations are expressed the
// way the deployments that consume this library already express them:
// CACHE_TTL and SWEEP_INTERVAL in seconds, RETRY_DELAY and MAX_DELAY in
// milliseconds.
const (
	EnvCacheTTL      = "CACHE_TTL"
	EnvMaxRetries    = "MAX_RETRIES"
	EnvRetryDelay    = "RETRY_DELAY"
	EnvMaxDelay      = "MAX_DELAY"
	EnvSweepInterval = "SWEEP_INTERVAL"
)

// Settings is the full configuration surface of the resilience layers.
type Settings struct {
	// DefaultTTL is the cache TTL applied when callers do not specify one.
	DefaultTTL time.Duration

	// SweepInterval is how often the cache sweeper scans for expired entries.
	SweepInterval time.Duration

	// MaxRetries bounds retries per call; total invocations = MaxRetries+1.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential back-off delay.
	MaxDelay time.Duration

	// Multiplier is the back-off growth factor.
	Multiplier float64

	// Jitter enables the flat ±20% delay perturbation.
	Jitter bool
}

// Default returns the documented defaults: TTL 3600 s, sweep 60 s,
// 3 retries, 1000 ms base delay, 30000 ms cap, multiplier 2, jitter on.
func Default() Settings {
	return Settings{
		DefaultTTL:    ttlcache.DefaultTTL,
		SweepInterval: ttlcache.DefaultSweepInterval,
		MaxRetries:    retry.DefaultMaxRetries,
		BaseDelay:     retry.DefaultBaseDelay,
		MaxDelay:      retry.DefaultMaxDelay,
		Multiplier:    retry.DefaultMultiplier,
		Jitter:        true,
	}
}

// FromEnv returns Default overridden by any environment variables that are
// set and parse as positive integers. Malformed values are ignored.
func FromEnv() Settings {
	s := Default()
	if v, ok := envInt(EnvCacheTTL); ok {
		s.DefaultTTL = time.Duration(v) * time.Second
	}
	if v, ok := envInt(EnvSweepInterval); ok {
		s.SweepInterval = time.Duration(v) * time.Second
	}
	if v, ok := envInt(EnvMaxRetries); ok {
		s.MaxRetries = v
	}
	if v, ok := envInt(EnvRetryDelay); ok {
		s.BaseDelay = time.Duration(v) * time.Millisecond
	}
	if v, ok := envInt(EnvMaxDelay); ok {
		s.MaxDelay = time.Duration(v) * time.Millisecond
	}
	return s
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// CacheConfig translates the settings into a ttlcache configuration.
func (s Settings) CacheConfig() ttlcache.Config {
	return ttlcache.Config{
		DefaultTTL:    s.DefaultTTL,
		SweepInterval: s.SweepInterval,
	}
}

// RetryConfig translates the settings into a retry configuration.
func (s Settings) RetryConfig() retry.Config {
	return retry.Config{
		MaxRetries: s.MaxRetries,
		BaseDelay:  s.BaseDelay,
		MaxDelay:   s.MaxDelay,
		Multiplier: s.Multiplier,
		Jitter:     s.Jitter,
	}
}
