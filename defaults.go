package gosquirrelshield

import (
	shieldconfig "github.com/Keksclan/goSquirrelShield/config"
	"github.com/Keksclan/goSquirrelShield/ttlcache"
)

// NewFromEnv builds a Shield with caching and retry configured from the
// environment (see the config package for the variable names), plus any
// extra options. The Shield owns the cache it creates: StartSweeper on the
// returned cache when background sweeping is wanted, and Close the Shield at
// teardown to stop it.
func NewFromEnv(extra ...Option) (*Shield, *ttlcache.Cache) {
	settings := shieldconfig.FromEnv()
	cache := ttlcache.New(settings.CacheConfig())

	opts := append([]Option{
		WithCaching(cache, settings.DefaultTTL),
		WithRetry(settings.RetryConfig()),
		withCloser(cache.StopSweeper),
	}, extra...)

	return New(opts...), cache
}

// withCloser registers a teardown hook run by Shield.Close.
func withCloser(fn func()) Option {
	return func(c *config) {
		c.closers = append(c.closers, fn)
	}
}
