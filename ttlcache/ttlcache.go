// Package ttlcache provides a concurrency-safe in-memory key–value cache
// where every entry expires independently after its time-to-live.
//
// Expired entries are removed lazily on read and proactively by a background
// sweeper with an explicit Start/Stop lifecycle (see sweeper.go). The cache
// is unbounded: memory growth is controlled by TTLs and the sweeper, not by
// a size limit.
package ttlcache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// Default configuration values. DefaultTTL and DefaultSweepInterval mirror
// the CACHE_TTL and sweep defaults of the deployments this cache serves.
const (
	DefaultTTL           = 3600 * time.Second
	DefaultSweepInterval = 60 * time.Second
	DefaultSweepBatch    = 256
)

// entry is a stored value with its expiry bookkeeping.
type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// expired reports whether the entry is stale at instant now. Entries written
// with ttl <= 0 have expiresAt <= createdAt and are stale immediately.
func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.After(now)
}

// Config controls cache behaviour. The zero value is usable; Validate fills
// in defaults.
type Config struct {
	// DefaultTTL applies to SetDefault writes. Values <= 0 fall back to
	// DefaultTTL (one hour).
	DefaultTTL time.Duration

	// SweepInterval is how often the background sweeper scans for expired
	// entries. Values <= 0 fall back to DefaultSweepInterval.
	SweepInterval time.Duration

	// SweepBatch bounds how many keys a sweep pass processes per lock
	// acquisition so foreground operations are never starved for long.
	SweepBatch int

	// Logger receives hit/miss/set debug lines and sweep summaries. Nil
	// discards all cache logging.
	Logger *slog.Logger

	// Metrics receives operation counters. Nil installs a no-op collector.
	Metrics MetricsCollector

	// Now supplies the clock used for expiry decisions. Nil installs a
	// cached coarse clock (~µs resolution) that avoids a syscall per
	// operation. Tests inject deterministic clocks here.
	Now func() time.Time
}

// Validate normalizes cfg in place, applying defaults for unset fields.
func (c *Config) Validate() {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.SweepBatch <= 0 {
		c.SweepBatch = DefaultSweepBatch
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Metrics == nil {
		c.Metrics = NoOpMetrics{}
	}
	if c.Now == nil {
		c.Now = cachedNow
	}
}

// cachedNow reads the process-wide cached clock. Expiry checks tolerate its
// coarse resolution because TTLs are measured in seconds.
func cachedNow() time.Time {
	return time.Unix(0, timecache.CachedTimeNano())
}

// Stats is a point-in-time snapshot of cache contents, taken under the same
// lock that guards mutation.
type Stats struct {
	// Total is the number of entries currently stored, expired or not.
	Total int

	// Expired counts entries that are stale but not yet removed.
	Expired int

	// Active is Total minus Expired.
	Active int

	// DefaultTTL is the TTL applied by SetDefault.
	DefaultTTL time.Duration
}

// Cache is a TTL-expiring key–value store. All methods are safe for
// concurrent use; a single mutex guards the entire map so readers never
// observe a partially written entry.
//
// The background sweeper is not started by New; call StartSweeper
// explicitly (and StopSweeper at teardown) so the lifecycle stays testable.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	defaultTTL time.Duration
	logger     *slog.Logger
	metrics    MetricsCollector
	now        func() time.Time

	sweepInterval time.Duration
	sweepBatch    int

	sweepMu   sync.Mutex
	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
}

// New creates a Cache from cfg. It never starts goroutines.
func New(cfg Config) *Cache {
	cfg.Validate()
	return &Cache{
		entries:       make(map[string]entry),
		defaultTTL:    cfg.DefaultTTL,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		now:           cfg.Now,
		sweepInterval: cfg.SweepInterval,
		sweepBatch:    cfg.SweepBatch,
	}
}

// Get retrieves a value by key. The boolean indicates a hit. A stale entry
// is deleted as a side effect and reported as a miss (lazy eviction).
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.metrics.Miss()
		c.logger.Debug("cache miss", "key", key)
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.mu.Unlock()
		c.metrics.Miss()
		c.metrics.Evict(1)
		c.logger.Debug("cache miss (expired)", "key", key)
		return nil, false
	}
	c.mu.Unlock()

	c.metrics.Hit()
	c.logger.Debug("cache hit", "key", key)
	return e.value, true
}

// Set stores value under key, unconditionally replacing any previous entry
// and discarding its remaining TTL. A ttl <= 0 writes an entry that is
// already expired: it reads back as absent. That is the supported
// "no-op cache" pattern, not an error.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	now := c.now()
	e := entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	c.metrics.Set()
	c.logger.Debug("cache set", "key", key, "ttl", ttl)
}

// SetDefault stores value under key with the configured default TTL.
func (c *Cache) SetDefault(key string, value any) {
	c.Set(key, value, c.defaultTTL)
}

// Delete removes key. It reports whether an entry was present and removed.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if ok {
		c.metrics.Delete()
		c.logger.Debug("cache delete", "key", key)
	}
	return ok
}

// Clear removes all entries and returns how many were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	count := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.logger.Info("cache cleared", "removed", count)
	return count
}

// DefaultTTL returns the TTL applied by SetDefault.
func (c *Cache) DefaultTTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultTTL
}

// SetDefaultTTL changes the TTL applied by subsequent SetDefault writes.
// Existing entries are unaffected. Used by hot configuration reload.
func (c *Cache) SetDefaultTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.defaultTTL = ttl
	c.mu.Unlock()
}

// Stats returns a snapshot of cache contents.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	total := len(c.entries)
	expired := 0
	for _, e := range c.entries {
		if e.expired(now) {
			expired++
		}
	}
	return Stats{
		Total:      total,
		Expired:    expired,
		Active:     total - expired,
		DefaultTTL: c.defaultTTL,
	}
}
