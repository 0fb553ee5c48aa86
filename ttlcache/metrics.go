package ttlcache

// MetricsCollector receives cache operation counters. Implementations must
// be safe for concurrent use and fast; they are invoked on the hot path.
// The metrics package provides a Prometheus-backed implementation.
type MetricsCollector interface {
	// Hit records a read that returned a live entry.
	Hit()

	// Miss records a read that found no live entry.
	Miss()

	// Set records a write.
	Set()

	// Delete records an explicit removal.
	Delete()

	// Evict records n expiry-driven removals (lazy or swept).
	Evict(n int)
}

// NoOpMetrics is the default collector. It does nothing.
type NoOpMetrics struct{}

func (NoOpMetrics) Hit()      {}
func (NoOpMetrics) Miss()     {}
func (NoOpMetrics) Set()      {}
func (NoOpMetrics) Delete()   {}
func (NoOpMetrics) Evict(int) {}
