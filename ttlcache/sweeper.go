package ttlcache

import "time"

// StartSweeper launches the background goroutine that periodically removes
// expired entries, so write-heavy keys that are never read again do not
// accumulate indefinitely. Lazy eviction on Get still applies independently.
//
// StartSweeper is idempotent: concurrent or repeated calls leave exactly one
// sweeper running.
func (c *Cache) StartSweeper() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	if c.sweepStop != nil {
		return
	}
	stop := make(chan struct{})
	c.sweepStop = stop

	c.sweepWG.Add(1)
	go c.sweepLoop(stop)
}

// StopSweeper stops the background sweeper and waits for it to exit. It is
// safe to call when no sweeper is running, and safe to call more than once.
// Invoke it once at process teardown, never per request.
func (c *Cache) StopSweeper() {
	c.sweepMu.Lock()
	stop := c.sweepStop
	c.sweepStop = nil
	c.sweepMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	c.sweepWG.Wait()
}

// SweeperRunning reports whether the background sweeper is active.
func (c *Cache) SweeperRunning() bool {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	return c.sweepStop != nil
}

func (c *Cache) sweepLoop(stop <-chan struct{}) {
	defer c.sweepWG.Done()

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep removes all currently expired entries and returns how many were
// removed. The key set is snapshotted once, then processed in batches with
// the lock re-acquired per batch, so foreground Get/Set/Delete calls are
// blocked only for short, bounded intervals.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	removed := 0
	for start := 0; start < len(keys); start += c.sweepBatch {
		end := min(start+c.sweepBatch, len(keys))

		c.mu.Lock()
		now := c.now()
		for _, k := range keys[start:end] {
			if e, ok := c.entries[k]; ok && e.expired(now) {
				delete(c.entries, k)
				removed++
			}
		}
		c.mu.Unlock()
	}

	if removed > 0 {
		c.metrics.Evict(removed)
		c.logger.Info("cache sweep removed expired entries", "removed", removed)
	}
	return removed
}
