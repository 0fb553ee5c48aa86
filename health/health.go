// Package health exposes the operational surface of the resilience layers:
// component health checks served as JSON plus the Prometheus metrics
// endpoint, bundled into a small HTTP server with an explicit Start/Stop
// lifecycle.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Keksclan/goSquirrelShield/ttlcache"
)

// Checker reports the health of one component.
type Checker interface {
	// Name identifies the component in the health report.
	Name() string

	// Check returns nil when the component is healthy.
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	ComponentName string
	Fn            func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.ComponentName }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// CacheChecker reports a cache as degraded when its sweeper is configured to
// run but is not running, since expired entries would then accumulate
// unbounded between reads.
type CacheChecker struct {
	Cache *ttlcache.Cache

	// RequireSweeper marks the cache unhealthy when the sweeper is stopped.
	RequireSweeper bool
}

func (c CacheChecker) Name() string { return "cache" }

func (c CacheChecker) Check(ctx context.Context) error {
	if c.RequireSweeper && !c.Cache.SweeperRunning() {
		return errSweeperStopped
	}
	return nil
}

var errSweeperStopped = &componentError{"cache sweeper is not running"}

type componentError struct{ msg string }

func (e *componentError) Error() string { return e.msg }

// componentReport is one component's entry in the health response.
type componentReport struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// report is the health response body.
type report struct {
	Status        string                     `json:"status"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Components    map[string]componentReport `json:"components"`
}

// Handler serves the aggregated health of the registered checkers as JSON.
// An unhealthy component yields HTTP 503; otherwise 200.
func Handler(checkers ...Checker) http.Handler {
	started := time.Now()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rep := report{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(started).Seconds()),
			Components:    make(map[string]componentReport, len(checkers)),
		}

		for _, c := range checkers {
			if err := c.Check(r.Context()); err != nil {
				rep.Status = "degraded"
				rep.Components[c.Name()] = componentReport{Status: "unhealthy", Error: err.Error()}
			} else {
				rep.Components[c.Name()] = componentReport{Status: "ok"}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if rep.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(rep)
	})
}
