package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// Hot watches a configuration file and keeps a Settings snapshot current.
// Only the runtime-tunable subset is reloaded (default TTL, sweep interval,
// retry policy); everything else keeps its construction-time value.
//
// Example configuration file (YAML):
//
//	shield:
//	  default_ttl: "1h"
//	  sweep_interval: "60s"
//	  max_retries: 3
//	  base_delay: "1s"
//	  max_delay: "30s"
type Hot struct {
	watcher *argus.Watcher

	mu       sync.RWMutex
	settings Settings

	// OnReload is called after a successful reload with the old and new
	// settings. It must be fast and non-blocking.
	OnReload func(old, new Settings)
}

// HotOptions configures a Hot watcher.
type HotOptions struct {
	// ConfigPath is the file to watch. Supports the formats argus
	// understands (JSON, YAML, TOML, HCL, INI, Properties).
	ConfigPath string

	// PollInterval is how often to check for changes. Default 1 s,
	// minimum 100 ms.
	PollInterval time.Duration

	// OnReload is called after each successful reload.
	OnReload func(old, new Settings)
}

// NewHot creates a watcher seeded with base. Call Start to begin watching
// and Stop at teardown.
func NewHot(base Settings, opts HotOptions) (*Hot, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	h := &Hot{
		settings: base,
		OnReload: opts.OnReload,
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(
		opts.ConfigPath,
		h.handleChange,
		argus.Config{PollInterval: opts.PollInterval},
	)
	if err != nil {
		return nil, err
	}
	h.watcher = watcher
	return h, nil
}

// Start begins watching the configuration file. It is safe to call when the
// watcher is already running.
func (h *Hot) Start() error {
	if h.watcher.IsRunning() {
		return nil
	}
	return h.watcher.Start()
}

// Stop stops watching the configuration file.
func (h *Hot) Stop() error {
	return h.watcher.Stop()
}

// Settings returns the current snapshot.
func (h *Hot) Settings() Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.settings
}

func (h *Hot) handleChange(data map[string]interface{}) {
	h.mu.Lock()
	old := h.settings
	next := parseSettings(old, data)
	h.settings = next
	h.mu.Unlock()

	if h.OnReload != nil {
		h.OnReload(old, next)
	}
}

// parseSettings overlays recognized keys from data onto base. Unrecognized
// or malformed values leave the corresponding field untouched.
func parseSettings(base Settings, data map[string]interface{}) Settings {
	section, ok := data["shield"].(map[string]interface{})
	if !ok {
		// Accept a flat file that is the section itself.
		section = data
	}

	s := base
	if d, ok := parseDuration(section["default_ttl"]); ok {
		s.DefaultTTL = d
	}
	if d, ok := parseDuration(section["sweep_interval"]); ok {
		s.SweepInterval = d
	}
	if n, ok := parseNonNegativeInt(section["max_retries"]); ok {
		s.MaxRetries = n
	}
	if d, ok := parseDuration(section["base_delay"]); ok {
		s.BaseDelay = d
	}
	if d, ok := parseDuration(section["max_delay"]); ok {
		s.MaxDelay = d
	}
	if b, ok := section["jitter"].(bool); ok {
		s.Jitter = b
	}
	return s
}

// parseNonNegativeInt accepts int and float64 since decoded config values
// vary by format.
func parseNonNegativeInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v >= 0 {
			return v, true
		}
	case float64:
		if v >= 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseDuration extracts a time.Duration from a string like "30s" or "1h".
func parseDuration(value interface{}) (time.Duration, bool) {
	if str, ok := value.(string); ok {
		if d, err := time.ParseDuration(str); err == nil && d > 0 {
			return d, true
		}
	}
	return 0, false
}
