package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// current is the process-wide configuration. Readers never lock; a
	// reload swaps the pointer, so a request keeps the snapshot it started
	// with.
	current atomic.Pointer[Config]

	initOnce sync.Once
	initErr  error
)

// Initialize loads path (or defaults and the environment when path is
// empty) into the process-wide configuration. Only the first call loads;
// later calls return the first call's error.
func Initialize(path string) error {
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		initErr = nil
		current.Store(cfg)
	})
	return initErr
}

// GetConfig returns the current configuration, or nil before Initialize.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig replaces the current configuration. Tests and the CLI flag
// overrides use it; nil clears it.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig loads path and swaps it in. The current configuration stays
// in place when loading or validation fails.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return nil
}

// MustGetConfig is GetConfig for code that runs after a successful
// Initialize. It panics otherwise.
func MustGetConfig() *Config {
	cfg := current.Load()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
