package engine

import (
	"fmt"
	"runtime"

	"mercator-hq/tabula/pkg/decision/dense"
)

// MissingInputMode decides what a declared input absent from a record
// evaluates as.
type MissingInputMode string

const (
	// MissingZero fills absent inputs with 0. This is the default.
	// Conditions such as "= 0" or "<= 0" then fire for fields the caller
	// never supplied. String columns are affected too: 0 is the id of the
	// first string literal the table compiled, so an absent string field
	// equals that literal (and fails "!=" against it). A boolean column
	// reads an absent field as false.
	MissingZero MissingInputMode = "zero"

	// MissingUnknown fills absent inputs with the unknown sentinel, so only
	// don't-care cells pass for them.
	MissingUnknown MissingInputMode = "unknown"
)

// EngineConfig contains configuration for the batch evaluator.
type EngineConfig struct {
	// Workers is the maximum number of goroutines one Evaluate call uses.
	// Default: GOMAXPROCS.
	Workers int

	// ParallelThreshold is the number of cells (records x rules x inputs)
	// below which evaluation stays on the calling goroutine.
	// Default: 65536.
	ParallelThreshold int

	// MissingInput selects the value of declared inputs absent from a record.
	// Default: MissingZero.
	MissingInput MissingInputMode

	// Ops is the dense operations backend.
	// Default: dense.Loop.
	Ops dense.Ops
}

// DefaultEngineConfig returns an EngineConfig with sensible defaults.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Workers:           runtime.GOMAXPROCS(0),
		ParallelThreshold: 1 << 16,
		MissingInput:      MissingZero,
		Ops:               dense.Loop{},
	}
}

// Validate checks if the configuration is valid.
func (c *EngineConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.ParallelThreshold < 0 {
		return fmt.Errorf("%w: parallel threshold must be non-negative, got %d", ErrInvalidConfig, c.ParallelThreshold)
	}
	switch c.MissingInput {
	case MissingZero, MissingUnknown:
	default:
		return fmt.Errorf("%w: missing input mode must be %q or %q, got %q", ErrInvalidConfig, MissingZero, MissingUnknown, c.MissingInput)
	}
	if c.Ops == nil {
		return fmt.Errorf("%w: dense ops backend is required", ErrInvalidConfig)
	}
	return nil
}

// WithWorkers returns a copy of the config with the specified worker count.
func (c *EngineConfig) WithWorkers(n int) *EngineConfig {
	cfg := *c
	cfg.Workers = n
	return &cfg
}

// WithParallelThreshold returns a copy of the config with the specified threshold.
func (c *EngineConfig) WithParallelThreshold(cells int) *EngineConfig {
	cfg := *c
	cfg.ParallelThreshold = cells
	return &cfg
}

// WithMissingInput returns a copy of the config with the specified missing input mode.
func (c *EngineConfig) WithMissingInput(mode MissingInputMode) *EngineConfig {
	cfg := *c
	cfg.MissingInput = mode
	return &cfg
}

// WithOps returns a copy of the config with the specified dense backend.
func (c *EngineConfig) WithOps(ops dense.Ops) *EngineConfig {
	cfg := *c
	cfg.Ops = ops
	return &cfg
}
