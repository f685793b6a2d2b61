package health

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckFunc reports whether one dependency is usable. A nil error means
// healthy.
type CheckFunc func(ctx context.Context) error

// Status values.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultCheckTimeout bounds a single check when New is given 0.
const DefaultCheckTimeout = 5 * time.Second

// ErrCheckTimeout is reported when a check outlives its timeout.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Status     string  `json:"status"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// HealthStatus is the body of /health and /ready.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Checker runs the readiness checks registered by the components of a
// running server (table registry, evidence store).
type Checker struct {
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// New creates a checker. Each check gets checkTimeout, or
// DefaultCheckTimeout when it is 0.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return &Checker{
		timeout: checkTimeout,
		now:     time.Now,
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck adds or replaces the check called name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes the check called name.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// ListChecks returns the registered check names, sorted.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CheckCount returns the number of registered checks.
func (c *Checker) CheckCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.checks)
}

// CheckLiveness reports that the process is serving. It runs no checks.
func (c *Checker) CheckLiveness(ctx context.Context) HealthStatus {
	return HealthStatus{Status: StatusOK, Timestamp: c.now()}
}

// CheckReadiness runs every check concurrently. The status is StatusReady
// when all pass and StatusDegraded otherwise; a checker with no checks is
// ready.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	names := c.ListChecks()

	c.mu.RLock()
	fns := make([]CheckFunc, len(names))
	for i, name := range names {
		fns[i] = c.checks[name]
	}
	c.mu.RUnlock()

	results := make([]CheckResult, len(names))
	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			results[i] = c.run(ctx, fn)
			return nil
		})
	}
	_ = g.Wait()

	out := HealthStatus{
		Status:    StatusReady,
		Checks:    make(map[string]CheckResult, len(names)),
		Timestamp: c.now(),
	}
	for i, name := range names {
		out.Checks[name] = results[i]
		if results[i].Status != StatusOK {
			out.Status = StatusDegraded
		}
	}
	return out
}

// run executes one check. A check that ignores its context is abandoned
// at the timeout and reported unhealthy.
func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- check(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	res := CheckResult{Status: StatusOK, DurationMS: float64(time.Since(start).Microseconds()) / 1000}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
	}
	return res
}
