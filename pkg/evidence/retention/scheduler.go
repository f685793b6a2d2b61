package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunStats describes the most recent scheduled pruning.
type RunStats struct {
	At      time.Time
	Deleted int64
	Err     error
}

// Scheduler runs a Pruner on the cron expression in Config.PruneSchedule.
// A run that is still deleting when the next tick fires causes that tick to
// be skipped.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
	last    RunStats
}

// NewScheduler creates a scheduler for pruner. Nothing runs until Start.
func NewScheduler(pruner *Pruner) *Scheduler {
	logger := pruner.logger.With("subcomponent", "scheduler")
	return &Scheduler{
		pruner: pruner,
		logger: logger,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}))),
	}
}

// Start schedules pruning, e.g. "0 3 * * *" for daily at 03:00. An empty
// schedule leaves the scheduler idle and is not an error. The scheduler
// stops by itself when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := s.pruner.config.PruneSchedule
	if spec == "" {
		s.logger.Info("Prune schedule not configured, skipping scheduler")
		return nil
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.entry = s.cron.Schedule(sched, cron.FuncJob(func() { s.runOnce(ctx) }))
	s.cron.Start()
	s.running = true

	s.logger.Info("Retention scheduler started",
		"schedule", spec,
		"retention_days", s.pruner.config.RetentionDays,
		"max_records", s.pruner.config.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	deleted, err := s.pruner.Prune(ctx)

	s.mu.Lock()
	s.last = RunStats{At: s.pruner.now(), Deleted: deleted, Err: err}
	s.mu.Unlock()

	switch {
	case err != nil:
		s.logger.Error("Scheduled pruning failed", "error", err, "deleted_count", deleted)
	case deleted > 0:
		s.logger.Info("Scheduled pruning completed", "deleted_count", deleted)
	default:
		s.logger.Debug("Scheduled pruning completed, no records deleted")
	}
}

// Stop removes the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cron.Remove(s.entry)
	done := s.cron.Stop()
	s.mu.Unlock()

	// Wait outside the lock: runOnce takes it to record its stats.
	<-done.Done()
	s.logger.Info("Retention scheduler stopped")
}

// IsRunning reports whether a schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pruning, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// LastRun returns the stats of the most recent scheduled pruning. The zero
// value means none has run yet.
func (s *Scheduler) LastRun() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...any) { c.l.Debug("cron: "+msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error("cron: "+msg, append(kv, "error", err)...)
}
