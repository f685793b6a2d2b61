package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/tabula/pkg/evidence"
	"mercator-hq/tabula/pkg/evidence/export"
	"mercator-hq/tabula/pkg/evidence/query"
)

// Config bounds how much evidence is kept.
type Config struct {
	// RetentionDays deletes records evaluated more than this many days ago.
	// 0 disables age pruning.
	RetentionDays int

	// MaxRecords deletes the oldest records beyond this count. 0 disables
	// count pruning.
	MaxRecords int64

	// PruneSchedule is a standard five-field cron expression, e.g.
	// "0 3 * * *". Empty disables the scheduler; Prune still works.
	PruneSchedule string

	// ArchiveBeforeDelete writes each pass's victims to a JSON file in
	// ArchivePath before deleting them.
	ArchiveBeforeDelete bool
	ArchivePath         string
}

// DefaultConfig keeps 90 days and prunes daily at 03:00.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
		ArchivePath:   "data/archives/",
	}
}

// Pruner deletes evidence that falls outside Config. Age pruning runs
// before count pruning, so MaxRecords applies to what the age pass kept.
type Pruner struct {
	storage   evidence.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a pruner over storage. A nil config means
// DefaultConfig.
func NewPruner(storage evidence.Storage, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "evidence.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// pass selects the records one pruning rule removes. A nil query means the
// rule has nothing to delete.
type pass struct {
	name   string
	target func(ctx context.Context) (*evidence.Query, error)
}

// Prune runs the age pass then the count pass and returns how many records
// were deleted. On error the count covers the passes that completed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var passes []pass
	if p.config.RetentionDays > 0 {
		passes = append(passes, pass{"age", p.ageTarget})
	}
	if p.config.MaxRecords > 0 {
		passes = append(passes, pass{"count", p.countTarget})
	}

	var total int64
	for _, ps := range passes {
		deleted, err := p.run(ctx, ps)
		if err != nil {
			return total, evidence.NewRetentionError(p.config.RetentionDays, ps.name, err)
		}
		total += deleted
	}

	if total == 0 {
		p.logger.Debug("No evidence records pruned")
		return 0, nil
	}
	p.logger.Info("Evidence pruning completed",
		"total_deleted", total,
		"retention_days", p.config.RetentionDays,
		"max_records", p.config.MaxRecords,
	)
	return total, nil
}

func (p *Pruner) run(ctx context.Context, ps pass) (int64, error) {
	q, err := ps.target(ctx)
	if err != nil || q == nil {
		return 0, err
	}
	if p.config.ArchiveBeforeDelete {
		victims, err := p.collect(ctx, q)
		if err != nil {
			return 0, err
		}
		if err := p.archive(ctx, ps.name, victims); err != nil {
			return 0, err
		}
	}
	deleted, err := p.storage.Delete(ctx, q)
	if err != nil {
		return 0, err
	}
	p.logger.Info("Pruned evidence", "pass", ps.name, "deleted_count", deleted, "cutoff", *q.EndTime)
	return deleted, nil
}

func (p *Pruner) ageTarget(context.Context) (*evidence.Query, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	return &evidence.Query{EndTime: &cutoff}, nil
}

// countTarget finds the evaluation time of the newest record that must go.
// Records sharing that timestamp go with it; a batch shares one EvaluatedAt,
// so a batch is never split.
func (p *Pruner) countTarget(ctx context.Context) (*evidence.Query, error) {
	count, err := p.storage.Count(ctx, &evidence.Query{})
	if err != nil {
		return nil, err
	}
	excess := min(count-p.config.MaxRecords, int64(query.MaxLimit))
	if excess <= 0 {
		return nil, nil
	}
	oldest, err := p.storage.Query(ctx, &evidence.Query{
		SortBy:    "evaluated_at",
		SortOrder: "asc",
		Limit:     int(excess),
	})
	if err != nil || len(oldest) == 0 {
		return nil, err
	}
	cutoff := oldest[len(oldest)-1].EvaluatedAt
	return &evidence.Query{EndTime: &cutoff}, nil
}

// collect reads every record matching q, oldest first, one page at a time.
func (p *Pruner) collect(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error) {
	var all []*evidence.Record
	page := *q
	page.SortBy, page.SortOrder, page.Limit = "evaluated_at", "asc", query.MaxLimit
	for {
		records, err := p.storage.Query(ctx, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(records) < page.Limit {
			return all, nil
		}
		page.Offset += page.Limit
	}
}

func (p *Pruner) archive(ctx context.Context, pass string, records []*evidence.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	path := filepath.Join(p.config.ArchivePath,
		fmt.Sprintf("evidence-%s-%s.json", pass, p.now().UTC().Format("20060102T150405Z")))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export records to archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write archive file: %w", err)
	}

	p.logger.Info("Evidence archived", "archive_file", path, "record_count", len(records))
	return nil
}

// Start runs Prune on Config.PruneSchedule until ctx is done or Stop.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the schedule and waits for a running prune.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled run, or nil when none is scheduled.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}

// LastPruning returns the stats of the most recent scheduled run.
func (p *Pruner) LastPruning() RunStats {
	return p.scheduler.LastRun()
}
