// Package retention prunes evidence records by age and by count.
//
// Pruning runs in two phases: records evaluated more than RetentionDays ago
// are deleted first, then the oldest records beyond MaxRecords. Both phases
// can archive the doomed records to a JSON file first. A Scheduler runs the
// pruner on a cron expression.
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 30,
//	    PruneSchedule: "0 3 * * *",
//	}, logger)
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention
