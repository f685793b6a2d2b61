// Package evidence records an audit trail of decision table evaluations.
//
// # Evidence Records
//
// One Record is written per evaluated input record. It captures:
//   - the table name, version and hit policy
//   - the batch and request the record arrived in
//   - a SHA-256 hash of the canonical JSON input (inputs themselves are not stored)
//   - the fired rule indices, the outcome and the selected output as JSON
//   - evaluation and recording timestamps
//
// # Layers
//
//  1. recorder: builds records from evaluation results and writes them
//     asynchronously so evaluations never wait on storage
//  2. storage: persists records (memory, SQLite, PostgreSQL)
//  3. query: validates and defaults queries
//  4. retention: prunes old records on a cron schedule
//  5. export: writes records as JSON or CSV
//
// # Basic Usage
//
//	store, err := storage.Open(storage.Config{Backend: "sqlite", SQLite: storage.SQLiteConfig{Path: "data/evidence.db"}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, nil, logger)
//	defer rec.Close()
//
//	rec.RecordBatch(ctx, recorder.Batch{
//	    Table:   lease.Info(),
//	    Records: records,
//	    Results: results,
//	})
//
//	// Query evidence
//	records, err := store.Query(ctx, &evidence.Query{
//	    Table:   "discount",
//	    Outcome: "ambiguous",
//	    Limit:   100,
//	})
package evidence
