// Package storage provides storage backends for evidence records.
//
// # Backends
//
//   - Memory: in-process map, for tests and one-shot CLI runs
//   - SQLite: embedded database through modernc.org/sqlite (driver "sqlite",
//     pure Go) or github.com/mattn/go-sqlite3 (driver "sqlite3", cgo)
//   - PostgreSQL: shared database through github.com/lib/pq
//
// The SQL backends share one schema and one implementation; only the driver
// name and placeholder style differ. Timestamps are stored as Unix
// nanoseconds.
//
// # Basic Usage
//
//	store, err := storage.Open(storage.Config{
//	    Backend: "sqlite",
//	    SQLite:  storage.SQLiteConfig{Path: "data/evidence.db"},
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	if err := store.Store(ctx, record); err != nil {
//	    log.Printf("store failed: %v", err)
//	}
//
//	n, err := store.Count(ctx, &evidence.Query{Table: "discount"})
package storage
