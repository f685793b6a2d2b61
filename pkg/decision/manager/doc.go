// Package manager loads decision tables from disk or Git, keeps the compiled
// tables in a registry and reloads them when their sources change.
//
// # Registry and Leases
//
// The Registry maps table names to compiled tables. Callers Acquire a lease
// for the duration of an evaluation and Release it afterwards:
//
//	lease, err := registry.Acquire("discount")
//	if err != nil {
//	    return err
//	}
//	defer lease.Release()
//	results, err := evaluator.Evaluate(lease.Table(), records)
//
// Replacing or removing a table retires the old version. A retired table is
// released once its last lease ends, so a reload never frees buffers that
// an in-flight evaluation is still reading.
//
// # Sources
//
// Loader compiles every schema file under a directory. FileWatcher
// (fsnotify, debounced) and GitSource (go-git, polled on a cron schedule)
// tell the Manager when to reload. A reload that fails for one file keeps
// the previous version of that table and reports the error; the other
// tables are still updated.
package manager
