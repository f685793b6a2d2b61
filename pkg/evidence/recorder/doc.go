// Package recorder turns evaluation results into evidence records and writes
// them to storage asynchronously.
//
// RecordBatch builds one record per evaluated input (hashing the input and
// encoding the selected output as JSON) and pushes them onto a buffered
// channel drained by a single writer goroutine. When the buffer stays full
// for EnqueueTimeout the rest of the batch is dropped and reported; the
// evaluation that produced it is never slowed down by storage.
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig(), logger)
//	defer rec.Close() // drains pending records
//
//	err := rec.RecordBatch(ctx, recorder.Batch{
//	    Table:     info.Name,
//	    Version:   info.Version,
//	    HitPolicy: info.HitPolicy,
//	    Source:    "http",
//	    Records:   records,
//	    Results:   results,
//	})
package recorder
