// Package export writes evidence records as JSON or CSV, either from a slice
// or streamed from Storage.QueryStream.
//
//	recordsCh, errCh, err := store.QueryStream(ctx, q)
//	if err != nil {
//	    return err
//	}
//	if err := export.NewCSVExporter(true).ExportStream(ctx, recordsCh, os.Stdout); err != nil {
//	    return err
//	}
//	return <-errCh
package export
