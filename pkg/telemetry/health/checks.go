package health

import (
	"context"
	"fmt"

	"mercator-hq/tabula/pkg/evidence"
)

// TablesLoaded fails until count reports at least min tables.
func TablesLoaded(count func() int, min int) CheckFunc {
	return func(ctx context.Context) error {
		if n := count(); n < min {
			return fmt.Errorf("%d tables loaded, need at least %d", n, min)
		}
		return nil
	}
}

// StorageReachable fails when the evidence store cannot answer a count.
func StorageReachable(store evidence.Storage) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := store.Count(ctx, &evidence.Query{}); err != nil {
			return fmt.Errorf("evidence storage unreachable: %w", err)
		}
		return nil
	}
}
