package query

import (
	"errors"
	"fmt"
	"slices"

	"mercator-hq/tabula/pkg/evidence"
)

// Page sizes.
const (
	DefaultLimit = 100
	MaxLimit     = 10000
)

// SortColumns maps the sort fields a caller may name to storage columns.
var SortColumns = map[string]string{
	"evaluated_at": "evaluated_at",
	"recorded_at":  "recorded_at",
	"table":        "table_name",
	"duration":     "duration_ns",
}

var (
	sortOrders = []string{"asc", "desc"}
	outcomes   = []string{"matched", "no_match", "ambiguous"}
)

// Validate rejects paging, sorting, time-range and outcome filters that no
// backend can serve. The error is a *evidence.QueryError.
func Validate(q *evidence.Query) error {
	if err := check(q); err != nil {
		return evidence.NewQueryError(q, err)
	}
	return nil
}

func check(q *evidence.Query) error {
	switch {
	case q.Limit < 0 || q.Limit > MaxLimit:
		return fmt.Errorf("limit must be between 0 and %d, got %d", MaxLimit, q.Limit)
	case q.Offset < 0:
		return fmt.Errorf("offset must be >= 0, got %d", q.Offset)
	case q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime):
		return errors.New("start_time must be before end_time")
	}
	if _, ok := SortColumns[q.SortBy]; q.SortBy != "" && !ok {
		return fmt.Errorf("invalid sort field: %s", q.SortBy)
	}
	if q.SortOrder != "" && !slices.Contains(sortOrders, q.SortOrder) {
		return fmt.Errorf("invalid sort order %q, want one of %v", q.SortOrder, sortOrders)
	}
	if q.Outcome != "" && !slices.Contains(outcomes, q.Outcome) {
		return fmt.Errorf("invalid outcome %q, want one of %v", q.Outcome, outcomes)
	}
	return nil
}

// ApplyDefaults fills an unset limit and sort: newest first, DefaultLimit
// records.
func ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "evaluated_at"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
