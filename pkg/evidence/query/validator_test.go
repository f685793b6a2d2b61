package query

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/tabula/pkg/evidence"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name    string
		query   evidence.Query
		wantErr bool
	}{
		{"empty", evidence.Query{}, false},
		{"full valid", evidence.Query{Table: "t", Outcome: "ambiguous", Limit: 10, Offset: 5, SortBy: "duration", SortOrder: "asc", StartTime: &earlier, EndTime: &now}, false},
		{"negative limit", evidence.Query{Limit: -1}, true},
		{"limit too large", evidence.Query{Limit: MaxLimit + 1}, true},
		{"negative offset", evidence.Query{Offset: -1}, true},
		{"unknown sort field", evidence.Query{SortBy: "cost"}, true},
		{"unknown sort order", evidence.Query{SortOrder: "up"}, true},
		{"inverted time range", evidence.Query{StartTime: &now, EndTime: &earlier}, true},
		{"unknown outcome", evidence.Query{Outcome: "blocked"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var qerr *evidence.QueryError
				if !errors.As(err, &qerr) {
					t.Errorf("Validate() error type = %T, want *QueryError", err)
				}
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	q := &evidence.Query{}
	ApplyDefaults(q)

	if q.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", q.Limit, DefaultLimit)
	}
	if q.SortBy != "evaluated_at" || q.SortOrder != "desc" {
		t.Errorf("sort = %s %s, want evaluated_at desc", q.SortBy, q.SortOrder)
	}

	q = &evidence.Query{Limit: 7, SortBy: "table", SortOrder: "asc"}
	ApplyDefaults(q)
	if q.Limit != 7 || q.SortBy != "table" || q.SortOrder != "asc" {
		t.Errorf("ApplyDefaults overwrote explicit values: %+v", q)
	}
}
