package engine

import (
	"math"
	"testing"
	"time"
)

func TestOutputRow_MarshalJSON(t *testing.T) {
	row := NewOutputRow(
		[]string{"zeta", "alpha", "unknown", "when", "missing"},
		[]any{"last", int64(1), math.NaN(), time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), nil},
	)

	got, err := row.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	want := `{"zeta":"last","alpha":1,"unknown":null,"when":"2020-01-02T00:00:00Z","missing":null}`
	if string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}
}

func TestOutputRow_Accessors(t *testing.T) {
	row := NewOutputRow([]string{"a", "b"}, []any{1.0, "x"})

	if row.Len() != 2 {
		t.Errorf("Len() = %d", row.Len())
	}
	if v, ok := row.Get("b"); !ok || v != "x" {
		t.Errorf("Get(b) = %v, %v", v, ok)
	}
	if _, ok := row.Get("c"); ok {
		t.Error("Get(c) found a missing output")
	}
	m := row.Map()
	if len(m) != 2 || m["a"] != 1.0 {
		t.Errorf("Map() = %v", m)
	}
}

func TestResult_Matched(t *testing.T) {
	row := NewOutputRow([]string{"a"}, []any{1})
	tests := []struct {
		name string
		res  Result
		want Outcome
	}{
		{name: "row", res: Result{Row: &row}, want: OutcomeMatched},
		{name: "rows", res: Result{Rows: []OutputRow{row}}, want: OutcomeMatched},
		{name: "empty rows", res: Result{Rows: []OutputRow{}}, want: OutcomeNoMatch},
		{name: "ambiguous", res: Result{Ambiguous: true, Fired: []int{0, 1}}, want: OutcomeAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Outcome(); got != tt.want {
				t.Errorf("Outcome() = %s, want %s", got, tt.want)
			}
		})
	}
}
