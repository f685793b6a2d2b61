package engine

import (
	"bytes"
	"math"

	"github.com/goccy/go-json"

	"mercator-hq/tabula/pkg/decision/schema"
)

// Outcome summarizes a Result.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeNoMatch   Outcome = "no_match"
	OutcomeAmbiguous Outcome = "ambiguous"
)

// Result is the evaluation result of one record.
//
// For UNIQUE and FIRST tables Row holds the selected output row, or nil when
// no rule (or, for UNIQUE, more than one rule) fired. For COLLECT tables Rows
// holds one output row per fired rule in declaration order and is never nil.
type Result struct {
	HitPolicy schema.HitPolicy
	Row       *OutputRow
	Rows      []OutputRow

	// Fired lists the indices of every rule that fired, ascending.
	Fired []int

	// Ambiguous is set for UNIQUE tables when more than one rule fired.
	Ambiguous bool
}

// Matched reports whether the result carries at least one output row.
func (r Result) Matched() bool {
	return r.Row != nil || len(r.Rows) > 0
}

// Outcome classifies the result.
func (r Result) Outcome() Outcome {
	switch {
	case r.Ambiguous:
		return OutcomeAmbiguous
	case r.Matched():
		return OutcomeMatched
	default:
		return OutcomeNoMatch
	}
}

// OutputRow is an ordered set of decoded outputs.
type OutputRow struct {
	names  []string
	values []any
}

// NewOutputRow builds a row from parallel name and value slices.
func NewOutputRow(names []string, values []any) OutputRow {
	return OutputRow{names: names, values: values}
}

// Len returns the number of outputs.
func (r OutputRow) Len() int { return len(r.names) }

// Names returns the output names in declaration order.
func (r OutputRow) Names() []string { return r.names }

// Values returns the output values in declaration order.
func (r OutputRow) Values() []any { return r.values }

// Get returns the named output.
func (r OutputRow) Get(name string) (any, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Map returns the outputs as an unordered map.
func (r OutputRow) Map() map[string]any {
	m := make(map[string]any, len(r.names))
	for i, n := range r.names {
		m[n] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the row as a JSON object in declaration order. Unknown
// numbers are written as null.
func (r OutputRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := r.values[i]
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			v = nil
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
