package engine

import (
	"sync/atomic"

	"mercator-hq/tabula/pkg/decision/codec"
	"mercator-hq/tabula/pkg/decision/schema"
)

// Column is a compiled input or output clause.
type Column struct {
	Name    string        `json:"name"`
	TypeRef codec.TypeRef `json:"type_ref"`
}

// Table is a compiled decision table: dense condition and output arrays plus
// the codec that produced them.
//
// A Table is immutable once Compile returns and may be evaluated from any
// number of goroutines. Release frees its buffers; it must not run
// concurrently with an evaluation of the same table.
type Table struct {
	name   string
	policy schema.HitPolicy

	inputs      []Column
	outputs     []Column
	outputNames []string
	inputIndex  map[string]int
	outputIndex map[string]int

	numRules int
	ruleIDs  []string

	// Row-major: rule r, input i lives at r*len(inputs)+i.
	condValue  []float64
	condOp     []codec.Operator
	condActive []bool

	// Row-major: rule r, output o lives at r*len(outputs)+o.
	outValue []float64

	codec       *codec.Codec
	diagnostics []Diagnostic
	released    atomic.Bool
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// HitPolicy returns the table's hit policy.
func (t *Table) HitPolicy() schema.HitPolicy { return t.policy }

// NumRules returns the number of rules.
func (t *Table) NumRules() int { return t.numRules }

// NumInputs returns the number of input columns.
func (t *Table) NumInputs() int { return len(t.inputs) }

// NumOutputs returns the number of output columns.
func (t *Table) NumOutputs() int { return len(t.outputs) }

// Inputs returns the input columns in declaration order.
func (t *Table) Inputs() []Column {
	out := make([]Column, len(t.inputs))
	copy(out, t.inputs)
	return out
}

// Outputs returns the output columns in declaration order.
func (t *Table) Outputs() []Column {
	out := make([]Column, len(t.outputs))
	copy(out, t.outputs)
	return out
}

// InputIndex returns the column of the named input.
func (t *Table) InputIndex(name string) (int, bool) {
	i, ok := t.inputIndex[name]
	return i, ok
}

// OutputIndex returns the column of the named output.
func (t *Table) OutputIndex(name string) (int, bool) {
	o, ok := t.outputIndex[name]
	return o, ok
}

// OutputTypeRef returns the declared type of the named output.
func (t *Table) OutputTypeRef(name string) (codec.TypeRef, bool) {
	o, ok := t.outputIndex[name]
	if !ok {
		return "", false
	}
	return t.outputs[o].TypeRef, true
}

// RuleID returns the declared id of rule r, or "" when it had none.
func (t *Table) RuleID(r int) string { return t.ruleIDs[r] }

// Condition returns the encoded cell of rule r and input column i.
func (t *Table) Condition(r, i int) codec.Condition {
	k := r*len(t.inputs) + i
	if !t.condActive[k] {
		return codec.DontCare
	}
	return codec.Condition{Value: t.condValue[k], Op: t.condOp[k], Active: true}
}

// OutputValue returns the encoded output of rule r and output column o.
func (t *Table) OutputValue(r, o int) float64 {
	return t.outValue[r*len(t.outputs)+o]
}

// Codec returns the table's frozen codec.
func (t *Table) Codec() *codec.Codec { return t.codec }

// Diagnostics returns the tolerances applied while compiling.
func (t *Table) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(t.diagnostics))
	copy(out, t.diagnostics)
	return out
}

// Release frees the table's buffers. Later evaluations fail with
// ErrTableReleased. Release is idempotent.
func (t *Table) Release() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	t.condValue = nil
	t.condOp = nil
	t.condActive = nil
	t.outValue = nil
}

// Released reports whether Release has been called.
func (t *Table) Released() bool { return t.released.Load() }

// decodeRow decodes the outputs of rule r.
func (t *Table) decodeRow(r int) OutputRow {
	values := make([]any, len(t.outputs))
	base := r * len(t.outputs)
	for o, col := range t.outputs {
		values[o] = t.codec.Decode(t.outValue[base+o], col.TypeRef)
	}
	return OutputRow{names: t.outputNames, values: values}
}
