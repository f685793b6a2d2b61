package engine

import (
	"fmt"
	"log/slog"
	"math"

	"mercator-hq/tabula/pkg/decision/codec"
	"mercator-hq/tabula/pkg/decision/schema"
)

// DiagnosticKind classifies a compile-time tolerance.
type DiagnosticKind string

const (
	DiagnosticLiteralCount    DiagnosticKind = "literal_count"
	DiagnosticUnknownType     DiagnosticKind = "unknown_type"
	DiagnosticInvalidLiteral  DiagnosticKind = "invalid_literal"
	DiagnosticDuplicateColumn DiagnosticKind = "duplicate_column"
)

// Diagnostic records something the compiler tolerated instead of failing.
// Rule is -1 for column-level diagnostics.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Rule    int            `json:"rule"`
	Column  string         `json:"column,omitempty"`
	Message string         `json:"message"`
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	if d.Rule < 0 {
		return fmt.Sprintf("%s: column %q: %s", d.Kind, d.Column, d.Message)
	}
	if d.Column == "" {
		return fmt.Sprintf("%s: rule %d: %s", d.Kind, d.Rule, d.Message)
	}
	return fmt.Sprintf("%s: rule %d column %q: %s", d.Kind, d.Rule, d.Column, d.Message)
}

type compileOptions struct {
	logger *slog.Logger
	name   string
}

// CompileOption configures Compile.
type CompileOption func(*compileOptions)

// WithLogger sets the logger diagnostics are written to at debug level.
func WithLogger(logger *slog.Logger) CompileOption {
	return func(o *compileOptions) { o.logger = logger }
}

// WithName overrides the table name taken from the schema.
func WithName(name string) CompileOption {
	return func(o *compileOptions) { o.name = name }
}

// Compile turns a schema into an immutable Table.
//
// Only an unsupported hit policy or a nil schema fails. Row literal counts
// that disagree with the declared columns are truncated or padded with
// don't-care cells, unknown types compile as strings, and unparseable
// literals become don't-care conditions or unknown outputs. Each tolerance is
// recorded in Table.Diagnostics.
func Compile(src *schema.Table, opts ...CompileOption) (*Table, error) {
	o := compileOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if src == nil {
		return nil, &EvaluationError{Op: "compile", Err: ErrNilTable}
	}
	if o.name == "" {
		o.name = src.Name
	}

	policy, err := schema.ParseHitPolicy(string(src.HitPolicy))
	if err != nil {
		return nil, &EvaluationError{Table: o.name, Op: "compile", Err: err}
	}

	t := &Table{
		name:        o.name,
		policy:      policy,
		numRules:    len(src.Rules),
		inputIndex:  make(map[string]int, len(src.Inputs)),
		outputIndex: make(map[string]int, len(src.Outputs)),
		codec:       codec.New(),
	}

	t.inputs = t.compileColumns(src.Inputs, t.inputIndex)
	t.outputs = t.compileColumns(src.Outputs, t.outputIndex)
	t.outputNames = make([]string, len(t.outputs))
	for i, col := range t.outputs {
		t.outputNames[i] = col.Name
	}

	nIn, nOut := len(t.inputs), len(t.outputs)
	t.ruleIDs = make([]string, t.numRules)
	t.condValue = make([]float64, t.numRules*nIn)
	t.condOp = make([]codec.Operator, t.numRules*nIn)
	t.condActive = make([]bool, t.numRules*nIn)
	t.outValue = make([]float64, t.numRules*nOut)

	for r, rule := range src.Rules {
		t.ruleIDs[r] = rule.ID
		t.checkCount(r, "input", len(rule.Inputs), nIn)
		t.checkCount(r, "output", len(rule.Outputs), nOut)

		for i, col := range t.inputs {
			k := r*nIn + i
			if i >= len(rule.Inputs) {
				t.condOp[k] = codec.OpEqual
				continue
			}
			cond, err := t.codec.EncodeCondition(string(rule.Inputs[i]), col.TypeRef)
			if err != nil {
				t.diagnose(DiagnosticInvalidLiteral, r, col.Name, err.Error()+"; treated as don't-care")
			}
			t.condValue[k] = cond.Value
			t.condOp[k] = cond.Op
			t.condActive[k] = cond.Active
		}

		for oi, col := range t.outputs {
			k := r*nOut + oi
			if oi >= len(rule.Outputs) {
				t.outValue[k] = math.NaN()
				continue
			}
			v, err := t.codec.EncodeOutputLiteral(string(rule.Outputs[oi]), col.TypeRef)
			if err != nil {
				t.diagnose(DiagnosticInvalidLiteral, r, col.Name, err.Error()+"; treated as unknown")
			}
			t.outValue[k] = v
		}
	}

	t.codec.Freeze()

	if len(t.diagnostics) > 0 {
		logger := o.logger.With("component", "engine.compiler", "table", t.name)
		for _, d := range t.diagnostics {
			logger.Debug("compile tolerance applied",
				"kind", d.Kind,
				"rule", d.Rule,
				"column", d.Column,
				"message", d.Message,
			)
		}
	}
	return t, nil
}

// compileColumns assigns column indices in declaration order. A repeated name
// keeps its first index.
func (t *Table) compileColumns(clauses []schema.Clause, index map[string]int) []Column {
	cols := make([]Column, len(clauses))
	for i, cl := range clauses {
		ref, ok := codec.ParseTypeRef(cl.TypeRef)
		if !ok {
			t.diagnose(DiagnosticUnknownType, -1, cl.Name, fmt.Sprintf("unknown type %q compiled as string", cl.TypeRef))
		}
		cols[i] = Column{Name: cl.Name, TypeRef: ref}
		if _, dup := index[cl.Name]; dup {
			t.diagnose(DiagnosticDuplicateColumn, -1, cl.Name, fmt.Sprintf("duplicate column name; lookups resolve to column %d", index[cl.Name]))
			continue
		}
		index[cl.Name] = i
	}
	return cols
}

func (t *Table) checkCount(r int, kind string, got, want int) {
	switch {
	case got > want:
		t.diagnose(DiagnosticLiteralCount, r, "", fmt.Sprintf("%d %s literals for %d columns; extra dropped", got, kind, want))
	case got < want:
		t.diagnose(DiagnosticLiteralCount, r, "", fmt.Sprintf("%d %s literals for %d columns; missing left unset", got, kind, want))
	}
}

func (t *Table) diagnose(kind DiagnosticKind, rule int, column, msg string) {
	t.diagnostics = append(t.diagnostics, Diagnostic{Kind: kind, Rule: rule, Column: column, Message: msg})
}
