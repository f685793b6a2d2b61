package engine

import (
	"testing"

	"mercator-hq/tabula/pkg/decision/schema"
)

func mustCompile(t testing.TB, src *schema.Table) *Table {
	t.Helper()
	tbl, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return tbl
}

func rule(inputs []string, outputs ...string) schema.Rule {
	r := schema.Rule{}
	for _, in := range inputs {
		r.Inputs = append(r.Inputs, schema.Literal(in))
	}
	for _, out := range outputs {
		r.Outputs = append(r.Outputs, schema.Literal(out))
	}
	return r
}

func outputOf(t testing.TB, row *OutputRow, name string) any {
	t.Helper()
	if row == nil {
		t.Fatalf("expected a row, got none")
	}
	v, ok := row.Get(name)
	if !ok {
		t.Fatalf("row has no output %q", name)
	}
	return v
}
