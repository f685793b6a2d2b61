package manager

import (
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/schema"
)

const discountYAML = `
name: discount
hit_policy: FIRST
inputs:
  - name: amount
    type_ref: number
  - name: tier
    type_ref: string
outputs:
  - name: rate
    type_ref: number
rules:
  - inputs: [">= 1000", '"gold"']
    outputs: ["0.2"]
  - inputs: [">= 1000", "-"]
    outputs: ["0.1"]
  - inputs: ["-", "-"]
    outputs: ["0"]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func compileTable(t *testing.T, name string) *engine.Table {
	t.Helper()
	tbl, err := engine.Compile(&schema.Table{
		Name:      name,
		HitPolicy: schema.HitPolicyUnique,
		Inputs:    []schema.Clause{{Name: "x", TypeRef: "number"}},
		Outputs:   []schema.Clause{{Name: "y", TypeRef: "string"}},
		Rules: []schema.Rule{
			{Inputs: []schema.Literal{"< 10"}, Outputs: []schema.Literal{`"low"`}},
			{Inputs: []schema.Literal{">= 10"}, Outputs: []schema.Literal{`"high"`}},
		},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return tbl
}

func register(t *testing.T, r *Registry, name, version string) *engine.Table {
	t.Helper()
	tbl := compileTable(t, name)
	if err := r.Put(tbl, NewTableInfo(tbl, version, "")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	return tbl
}
