package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"mercator-hq/tabula/pkg/decision/codec"
	"mercator-hq/tabula/pkg/decision/schema"
)

func TestCompile_ColumnIndices(t *testing.T) {
	tbl := mustCompile(t, &schema.Table{
		Name:      "idx",
		HitPolicy: "u",
		Inputs: []schema.Clause{
			{Name: "b", TypeRef: "number"},
			{Name: "a", TypeRef: "string"},
		},
		Outputs: []schema.Clause{
			{Name: "z", TypeRef: "boolean"},
			{Name: "y", TypeRef: "date"},
		},
	})

	if i, ok := tbl.InputIndex("b"); !ok || i != 0 {
		t.Errorf("InputIndex(b) = %d, %v", i, ok)
	}
	if i, ok := tbl.InputIndex("a"); !ok || i != 1 {
		t.Errorf("InputIndex(a) = %d, %v", i, ok)
	}
	if _, ok := tbl.InputIndex("c"); ok {
		t.Error("InputIndex(c) found an undeclared input")
	}
	if o, ok := tbl.OutputIndex("y"); !ok || o != 1 {
		t.Errorf("OutputIndex(y) = %d, %v", o, ok)
	}
	if ref, ok := tbl.OutputTypeRef("y"); !ok || ref != codec.TypeDate {
		t.Errorf("OutputTypeRef(y) = %q, %v", ref, ok)
	}
	if tbl.HitPolicy() != schema.HitPolicyUnique {
		t.Errorf("HitPolicy() = %q", tbl.HitPolicy())
	}
	if tbl.Name() != "idx" || tbl.NumRules() != 0 || tbl.NumInputs() != 2 || tbl.NumOutputs() != 2 {
		t.Errorf("unexpected shape: %s %d %d %d", tbl.Name(), tbl.NumRules(), tbl.NumInputs(), tbl.NumOutputs())
	}
}

func TestCompile_UnsupportedHitPolicy(t *testing.T) {
	for _, p := range []schema.HitPolicy{"ANY", "PRIORITY", "OUTPUT ORDER", "COLLECT MAX"} {
		t.Run(string(p), func(t *testing.T) {
			_, err := Compile(&schema.Table{Name: "x", HitPolicy: p})
			if !errors.Is(err, ErrUnsupportedHitPolicy) {
				t.Errorf("Compile() error = %v, want ErrUnsupportedHitPolicy", err)
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) || evalErr.Table != "x" || evalErr.Op != "compile" {
				t.Errorf("Compile() error = %#v, want EvaluationError for table x", err)
			}
		})
	}

	if _, err := Compile(nil); !errors.Is(err, ErrNilTable) {
		t.Errorf("Compile(nil) error = %v, want ErrNilTable", err)
	}
}

func TestCompile_Tolerances(t *testing.T) {
	src := &schema.Table{
		HitPolicy: schema.HitPolicyCollect,
		Inputs: []schema.Clause{
			{Name: "n", TypeRef: "number"},
			{Name: "s", TypeRef: "money"},
		},
		Outputs: []schema.Clause{
			{Name: "o1", TypeRef: "number"},
			{Name: "o2", TypeRef: "number"},
		},
		Rules: []schema.Rule{
			rule([]string{"1", `"x"`, "extra"}, "1", "2", "3"),
			rule([]string{"abc"}, "oops"),
		},
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tbl, err := Compile(src, WithLogger(logger), WithName("renamed"))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if tbl.Name() != "renamed" {
		t.Errorf("Name() = %q, want renamed", tbl.Name())
	}

	kinds := make(map[DiagnosticKind]int)
	for _, d := range tbl.Diagnostics() {
		kinds[d.Kind]++
	}
	if kinds[DiagnosticUnknownType] != 1 {
		t.Errorf("unknown_type diagnostics = %d, want 1", kinds[DiagnosticUnknownType])
	}
	// rule 0: 3 inputs for 2, 3 outputs for 2; rule 1: 1 input for 2, 1 output for 2.
	if kinds[DiagnosticLiteralCount] != 4 {
		t.Errorf("literal_count diagnostics = %d, want 4", kinds[DiagnosticLiteralCount])
	}
	if kinds[DiagnosticInvalidLiteral] != 2 {
		t.Errorf("invalid_literal diagnostics = %d, want 2", kinds[DiagnosticInvalidLiteral])
	}
	if !strings.Contains(logs.String(), "compile tolerance applied") {
		t.Error("diagnostics were not logged at debug level")
	}

	if c := tbl.Condition(1, 0); c.Active {
		t.Errorf("unparseable literal compiled to active condition %+v", c)
	}
	if c := tbl.Condition(1, 1); c.Active {
		t.Errorf("missing literal compiled to active condition %+v", c)
	}
	if c := tbl.Condition(0, 1); !c.Active || tbl.Codec().DecodeString(c.Value) != "x" {
		t.Errorf("unknown type did not compile as string: %+v", c)
	}
	if v := tbl.OutputValue(1, 0); !math.IsNaN(v) {
		t.Errorf("unparseable output = %v, want NaN", v)
	}
	if v := tbl.OutputValue(1, 1); !math.IsNaN(v) {
		t.Errorf("missing output = %v, want NaN", v)
	}
	if v := tbl.OutputValue(0, 1); v != 2 {
		t.Errorf("OutputValue(0,1) = %v, want 2", v)
	}

	// The unknown-typed column decodes nowhere, but evaluation stays total.
	results, err := Evaluate(tbl, []Record{{"n": 1, "s": "x"}, {"n": "junk", "s": 4}})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(results[0].Rows) != 2 {
		t.Errorf("record 0 rows = %d, want 2", len(results[0].Rows))
	}
	if len(results[1].Rows) != 1 || results[1].Fired[0] != 1 {
		t.Errorf("record 1 fired %v, want [1]", results[1].Fired)
	}
	out, _ := results[1].Rows[0].Get("o1")
	if f, ok := out.(float64); !ok || !math.IsNaN(f) {
		t.Errorf("unknown number output = %v, want NaN", out)
	}
}

func TestCompile_DuplicateColumn(t *testing.T) {
	tbl := mustCompile(t, &schema.Table{
		HitPolicy: schema.HitPolicyFirst,
		Inputs: []schema.Clause{
			{Name: "x", TypeRef: "number"},
			{Name: "x", TypeRef: "number"},
		},
		Outputs: []schema.Clause{{Name: "r", TypeRef: "number"}},
		Rules:   []schema.Rule{rule([]string{"1", "-"}, "1")},
	})
	if i, _ := tbl.InputIndex("x"); i != 0 {
		t.Errorf("InputIndex(x) = %d, want first declaration", i)
	}
	found := false
	for _, d := range tbl.Diagnostics() {
		found = found || d.Kind == DiagnosticDuplicateColumn
	}
	if !found {
		t.Error("no duplicate_column diagnostic")
	}
}

func TestCompile_CodecRoundTripAndFreeze(t *testing.T) {
	words := []string{"alpha", "beta", "gamma delta", ""}
	src := &schema.Table{
		HitPolicy: schema.HitPolicyCollect,
		Inputs:    []schema.Clause{{Name: "w", TypeRef: "string"}},
		Outputs:   []schema.Clause{{Name: "echo", TypeRef: "string"}},
	}
	for _, w := range words {
		lit := `"` + w + `"`
		src.Rules = append(src.Rules, rule([]string{lit}, lit))
	}
	tbl := mustCompile(t, src)

	c := tbl.Codec()
	if !c.Frozen() {
		t.Fatal("codec not frozen after compile")
	}
	for _, w := range words {
		if got := c.DecodeString(c.Lookup(w)); got != w {
			t.Errorf("round trip of %q = %q", w, got)
		}
	}

	before := c.Len()
	if _, err := Evaluate(tbl, []Record{{"w": "unseen"}, {"w": "beta"}}); err != nil {
		t.Fatal(err)
	}
	if c.Len() != before {
		t.Errorf("evaluation grew the vocabulary from %d to %d", before, c.Len())
	}

	res, err := EvaluateOne(tbl, Record{"w": "gamma delta"})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := res.Rows[0].Get("echo"); v != "gamma delta" {
		t.Errorf("echo = %v", v)
	}
}

func TestCompile_DecodesAllOutputTypes(t *testing.T) {
	tbl := mustCompile(t, &schema.Table{
		HitPolicy: schema.HitPolicyFirst,
		Inputs:    []schema.Clause{{Name: "go", TypeRef: "boolean"}},
		Outputs: []schema.Clause{
			{Name: "s", TypeRef: "string"},
			{Name: "n", TypeRef: "number"},
			{Name: "i", TypeRef: "integer"},
			{Name: "b", TypeRef: "boolean"},
			{Name: "d", TypeRef: "date"},
			{Name: "dt", TypeRef: "dateTime"},
		},
		Rules: []schema.Rule{rule([]string{"true"},
			`"ok"`, "1.25", "2.6", "false",
			`date("2021-03-04")`, `date and time("2021-03-04T05:06:07")`,
		)},
	})

	res, err := EvaluateOne(tbl, Record{"go": true})
	if err != nil {
		t.Fatal(err)
	}
	row := res.Row
	if v := outputOf(t, row, "s"); v != "ok" {
		t.Errorf("s = %v", v)
	}
	if v := outputOf(t, row, "n"); v != 1.25 {
		t.Errorf("n = %v", v)
	}
	if v := outputOf(t, row, "i"); v != int64(3) {
		t.Errorf("i = %v", v)
	}
	if v := outputOf(t, row, "b"); v != false {
		t.Errorf("b = %v", v)
	}
	if v, ok := outputOf(t, row, "d").(time.Time); !ok || !v.Equal(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("d = %v", v)
	}
	if v, ok := outputOf(t, row, "dt").(time.Time); !ok || !v.Equal(time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)) {
		t.Errorf("dt = %v", v)
	}
}
