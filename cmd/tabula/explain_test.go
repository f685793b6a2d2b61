package main

import (
	"strings"
	"testing"
)

func setExplainFlags(t *testing.T, table string, dot bool, record string) {
	t.Helper()
	orig := explainFlags
	t.Cleanup(func() { explainFlags = orig })
	explainFlags.table = table
	explainFlags.dot = dot
	explainFlags.leftToRight = false
	explainFlags.record = record
}

func TestExplain_Text(t *testing.T) {
	setExplainFlags(t, "testdata/discount.yaml", false, `{"amount": 500, "tier": "gold"}`)

	out, err := execute(t, explainTable, "")
	if err != nil {
		t.Fatalf("explainTable() error = %v", err)
	}

	for _, want := range []string{
		"Table:      discount",
		"Order discount by amount and customer tier",
		"Hit policy: FIRST",
		"Inputs:     amount (number), tier (string)",
		"Outputs:    rate (number)",
		"Rules:      3",
		"=> rate",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Only the default rule fires for a small order.
	marks := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		for i, f := range fields {
			if f == "gold-large" || f == "large" || f == "default" {
				marks[f] = strings.Join(fields[:i], " ")
			}
		}
	}
	if marks["default"] != "* 2" {
		t.Errorf("default rule prefix = %q, want \"* 2\"", marks["default"])
	}
	if marks["large"] != "1" || marks["gold-large"] != "0" {
		t.Errorf("unfired rule prefixes = %v", marks)
	}
}

func TestExplain_ToleranceDiagnostics(t *testing.T) {
	setExplainFlags(t, "testdata/warnings.yaml", false, "")

	out, err := execute(t, explainTable, "")
	if err != nil {
		t.Fatalf("explainTable() error = %v", err)
	}
	if !strings.Contains(out, "Compiler tolerances (1):") {
		t.Errorf("output missing diagnostics:\n%s", out)
	}
}

func TestExplain_DOT(t *testing.T) {
	setExplainFlags(t, "testdata/offers.json", true, `{"age": 70, "member": false}`)

	out, err := execute(t, explainTable, "")
	if err != nil {
		t.Fatalf("explainTable() error = %v", err)
	}
	if !strings.Contains(out, "digraph") {
		t.Errorf("output is not a DOT graph:\n%s", out)
	}
	if !strings.Contains(out, "red") {
		t.Errorf("fired rule not highlighted:\n%s", out)
	}
}

func TestExplain_Errors(t *testing.T) {
	tests := []struct {
		name   string
		table  string
		record string
	}{
		{"missing table flag", "", ""},
		{"missing file", "testdata/nope.yaml", ""},
		{"invalid table", "testdata/invalid.yaml", ""},
		{"bad record", "testdata/discount.yaml", "{not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setExplainFlags(t, tt.table, false, tt.record)
			if _, err := execute(t, explainTable, ""); err == nil {
				t.Error("explainTable() error = nil, want error")
			}
		})
	}
}
