package schema

import (
	"fmt"

	"mercator-hq/tabula/pkg/decision/codec"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found by Validate.
type Issue struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

// String formats the issue for display.
func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// Validate checks a table for structural problems. Errors make the table
// unusable or ambiguous (missing names, duplicates, unsupported hit policy);
// warnings flag what the compiler silently tolerates (unknown types,
// literal-count mismatches, unparseable literals).
func (t *Table) Validate() []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := ParseHitPolicy(string(t.HitPolicy)); err != nil {
		add(SeverityError, "hit_policy", "%v", err)
	}
	if len(t.Outputs) == 0 {
		add(SeverityWarning, "outputs", "table declares no outputs")
	}

	inputTypes := checkClauses(t.Inputs, "inputs", add)
	outputTypes := checkClauses(t.Outputs, "outputs", add)

	c := codec.New()
	for r, rule := range t.Rules {
		path := fmt.Sprintf("rules[%d]", r)
		if len(rule.Inputs) != len(t.Inputs) {
			add(SeverityWarning, path+".inputs", "has %d literals, table declares %d inputs", len(rule.Inputs), len(t.Inputs))
		}
		if len(rule.Outputs) != len(t.Outputs) {
			add(SeverityWarning, path+".outputs", "has %d literals, table declares %d outputs", len(rule.Outputs), len(t.Outputs))
		}
		for i, lit := range rule.Inputs {
			if i >= len(inputTypes) {
				break
			}
			if _, err := c.EncodeCondition(string(lit), inputTypes[i]); err != nil {
				add(SeverityWarning, fmt.Sprintf("%s.inputs[%d]", path, i), "%v; treated as don't-care", err)
			}
		}
		for o, lit := range rule.Outputs {
			if o >= len(outputTypes) {
				break
			}
			if _, err := c.EncodeOutputLiteral(string(lit), outputTypes[o]); err != nil {
				add(SeverityWarning, fmt.Sprintf("%s.outputs[%d]", path, o), "%v; treated as unknown", err)
			}
		}
	}
	return issues
}

// Check runs Validate and returns a *ValidationError when any issue has
// error severity. With strict set, warnings fail too.
func (t *Table) Check(strict bool) error {
	var failed []Issue
	for _, is := range t.Validate() {
		if is.Severity == SeverityError || strict {
			failed = append(failed, is)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &ValidationError{Table: t.Name, Issues: failed}
}

func checkClauses(clauses []Clause, section string, add func(Severity, string, string, ...any)) []codec.TypeRef {
	types := make([]codec.TypeRef, len(clauses))
	seen := make(map[string]int, len(clauses))
	for i, cl := range clauses {
		path := fmt.Sprintf("%s[%d]", section, i)
		if cl.Name == "" {
			add(SeverityError, path+".name", "name is required")
		} else if prev, dup := seen[cl.Name]; dup {
			add(SeverityError, path+".name", "duplicate name %q (also %s[%d])", cl.Name, section, prev)
		} else {
			seen[cl.Name] = i
		}

		ref, ok := codec.ParseTypeRef(cl.TypeRef)
		if !ok {
			add(SeverityWarning, path+".type_ref", "unknown type %q; compared as string, decoded as number", cl.TypeRef)
		}
		types[i] = ref
	}
	return types
}
