package schema

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// HitPolicy selects how a table resolves multiple fired rules.
type HitPolicy string

const (
	HitPolicyUnique  HitPolicy = "UNIQUE"
	HitPolicyFirst   HitPolicy = "FIRST"
	HitPolicyCollect HitPolicy = "COLLECT"
)

// ParseHitPolicy normalizes a declared hit policy. Matching is
// case-insensitive and accepts the single-letter forms U, F and C. An empty
// policy means UNIQUE. Every other policy, including ANY, PRIORITY and the
// COLLECT aggregations, is rejected.
func ParseHitPolicy(s string) (HitPolicy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "U", "UNIQUE":
		return HitPolicyUnique, nil
	case "F", "FIRST":
		return HitPolicyFirst, nil
	case "C", "COLLECT":
		return HitPolicyCollect, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedHitPolicy, s)
	}
}

// Table is a decision table as produced by an authoring tool.
type Table struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	HitPolicy   HitPolicy `yaml:"hit_policy" json:"hitPolicy"`
	Inputs      []Clause  `yaml:"inputs" json:"inputs"`
	Outputs     []Clause  `yaml:"outputs" json:"outputs"`
	Rules       []Rule    `yaml:"rules" json:"rules"`
}

// Clause declares one input or output column.
type Clause struct {
	Name    string `yaml:"name" json:"name"`
	TypeRef string `yaml:"type_ref" json:"typeRef"`
}

// Rule is one row of the table. Inputs and Outputs hold one literal per
// declared clause, in declaration order.
type Rule struct {
	ID          string    `yaml:"id,omitempty" json:"id,omitempty"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Inputs      []Literal `yaml:"inputs" json:"inputs"`
	Outputs     []Literal `yaml:"outputs" json:"outputs"`
}

// UnmarshalYAML decodes the cells as nodes so that a null cell (~ or an
// empty entry) keeps its position as an empty literal. yaml.v3 would drop it
// from a []Literal and shift the later cells one column left.
func (r *Rule) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rule must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch key := n.Content[i].Value; key {
		case "id", "description", "inputs", "outputs":
		default:
			return fmt.Errorf("line %d: field %s not found in type schema.Rule", n.Content[i].Line, key)
		}
	}

	var raw struct {
		ID          string      `yaml:"id"`
		Description string      `yaml:"description"`
		Inputs      []yaml.Node `yaml:"inputs"`
		Outputs     []yaml.Node `yaml:"outputs"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}

	inputs, err := literalsFromNodes(raw.Inputs)
	if err != nil {
		return err
	}
	outputs, err := literalsFromNodes(raw.Outputs)
	if err != nil {
		return err
	}
	*r = Rule{ID: raw.ID, Description: raw.Description, Inputs: inputs, Outputs: outputs}
	return nil
}

func literalsFromNodes(nodes []yaml.Node) ([]Literal, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]Literal, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		if n.Kind == yaml.AliasNode && n.Alias != nil {
			n = n.Alias
		}
		if n.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: rule cell must be a scalar", n.Line)
		}
		if n.ShortTag() != "!!null" {
			out[i] = Literal(n.Value)
		}
	}
	return out, nil
}

// Literal is a rule cell. In YAML and JSON it may be written as a string,
// number, boolean or null; non-string forms are kept as their literal text
// and null becomes the empty (don't-care) cell.
type Literal string

// UnmarshalJSON implements json.Unmarshaler.
func (l *Literal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Literal(s)
		return nil
	}
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*l = ""
		return nil
	}
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return fmt.Errorf("rule cell must be a scalar, got %s", raw)
	}
	*l = Literal(raw)
	return nil
}

// Strings converts literals to plain strings.
func Strings(ls []Literal) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = string(l)
	}
	return out
}

// InputNames returns the declared input names in order.
func (t *Table) InputNames() []string {
	names := make([]string, len(t.Inputs))
	for i, c := range t.Inputs {
		names[i] = c.Name
	}
	return names
}

// OutputNames returns the declared output names in order.
func (t *Table) OutputNames() []string {
	names := make([]string, len(t.Outputs))
	for i, c := range t.Outputs {
		names[i] = c.Name
	}
	return names
}
