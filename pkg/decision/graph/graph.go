// Package graph renders compiled decision tables as Graphviz DOT.
//
// Each input column, rule and output column becomes a node. An edge runs from
// an input to every rule that constrains it, labelled with the condition, and
// from each rule to every output, labelled with the value it produces.
// Don't-care cells draw no edge. Fired rules can be highlighted to explain a
// single evaluation.
package graph

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/awalterschulze/gographviz"

	"mercator-hq/tabula/pkg/decision/engine"
)

// Options controls rendering.
type Options struct {
	// Fired lists rule indices to highlight.
	Fired []int

	// LeftToRight lays the graph out horizontally.
	LeftToRight bool
}

// ToDOT renders t as a DOT digraph.
func ToDOT(t *engine.Table, opts Options) (string, error) {
	if t == nil {
		return "", engine.ErrNilTable
	}
	if t.Released() {
		return "", engine.ErrTableReleased
	}

	g := gographviz.NewGraph()
	name := strconv.Quote(t.Name())
	if err := g.SetName(name); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	if opts.LeftToRight {
		if err := g.AddAttr(name, "rankdir", "LR"); err != nil {
			return "", err
		}
	}
	if err := g.AddAttr(name, "label", strconv.Quote(fmt.Sprintf("%s (%s)", t.Name(), t.HitPolicy()))); err != nil {
		return "", err
	}

	fired := make(map[int]bool, len(opts.Fired))
	for _, r := range opts.Fired {
		fired[r] = true
	}

	inputs := t.Inputs()
	outputs := t.Outputs()

	for i, col := range inputs {
		attrs := map[string]string{
			"shape": "box",
			"label": strconv.Quote(fmt.Sprintf("%s\n%s", col.Name, col.TypeRef)),
		}
		if err := g.AddNode(name, inputNode(i), attrs); err != nil {
			return "", err
		}
	}
	for o, col := range outputs {
		attrs := map[string]string{
			"shape": "box",
			"style": "rounded",
			"label": strconv.Quote(fmt.Sprintf("%s\n%s", col.Name, col.TypeRef)),
		}
		if err := g.AddNode(name, outputNode(o), attrs); err != nil {
			return "", err
		}
	}

	for r := 0; r < t.NumRules(); r++ {
		attrs := map[string]string{
			"shape": "ellipse",
			"label": strconv.Quote(ruleLabel(t, r)),
		}
		if fired[r] {
			attrs["color"] = "red"
			attrs["style"] = "bold"
		}
		if err := g.AddNode(name, ruleNode(r), attrs); err != nil {
			return "", err
		}

		for i, col := range inputs {
			cond := t.Condition(r, i)
			if !cond.Active {
				continue
			}
			label := cond.Op.String() + " " + formatValue(t.Codec().Decode(cond.Value, col.TypeRef))
			if err := g.AddEdge(inputNode(i), ruleNode(r), true, edgeAttrs(label, fired[r])); err != nil {
				return "", err
			}
		}
		for o, col := range outputs {
			label := formatValue(t.Codec().Decode(t.OutputValue(r, o), col.TypeRef))
			if err := g.AddEdge(ruleNode(r), outputNode(o), true, edgeAttrs(label, fired[r])); err != nil {
				return "", err
			}
		}
	}

	return g.String(), nil
}

func edgeAttrs(label string, highlight bool) map[string]string {
	attrs := map[string]string{"label": strconv.Quote(label)}
	if highlight {
		attrs["color"] = "red"
		attrs["penwidth"] = "2"
	}
	return attrs
}

func ruleLabel(t *engine.Table, r int) string {
	if id := t.RuleID(r); id != "" {
		return fmt.Sprintf("#%d %s", r+1, id)
	}
	return fmt.Sprintf("#%d", r+1)
}

func inputNode(i int) string  { return "in" + strconv.Itoa(i) }
func outputNode(o int) string { return "out" + strconv.Itoa(o) }
func ruleNode(r int) string   { return "rule" + strconv.Itoa(r) }

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
