package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"mercator-hq/tabula/pkg/cli"
	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/graph"
	"mercator-hq/tabula/pkg/decision/schema"
)

var explainFlags struct {
	table       string
	dot         bool
	leftToRight bool
	record      string
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Describe a decision table",
	Long: `Describe a compiled decision table.

Without --dot the command prints the columns, the rules as written and any
tolerances the compiler applied. With --dot it prints a Graphviz digraph of
inputs, rules and outputs. --record evaluates one JSON record and marks the
rules it fires.

Examples:
  # Summary
  tabula explain --table tables/discount.yaml

  # Render as SVG
  tabula explain --table tables/discount.yaml --dot | dot -Tsvg > discount.svg

  # Highlight the rules a record fires
  tabula explain --table tables/discount.yaml --dot --record '{"age": 70, "tier": "gold"}'`,
	RunE: explainTable,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringVarP(&explainFlags.table, "table", "t", "", "decision table file")
	explainCmd.Flags().BoolVar(&explainFlags.dot, "dot", false, "print a Graphviz DOT graph")
	explainCmd.Flags().BoolVar(&explainFlags.leftToRight, "lr", false, "lay the graph out left to right")
	explainCmd.Flags().StringVar(&explainFlags.record, "record", "", "JSON record whose fired rules are highlighted")
}

func explainTable(cmd *cobra.Command, args []string) error {
	if explainFlags.table == "" {
		return cli.NewCommandError("explain", errors.New("--table is required"))
	}

	src, err := schema.Load(explainFlags.table)
	if err != nil {
		return cli.NewCommandError("explain", err)
	}
	t, err := engine.Compile(src, engine.WithLogger(quietLogger()))
	if err != nil {
		return cli.NewCommandError("explain", err)
	}
	defer t.Release()

	var fired []int
	if explainFlags.record != "" {
		var rec engine.Record
		if err := json.Unmarshal([]byte(explainFlags.record), &rec); err != nil {
			return cli.NewCommandError("explain", fmt.Errorf("invalid --record JSON: %w", err))
		}
		res, err := engine.EvaluateOne(t, rec)
		if err != nil {
			return cli.NewCommandError("explain", err)
		}
		fired = res.Fired
	}

	out := commandOutput(cmd)
	if explainFlags.dot {
		dot, err := graph.ToDOT(t, graph.Options{Fired: fired, LeftToRight: explainFlags.leftToRight})
		if err != nil {
			return cli.NewCommandError("explain", err)
		}
		_, err = fmt.Fprintln(out, dot)
		return err
	}
	return writeExplanation(out, src, t, fired)
}

func writeExplanation(w io.Writer, src *schema.Table, t *engine.Table, fired []int) error {
	fmt.Fprintf(w, "Table:      %s\n", t.Name())
	if src.Description != "" {
		fmt.Fprintf(w, "            %s\n", src.Description)
	}
	fmt.Fprintf(w, "Hit policy: %s\n", t.HitPolicy())
	fmt.Fprintf(w, "Inputs:     %s\n", formatColumns(t.Inputs()))
	fmt.Fprintf(w, "Outputs:    %s\n", formatColumns(t.Outputs()))
	fmt.Fprintf(w, "Rules:      %d\n\n", t.NumRules())

	if err := cli.NewFormatter(cli.FormatText).FormatTo(w, ruleTable{src: src, fired: fired}); err != nil {
		return err
	}

	if diags := t.Diagnostics(); len(diags) > 0 {
		fmt.Fprintf(w, "\nCompiler tolerances (%d):\n", len(diags))
		for _, d := range diags {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
	return nil
}

func formatColumns(cols []engine.Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.TypeRef)
	}
	return strings.Join(parts, ", ")
}

// ruleTable lists rules as written in the source. Fired rules are marked
// with "*".
type ruleTable struct {
	src   *schema.Table
	fired []int
}

func (t ruleTable) Header() []string {
	header := []string{"", "#", "id"}
	header = append(header, t.src.InputNames()...)
	for _, name := range t.src.OutputNames() {
		header = append(header, "=> "+name)
	}
	return header
}

func (t ruleTable) Rows() [][]string {
	fired := make(map[int]bool, len(t.fired))
	for _, r := range t.fired {
		fired[r] = true
	}

	rows := make([][]string, len(t.src.Rules))
	for r, rule := range t.src.Rules {
		mark := ""
		if fired[r] {
			mark = "*"
		}
		row := []string{mark, strconv.Itoa(r), rule.ID}
		row = append(row, padCells(schema.Strings(rule.Inputs), len(t.src.Inputs))...)
		row = append(row, padCells(schema.Strings(rule.Outputs), len(t.src.Outputs))...)
		rows[r] = row
	}
	return rows
}

// padCells fits a rule's literals to the declared column count the way the
// compiler does: missing cells are don't-care, extra cells are dropped.
func padCells(cells []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(cells) && cells[i] != "" {
			out[i] = cells[i]
		} else {
			out[i] = "-"
		}
	}
	return out
}
