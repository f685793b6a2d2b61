package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"mercator-hq/tabula/pkg/cli"
	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/schema"
)

var lintFlags struct {
	tables []string
	dir    string
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate decision table files",
	Long: `Validate decision table files for structural errors.

The lint command parses each file and reports:
  - YAML/JSON syntax errors
  - Missing or duplicate input and output names
  - Unsupported hit policies
  - Unknown column types
  - Rules whose literal count does not match the declared columns
  - Literals that cannot be parsed for their column type

The compiler tolerates everything reported as a warning; --strict fails on
warnings too.

Examples:
  # Lint one file
  tabula lint --table tables/discount.yaml

  # Lint several files and a directory
  tabula lint -t a.yaml -t b.json --dir tables/

  # Strict mode (warnings as errors)
  tabula lint --dir tables/ --strict

  # JSON output for CI/CD
  tabula lint --dir tables/ --format json`,
	RunE: lintTables,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringArrayVarP(&lintFlags.tables, "table", "t", nil, "table file to validate (repeatable)")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of table files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult is the validation result for a single table file.
type LintResult struct {
	File     string         `json:"file"`
	Table    string         `json:"table,omitempty"`
	Valid    bool           `json:"valid"`
	Errors   []schema.Issue `json:"errors,omitempty"`
	Warnings []schema.Issue `json:"warnings,omitempty"`
}

func lintTables(cmd *cobra.Command, args []string) error {
	files, err := lintFiles()
	if err != nil {
		return cli.NewCommandError("lint", err)
	}

	results := make([]LintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintFile(file))
	}

	out := commandOutput(cmd)
	if lintFlags.format == "json" {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(out, results); err != nil {
			return err
		}
	} else {
		writeLintText(out, results)
	}
	return lintOutcome(results, lintFlags.strict)
}

func lintFiles() ([]string, error) {
	if len(lintFlags.tables) == 0 && lintFlags.dir == "" {
		return nil, errors.New("either --table or --dir must be specified")
	}

	files := append([]string(nil), lintFlags.tables...)
	if lintFlags.dir != "" {
		var found []string
		for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to list table files: %w", err)
			}
			found = append(found, matches...)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, errors.New("no table files found")
	}
	return files, nil
}

func lintFile(path string) LintResult {
	result := LintResult{File: path, Valid: true}

	src, err := schema.Load(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, schema.Issue{
			Severity: schema.SeverityError,
			Path:     "file",
			Message:  err.Error(),
		})
		return result
	}
	result.Table = src.Name

	for _, is := range src.Validate() {
		if is.Severity == schema.SeverityError {
			result.Valid = false
			result.Errors = append(result.Errors, is)
		} else {
			result.Warnings = append(result.Warnings, is)
		}
	}

	if result.Valid {
		t, err := engine.Compile(src, engine.WithLogger(quietLogger()))
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, schema.Issue{
				Severity: schema.SeverityError,
				Path:     "table",
				Message:  err.Error(),
			})
		} else {
			t.Release()
		}
	}
	return result
}

func writeLintText(w io.Writer, results []LintResult) {
	totalErrors, totalWarnings := 0, 0
	for _, result := range results {
		fmt.Fprintf(w, "Validating %s...\n", result.File)

		if len(result.Errors) == 0 && len(result.Warnings) == 0 {
			fmt.Fprintln(w, "✓ Syntax valid")
			fmt.Fprintln(w, "✓ All rules match the declared columns")
		}
		for _, is := range result.Errors {
			fmt.Fprintf(w, "✗ Error: %s: %s\n", is.Path, is.Message)
			totalErrors++
		}
		for _, is := range result.Warnings {
			fmt.Fprintf(w, "⚠  Warning: %s: %s\n", is.Path, is.Message)
			totalWarnings++
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  %d error(s), %d warning(s)\n", totalErrors, totalWarnings)
}

// lintOutcome returns a *cli.ValidationError when any file failed.
func lintOutcome(results []LintResult, strict bool) error {
	verr := &cli.ValidationError{Files: len(results), Strict: strict}
	for _, r := range results {
		verr.Errors += len(r.Errors)
		verr.Warnings += len(r.Warnings)
	}
	if verr.Errors > 0 || (strict && verr.Warnings > 0) {
		return verr
	}
	return nil
}
