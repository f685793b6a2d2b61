package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/tabula/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tabula",
	Short: "Tabula - decision table evaluation engine",
	Long: `Tabula compiles decision tables into dense numeric arrays and evaluates
batches of records against them.

It provides:
  - UNIQUE, FIRST and COLLECT hit policies
  - An HTTP and AWS Lambda evaluation API
  - Hot reload from a directory or a Git repository
  - Evidence records for every evaluated input`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the error's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults plus TABULA_* environment when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
