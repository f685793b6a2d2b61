package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/tabula/pkg/cli"
	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/telemetry/logging"
)

// loadConfig initializes the process configuration from --config.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, cli.NewConfigError("", "configuration not initialized")
	}
	return cfg, nil
}

// newLogger builds the command logger. Offline commands log to stderr so
// stdout carries only results; --verbose forces debug level.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lc := cfg.Telemetry.LoggingConfig(w)
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// quietLogger logs warnings and errors to stderr, or everything with
// --verbose. It is used by commands that run without a config file.
func quietLogger() *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: level, Format: string(logging.FormatConsole), Writer: os.Stderr})
	if err != nil {
		return logging.Discard()
	}
	return logger
}

// commandOutput returns the command's stdout. Tests call RunE functions
// with a nil command.
func commandOutput(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

func commandInput(cmd *cobra.Command) io.Reader {
	if cmd == nil {
		return os.Stdin
	}
	return cmd.InOrStdin()
}
