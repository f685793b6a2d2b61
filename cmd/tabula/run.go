package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/tabula/pkg/cli"
	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/service"
	"mercator-hq/tabula/pkg/evidence/recorder"
	"mercator-hq/tabula/pkg/evidence/retention"
	"mercator-hq/tabula/pkg/evidence/storage"
	"mercator-hq/tabula/pkg/server"
	"mercator-hq/tabula/pkg/telemetry/health"
	"mercator-hq/tabula/pkg/telemetry/metrics"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	tablesDir     string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Tabula evaluation server",
	Long: `Start the Tabula HTTP server with the specified configuration.

The server loads every decision table from the configured directory or Git
repository, keeps them in sync, and serves the evaluation API under /api/v1.

Examples:
  # Start with defaults (./tables, :8080)
  tabula run

  # Start with a config file
  tabula run --config /etc/tabula/tabula.yaml

  # Override listen address and table directory
  tabula run --listen 0.0.0.0:9000 --tables ./decisions

  # Validate config and tables without starting the server
  tabula run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.tablesDir, "tables", "", "override table directory")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and tables without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunOverrides(cfg)

	out := commandOutput(cmd)
	logger, err := newLogger(cfg, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		return dryRun(out, cfg, logger)
	}

	printBanner(out, cfg)
	ctx := cli.SetupSignalHandler()

	tracer, err := tracing.New(cfg.Telemetry.TracingConfig(Version))
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	collector := metrics.NewCollector(cfg.Telemetry.MetricsConfig(), nil)

	registry := manager.NewRegistry(logger)
	defer registry.Close()
	collector.RegisterTableGauge(func() float64 { return float64(registry.Len()) })

	mgr, err := manager.NewManager(cfg.Tables.ManagerConfig(), registry, logger)
	if err != nil {
		return cli.NewConfigError("tables", err.Error())
	}
	mgr.Loader().SetObserver(collector)
	if err := loadTables(ctx, mgr); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintf(out, "✓ Tables loaded (%d tables from %s)\n", registry.Len(), mgr.Dir())

	if err := mgr.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := mgr.Stop(); err != nil {
			logger.Warn("table manager stop failed", "error", err)
		}
	}()

	evaluator, err := engine.NewEvaluator(cfg.Engine.EvaluatorConfig(), logger)
	if err != nil {
		return cli.NewConfigError("engine", err.Error())
	}

	checker := health.New(0)
	checker.RegisterCheck("tables", health.TablesLoaded(registry.Len, 1))

	svcOpts := []service.Option{
		service.WithMetrics(collector),
		service.WithTracer(tracer),
		service.WithLogger(logger),
		service.WithMaxBatchSize(cfg.Server.MaxBatchSize),
	}

	if cfg.Evidence.Enabled {
		store, err := storage.Open(cfg.Evidence.StorageConfig(), logger)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open evidence storage: %w", err))
		}
		defer store.Close()

		rec := recorder.NewRecorder(store, cfg.Evidence.RecorderConfig(), logger)
		rec.SetObserver(collector)
		defer rec.Close()
		svcOpts = append(svcOpts, service.WithRecorder(rec))
		checker.RegisterCheck("evidence", health.StorageReachable(store))

		if cfg.Evidence.Retention.Schedule != "" {
			pruner := retention.NewPruner(store, cfg.Evidence.RetentionConfig(), logger)
			if err := pruner.Start(ctx); err != nil {
				logger.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					logger.Debug("evidence retention scheduler started", "next_pruning", next)
				}
			}
		}
		fmt.Fprintf(out, "✓ Evidence store initialized (%s)\n", cfg.Evidence.Backend)
	}

	svc := service.New(registry, evaluator, svcOpts...)

	srvOpts := []server.Option{
		server.WithHealth(checker),
		server.WithTracer(tracer),
		server.WithLogger(logger),
		server.WithVersion(Version, GitCommit, BuildDate),
	}
	if cfg.Telemetry.Metrics.Enabled {
		srvOpts = append(srvOpts, server.WithMetrics(collector, cfg.Telemetry.Metrics.Path))
	}
	srv := server.NewServer(&cfg.Server, svc, srvOpts...)

	fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func applyRunOverrides(cfg *config.Config) {
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.tablesDir != "" {
		cfg.Tables.Directory = runFlags.tablesDir
	}
}

// loadTables performs the initial load. Files that fail to compile are
// logged and skipped; any other failure aborts startup.
func loadTables(ctx context.Context, mgr *manager.Manager) error {
	err := mgr.Load(ctx)
	var lerrs manager.LoadErrors
	if errors.As(err, &lerrs) {
		for _, e := range lerrs {
			slog.Warn("table failed to load", "error", e)
		}
		return nil
	}
	return err
}

// dryRun validates the configuration and compiles every table once.
func dryRun(w io.Writer, cfg *config.Config, logger *slog.Logger) error {
	fmt.Fprintln(w, "✓ Configuration valid")
	if cfg.Tables.Git.Enabled {
		fmt.Fprintln(w, "  Git table source configured; tables not checked")
		return nil
	}

	loaded, err := manager.NewLoader(cfg.Tables.LoaderConfig(), logger).LoadDirectory(cfg.Tables.Directory, "")
	for _, ld := range loaded {
		ld.Table.Release()
	}
	var lerrs manager.LoadErrors
	switch {
	case errors.As(err, &lerrs):
		for _, e := range lerrs {
			fmt.Fprintf(w, "✗ %v\n", e)
		}
		return &cli.ValidationError{Files: len(loaded) + len(lerrs), Errors: len(lerrs)}
	case err != nil:
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintf(w, "✓ Tables valid (%d tables in %s)\n", len(loaded), cfg.Tables.Directory)
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Tabula v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	}
	fmt.Fprintln(w, "✓ Configuration loaded")

	if cfg.Tables.Git.Enabled {
		slog.Debug("table source", "mode", "git", "repository", cfg.Tables.Git.Repository)
	} else {
		slog.Debug("table source", "mode", "directory", "path", cfg.Tables.Directory, "watch", cfg.Tables.Watch)
	}
	if cfg.Evidence.Enabled {
		slog.Debug("evidence enabled", "backend", cfg.Evidence.Backend)
	}
}
