// Command tabula-lambda serves decision table evaluations from AWS Lambda
// behind an API Gateway HTTP API.
//
// Configuration comes from TABULA_* environment variables only. Tables are
// loaded once at cold start from TABULA_TABLES_DIRECTORY (usually a path
// inside the deployment package or a mounted layer); watching is disabled.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/service"
	"mercator-hq/tabula/pkg/evidence/recorder"
	"mercator-hq/tabula/pkg/evidence/storage"
	"mercator-hq/tabula/pkg/telemetry/logging"
	"mercator-hq/tabula/pkg/transport/lambdatransport"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Telemetry.LoggingConfig(os.Stderr))
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	registry := manager.NewRegistry(logger)
	mcfg := cfg.Tables.ManagerConfig()
	mcfg.Watch = false
	mgr, err := manager.NewManager(mcfg, registry, logger)
	if err != nil {
		log.Fatalf("tables: %v", err)
	}
	if err := mgr.Load(context.Background()); err != nil {
		var lerrs manager.LoadErrors
		if !errors.As(err, &lerrs) {
			log.Fatalf("tables: %v", err)
		}
		for _, e := range lerrs {
			logger.Warn("table failed to load", "error", e)
		}
	}
	logger.Info("tables loaded", "count", registry.Len())

	evaluator, err := engine.NewEvaluator(cfg.Engine.EvaluatorConfig(), logger)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMaxBatchSize(cfg.Server.MaxBatchSize),
	}
	if cfg.Evidence.Enabled {
		store, err := storage.Open(cfg.Evidence.StorageConfig(), logger)
		if err != nil {
			log.Fatalf("evidence: %v", err)
		}
		rec := recorder.NewRecorder(store, cfg.Evidence.RecorderConfig(), logger)
		defer rec.Close()
		opts = append(opts, service.WithRecorder(rec))
	}

	svc := service.New(registry, evaluator, opts...)
	h := lambdatransport.NewHandler(svc, logger)

	lambda.Start(h.Evaluate)
}
