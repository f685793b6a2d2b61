// Package config provides configuration management for Tabula.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("tabula.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("tabula.yaml")
//
//  3. From the environment only (no file, e.g. in AWS Lambda):
//     cfg, err := config.LoadFromEnv()
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TABULA_SECTION_FIELD:
//
//   - TABULA_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - TABULA_TABLES_DIRECTORY overrides tables.directory
//   - TABULA_EVIDENCE_POSTGRES_DSN overrides evidence.postgres.dsn
//   - TABULA_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
//	if err := config.Initialize("tabula.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// # Component Configs
//
// Each section converts into the configuration type of the package it
// drives (EngineConfig, LoaderConfig, storage.Config, recorder.Config,
// retention.Config, logging.Config, metrics.Config, tracing.Config), so
// commands never translate fields by hand.
package config
