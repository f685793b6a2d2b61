// Package logging builds the process-wide slog logger.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON, text, and console output formats
//   - Configurable log levels (debug, info, warn, error)
//   - Redaction of credential-bearing attributes (dsn, password, token)
//   - Request-scoped loggers carrying request_id and table
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	ctx = logging.WithTable(ctx, "discount")
//	logging.FromContext(ctx, logger).Info("Batch evaluated", "records", 12)
//
// # Redaction
//
// Attribute values whose key names a credential are replaced before they
// reach the handler:
//
//   - password, secret, token: ****
//   - dsn and url values: the userinfo password becomes ****
package logging
