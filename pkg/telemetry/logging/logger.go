package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat selects the slog handler.
type LogFormat string

// Log formats. Console is text without timestamps, for the CLI.
const (
	FormatJSON    LogFormat = "json"
	FormatText    LogFormat = "text"
	FormatConsole LogFormat = "console"
)

// Config selects the level, handler and destination of a logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text, console

	AddSource bool

	// DisableRedaction logs credential-looking values as they are.
	DisableRedaction bool

	// Writer defaults to os.Stdout.
	Writer io.Writer
}

// New builds a logger from cfg. Credential-looking attribute values are
// redacted unless DisableRedaction is set.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}
	if !cfg.DisableRedaction {
		opts.ReplaceAttr = NewRedactor().ReplaceAttr
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	case FormatConsole:
		// Console drops the timestamp; the terminal already orders lines.
		opts.ReplaceAttr = chain(opts.ReplaceAttr, dropTime)
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(handler), nil
}

// Discard returns a logger that writes nothing.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

var levels = map[string]slog.Level{
	"":        slog.LevelInfo,
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel maps a case-insensitive level name to a slog.Level. Empty
// means info.
func ParseLevel(name string) (slog.Level, error) {
	if l, ok := levels[strings.ToLower(name)]; ok {
		return l, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
}

func parseFormat(name string) (LogFormat, error) {
	switch f := LogFormat(strings.ToLower(name)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatText, FormatConsole:
		return f, nil
	}
	return FormatJSON, fmt.Errorf("unknown log format: %s", name)
}

type replaceFunc func(groups []string, a slog.Attr) slog.Attr

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

func chain(fns ...replaceFunc) replaceFunc {
	return func(groups []string, a slog.Attr) slog.Attr {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			a = fn(groups, a)
			if a.Key == "" {
				return a
			}
		}
		return a
	}
}
