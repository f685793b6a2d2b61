package manager

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/schema"
)

// LoaderConfig contains configuration for the table loader.
type LoaderConfig struct {
	// Extensions lists the schema file extensions to load.
	Extensions []string

	// MaxFileSize is the largest schema file accepted, in bytes.
	MaxFileSize int64

	// SkipHidden skips files and directories whose name starts with a dot.
	SkipHidden bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		Extensions:  []string{".yaml", ".yml", ".json"},
		MaxFileSize: 10 * 1024 * 1024,
		SkipHidden:  true,
	}
}

// CompileObserver is notified of every compile attempt.
type CompileObserver interface {
	ObserveCompile(table string, duration time.Duration, err error)
}

// Loaded is a compiled table together with its metadata.
type Loaded struct {
	Table *engine.Table
	Info  TableInfo
}

// Loader reads schema files and compiles them.
type Loader struct {
	config   *LoaderConfig
	logger   *slog.Logger
	observer CompileObserver
}

// NewLoader creates a loader. A nil config uses DefaultLoaderConfig.
func NewLoader(config *LoaderConfig, logger *slog.Logger) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		config: config,
		logger: logger.With("component", "loader"),
	}
}

// SetObserver sets the compile observer.
func (l *Loader) SetObserver(o CompileObserver) {
	l.observer = o
}

// LoadFile loads and compiles one schema file. An empty version is replaced
// by a hash of the file content.
func (l *Loader) LoadFile(path, version string) (*Loaded, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if l.config.MaxFileSize > 0 && info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}
	format, err := schema.FormatFromPath(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "unsupported file type", Cause: err}
	}
	src, err := schema.Parse(data, format)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to parse schema", Cause: err}
	}
	if src.Name == "" {
		base := filepath.Base(path)
		src.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if version == "" {
		sum := sha256.Sum256(data)
		version = hex.EncodeToString(sum[:6])
	}

	start := time.Now()
	table, err := engine.Compile(src, engine.WithLogger(l.logger))
	if l.observer != nil {
		l.observer.ObserveCompile(src.Name, time.Since(start), err)
	}
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to compile table", Cause: err}
	}

	ti := NewTableInfo(table, version, path)
	ti.Description = src.Description
	if n := len(table.Diagnostics()); n > 0 {
		l.logger.Warn("Table compiled with tolerances",
			"table", src.Name,
			"path", path,
			"diagnostics", n,
		)
	}
	return &Loaded{Table: table, Info: ti}, nil
}

// LoadDirectory loads every schema file under dir in path order. Files that
// fail are reported in the returned LoadErrors; the others are still
// returned. When two files declare the same table name the first one wins.
func (l *Loader) LoadDirectory(dir, version string) ([]*Loaded, error) {
	paths, err := l.listFiles(dir)
	if err != nil {
		return nil, err
	}

	var (
		loaded []*Loaded
		errs   LoadErrors
		seen   = make(map[string]string)
	)
	for _, path := range paths {
		ld, err := l.LoadFile(path, version)
		if err != nil {
			l.logger.Error("Table load failed", "path", path, "error", err)
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[ld.Info.Name]; dup {
			ld.Table.Release()
			errs = append(errs, &LoadError{
				FilePath: path,
				Message:  fmt.Sprintf("table %q already defined in %s", ld.Info.Name, prev),
			})
			continue
		}
		seen[ld.Info.Name] = path
		loaded = append(loaded, ld)
	}

	if len(errs) > 0 {
		return loaded, errs
	}
	return loaded, nil
}

func (l *Loader) listFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "directory not found", Cause: err}
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		hidden := strings.HasPrefix(d.Name(), ".") && path != dir
		if d.IsDir() {
			if hidden && l.config.SkipHidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden && l.config.SkipHidden {
			return nil
		}
		if l.hasExtension(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}
	sort.Strings(paths)
	return paths, nil
}

func (l *Loader) hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.config.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
