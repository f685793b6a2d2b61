package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Config configures a Manager.
type Config struct {
	// Directory holding table files. Ignored when Git is set; the checkout
	// directory is used instead.
	Directory string

	// Loader settings.
	Loader *LoaderConfig

	// Watch reloads on file changes.
	Watch bool

	// Debounce is the file watcher quiet period.
	Debounce time.Duration

	// Git enables the Git source.
	Git *GitConfig
}

// Manager keeps a Registry in sync with a table source.
type Manager struct {
	config   *Config
	registry *Registry
	loader   *Loader
	git      *GitSource
	logger   *slog.Logger

	mu      sync.Mutex
	managed map[string]string // table name -> source path

	watcher *FileWatcher
	cron    *cron.Cron
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a manager that loads into registry.
func NewManager(config *Config, registry *Registry, logger *slog.Logger) (*Manager, error) {
	if config == nil {
		return nil, errors.New("manager config is required")
	}
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if config.Directory == "" && config.Git == nil {
		return nil, errors.New("either a table directory or a git source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		config:   config,
		registry: registry,
		loader:   NewLoader(config.Loader, logger),
		logger:   logger.With("component", "manager"),
		managed:  make(map[string]string),
	}
	if config.Git != nil {
		g, err := NewGitSource(*config.Git, logger)
		if err != nil {
			return nil, err
		}
		m.git = g
	}
	return m, nil
}

// Loader returns the manager's loader.
func (m *Manager) Loader() *Loader {
	return m.loader
}

// Registry returns the managed registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Dir returns the directory tables are loaded from.
func (m *Manager) Dir() string {
	if m.git != nil {
		return m.git.Dir()
	}
	return m.config.Directory
}

// Load performs the initial load, syncing the Git source first when one is
// configured.
func (m *Manager) Load(ctx context.Context) error {
	if m.git != nil {
		if _, _, err := m.git.Sync(ctx); err != nil {
			return fmt.Errorf("initial git sync failed: %w", err)
		}
	}
	return m.Reload()
}

// Reload loads every table file and swaps the results into the registry.
// Tables whose file failed to load keep their previous version; tables whose
// file disappeared are removed.
func (m *Manager) Reload() error {
	version := ""
	if m.git != nil {
		version = shortSHA(m.git.Head())
	}

	start := time.Now()
	loaded, loadErr := m.loader.LoadDirectory(m.Dir(), version)

	var lerrs LoadErrors
	if loadErr != nil && !errors.As(loadErr, &lerrs) {
		return loadErr
	}
	failed := make(map[string]bool, len(lerrs))
	for _, err := range lerrs {
		var le *LoadError
		if errors.As(err, &le) {
			failed[le.FilePath] = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, updated, err := m.install(loaded)
	if err != nil {
		return err
	}

	removed := 0
	for name, path := range m.managed {
		if _, ok := current[name]; ok {
			continue
		}
		if failed[path] {
			current[name] = path
			continue
		}
		if err := m.registry.Remove(name); err == nil {
			removed++
		}
	}
	m.managed = current

	m.logger.Info("Tables reloaded",
		"dir", m.Dir(),
		"tables", len(current),
		"updated", updated,
		"removed", removed,
		"failed", len(lerrs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if len(lerrs) > 0 {
		return lerrs
	}
	return nil
}

// Start begins watching the source in the background. It returns
// immediately; Stop ends the background work.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.git != nil {
		c := cron.New()
		_, err := c.AddFunc(m.config.Git.PollSchedule, func() {
			m.poll(ctx)
		})
		if err != nil {
			cancel()
			return fmt.Errorf("invalid git poll schedule %q: %w", m.config.Git.PollSchedule, err)
		}
		c.Start()
		m.cron = c
		m.logger.Info("Git polling started", "schedule", m.config.Git.PollSchedule)
	}

	if m.config.Watch && m.git == nil {
		w, err := NewFileWatcher(FileWatcherConfig{
			Path:       m.config.Directory,
			Debounce:   m.config.Debounce,
			Extensions: m.loader.config.Extensions,
		}, m.logger)
		if err != nil {
			cancel()
			return err
		}
		m.watcher = w
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := w.Watch(ctx, m.Reload); err != nil {
				m.logger.Error("File watcher exited", "error", err)
			}
		}()
	}
	return nil
}

func (m *Manager) poll(ctx context.Context) {
	sha, changed, err := m.git.Sync(ctx)
	if err != nil {
		m.logger.Error("Git poll failed", "error", err)
		return
	}
	if !changed {
		return
	}
	m.logger.Info("Git source changed, reloading", "commit", shortSHA(sha))
	if err := m.Reload(); err != nil {
		m.logger.Error("Table reload failed", "error", err)
	}
}

// Stop ends background watching and polling.
func (m *Manager) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	var err error
	if m.watcher != nil {
		err = m.watcher.Stop()
	}
	m.wg.Wait()
	return err
}

// install hands loaded tables to the registry and returns the name to
// source map of everything loaded. A table whose version is already
// registered is released instead. Every table is either owned by the
// registry or released on return, including after a failed Put.
func (m *Manager) install(loaded []*Loaded) (map[string]string, int, error) {
	current := make(map[string]string, len(loaded))
	updated := 0
	for i, ld := range loaded {
		current[ld.Info.Name] = ld.Info.Source
		if prev, ok := m.registry.Get(ld.Info.Name); ok && prev.Version == ld.Info.Version && prev.Source == ld.Info.Source {
			ld.Table.Release()
			continue
		}
		if err := m.registry.Put(ld.Table, ld.Info); err != nil {
			for _, rest := range loaded[i+1:] {
				rest.Table.Release()
			}
			return nil, updated, err
		}
		updated++
	}
	return current, updated, nil
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
