package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcherConfig contains configuration for the file watcher.
type FileWatcherConfig struct {
	// Path is the table file or directory to watch.
	Path string

	// Debounce is the quiet period after the last change before a reload.
	// Default: 250ms.
	Debounce time.Duration

	// Extensions lists the file extensions that trigger reloads.
	Extensions []string
}

// FileWatcher reloads tables when schema files under a directory change.
// Bursts of events (editors writing temp files, git checkouts) collapse into
// a single reload through a Debouncer.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	config   FileWatcherConfig
	debounce *Debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFileWatcher creates a watcher. It does not watch anything until Watch is called.
func NewFileWatcher(config FileWatcherConfig, logger *slog.Logger) (*FileWatcher, error) {
	if config.Path == "" {
		return nil, errors.New("watch path is required")
	}
	if config.Debounce <= 0 {
		config.Debounce = 250 * time.Millisecond
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultLoaderConfig().Extensions
	}
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		watcher:  w,
		config:   config,
		debounce: NewDebouncer(config.Debounce),
		logger:   logger.With("component", "watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called, invoking onChange
// after each debounced burst of relevant file events.
func (fw *FileWatcher) Watch(ctx context.Context, onChange func() error) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return errors.New("watcher already running")
	}
	fw.running = true
	fw.mu.Unlock()
	defer close(fw.doneCh)

	if err := fw.addTree(fw.config.Path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", fw.config.Path, err)
	}
	fw.logger.Info("File watcher started",
		"path", fw.config.Path,
		"debounce_ms", fw.config.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("File watcher stopped (context cancelled)")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("File watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addTree(event.Name); err != nil {
						fw.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !fw.relevant(event) {
				continue
			}

			fw.logger.Debug("Table file event", "path", event.Name, "op", event.Op.String())
			fw.debounce.Trigger(func() {
				fw.logger.Info("Reloading tables", "trigger", event.Name)
				if err := onChange(); err != nil {
					fw.logger.Error("Table reload failed", "error", err)
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			fw.logger.Error("File watcher error", "error", err)
		}
	}
}

// Stop stops a running watcher and releases its resources.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	running := fw.running
	fw.running = false
	fw.mu.Unlock()

	if running {
		close(fw.stopCh)
		<-fw.doneCh
	}
	fw.debounce.Stop()
	return fw.watcher.Close()
}

func (fw *FileWatcher) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fw.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range fw.config.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Debouncer runs the most recently triggered callback once no trigger has
// arrived for the configured interval.
type Debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

// NewDebouncer creates a debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	cb := d.callback
	d.callback = nil
	stopped := d.stopped
	d.mu.Unlock()

	if cb != nil && !stopped {
		cb()
	}
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
