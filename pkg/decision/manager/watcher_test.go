package manager

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNewFileWatcher_Defaults(t *testing.T) {
	w, err := NewFileWatcher(FileWatcherConfig{Path: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}
	defer func() { _ = w.Stop() }()

	if w.config.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce = %v, want 250ms", w.config.Debounce)
	}
	if len(w.config.Extensions) != 3 {
		t.Errorf("Extensions = %v, want loader defaults", w.config.Extensions)
	}
}

func TestNewFileWatcher_RequiresPath(t *testing.T) {
	if _, err := NewFileWatcher(FileWatcherConfig{}, nil); err == nil {
		t.Error("NewFileWatcher() error = nil, want error for empty path")
	}
}

func TestFileWatcher_Relevant(t *testing.T) {
	w := &FileWatcher{config: FileWatcherConfig{Extensions: []string{".yaml", ".json"}}}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"yaml write", fsnotify.Event{Name: "/t/a.yaml", Op: fsnotify.Write}, true},
		{"json create", fsnotify.Event{Name: "/t/a.JSON", Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: "/t/a.yaml", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "/t/a.yaml", Op: fsnotify.Chmod}, false},
		{"hidden file", fsnotify.Event{Name: "/t/.a.yaml.swp", Op: fsnotify.Write}, false},
		{"other extension", fsnotify.Event{Name: "/t/notes.txt", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestFileWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "discount.yaml", discountYAML)

	w, err := NewFileWatcher(FileWatcherConfig{Path: dir, Debounce: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop() }()

	reloaded := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = w.Watch(ctx, func() error {
			reloaded <- struct{}{}
			return nil
		})
	}()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "discount.yaml", discountYAML+"\n")
	writeFile(t, dir, "discount.yaml", discountYAML+"\n\n")

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("reload not triggered after file change")
	}

	// A new subdirectory is watched too.
	writeFile(t, dir, filepath.Join("nested", "other.yaml"), discountYAML)
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, filepath.Join("nested", "other.yaml"), discountYAML+"\n")

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("reload not triggered for file in new subdirectory")
	}
}

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	done := make(chan struct{}, 1)
	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			calls.Add(1)
			done <- struct{}{}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced callback never ran")
	}
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("callback ran %d times, want 1", n)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", n)
	}
}
