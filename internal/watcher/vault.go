package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// VaultWatcher watches a vault directory using fsnotify as the primary
// mechanism with polling as a fallback.
type VaultWatcher struct {
	fsWatcher      *fsnotify.Watcher
	pollWatcher    *PollingWatcher
	useFsnotify    bool
	debouncer      *Debouncer
	excludeDirs    map[string]bool
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	rootPath       string
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// NewVaultWatcher creates a new vault watcher with the given options.
// Attempts to use fsnotify first, falls back to polling if it fails.
func NewVaultWatcher(opts Options) (*VaultWatcher, error) {
	opts = opts.WithDefaults()

	exclude := make(map[string]bool, len(opts.ExcludeDirs))
	for _, dir := range opts.ExcludeDirs {
		exclude[dir] = true
	}

	w := &VaultWatcher{
		debouncer:   NewDebouncer(opts.DebounceWindow),
		excludeDirs: exclude,
		events:      make(chan []FileEvent, opts.EventBufferSize),
		errors:      make(chan error, 10),
		stopCh:      make(chan struct{}),
		opts:        opts,
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		w.fsWatcher = fsw
		w.useFsnotify = true
	} else {
		slog.Warn("fsnotify unavailable, falling back to polling",
			slog.String("error", err.Error()))
		w.useFsnotify = false
		w.pollWatcher = NewPollingWatcher(opts.PollInterval, exclude)
	}

	return w, nil
}

// Start begins watching the given vault directory.
// Blocks until the context is cancelled or Stop is called.
func (w *VaultWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.rootPath = absPath

	go w.forwardDebouncedEvents(ctx)

	if w.useFsnotify {
		return w.startFsnotify(ctx)
	}
	return w.startPolling(ctx)
}

// startFsnotify starts the fsnotify-based watcher.
func (w *VaultWatcher) startFsnotify(ctx context.Context) error {
	if err := w.addRecursive(w.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// startPolling starts the polling-based watcher.
func (w *VaultWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case event, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				if w.shouldIgnore(event.Path) {
					continue
				}
				if isConfigFile(event.Path) {
					event.Operation = OpConfigChange
				}
				w.debouncer.Add(event)
			case err, ok := <-w.pollWatcher.Errors():
				if !ok {
					return
				}
				w.emitError(err)
			}
		}
	}()

	return w.pollWatcher.Start(ctx, w.rootPath)
}

// handleFsnotifyEvent converts and filters fsnotify events.
func (w *VaultWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}
	relPath = filepath.ToSlash(relPath)

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if w.shouldIgnore(relPath) {
		return
	}

	if isConfigFile(relPath) {
		w.debouncer.Add(FileEvent{
			Path:      relPath,
			Operation: OpConfigChange,
			Timestamp: time.Now(),
		})
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		// Watch new directories as they appear
		if isDir {
			_ = w.fsWatcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		// fsnotify reports the old path on rename. The new path arrives
		// as a separate Create event, so the old path is a delete here.
		op = OpDelete
	case event.Op&fsnotify.Chmod != 0:
		return
	default:
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      relPath,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// forwardDebouncedEvents forwards debounced batches to the output channel.
func (w *VaultWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			w.emitEvents(events)
		}
	}
}

// addRecursive adds all non-excluded directories under root to fsnotify.
func (w *VaultWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if !d.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		if relPath == "." {
			return w.fsWatcher.Add(path)
		}

		if w.isExcludedDir(d.Name()) {
			return filepath.SkipDir
		}

		return w.fsWatcher.Add(path)
	})
}

// isExcludedDir checks a single directory name against the exclude set.
// Hidden directories are always excluded.
func (w *VaultWatcher) isExcludedDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return w.excludeDirs[name]
}

// shouldIgnore returns true if any segment of the path is excluded.
// The file itself may be hidden too (e.g. .DS_Store).
func (w *VaultWatcher) shouldIgnore(relPath string) bool {
	if relPath == "." || relPath == "" {
		return true
	}

	segments := strings.Split(relPath, "/")
	for i, segment := range segments {
		if i < len(segments)-1 {
			if w.isExcludedDir(segment) {
				return true
			}
			continue
		}
		// Last segment: a config file is hidden but must pass through
		if isConfigFile(relPath) {
			return false
		}
		if strings.HasPrefix(segment, ".") || w.excludeDirs[segment] {
			return true
		}
	}
	return false
}

// isConfigFile reports whether the path is a vault-level config file.
// The ignore file counts: changing it must trigger a rescan.
func isConfigFile(relPath string) bool {
	base := filepath.Base(relPath)
	return base == ".vaultmcp.yaml" || base == ".vaultmcp.yml" || base == ".vaultignore"
}

// emitEvents sends a batch to the output channel.
func (w *VaultWatcher) emitEvents(events []FileEvent) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()

	if stopped {
		return
	}

	select {
	case w.events <- events:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(events)),
			slog.Uint64("total_dropped_batches", count),
		)
	}
}

// DroppedBatches returns the number of batches dropped due to buffer overflow.
func (w *VaultWatcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

// emitError sends an error to the error channel.
func (w *VaultWatcher) emitError(err error) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()

	if stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources.
// Safe to call multiple times.
func (w *VaultWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopCh)

	w.debouncer.Stop()

	if w.useFsnotify && w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}

	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of batched file events.
func (w *VaultWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns the channel of errors.
func (w *VaultWatcher) Errors() <-chan error {
	return w.errors
}

// WatcherType returns the mechanism in use ("fsnotify" or "polling").
func (w *VaultWatcher) WatcherType() string {
	if w.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}
