package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	vaulterrors "github.com/noteworks/vaultmcp/internal/errors"
	"github.com/noteworks/vaultmcp/internal/store"
	"github.com/noteworks/vaultmcp/internal/vault"
	"github.com/noteworks/vaultmcp/internal/watcher"
)

// State describes what the coordinator is currently doing.
type State string

const (
	StateInitializing State = "initializing"
	StateScanning     State = "scanning"
	StateWatching     State = "watching"
	StateStopped      State = "stopped"
)

// CoordinatorConfig contains configuration for the Coordinator.
type CoordinatorConfig struct {
	// VaultPath is the absolute path to the vault root.
	VaultPath string

	// Reader loads documents from the vault.
	Reader *vault.Reader

	// Scanner enumerates notes for full scans.
	Scanner *vault.Scanner

	// Reconciler applies changes to the stores.
	Reconciler *Reconciler

	// Metadata is the scan state store.
	Metadata store.MetadataStore

	// Vectors is the vector store, held for persistence between scans.
	Vectors store.VectorStore

	// VectorPath is where the vector store is saved after reconciling.
	// Empty disables persistence (tests).
	VectorPath string

	// ScanWorkers bounds full-scan parallelism. Defaults to NumCPU.
	ScanWorkers int

	// MaxFileSize is the largest note to index in bytes.
	MaxFileSize int64
}

// ScanStats summarizes a full scan.
type ScanStats struct {
	Scanned   int // Paths visited
	Indexed   int // New or modified documents reconciled
	Unchanged int
	Removed   int // Tracked paths no longer on disk
	Failed    int // Paths skipped this cycle due to errors
	Duration  time.Duration
}

// Coordinator drives the pipeline: full scans at startup and debounced
// watch events afterwards, with per-path serialization and bounded
// cross-path parallelism.
type Coordinator struct {
	config CoordinatorConfig
	locks  *pathLocks
	retry  vaulterrors.RetryConfig
	state  atomic.Value // State

	// dropCheckInterval bounds how long a dropped event batch can leave
	// the index stale before the watch loop rescans.
	dropCheckInterval time.Duration
}

// defaultDropCheckInterval is how often the watch loop looks for
// dropped batches when no events are arriving.
const defaultDropCheckInterval = 30 * time.Second

// NewCoordinator creates a new coordinator.
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	if config.ScanWorkers <= 0 {
		config.ScanWorkers = runtime.NumCPU()
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = vault.DefaultMaxFileSize
	}

	c := &Coordinator{
		config:            config,
		locks:             newPathLocks(),
		retry:             vaulterrors.DefaultRetryConfig(),
		dropCheckInterval: defaultDropCheckInterval,
	}
	c.state.Store(StateInitializing)
	return c
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	return c.state.Load().(State)
}

// Initialize recovers scan state before the first scan. If file records
// were lost but chunks survived, they are rebuilt from the chunks table
// with empty hashes so every rebuilt path re-indexes on the next scan.
func (c *Coordinator) Initialize(ctx context.Context) error {
	files, err := c.config.Metadata.CountFiles(ctx)
	if err != nil {
		return vaulterrors.StoreUnavailableError("failed to read scan state", err)
	}
	chunks, err := c.config.Metadata.CountChunks(ctx)
	if err != nil {
		return vaulterrors.StoreUnavailableError("failed to read scan state", err)
	}

	if files == 0 && chunks > 0 {
		rebuilt, err := c.config.Metadata.RebuildFileRecords(ctx)
		if err != nil {
			return vaulterrors.StoreWriteError("failed to rebuild scan state", err)
		}
		slog.Info("scan state rebuilt from chunks",
			slog.Int("files", rebuilt),
			slog.Int("chunks", chunks))
	}

	return nil
}

// FullScan reconciles every note under the vault root and removes
// tracked paths that no longer exist on disk. Per-path errors are
// logged and skipped; they never abort the scan.
func (c *Coordinator) FullScan(ctx context.Context) (*ScanStats, error) {
	start := time.Now()
	// Restore the caller's state afterwards: a one-shot scan must not
	// end up reporting "watching".
	prev := c.State()
	c.state.Store(StateScanning)
	defer c.state.Store(prev)

	results, err := c.config.Scanner.Scan(ctx, &vault.ScanOptions{
		RootDir:     c.config.VaultPath,
		MaxFileSize: c.config.MaxFileSize,
	})
	if err != nil {
		return nil, vaulterrors.ConfigError("failed to scan vault", err)
	}

	stats := &ScanStats{}
	var mu sync.Mutex
	seen := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.ScanWorkers)

	for result := range results {
		if result.Error != nil {
			slog.Warn("scan error", slog.String("error", result.Error.Error()))
			continue
		}

		relPath := result.File.Path
		mu.Lock()
		seen[relPath] = true
		stats.Scanned++
		mu.Unlock()

		g.Go(func() error {
			class, err := c.reconcilePath(gctx, relPath)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				slog.Warn("failed to reconcile path",
					slog.String("path", relPath),
					slog.Any("error", vaulterrors.FormatForLog(err)))
			case class == Unchanged:
				stats.Unchanged++
			default:
				stats.Indexed++
			}
			return nil
		})
	}

	_ = g.Wait()

	// Tracked paths absent from the scan are deletions.
	removed, err := c.removeMissing(ctx, seen)
	if err != nil {
		slog.Warn("failed to remove missing paths", slog.String("error", err.Error()))
	}
	stats.Removed = removed

	if err := c.config.Metadata.SetState(ctx, store.StateKeyLastFullScan,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		slog.Warn("failed to record scan time", slog.String("error", err.Error()))
	}

	c.saveVectors()

	stats.Duration = time.Since(start)
	slog.Info("full scan complete",
		slog.Int("scanned", stats.Scanned),
		slog.Int("indexed", stats.Indexed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("removed", stats.Removed),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// removeMissing deletes tracked paths that were not seen on disk.
func (c *Coordinator) removeMissing(ctx context.Context, seen map[string]bool) (int, error) {
	tracked, err := c.config.Metadata.AllFiles(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, file := range tracked {
		if seen[file.Path] {
			continue
		}
		c.locks.Lock(file.Path)
		err := c.config.Reconciler.RemoveDocument(ctx, file.Path)
		c.locks.Unlock(file.Path)
		if err != nil {
			slog.Warn("failed to remove deleted path",
				slog.String("path", file.Path),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	return removed, nil
}

// reconcilePath classifies one path and applies the result.
// All reconciliation for a path runs under its lock.
func (c *Coordinator) reconcilePath(ctx context.Context, relPath string) (Classification, error) {
	c.locks.Lock(relPath)
	defer c.locks.Unlock(relPath)

	record, err := c.config.Metadata.GetFile(ctx, relPath)
	if err != nil {
		return Unchanged, vaulterrors.StoreUnavailableError("failed to read scan state", err)
	}

	absPath := filepath.Join(c.config.VaultPath, filepath.FromSlash(relPath))

	var doc *vault.Document
	exists := false
	hash := ""
	if _, statErr := os.Lstat(absPath); statErr == nil {
		doc, err = c.config.Reader.Read(relPath)
		if err != nil {
			// ReadError: skip this cycle, retried next scan
			return Unchanged, err
		}
		exists = true
		hash = doc.Hash
	}

	class := Classify(record, exists, hash)
	switch class {
	case Unchanged:
		return class, nil
	case New, Modified:
		// Transient store failures are retried in place. A document
		// that still fails is picked up again by the next scan.
		return class, vaulterrors.Retry(ctx, c.retry, func() error {
			return c.config.Reconciler.IndexDocument(ctx, doc)
		})
	case Deleted:
		return class, vaulterrors.Retry(ctx, c.retry, func() error {
			return c.config.Reconciler.RemoveDocument(ctx, relPath)
		})
	default:
		return class, nil
	}
}

// EventSource is the watcher surface the watch loop consumes.
type EventSource interface {
	Events() <-chan []watcher.FileEvent
	Errors() <-chan error
	DroppedBatches() uint64
}

// Watch consumes debounced event batches until the context is
// cancelled. In-flight reconciliations always run to completion.
// Batches the watcher had to drop are healed with a catch-up full
// scan, checked after every batch and on a timer so a drop during a
// quiet period does not leave the index stale.
func (c *Coordinator) Watch(ctx context.Context, w EventSource) error {
	c.state.Store(StateWatching)
	defer c.state.Store(StateStopped)

	ticker := time.NewTicker(c.dropCheckInterval)
	defer ticker.Stop()

	var healed uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			c.HandleEvents(ctx, batch)
			healed = c.healDroppedBatches(ctx, w, healed)
		case <-ticker.C:
			healed = c.healDroppedBatches(ctx, w, healed)
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// healDroppedBatches rescans when the watcher dropped batches since
// the last check. A dropped batch means unknown paths changed, so only
// a full scan restores consistency. Returns the drop count accounted
// for; a failed scan leaves it unchanged so the next check retries.
func (c *Coordinator) healDroppedBatches(ctx context.Context, w EventSource, healed uint64) uint64 {
	dropped := w.DroppedBatches()
	if dropped == healed {
		return healed
	}

	slog.Warn("watcher dropped event batches, running catch-up scan",
		slog.Uint64("dropped", dropped-healed))
	if _, err := c.FullScan(ctx); err != nil {
		slog.Warn("catch-up scan failed",
			slog.Any("error", vaulterrors.FormatForLog(err)))
		return healed
	}
	return dropped
}

// HandleEvents processes a batch of debounced file events. Per-event
// errors are logged and the rest of the batch proceeds.
func (c *Coordinator) HandleEvents(ctx context.Context, events []watcher.FileEvent) {
	// Reload the ignore file per batch so event handling and full
	// scans agree on what is indexable.
	ignore, err := vault.LoadIgnoreFile(c.config.VaultPath)
	if err != nil {
		slog.Warn("failed to load ignore file", slog.String("error", err.Error()))
		ignore = vault.NewIgnoreMatcher()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.ScanWorkers)

	for _, event := range events {
		g.Go(func() error {
			if err := c.handleEvent(gctx, event, ignore); err != nil {
				slog.Warn("failed to process file event",
					slog.String("path", event.Path),
					slog.String("operation", event.Operation.String()),
					slog.Any("error", vaulterrors.FormatForLog(err)))
			}
			return nil
		})
	}
	_ = g.Wait()

	c.saveVectors()
}

// handleEvent processes a single file event.
func (c *Coordinator) handleEvent(ctx context.Context, event watcher.FileEvent, ignore *vault.IgnoreMatcher) error {
	slog.Debug("processing file event",
		slog.String("path", event.Path),
		slog.String("operation", event.Operation.String()),
		slog.Bool("is_dir", event.IsDir))

	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		if event.IsDir || !vault.IsNotePath(event.Path) {
			return nil
		}
		if ignore.Match(event.Path, false) {
			return nil
		}
		_, err := c.reconcilePath(ctx, event.Path)
		return err

	case watcher.OpDelete:
		if vault.IsNotePath(event.Path) {
			_, err := c.reconcilePath(ctx, event.Path)
			return err
		}
		// A deleted directory arrives as a single event for its path.
		// Remove everything tracked beneath it.
		return c.removeSubtree(ctx, event.Path)

	case watcher.OpConfigChange:
		slog.Info("vault config changed, rescanning")
		_, err := c.FullScan(ctx)
		return err

	default:
		return nil
	}
}

// removeSubtree removes all tracked paths under a directory prefix.
func (c *Coordinator) removeSubtree(ctx context.Context, prefix string) error {
	tracked, err := c.config.Metadata.AllFiles(ctx)
	if err != nil {
		return vaulterrors.StoreUnavailableError("failed to read scan state", err)
	}

	for _, file := range tracked {
		if file.Path != prefix && !strings.HasPrefix(file.Path, prefix+"/") {
			continue
		}
		c.locks.Lock(file.Path)
		err := c.config.Reconciler.RemoveDocument(ctx, file.Path)
		c.locks.Unlock(file.Path)
		if err != nil {
			slog.Warn("failed to remove path under deleted directory",
				slog.String("path", file.Path),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// saveVectors persists the vector store if a path is configured.
// The metadata and keyword stores persist their own writes.
func (c *Coordinator) saveVectors() {
	if c.config.VectorPath == "" {
		return
	}
	if err := c.config.Vectors.Save(c.config.VectorPath); err != nil {
		slog.Warn("failed to save vector store",
			slog.String("path", c.config.VectorPath),
			slog.String("error", err.Error()))
	}
}

// Status describes the index for the index_status operation.
type Status struct {
	VaultPath    string    `json:"vault_path"`
	State        string    `json:"state"`
	FileCount    int       `json:"file_count"`
	ChunkCount   int       `json:"chunk_count"`
	LastFullScan time.Time `json:"last_full_scan,omitzero"`
}

// Status reports current index counts and coordinator state.
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	files, err := c.config.Metadata.CountFiles(ctx)
	if err != nil {
		return nil, vaulterrors.StoreUnavailableError("failed to count files", err)
	}
	chunks, err := c.config.Metadata.CountChunks(ctx)
	if err != nil {
		return nil, vaulterrors.StoreUnavailableError("failed to count chunks", err)
	}

	status := &Status{
		VaultPath:  c.config.VaultPath,
		State:      string(c.State()),
		FileCount:  files,
		ChunkCount: chunks,
	}

	if raw, err := c.config.Metadata.GetState(ctx, store.StateKeyLastFullScan); err == nil && raw != "" {
		if t, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			status.LastFullScan = t
		}
	}

	return status, nil
}
