package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteworks/vaultmcp/internal/chunk"
	"github.com/noteworks/vaultmcp/internal/embed"
	"github.com/noteworks/vaultmcp/internal/store"
	"github.com/noteworks/vaultmcp/internal/vault"
	"github.com/noteworks/vaultmcp/internal/watcher"
)

type pipelineFixture struct {
	vaultDir string
	meta     *store.SQLiteMetadataStore
	vectors  *store.HNSWStore
	keywords *store.BleveKeywordIndex
	coord    *Coordinator
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	vaultDir := t.TempDir()

	meta, err := store.NewSQLiteMetadataStore("", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	keywords, err := store.NewBleveKeywordIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = keywords.Close() })

	chunker, err := chunk.NewChunker(100, 20)
	require.NoError(t, err)

	rec := NewReconciler(meta, vectors, keywords, embedder, chunker)

	coord := NewCoordinator(CoordinatorConfig{
		VaultPath:  vaultDir,
		Reader:     vault.NewReader(vaultDir, 0),
		Scanner:    vault.NewScanner(nil),
		Reconciler: rec,
		Metadata:   meta,
		Vectors:    vectors,
	})

	return &pipelineFixture{
		vaultDir: vaultDir,
		meta:     meta,
		vectors:  vectors,
		keywords: keywords,
		coord:    coord,
	}
}

func (f *pipelineFixture) writeNote(t *testing.T, relPath, content string) {
	t.Helper()
	abs := filepath.Join(f.vaultDir, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestCoordinator_FullScanIndexesVault(t *testing.T) {
	// Given: a vault with three notes, one of them long
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "alpha.md", "First note about project planning")
	f.writeNote(t, "projects/beta.md", strings.Repeat("b", 250))
	f.writeNote(t, "projects/gamma.md", "Third note")

	// When: a full scan runs
	stats, err := f.coord.FullScan(ctx)
	require.NoError(t, err)

	// Then: everything is indexed and counted
	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 3, stats.Indexed)
	assert.Equal(t, 0, stats.Unchanged)
	assert.Equal(t, 0, stats.Failed)

	files, err := f.meta.CountFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, files)

	chunks, err := f.meta.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, chunks) // 1 + 3 + 1
	assert.Equal(t, 5, f.vectors.Count())
}

func TestCoordinator_SecondScanIsAllUnchanged(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "a.md", "note a")
	f.writeNote(t, "b.md", "note b")

	_, err := f.coord.FullScan(ctx)
	require.NoError(t, err)

	stats, err := f.coord.FullScan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 0, stats.Indexed)
	assert.Equal(t, 2, stats.Unchanged)
}

func TestCoordinator_RescanPicksUpEdits(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "a.md", "original")
	f.writeNote(t, "b.md", "untouched")

	_, err := f.coord.FullScan(ctx)
	require.NoError(t, err)

	f.writeNote(t, "a.md", "edited content")

	stats, err := f.coord.FullScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 1, stats.Unchanged)

	records, err := f.meta.GetChunksByPath(ctx, "a.md")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "edited content", records[0].Content)
}

func TestCoordinator_RescanRemovesDeletedFiles(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "keep.md", "stays")
	f.writeNote(t, "gone.md", "will be deleted")

	_, err := f.coord.FullScan(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.vaultDir, "gone.md")))

	stats, err := f.coord.FullScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)

	file, err := f.meta.GetFile(ctx, "gone.md")
	require.NoError(t, err)
	assert.Nil(t, file)

	file, err = f.meta.GetFile(ctx, "keep.md")
	require.NoError(t, err)
	assert.NotNil(t, file)
}

func TestCoordinator_HandleEventsCreateModifyDelete(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	// Create
	f.writeNote(t, "note.md", "created")
	f.coord.HandleEvents(ctx, []watcher.FileEvent{
		{Path: "note.md", Operation: watcher.OpCreate, Timestamp: time.Now()},
	})

	file, err := f.meta.GetFile(ctx, "note.md")
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, 1, file.ChunkCount)

	// Modify
	f.writeNote(t, "note.md", strings.Repeat("m", 250))
	f.coord.HandleEvents(ctx, []watcher.FileEvent{
		{Path: "note.md", Operation: watcher.OpModify, Timestamp: time.Now()},
	})

	file, err = f.meta.GetFile(ctx, "note.md")
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, 3, file.ChunkCount)

	// Delete
	require.NoError(t, os.Remove(filepath.Join(f.vaultDir, "note.md")))
	f.coord.HandleEvents(ctx, []watcher.FileEvent{
		{Path: "note.md", Operation: watcher.OpDelete, Timestamp: time.Now()},
	})

	file, err = f.meta.GetFile(ctx, "note.md")
	require.NoError(t, err)
	assert.Nil(t, file)
	assert.Equal(t, 0, f.vectors.Count())
}

func TestCoordinator_HandleEventsIgnoresNonNotes(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.writeNote(t, "image.png", "binary-ish")
	f.coord.HandleEvents(ctx, []watcher.FileEvent{
		{Path: "image.png", Operation: watcher.OpCreate, Timestamp: time.Now()},
	})

	files, err := f.meta.CountFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, files)
}

func TestCoordinator_DeletedDirectoryRemovesSubtree(t *testing.T) {
	// Given: an indexed vault with a subdirectory
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "top.md", "top level")
	f.writeNote(t, "projects/a.md", "project a")
	f.writeNote(t, "projects/deep/b.md", "project b")

	_, err := f.coord.FullScan(ctx)
	require.NoError(t, err)

	// When: the directory is removed and its delete event arrives
	require.NoError(t, os.RemoveAll(filepath.Join(f.vaultDir, "projects")))
	f.coord.HandleEvents(ctx, []watcher.FileEvent{
		{Path: "projects", Operation: watcher.OpDelete, Timestamp: time.Now()},
	})

	// Then: only the subtree is gone
	files, err := f.meta.AllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "top.md", files[0].Path)
}

func TestCoordinator_SubtreePrefixDoesNotMatchSiblings(t *testing.T) {
	// "projects" must not remove "projects-archive"
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "projects/a.md", "inside")
	f.writeNote(t, "projects-archive/b.md", "sibling")

	_, err := f.coord.FullScan(ctx)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(f.vaultDir, "projects")))
	require.NoError(t, f.coord.removeSubtree(ctx, "projects"))

	files, err := f.meta.AllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "projects-archive/b.md", files[0].Path)
}

func TestCoordinator_InitializeRebuildsLostFileRecords(t *testing.T) {
	// Given: chunks survived but file records were lost
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "a.md", "note a")
	f.writeNote(t, "b.md", "note b")
	_, err := f.coord.FullScan(ctx)
	require.NoError(t, err)

	require.NoError(t, f.meta.DeleteFile(ctx, "a.md"))
	require.NoError(t, f.meta.DeleteFile(ctx, "b.md"))

	// When: the coordinator initializes
	require.NoError(t, f.coord.Initialize(ctx))

	// Then: records exist again and the next scan re-indexes both,
	// since rebuilt records carry no hash
	files, err := f.meta.CountFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, files)

	stats, err := f.coord.FullScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, 0, stats.Unchanged)
}

func TestCoordinator_StatusReportsCounts(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "a.md", strings.Repeat("a", 250))

	status, err := f.coord.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.FileCount)
	assert.True(t, status.LastFullScan.IsZero())

	_, err = f.coord.FullScan(ctx)
	require.NoError(t, err)

	status, err = f.coord.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.vaultDir, status.VaultPath)
	assert.Equal(t, 1, status.FileCount)
	assert.Equal(t, 3, status.ChunkCount)
	assert.WithinDuration(t, time.Now(), status.LastFullScan, 5*time.Second)
}

func TestCoordinator_ScanWithoutWatchDoesNotReportWatching(t *testing.T) {
	// A one-shot scan-and-exit run never watches, so its state must not
	// claim otherwise
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "a.md", "note a")

	_, err := f.coord.FullScan(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, StateWatching, f.coord.State())
	assert.Equal(t, StateInitializing, f.coord.State())
}

// stubEventSource stands in for the vault watcher in watch-loop tests.
type stubEventSource struct {
	events  chan []watcher.FileEvent
	errs    chan error
	dropped atomic.Uint64
}

func newStubEventSource() *stubEventSource {
	return &stubEventSource{
		events: make(chan []watcher.FileEvent, 4),
		errs:   make(chan error, 4),
	}
}

func (s *stubEventSource) Events() <-chan []watcher.FileEvent { return s.events }
func (s *stubEventSource) Errors() <-chan error               { return s.errs }
func (s *stubEventSource) DroppedBatches() uint64             { return s.dropped.Load() }

func TestCoordinator_WatchRescansAfterDroppedBatches(t *testing.T) {
	// Given: a note whose change event batch the watcher had to drop
	f := newPipelineFixture(t)
	f.writeNote(t, "missed.md", "changed while the consumer was stalled")

	src := newStubEventSource()
	src.dropped.Store(1)

	f.coord.dropCheckInterval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.coord.Watch(ctx, src) }()

	// Then: the watch loop notices the drop and a catch-up scan indexes
	// the note no event ever arrived for
	require.Eventually(t, func() bool {
		file, err := f.meta.GetFile(context.Background(), "missed.md")
		return err == nil && file != nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop on cancel")
	}
}

func TestCoordinator_WatchHealsDropsReportedAfterABatch(t *testing.T) {
	// Given: a running watch loop with a long drop-check timer, so only
	// the post-batch check can notice drops
	f := newPipelineFixture(t)
	f.writeNote(t, "missed.md", "no event for this one")
	f.writeNote(t, "seen.md", "this one gets an event")

	src := newStubEventSource()
	f.coord.dropCheckInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.coord.Watch(ctx, src) }()

	// When: a drop is recorded and a later batch arrives
	src.dropped.Store(1)
	src.events <- []watcher.FileEvent{
		{Path: "seen.md", Operation: watcher.OpCreate, Timestamp: time.Now()},
	}

	// Then: both notes end up indexed
	require.Eventually(t, func() bool {
		missed, err := f.meta.GetFile(context.Background(), "missed.md")
		if err != nil || missed == nil {
			return false
		}
		seen, err := f.meta.GetFile(context.Background(), "seen.md")
		return err == nil && seen != nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestCoordinator_ConfigChangeTriggersRescan(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.writeNote(t, "a.md", "note a")

	f.coord.HandleEvents(ctx, []watcher.FileEvent{
		{Path: ".vaultmcp.yaml", Operation: watcher.OpConfigChange, Timestamp: time.Now()},
	})

	files, err := f.meta.CountFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, files)
}
