// Package integration exercises the whole pipeline end to end: a real
// vault directory on disk, scans and watch events feeding the stores,
// and searches reading back through the engine.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteworks/vaultmcp/internal/chunk"
	"github.com/noteworks/vaultmcp/internal/embed"
	"github.com/noteworks/vaultmcp/internal/index"
	"github.com/noteworks/vaultmcp/internal/search"
	"github.com/noteworks/vaultmcp/internal/store"
	"github.com/noteworks/vaultmcp/internal/vault"
	"github.com/noteworks/vaultmcp/internal/watcher"
)

type pipeline struct {
	vaultDir string
	meta     *store.SQLiteMetadataStore
	coord    *index.Coordinator
	engine   *search.Engine
}

func newPipeline(t *testing.T) *pipeline {
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

	chunker, err := chunk.NewChunker(120, 24)
	require.NoError(t, err)

	rec := index.NewReconciler(meta, vectors, keywords, embedder, chunker)
	coord := index.NewCoordinator(index.CoordinatorConfig{
		VaultPath:  vaultDir,
		Reader:     vault.NewReader(vaultDir, 0),
		Scanner:    vault.NewScanner(nil),
		Reconciler: rec,
		Metadata:   meta,
		Vectors:    vectors,
	})

	engine, err := search.NewEngine(keywords, vectors, embedder, meta, search.DefaultConfig())
	require.NoError(t, err)

	return &pipeline{vaultDir: vaultDir, meta: meta, coord: coord, engine: engine}
}

func (p *pipeline) write(t *testing.T, relPath, content string) {
	t.Helper()
	abs := filepath.Join(p.vaultDir, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func (p *pipeline) searchPaths(t *testing.T, query string) []string {
	t.Helper()
	snippets, err := p.engine.SearchSnippets(context.Background(), query, search.Options{Limit: 10})
	require.NoError(t, err)

	var paths []string
	for _, s := range snippets {
		paths = append(paths, s.Path)
	}
	return paths
}

func TestPipeline_ScanThenSearch(t *testing.T) {
	// Given a vault with a few notes
	p := newPipeline(t)
	p.write(t, "recipes/bread.md", "Sourdough bread needs a mature starter and patience")
	p.write(t, "infra/backup.md", "Nightly restic backups run against the NAS")
	p.write(t, "journal/monday.md", "Slow day, mostly reading")

	// When a full scan runs
	stats, err := p.coord.FullScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Indexed)

	// Then searches surface the right notes
	assert.Contains(t, p.searchPaths(t, "sourdough starter"), "recipes/bread.md")
	assert.Contains(t, p.searchPaths(t, "restic backups"), "infra/backup.md")
}

func TestPipeline_EditIsPickedUpByEvents(t *testing.T) {
	// Given an indexed note
	p := newPipeline(t)
	p.write(t, "notes/plan.md", "The original plan was to migrate in June")
	_, err := p.coord.FullScan(context.Background())
	require.NoError(t, err)

	// When the note is rewritten and the watcher reports it
	p.write(t, "notes/plan.md", "The revised plan targets a kubernetes rollout in October")
	p.coord.HandleEvents(context.Background(), []watcher.FileEvent{{
		Path:      "notes/plan.md",
		Operation: watcher.OpModify,
		Timestamp: time.Now(),
	}})

	// Then searches see the new content. The old terms are gone from
	// the keyword index (semantic search always returns neighbors, so
	// only the keyword side can prove the old chunk was replaced).
	assert.Contains(t, p.searchPaths(t, "kubernetes rollout october"), "notes/plan.md")
	old, err := p.engine.SearchSnippets(context.Background(), "migrate june original",
		search.Options{Limit: 10, KeywordOnly: true})
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestPipeline_DeleteRemovesFromSearch(t *testing.T) {
	// Given two indexed notes
	p := newPipeline(t)
	p.write(t, "a.md", "grafana dashboards for the heating system")
	p.write(t, "b.md", "shopping list for the weekend")
	_, err := p.coord.FullScan(context.Background())
	require.NoError(t, err)

	// When one is deleted and the event lands
	require.NoError(t, os.Remove(filepath.Join(p.vaultDir, "a.md")))
	p.coord.HandleEvents(context.Background(), []watcher.FileEvent{{
		Path:      "a.md",
		Operation: watcher.OpDelete,
		Timestamp: time.Now(),
	}})

	// Then it no longer appears in results and nothing is tracked
	assert.NotContains(t, p.searchPaths(t, "grafana dashboards heating"), "a.md")
	record, err := p.meta.GetFile(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestPipeline_IgnoreFileExcludesNotes(t *testing.T) {
	// Given a vault with an ignore file covering one folder
	p := newPipeline(t)
	p.write(t, "public.md", "team onboarding checklist")
	p.write(t, "private/salary.md", "compensation discussion notes")
	p.write(t, vault.IgnoreFileName, "private/\n")

	// When scanned
	stats, err := p.coord.FullScan(context.Background())
	require.NoError(t, err)

	// Then only the public note is indexed
	assert.Equal(t, 1, stats.Indexed)
	assert.NotContains(t, p.searchPaths(t, "compensation salary"), "private/salary.md")
}

func TestPipeline_SearchFullRoundTrip(t *testing.T) {
	// Given a note long enough for several chunks
	p := newPipeline(t)
	content := "Garden planning for spring. " +
		"Tomatoes go in the south bed after the last frost. " +
		"Beans climb the trellis near the fence. " +
		"The compost needs turning every two weeks through the season."
	p.write(t, "garden/spring.md", content)
	_, err := p.coord.FullScan(context.Background())
	require.NoError(t, err)

	// When the whole note is fetched through search
	results, err := p.engine.SearchFull(context.Background(), "tomatoes compost trellis", search.Options{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Then the reconstructed content matches the file exactly
	assert.Equal(t, "garden/spring.md", results[0].Path)
	assert.Equal(t, content, results[0].Content)
}
