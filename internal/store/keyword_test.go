package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeywordIndex(t *testing.T) *BleveKeywordIndex {
	t.Helper()
	idx, err := NewBleveKeywordIndex("") // in-memory
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveKeywordIndex_IndexAndSearch(t *testing.T) {
	// Given: two indexed chunks
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	err := idx.Index(ctx, []*KeywordDoc{
		{ID: "recipes/pasta.md_0", Title: "pasta", Content: "boil the spaghetti for eight minutes"},
		{ID: "travel/rome.md_0", Title: "rome", Content: "book flights and reserve the hotel"},
	})
	require.NoError(t, err)

	// When: searching for a term in one of them
	results, err := idx.Search(ctx, "spaghetti", 10)
	require.NoError(t, err)

	// Then: only the matching chunk is returned
	require.Len(t, results, 1)
	assert.Equal(t, "recipes/pasta.md_0", results[0].DocID)
	assert.Greater(t, results[0].Score, 0.0)
	assert.NotEmpty(t, results[0].MatchedTerms)
}

func TestBleveKeywordIndex_TitleMatchRanksHigher(t *testing.T) {
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	err := idx.Index(ctx, []*KeywordDoc{
		{ID: "daily/scratch.md_0", Title: "scratch", Content: "mentions budget once in passing text"},
		{ID: "finance/budget.md_0", Title: "budget", Content: "planning numbers for next quarter"},
	})
	require.NoError(t, err)

	results, err := idx.Search(ctx, "budget", 10)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "finance/budget.md_0", results[0].DocID)
}

func TestBleveKeywordIndex_EmptyQueryReturnsNothing(t *testing.T) {
	idx := newTestKeywordIndex(t)

	results, err := idx.Search(context.Background(), "   ", 10)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveKeywordIndex_ReindexReplacesDocument(t *testing.T) {
	// Given: a chunk indexed with old content
	idx := newTestKeywordIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, []*KeywordDoc{
		{ID: "note.md_0", Title: "note", Content: "original wording about gardening"},
	}))

	// When: the same ID is indexed with new content
	require.NoError(t, idx.Index(ctx, []*KeywordDoc{
		{ID: "note.md_0", Title: "note", Content: "rewritten text about astronomy"},
	}))

	// Then: the old content no longer matches and the new content does
	old, err := idx.Search(ctx, "gardening", 10)
	require.NoError(t, err)
	assert.Empty(t, old)

	fresh, err := idx.Search(ctx, "astronomy", 10)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "note.md_0", fresh[0].DocID)

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBleveKeywordIndex_Delete(t *testing.T) {
	idx := newTestKeywordIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, []*KeywordDoc{
		{ID: "a.md_0", Title: "a", Content: "apples and oranges"},
		{ID: "a.md_1", Title: "a", Content: "bananas and grapes"},
	}))

	require.NoError(t, idx.Delete(ctx, []string{"a.md_0"}))

	results, err := idx.Search(ctx, "apples", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	ids, err := idx.AllIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md_1"}, ids)
}

func TestBleveKeywordIndex_StemmingMatchesVariants(t *testing.T) {
	// The English analyzer stems, so "running" should match "run"
	idx := newTestKeywordIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, []*KeywordDoc{
		{ID: "fitness.md_0", Title: "fitness", Content: "went for a run before breakfast"},
	}))

	results, err := idx.Search(ctx, "running", 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fitness.md_0", results[0].DocID)
}

func TestBleveKeywordIndex_PersistsAcrossReopen(t *testing.T) {
	// Given: an on-disk index with one document
	dir := t.TempDir()
	path := filepath.Join(dir, "keyword.bleve")
	ctx := context.Background()

	idx, err := NewBleveKeywordIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, []*KeywordDoc{
		{ID: "note.md_0", Title: "note", Content: "persistent content survives restart"},
	}))
	require.NoError(t, idx.Close())

	// When: reopening at the same path
	reopened, err := NewBleveKeywordIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	// Then: the document is still searchable
	results, err := reopened.Search(ctx, "persistent", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "note.md_0", results[0].DocID)
}

func TestBleveKeywordIndex_ClosedOperationsFail(t *testing.T) {
	idx, err := NewBleveKeywordIndex("")
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close()) // idempotent

	err = idx.Index(context.Background(), []*KeywordDoc{{ID: "x", Content: "y"}})
	assert.Error(t, err)

	_, err = idx.Search(context.Background(), "query", 1)
	assert.Error(t, err)
}
