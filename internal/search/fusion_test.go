package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteworks/vaultmcp/internal/store"
)

func keywordResults(ids ...string) []*store.KeywordResult {
	results := make([]*store.KeywordResult, len(ids))
	for i, id := range ids {
		results[i] = &store.KeywordResult{DocID: id, Score: float64(len(ids) - i)}
	}
	return results
}

func vectorResults(ids ...string) []*store.VectorResult {
	results := make([]*store.VectorResult, len(ids))
	for i, id := range ids {
		results[i] = &store.VectorResult{ID: id, Score: float32(len(ids)-i) / float32(len(ids))}
	}
	return results
}

func TestRRFFusion_EmptyInputs(t *testing.T) {
	fusion := NewRRFFusion(0)

	results := fusion.Fuse(nil, nil, DefaultWeights())

	require.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, DefaultRRFConstant, fusion.K)
}

func TestRRFFusion_ChunkInBothListsRanksFirst(t *testing.T) {
	// Given: "both" appears in both lists, the others in one each
	fusion := NewRRFFusion(60)
	keyword := keywordResults("both", "kw-only")
	vec := vectorResults("both", "vec-only")

	// When: results are fused
	results := fusion.Fuse(keyword, vec, DefaultWeights())

	// Then: consensus wins and the top score is normalized to 1
	require.Len(t, results, 3)
	assert.Equal(t, "both", results[0].ChunkID)
	assert.True(t, results[0].InBothLists)
	assert.InDelta(t, 1.0, results[0].RRFScore, 1e-9)
	assert.False(t, results[1].InBothLists)
}

func TestRRFFusion_PreservesSourceScoresAndRanks(t *testing.T) {
	fusion := NewRRFFusion(60)
	keyword := []*store.KeywordResult{
		{DocID: "a", Score: 4.2, MatchedTerms: []string{"planning"}},
	}
	vec := []*store.VectorResult{
		{ID: "a", Score: 0.91},
		{ID: "b", Score: 0.30},
	}

	results := fusion.Fuse(keyword, vec, DefaultWeights())

	require.Len(t, results, 2)
	a := results[0]
	assert.Equal(t, "a", a.ChunkID)
	assert.Equal(t, 4.2, a.KeywordScore)
	assert.Equal(t, 1, a.KeywordRank)
	assert.InDelta(t, 0.91, a.VecScore, 1e-6)
	assert.Equal(t, 1, a.VecRank)
	assert.Equal(t, []string{"planning"}, a.MatchedTerms)

	b := results[1]
	assert.Equal(t, 0, b.KeywordRank)
	assert.Equal(t, 2, b.VecRank)
}

func TestRRFFusion_WeightsShiftRanking(t *testing.T) {
	// Given: each source ranks a different chunk first
	fusion := NewRRFFusion(60)
	keyword := keywordResults("kw-top", "vec-top")
	vec := vectorResults("vec-top", "kw-top")

	// When: keyword dominates
	results := fusion.Fuse(keyword, vec, Weights{Keyword: 1.0, Semantic: 0.0})
	assert.Equal(t, "kw-top", results[0].ChunkID)

	// When: semantic dominates
	results = fusion.Fuse(keyword, vec, Weights{Keyword: 0.0, Semantic: 1.0})
	assert.Equal(t, "vec-top", results[0].ChunkID)
}

func TestRRFFusion_KeywordOnlyList(t *testing.T) {
	fusion := NewRRFFusion(60)

	results := fusion.Fuse(keywordResults("a", "b", "c"), nil, Weights{Keyword: 1.0})

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Equal(t, "b", results[1].ChunkID)
	assert.Equal(t, "c", results[2].ChunkID)
}

func TestRRFFusion_TieBreaksAreDeterministic(t *testing.T) {
	// Two chunks with identical ranks in a single list tie on RRF
	// score and fall back to the keyword score, then chunk ID
	fusion := NewRRFFusion(60)
	keyword := []*store.KeywordResult{
		{DocID: "z", Score: 1.0},
	}
	vec := []*store.VectorResult{
		{ID: "a", Score: 1.0},
	}

	results := fusion.Fuse(keyword, vec, Weights{Keyword: 0.5, Semantic: 0.5})

	require.Len(t, results, 2)
	assert.Equal(t, "z", results[0].ChunkID) // higher keyword score
	assert.Equal(t, "a", results[1].ChunkID)
}
