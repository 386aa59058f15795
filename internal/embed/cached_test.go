package embed

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts inner calls.
type countingEmbedder struct {
	*StaticEmbedder
	embedCalls int32
	batchCalls int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&c.embedCalls, 1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&c.batchCalls, 1)
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_CachesRepeatQueries(t *testing.T) {
	// Given: a cached embedder
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)
	defer c.Close()

	// When: the same text is embedded twice
	a, err := c.Embed(context.Background(), "repeated query")
	require.NoError(t, err)
	b, err := c.Embed(context.Background(), "repeated query")
	require.NoError(t, err)

	// Then: inner embedder was only called once
	assert.Equal(t, a, b)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.embedCalls))
}

func TestCachedEmbedder_BatchUsesCache(t *testing.T) {
	// Given: one text already cached
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)
	defer c.Close()

	_, err := c.Embed(context.Background(), "cached")
	require.NoError(t, err)

	// When: batch embedding with a mix of cached and new texts
	vecs, err := c.EmbedBatch(context.Background(), []string{"cached", "new one", "new two"})
	require.NoError(t, err)

	// Then: all vectors returned, only uncached texts hit the inner embedder
	require.Len(t, vecs, 3)
	direct, err := NewStaticEmbedder().Embed(context.Background(), "cached")
	require.NoError(t, err)
	assert.Equal(t, direct, vecs[0])
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.batchCalls))
}

func TestCachedEmbedder_FullyCachedBatchSkipsInner(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)
	defer c.Close()

	texts := []string{"a", "b"}
	_, err := c.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	before := atomic.LoadInt32(&inner.batchCalls)

	_, err = c.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, before, atomic.LoadInt32(&inner.batchCalls))
}

func TestCachedEmbedder_EvictionStaysBounded(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 2)
	defer c.Close()

	for i := 0; i < 10; i++ {
		_, err := c.Embed(context.Background(), fmt.Sprintf("text %d", i))
		require.NoError(t, err)
	}

	// Oldest entries were evicted, so re-embedding them calls inner again
	calls := atomic.LoadInt32(&inner.embedCalls)
	_, err := c.Embed(context.Background(), "text 0")
	require.NoError(t, err)
	assert.Equal(t, calls+1, atomic.LoadInt32(&inner.embedCalls))
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := NewStaticEmbedder()
	c := NewCachedEmbedder(inner, 10)
	defer c.Close()

	assert.Equal(t, inner.Dimensions(), c.Dimensions())
	assert.Equal(t, inner.ModelName(), c.ModelName())
	assert.True(t, c.Available(context.Background()))
	assert.Equal(t, Embedder(inner), c.Inner())
}

func TestNew_DefaultsToStatic(t *testing.T) {
	e, err := New("", 0)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, StaticDimensions, e.Dimensions())
}

func TestNew_UnknownProviderFails(t *testing.T) {
	_, err := New("ollama", 0)

	assert.Error(t, err)
}
