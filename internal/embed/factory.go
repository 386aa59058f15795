package embed

import (
	"fmt"
	"strings"
)

// New creates the configured embedder wrapped in an LRU cache.
// An empty provider selects the static embedder.
func New(provider string, cacheSize int) (Embedder, error) {
	switch strings.ToLower(provider) {
	case "", "static":
		return NewCachedEmbedder(NewStaticEmbedder(), cacheSize), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", provider)
	}
}
