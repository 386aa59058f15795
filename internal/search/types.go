// Package search provides hybrid note search combining keyword and
// semantic retrieval. Results are fused using Reciprocal Rank Fusion.
package search

import (
	"time"
)

// Options configures a search query.
type Options struct {
	// Limit is the maximum number of results to return (default: 10, max: 100).
	Limit int

	// Folder restricts results to paths under this vault folder.
	// Empty means the whole vault.
	Folder string

	// Weights overrides the default keyword/semantic weights.
	Weights *Weights

	// KeywordOnly skips semantic search entirely. Used when the
	// embedder is unavailable or for exact term matching.
	KeywordOnly bool
}

// Weights configures the relative importance of keyword vs semantic search.
type Weights struct {
	// Keyword is the weight for BM25 keyword search (0-1).
	Keyword float64

	// Semantic is the weight for vector search (0-1).
	Semantic float64
}

// DefaultWeights returns weights tuned for prose notes, where exact
// terms carry more signal than they do in natural language corpora.
func DefaultWeights() Weights {
	return Weights{
		Keyword:  0.4,
		Semantic: 0.6,
	}
}

// Snippet is a single chunk-level search result for search_snippets.
type Snippet struct {
	// ChunkID identifies the matching chunk.
	ChunkID string `json:"chunk_id"`

	// Path is the note path relative to the vault root.
	Path string `json:"path"`

	// Title is the note title.
	Title string `json:"title"`

	// ChunkIndex is the chunk's position within its note.
	ChunkIndex int `json:"chunk_index"`

	// Score is the fused relevance score (0-1, best result is 1).
	Score float64 `json:"score"`

	// Text is the chunk content.
	Text string `json:"text"`

	// StartChar and EndChar locate the chunk within the note in runes.
	StartChar int `json:"start_char"`
	EndChar   int `json:"end_char"`

	// MatchedTerms lists the keyword terms that matched, if any.
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// NoteResult is a note-level result for search_full: one entry per
// note, carrying the reconstructed document content.
type NoteResult struct {
	// Path is the note path relative to the vault root.
	Path string `json:"path"`

	// Title is the note title.
	Title string `json:"title"`

	// Score is the best fused score among the note's chunks.
	Score float64 `json:"score"`

	// ChunkCount is the number of chunks the note currently has.
	ChunkCount int `json:"chunk_count"`

	// Content is the full note text reassembled from its chunks.
	Content string `json:"content"`
}

// EngineConfig configures the search engine.
type EngineConfig struct {
	// DefaultLimit is the default number of results (default: 10).
	DefaultLimit int

	// MaxLimit is the maximum allowed results (default: 100).
	MaxLimit int

	// DefaultWeights are the default keyword/semantic weights.
	DefaultWeights Weights

	// RRFConstant is the RRF fusion constant k (default: 60).
	RRFConstant int

	// SearchTimeout is the maximum search duration (default: 5s).
	SearchTimeout time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:   10,
		MaxLimit:       100,
		DefaultWeights: DefaultWeights(),
		RRFConstant:    60,
		SearchTimeout:  5 * time.Second,
	}
}
