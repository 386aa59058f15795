package mcp

import (
	"github.com/noteworks/vaultmcp/internal/search"
)

// Tool limits. MCP clients work with small result sets; anything
// larger should go through pagination at the client side.
const (
	defaultToolLimit = 10
	maxToolLimit     = 50
)

// SearchSnippetsInput defines the input schema for search_snippets.
type SearchSnippetsInput struct {
	Query  string `json:"query" jsonschema:"the search query to execute"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10, max 50"`
	Folder string `json:"folder,omitempty" jsonschema:"restrict results to notes under this vault folder"`
}

// SearchSnippetsOutput defines the output schema for search_snippets.
type SearchSnippetsOutput struct {
	Results []SnippetOutput `json:"results" jsonschema:"ranked chunk-level results"`
}

// SnippetOutput is a single chunk-level result.
type SnippetOutput struct {
	Path         string   `json:"path" jsonschema:"note path relative to the vault root"`
	Title        string   `json:"title" jsonschema:"note title"`
	ChunkIndex   int      `json:"chunk_index" jsonschema:"position of the chunk within its note"`
	Score        float64  `json:"score" jsonschema:"relevance score between 0 and 1"`
	Text         string   `json:"text" jsonschema:"matched chunk content"`
	MatchedTerms []string `json:"matched_terms,omitempty" jsonschema:"query terms that matched this chunk"`
}

// SearchFullInput defines the input schema for search_full.
type SearchFullInput struct {
	Query  string `json:"query" jsonschema:"the search query to execute"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of notes, default 10, max 50"`
	Folder string `json:"folder,omitempty" jsonschema:"restrict results to notes under this vault folder"`
}

// SearchFullOutput defines the output schema for search_full.
type SearchFullOutput struct {
	Results []NoteOutput `json:"results" jsonschema:"ranked note-level results with full content"`
}

// NoteOutput is a single note-level result with reconstructed content.
type NoteOutput struct {
	Path       string  `json:"path" jsonschema:"note path relative to the vault root"`
	Title      string  `json:"title" jsonschema:"note title"`
	Score      float64 `json:"score" jsonschema:"relevance score between 0 and 1"`
	ChunkCount int     `json:"chunk_count" jsonschema:"number of chunks the note spans"`
	Content    string  `json:"content" jsonschema:"full note content"`
}

// IndexStatusInput defines the (empty) input schema for index_status.
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for index_status.
type IndexStatusOutput struct {
	VaultPath    string        `json:"vault_path" jsonschema:"absolute path of the indexed vault"`
	State        string        `json:"state" jsonschema:"pipeline state: initializing, scanning, watching or stopped"`
	FileCount    int           `json:"file_count" jsonschema:"number of indexed notes"`
	ChunkCount   int           `json:"chunk_count" jsonschema:"number of indexed chunks"`
	LastFullScan string        `json:"last_full_scan,omitempty" jsonschema:"RFC 3339 time of the last completed full scan"`
	Embeddings   EmbeddingInfo `json:"embeddings" jsonschema:"active embedding backend"`
}

// EmbeddingInfo describes the active embedder so clients can adjust
// their search strategy when only low quality embeddings are available.
type EmbeddingInfo struct {
	Provider   string `json:"provider" jsonschema:"embedding provider name"`
	Model      string `json:"model" jsonschema:"embedding model identifier"`
	Dimensions int    `json:"dimensions" jsonschema:"embedding vector dimension"`
	Status     string `json:"status" jsonschema:"ready or unavailable"`
}

// toSnippetOutput converts an engine snippet to the tool schema.
func toSnippetOutput(s *search.Snippet) SnippetOutput {
	return SnippetOutput{
		Path:         s.Path,
		Title:        s.Title,
		ChunkIndex:   s.ChunkIndex,
		Score:        s.Score,
		Text:         s.Text,
		MatchedTerms: s.MatchedTerms,
	}
}

// toNoteOutput converts an engine note result to the tool schema.
func toNoteOutput(r *search.NoteResult) NoteOutput {
	return NoteOutput{
		Path:       r.Path,
		Title:      r.Title,
		Score:      r.Score,
		ChunkCount: r.ChunkCount,
		Content:    r.Content,
	}
}

// clampLimit bounds a client-provided limit to [1, max], with def for
// unset values.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
