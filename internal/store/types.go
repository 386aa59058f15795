// Package store provides the persistence layer for indexed vault data:
// vector storage (HNSW), keyword search (Bleve), and metadata (SQLite).
package store

import (
	"context"
	"fmt"
	"time"
)

// State keys for the metadata key-value store.
const (
	// StateKeyIndexDimension stores the embedding dimension used for the index.
	StateKeyIndexDimension = "index_embedding_dimension"
	// StateKeyIndexModel stores the embedding model name used for the index.
	StateKeyIndexModel = "index_embedding_model"
	// StateKeyLastFullScan stores the RFC3339 timestamp of the last completed scan.
	StateKeyLastFullScan = "last_full_scan"
	// StateKeySchemaVersion tracks the metadata schema version.
	StateKeySchemaVersion = "schema_version"
)

// CurrentSchemaVersion is the current metadata schema version.
const CurrentSchemaVersion = 1

// FileRecord tracks an indexed note file.
type FileRecord struct {
	Path       string    // Relative to vault root, slash-separated
	Title      string    // Note title (basename without extension)
	Hash       string    // SHA256 of raw content
	Size       int64     // File size in bytes
	ModTime    time.Time // Last modification time
	ChunkCount int       // Number of chunks produced from this file
	IndexedAt  time.Time // When last indexed
}

// ChunkRecord is a persisted chunk of a note.
type ChunkRecord struct {
	ID         string // "<path>_<index>"
	Path       string // Parent note path
	Title      string // Parent note title
	ChunkIndex int    // Position within the note, 0-based
	Content    string // Chunk text
	StartChar  int    // Rune offset of first character in the note
	EndChar    int    // Rune offset one past the last character
	UpdatedAt  time.Time
}

// MetadataStore persists file and chunk metadata in SQLite.
// It is the source of truth for what has been indexed.
type MetadataStore interface {
	// File operations
	SaveFile(ctx context.Context, file *FileRecord) error
	GetFile(ctx context.Context, path string) (*FileRecord, error) // nil, nil when not tracked
	AllFiles(ctx context.Context) ([]*FileRecord, error)
	DeleteFile(ctx context.Context, path string) error

	// Chunk operations
	SaveChunks(ctx context.Context, chunks []*ChunkRecord) error
	GetChunk(ctx context.Context, id string) (*ChunkRecord, error)
	GetChunks(ctx context.Context, ids []string) ([]*ChunkRecord, error)
	GetChunksByPath(ctx context.Context, path string) ([]*ChunkRecord, error) // ordered by chunk_index
	DeleteChunks(ctx context.Context, ids []string) error
	DeleteChunksByPath(ctx context.Context, path string) error
	CountFiles(ctx context.Context) (int, error)
	CountChunks(ctx context.Context) (int, error)

	// State operations (key-value store for runtime state)
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	// RebuildFileRecords reconstructs the files table from surviving chunk
	// rows. Used for recovery when file records are lost or corrupted.
	RebuildFileRecords(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

// KeywordDoc is a document to be indexed for keyword search.
type KeywordDoc struct {
	ID      string // Chunk ID
	Title   string // Note title
	Content string // Chunk text
}

// KeywordResult is a single keyword search result.
type KeywordResult struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// KeywordIndex provides full-text search over note chunks.
type KeywordIndex interface {
	// Index adds documents. Existing IDs are replaced.
	Index(ctx context.Context, docs []*KeywordDoc) error

	// Search returns documents matching query, best first.
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)

	// Delete removes documents from the index.
	Delete(ctx context.Context, docIDs []string) error

	// AllIDs returns all document IDs (for consistency checks).
	AllIDs() ([]string, error)

	// DocCount returns the number of indexed documents.
	DocCount() (int, error)

	Close() error
}

// VectorResult is a single vector search result.
type VectorResult struct {
	ID       string  // Chunk ID
	Distance float32 // Lower is more similar (0-2 for cosine)
	Score    float32 // Normalized similarity (0-1)
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension (256 for the static embedder).
	Dimensions int

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean).
	Metric string

	// M is HNSW max connections per layer (default: 32)
	M int

	// EfConstruction is HNSW build-time search width (default: 128)
	EfConstruction int

	// EfSearch is HNSW query-time search width (default: 64)
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore provides semantic search over chunk embeddings.
type VectorStore interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds k nearest neighbors to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns all vector IDs in the store (for consistency checks).
	AllIDs() []string

	// Contains checks if an ID exists.
	Contains(id string) bool

	// Count returns the number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates a vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'vaultmcp index --force')", e.Expected, e.Got)
}
