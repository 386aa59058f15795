// Package chunk splits vault documents into overlapping fixed-size
// character windows and reassembles them.
package chunk

import "fmt"

// Chunk size defaults, tuned for prose notes.
const (
	DefaultChunkSize = 1024
	DefaultOverlap   = 256
)

// Chunk is a retrievable unit of a document.
//
// Offsets are rune positions within the decoded document, never byte
// positions, so a chunk boundary can never split a multi-byte character.
type Chunk struct {
	// ID is "<relative path>_<index>".
	ID string
	// Path is the document path relative to the vault root.
	Path string
	// Title is the note title (file name without extension).
	Title string
	// Index is the chunk's position in the document's chunk sequence.
	Index int
	// Text is the chunk content.
	Text string
	// StartChar is the inclusive rune offset of the chunk start.
	StartChar int
	// EndChar is the exclusive rune offset of the chunk end.
	EndChar int
}

// ChunkID builds the canonical chunk identifier for a path and index.
func ChunkID(path string, index int) string {
	return fmt.Sprintf("%s_%d", path, index)
}
