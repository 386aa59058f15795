package chunk

import (
	"fmt"
)

// Chunker splits documents into overlapping windows of fixed size.
//
// Chunk i always starts at rune offset i*(chunkSize-overlap) and extends
// chunkSize runes or to the end of the document, whichever comes first.
// Concatenating all chunks with the overlap stripped from every chunk
// after the first reproduces the document exactly.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a Chunker. Requires 0 <= overlap < chunkSize.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must satisfy 0 <= overlap < chunk size, got overlap=%d size=%d",
			overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured window size in runes.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks a document's content. An empty document yields no chunks;
// a document no longer than the chunk size yields exactly one.
func (c *Chunker) Split(path, title, content string) []Chunk {
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	var chunks []Chunk

	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		index := len(chunks)
		chunks = append(chunks, Chunk{
			ID:        ChunkID(path, index),
			Path:      path,
			Title:     title,
			Index:     index,
			Text:      string(runes[start:end]),
			StartChar: start,
			EndChar:   end,
		})

		// The final window reached the end. Without this a short tail
		// already covered by the previous chunk would be emitted again.
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// Join reassembles a document from its chunks, which must be sorted by
// Index. Text already covered by an earlier chunk is skipped, so the
// result is the exact original document.
func Join(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	runes := make([]rune, 0, chunks[len(chunks)-1].EndChar)
	covered := 0
	for _, ch := range chunks {
		if ch.EndChar <= covered {
			continue
		}
		text := []rune(ch.Text)
		skip := covered - ch.StartChar
		if skip < 0 {
			skip = 0
		}
		runes = append(runes, text[skip:]...)
		covered = ch.EndChar
	}
	return string(runes)
}
