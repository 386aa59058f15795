package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/noteworks/vaultmcp/internal/chunk"
	"github.com/noteworks/vaultmcp/internal/embed"
	vaulterrors "github.com/noteworks/vaultmcp/internal/errors"
	"github.com/noteworks/vaultmcp/internal/store"
	"github.com/noteworks/vaultmcp/internal/vault"
)

// Reconciler applies a detected change to the stores so that the index
// entries for a path exactly match the chunks its current content
// produces.
//
// Write ordering: new chunks are upserted into every store before
// obsolete chunk IDs are deleted, and the file record is saved last.
// Concurrent searches may briefly see a duplicate chunk during a swap
// but never a gap. If any store write fails the file record is left
// stale, so the next scan reclassifies the path as Modified and retries.
type Reconciler struct {
	meta     store.MetadataStore
	vectors  store.VectorStore
	keywords store.KeywordIndex
	embedder embed.Embedder
	chunker  *chunk.Chunker
}

// NewReconciler creates a reconciler over the given stores.
func NewReconciler(meta store.MetadataStore, vectors store.VectorStore, keywords store.KeywordIndex, embedder embed.Embedder, chunker *chunk.Chunker) *Reconciler {
	return &Reconciler{
		meta:     meta,
		vectors:  vectors,
		keywords: keywords,
		embedder: embedder,
		chunker:  chunker,
	}
}

// IndexDocument chunks a document and reconciles its chunk set against
// the stores. Used for both New and Modified classifications; the
// operation is idempotent.
func (r *Reconciler) IndexDocument(ctx context.Context, doc *vault.Document) error {
	chunks := r.chunker.Split(doc.Path, doc.Title, doc.Content)

	existing, err := r.meta.GetChunksByPath(ctx, doc.Path)
	if err != nil {
		return vaulterrors.StoreUnavailableError("failed to load existing chunks", err).
			WithDetail("path", doc.Path)
	}

	newIDs := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		newIDs[c.ID] = true
	}

	// Upsert the new chunk set first.
	if len(chunks) > 0 {
		if err := r.upsertChunks(ctx, doc, chunks); err != nil {
			return err
		}
	}

	// Then drop IDs the new content no longer produces. This covers
	// chunk-count shrinkage: a 3-chunk note edited down to 1 chunk
	// keeps ID _0 and deletes _1 and _2.
	var obsolete []string
	for _, old := range existing {
		if !newIDs[old.ID] {
			obsolete = append(obsolete, old.ID)
		}
	}
	if len(obsolete) > 0 {
		if err := r.deleteChunkIDs(ctx, doc.Path, obsolete); err != nil {
			return err
		}
	}

	// Advancing the file record is the last step. Everything before it
	// can fail and the path will simply be re-reconciled next scan.
	record := &store.FileRecord{
		Path:       doc.Path,
		Title:      doc.Title,
		Hash:       doc.Hash,
		Size:       doc.Size,
		ModTime:    doc.ModTime,
		ChunkCount: len(chunks),
		IndexedAt:  time.Now(),
	}
	if err := r.meta.SaveFile(ctx, record); err != nil {
		return vaulterrors.StoreWriteError("failed to save file record", err).
			WithDetail("path", doc.Path)
	}

	slog.Debug("document reconciled",
		slog.String("path", doc.Path),
		slog.Int("chunks", len(chunks)),
		slog.Int("removed", len(obsolete)))

	return nil
}

// upsertChunks embeds and writes chunks to all three stores.
func (r *Reconciler) upsertChunks(ctx context.Context, doc *vault.Document, chunks []chunk.Chunk) error {
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = c.ID
	}

	vecs, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return vaulterrors.New(vaulterrors.ErrCodeEmbeddingFailed, "failed to embed chunks", err).
			WithDetail("path", doc.Path)
	}

	if err := r.vectors.Add(ctx, ids, vecs); err != nil {
		return vaulterrors.StoreWriteError("vector store rejected upsert", err).
			WithDetail("path", doc.Path)
	}

	docs := make([]*store.KeywordDoc, len(chunks))
	for i, c := range chunks {
		docs[i] = &store.KeywordDoc{ID: c.ID, Title: c.Title, Content: c.Text}
	}
	if err := r.keywords.Index(ctx, docs); err != nil {
		return vaulterrors.StoreWriteError("keyword index rejected upsert", err).
			WithDetail("path", doc.Path)
	}

	records := make([]*store.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = &store.ChunkRecord{
			ID:         c.ID,
			Path:       c.Path,
			Title:      c.Title,
			ChunkIndex: c.Index,
			Content:    c.Text,
			StartChar:  c.StartChar,
			EndChar:    c.EndChar,
		}
	}
	if err := r.meta.SaveChunks(ctx, records); err != nil {
		return vaulterrors.StoreWriteError("metadata store rejected chunk upsert", err).
			WithDetail("path", doc.Path)
	}

	return nil
}

// deleteChunkIDs removes chunk IDs from all three stores.
func (r *Reconciler) deleteChunkIDs(ctx context.Context, path string, ids []string) error {
	if err := r.vectors.Delete(ctx, ids); err != nil {
		return vaulterrors.StoreWriteError("vector store rejected delete", err).
			WithDetail("path", path)
	}
	if err := r.keywords.Delete(ctx, ids); err != nil {
		return vaulterrors.StoreWriteError("keyword index rejected delete", err).
			WithDetail("path", path)
	}
	if err := r.meta.DeleteChunks(ctx, ids); err != nil {
		return vaulterrors.StoreWriteError("metadata store rejected chunk delete", err).
			WithDetail("path", path)
	}
	return nil
}

// RemoveDocument removes every trace of a path: all index entries and
// the scan state record.
func (r *Reconciler) RemoveDocument(ctx context.Context, path string) error {
	existing, err := r.meta.GetChunksByPath(ctx, path)
	if err != nil {
		return vaulterrors.StoreUnavailableError("failed to load existing chunks", err).
			WithDetail("path", path)
	}

	if len(existing) > 0 {
		ids := make([]string, len(existing))
		for i, c := range existing {
			ids[i] = c.ID
		}
		if err := r.deleteChunkIDs(ctx, path, ids); err != nil {
			return err
		}
	}

	if err := r.meta.DeleteFile(ctx, path); err != nil {
		return vaulterrors.StoreWriteError("failed to delete file record", err).
			WithDetail("path", path)
	}

	slog.Debug("document removed",
		slog.String("path", path),
		slog.Int("chunks", len(existing)))

	return nil
}
