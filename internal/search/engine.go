package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/noteworks/vaultmcp/internal/chunk"
	"github.com/noteworks/vaultmcp/internal/embed"
	vaulterrors "github.com/noteworks/vaultmcp/internal/errors"
	"github.com/noteworks/vaultmcp/internal/store"
)

// Engine implements hybrid note search over the keyword index and the
// vector store, with chunk data loaded from the metadata store.
type Engine struct {
	keywords store.KeywordIndex
	vectors  store.VectorStore
	embedder embed.Embedder
	meta     store.MetadataStore
	config   EngineConfig
	fusion   *RRFFusion
}

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// NewEngine creates a hybrid search engine with the given dependencies.
func NewEngine(
	keywords store.KeywordIndex,
	vectors store.VectorStore,
	embedder embed.Embedder,
	meta store.MetadataStore,
	config EngineConfig,
) (*Engine, error) {
	if keywords == nil {
		return nil, fmt.Errorf("%w: keyword index is required", ErrNilDependency)
	}
	if vectors == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: metadata store is required", ErrNilDependency)
	}

	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultConfig().DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = DefaultConfig().MaxLimit
	}
	if config.SearchTimeout <= 0 {
		config.SearchTimeout = DefaultConfig().SearchTimeout
	}
	if config.DefaultWeights == (Weights{}) {
		config.DefaultWeights = DefaultWeights()
	}

	return &Engine{
		keywords: keywords,
		vectors:  vectors,
		embedder: embedder,
		meta:     meta,
		config:   config,
		fusion:   NewRRFFusion(config.RRFConstant),
	}, nil
}

// SearchSnippets returns ranked chunk-level results for a query.
func (e *Engine) SearchSnippets(ctx context.Context, query string, opts Options) ([]*Snippet, error) {
	fused, opts, err := e.search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	snippets, err := e.loadSnippets(ctx, fused)
	if err != nil {
		return nil, err
	}

	snippets = filterSnippetsByFolder(snippets, opts.Folder)
	if len(snippets) > opts.Limit {
		snippets = snippets[:opts.Limit]
	}
	return snippets, nil
}

// SearchFull returns ranked note-level results with full reconstructed
// content. One entry per note; a note's score is the best fused score
// among its chunks.
func (e *Engine) SearchFull(ctx context.Context, query string, opts Options) ([]*NoteResult, error) {
	opts = e.applyDefaults(opts)

	// Over-fetch at the chunk level so that deduplication by path
	// still yields enough distinct notes.
	chunkOpts := opts
	chunkOpts.Limit = opts.Limit * 4
	fused, _, err := e.search(ctx, query, chunkOpts)
	if err != nil {
		return nil, err
	}

	snippets, err := e.loadSnippets(ctx, fused)
	if err != nil {
		return nil, err
	}
	snippets = filterSnippetsByFolder(snippets, opts.Folder)

	// Snippets arrive ranked, so the first hit per path carries the
	// note's best score.
	var paths []string
	best := make(map[string]*Snippet)
	for _, s := range snippets {
		if _, ok := best[s.Path]; ok {
			continue
		}
		best[s.Path] = s
		paths = append(paths, s.Path)
		if len(paths) == opts.Limit {
			break
		}
	}

	results := make([]*NoteResult, 0, len(paths))
	for _, path := range paths {
		content, count, err := e.reconstructNote(ctx, path)
		if err != nil {
			slog.Warn("failed to reconstruct note",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		results = append(results, &NoteResult{
			Path:       path,
			Title:      best[path].Title,
			Score:      best[path].Score,
			ChunkCount: count,
			Content:    content,
		})
	}

	return results, nil
}

// search validates the query, runs both retrievals, and fuses them.
// The returned Options have defaults applied.
func (e *Engine) search(ctx context.Context, query string, opts Options) ([]*FusedResult, Options, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, opts, vaulterrors.New(vaulterrors.ErrCodeQueryEmpty, "search query must not be empty", nil).
			WithSuggestion("Provide at least one search term")
	}

	opts = e.applyDefaults(opts)

	ctx, cancel := context.WithTimeout(ctx, e.config.SearchTimeout)
	defer cancel()

	// Fetch beyond the limit so fusion has both lists to work with
	// and folder filtering has spare results.
	fetchLimit := opts.Limit * 2
	if opts.Folder != "" {
		fetchLimit = opts.Limit * 5
	}

	if opts.KeywordOnly || e.dimensionMismatch(ctx) {
		keywordResults, err := e.keywords.Search(ctx, query, fetchLimit)
		if err != nil {
			return nil, opts, vaulterrors.New(vaulterrors.ErrCodeSearchFailed, "keyword search failed", err)
		}
		w := Weights{Keyword: 1.0}
		return e.fusion.Fuse(keywordResults, nil, w), opts, nil
	}

	keywordResults, vecResults, searchErr := e.parallelSearch(ctx, query, fetchLimit)
	if searchErr != nil {
		if keywordResults == nil && vecResults == nil {
			return nil, opts, vaulterrors.New(vaulterrors.ErrCodeSearchFailed, "search failed", searchErr)
		}
		// One retrieval failed; continue with partial results.
		slog.Warn("partial search results",
			slog.String("query", query),
			slog.String("error", searchErr.Error()))
	}

	return e.fusion.Fuse(keywordResults, vecResults, *opts.Weights), opts, nil
}

// parallelSearch executes keyword and vector searches concurrently.
// A single-source failure degrades to partial results; only a failure
// of both sources is fatal.
func (e *Engine) parallelSearch(ctx context.Context, query string, limit int) (
	keywordResults []*store.KeywordResult,
	vecResults []*store.VectorResult,
	err error,
) {
	g, gctx := errgroup.WithContext(ctx)

	var keywordErr, vecErr error

	g.Go(func() error {
		var searchErr error
		keywordResults, searchErr = e.keywords.Search(gctx, query, limit)
		if searchErr != nil {
			keywordErr = searchErr
		}
		return nil
	})

	g.Go(func() error {
		embedding, embedErr := e.embedder.Embed(gctx, query)
		if embedErr != nil {
			vecErr = embedErr
			return nil
		}

		var searchErr error
		vecResults, searchErr = e.vectors.Search(gctx, embedding, limit)
		if searchErr != nil {
			vecErr = searchErr
		}
		return nil
	})

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}

	if keywordErr != nil && vecErr != nil {
		return nil, nil, errors.Join(keywordErr, vecErr)
	}
	if keywordErr != nil {
		err = keywordErr
	} else if vecErr != nil {
		err = vecErr
	}

	return keywordResults, vecResults, err
}

// dimensionMismatch reports whether the stored index dimension differs
// from the current embedder, in which case vector search would return
// garbage and is skipped.
func (e *Engine) dimensionMismatch(ctx context.Context) bool {
	stored, err := e.meta.GetState(ctx, store.StateKeyIndexDimension)
	if err != nil || stored == "" {
		return false
	}

	var indexDim int
	if _, err := fmt.Sscanf(stored, "%d", &indexDim); err != nil {
		return false
	}

	if indexDim != e.embedder.Dimensions() {
		slog.Warn("embedding dimension mismatch, semantic search disabled",
			slog.Int("index_dimensions", indexDim),
			slog.Int("embedder_dimensions", e.embedder.Dimensions()),
			slog.String("recovery", "run 'vaultmcp index --force'"))
		return true
	}
	return false
}

// loadSnippets resolves fused chunk IDs into snippets, preserving rank
// order. IDs missing from the metadata store are dropped; they are
// orphans left by a partially failed delete.
func (e *Engine) loadSnippets(ctx context.Context, fused []*FusedResult) ([]*Snippet, error) {
	if len(fused) == 0 {
		return []*Snippet{}, nil
	}

	ids := make([]string, len(fused))
	byID := make(map[string]*FusedResult, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
		byID[f.ChunkID] = f
	}

	records, err := e.meta.GetChunks(ctx, ids)
	if err != nil {
		return nil, vaulterrors.StoreUnavailableError("failed to load chunks", err)
	}

	snippets := make([]*Snippet, 0, len(records))
	for _, rec := range records {
		f := byID[rec.ID]
		if f == nil {
			continue
		}
		snippets = append(snippets, &Snippet{
			ChunkID:      rec.ID,
			Path:         rec.Path,
			Title:        rec.Title,
			ChunkIndex:   rec.ChunkIndex,
			Score:        f.RRFScore,
			Text:         rec.Content,
			StartChar:    rec.StartChar,
			EndChar:      rec.EndChar,
			MatchedTerms: f.MatchedTerms,
		})
	}

	return snippets, nil
}

// reconstructNote reassembles a note's full content from its stored
// chunks. Overlapping regions are emitted once.
func (e *Engine) reconstructNote(ctx context.Context, path string) (string, int, error) {
	records, err := e.meta.GetChunksByPath(ctx, path)
	if err != nil {
		return "", 0, err
	}

	chunks := make([]chunk.Chunk, len(records))
	for i, rec := range records {
		chunks[i] = chunk.Chunk{
			ID:        rec.ID,
			Path:      rec.Path,
			Title:     rec.Title,
			Index:     rec.ChunkIndex,
			Text:      rec.Content,
			StartChar: rec.StartChar,
			EndChar:   rec.EndChar,
		}
	}

	return chunk.Join(chunks), len(records), nil
}

// applyDefaults fills in default values for search options.
func (e *Engine) applyDefaults(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	if opts.Weights == nil {
		w := e.config.DefaultWeights
		opts.Weights = &w
	}
	return opts
}

// filterSnippetsByFolder keeps snippets whose path is under folder.
func filterSnippetsByFolder(snippets []*Snippet, folder string) []*Snippet {
	if folder == "" {
		return snippets
	}
	folder = strings.TrimSuffix(folder, "/")

	filtered := snippets[:0]
	for _, s := range snippets {
		if s.Path == folder || strings.HasPrefix(s.Path, folder+"/") {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
