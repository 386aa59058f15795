package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/noteworks/vaultmcp/internal/chunk"
	"github.com/noteworks/vaultmcp/internal/config"
	"github.com/noteworks/vaultmcp/internal/embed"
	"github.com/noteworks/vaultmcp/internal/index"
	"github.com/noteworks/vaultmcp/internal/search"
	"github.com/noteworks/vaultmcp/internal/store"
	"github.com/noteworks/vaultmcp/internal/vault"
	"github.com/noteworks/vaultmcp/internal/watcher"
)

// Data directory layout.
const (
	metadataFileName = "metadata.db"
	vectorFileName   = "vectors.hnsw"
	keywordDirName   = "keyword.bleve"
)

// pipeline holds everything a command needs to work with a vault:
// resolved configuration, the open stores, the index coordinator and
// the search engine. Closed in reverse order of construction.
type pipeline struct {
	cfg       *config.Config
	vaultPath string
	dataDir   string

	lock     *store.DataDirLock
	meta     *store.SQLiteMetadataStore
	vectors  *store.HNSWStore
	keywords *store.BleveKeywordIndex
	embedder embed.Embedder

	coordinator *index.Coordinator
	engine      *search.Engine
}

// openPipeline resolves the vault, takes the data directory lock and
// opens every store. On any failure it releases what it already holds.
func openPipeline(vaultFlag string) (p *pipeline, err error) {
	vaultPath, err := config.DiscoverVault(vaultFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(vaultPath)
	if err != nil {
		return nil, err
	}
	if cfg.Vault.Path == "" {
		cfg.Vault.Path = vaultPath
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	p = &pipeline{
		cfg:       cfg,
		vaultPath: vaultPath,
		dataDir:   dataDir,
		lock:      store.NewDataDirLock(dataDir),
	}
	defer func() {
		if err != nil {
			_ = p.close()
		}
	}()

	acquired, err := p.lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("another vaultmcp process is already using %s", dataDir)
	}

	p.embedder, err = embed.New(cfg.Embeddings.Provider, cfg.Embeddings.CacheSize)
	if err != nil {
		return nil, err
	}

	p.meta, err = store.NewSQLiteMetadataStore(filepath.Join(dataDir, metadataFileName), cfg.Performance.SQLiteCacheMB)
	if err != nil {
		return nil, err
	}

	p.vectors, err = openVectorStore(filepath.Join(dataDir, vectorFileName), p.embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	p.keywords, err = store.NewBleveKeywordIndex(filepath.Join(dataDir, keywordDirName))
	if err != nil {
		return nil, err
	}

	chunker, err := chunk.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	maxFileSize := int64(cfg.Chunking.MaxFileSizeMB) * 1024 * 1024
	reconciler := index.NewReconciler(p.meta, p.vectors, p.keywords, p.embedder, chunker)
	p.coordinator = index.NewCoordinator(index.CoordinatorConfig{
		VaultPath:   vaultPath,
		Reader:      vault.NewReader(vaultPath, maxFileSize),
		Scanner:     vault.NewScanner(cfg.Vault.Exclude),
		Reconciler:  reconciler,
		Metadata:    p.meta,
		Vectors:     p.vectors,
		VectorPath:  filepath.Join(dataDir, vectorFileName),
		ScanWorkers: cfg.Performance.ScanWorkers,
		MaxFileSize: maxFileSize,
	})

	p.engine, err = search.NewEngine(p.keywords, p.vectors, p.embedder, p.meta, search.EngineConfig{
		DefaultLimit: 10,
		MaxLimit:     cfg.Search.MaxResults * 5,
		DefaultWeights: search.Weights{
			Keyword:  cfg.Search.KeywordWeight,
			Semantic: cfg.Search.SemanticWeight,
		},
		RRFConstant: cfg.Search.RRFConstant,
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// openVectorStore creates the HNSW store and loads a saved graph when
// one exists with matching dimensions. A dimension mismatch leaves the
// store empty; the next full scan re-embeds everything.
func openVectorStore(vectorPath string, dimensions int) (*store.HNSWStore, error) {
	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dimensions))
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(vectorPath); statErr != nil {
		return vectors, nil
	}

	savedDims, err := store.ReadHNSWStoreDimensions(vectorPath)
	if err == nil && savedDims != dimensions {
		slog.Warn("saved vectors have a different dimension, starting empty",
			slog.Int("saved", savedDims),
			slog.Int("embedder", dimensions))
		return vectors, nil
	}

	if err := vectors.Load(vectorPath); err != nil {
		slog.Warn("failed to load saved vectors, starting empty",
			slog.String("path", vectorPath),
			slog.String("error", err.Error()))
	}
	return vectors, nil
}

// newWatcher creates the vault watcher from pipeline configuration.
func (p *pipeline) newWatcher() (*watcher.VaultWatcher, error) {
	debounce, err := time.ParseDuration(p.cfg.Performance.WatchDebounce)
	if err != nil {
		debounce = 0 // WithDefaults fills in 2s
	}
	return watcher.NewVaultWatcher(watcher.Options{
		DebounceWindow: debounce,
		ExcludeDirs:    p.cfg.Vault.Exclude,
	})
}

// close releases the pipeline's resources. Safe on a partially opened
// pipeline.
func (p *pipeline) close() error {
	var errs []error
	if p.keywords != nil {
		errs = append(errs, p.keywords.Close())
	}
	if p.vectors != nil {
		errs = append(errs, p.vectors.Close())
	}
	if p.meta != nil {
		errs = append(errs, p.meta.Close())
	}
	if p.embedder != nil {
		errs = append(errs, p.embedder.Close())
	}
	if p.lock != nil {
		errs = append(errs, p.lock.Unlock())
	}
	return errors.Join(errs...)
}
