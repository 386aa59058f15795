package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SQLiteMetadataStore implements MetadataStore on SQLite.
// WAL mode allows a reader (the MCP server answering index_status)
// to coexist with the writer (the reconciler).
type SQLiteMetadataStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ MetadataStore = (*SQLiteMetadataStore)(nil)

// validateMetadataIntegrity checks a metadata database before opening.
// Returns nil if valid, an error describing the corruption if not.
func validateMetadataIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Database doesn't exist, will be created
	}

	db, err := sql.Open(sqliteDriver, path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	return nil
}

// NewSQLiteMetadataStore creates or opens the metadata store.
// If path is empty, creates an in-memory store for testing.
// A corrupted database is cleared and recreated; chunk content lives in
// the vector and keyword stores too, so a full scan restores it.
func NewSQLiteMetadataStore(path string, cacheMB int) (*SQLiteMetadataStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateMetadataIntegrity(path); validErr != nil {
			slog.Warn("metadata_store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("metadata store corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("metadata_store_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reindex"))
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open(sqliteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if cacheMB <= 0 {
		cacheMB = 64
	}

	// DSN params may be ignored by the pure Go driver, so set pragmas
	// explicitly as well.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", cacheMB*1024), // negative = KB
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteMetadataStore{
		db:   db,
		path: path,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the metadata tables.
func (s *SQLiteMetadataStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		path        TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		hash        TEXT NOT NULL,
		size        INTEGER NOT NULL,
		mod_time    INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		indexed_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		path        TEXT NOT NULL,
		title       TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content     TEXT NOT NULL,
		start_char  INTEGER NOT NULL,
		end_char    INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);

	CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO state (key, value) VALUES (?, ?)`,
		StateKeySchemaVersion, strconv.Itoa(CurrentSchemaVersion))
	return err
}

// SaveFile upserts a file record.
func (s *SQLiteMetadataStore) SaveFile(ctx context.Context, file *FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (path, title, hash, size, mod_time, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			hash = excluded.hash,
			size = excluded.size,
			mod_time = excluded.mod_time,
			chunk_count = excluded.chunk_count,
			indexed_at = excluded.indexed_at`,
		file.Path, file.Title, file.Hash, file.Size,
		file.ModTime.UnixNano(), file.ChunkCount, file.IndexedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save file %s: %w", file.Path, err)
	}
	return nil
}

// GetFile returns the record for a path, or nil if the path is not tracked.
func (s *SQLiteMetadataStore) GetFile(ctx context.Context, path string) (*FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT path, title, hash, size, mod_time, chunk_count, indexed_at
		FROM files WHERE path = ?`, path)

	file, err := scanFileRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}
	return file, nil
}

// AllFiles returns every tracked file, ordered by path.
func (s *SQLiteMetadataStore) AllFiles(ctx context.Context) ([]*FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, title, hash, size, mod_time, chunk_count, indexed_at
		FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*FileRecord
	for rows.Next() {
		file, err := scanFileRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// DeleteFile removes a file record. Chunks are deleted separately so the
// reconciler controls ordering.
func (s *SQLiteMetadataStore) DeleteFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// SaveChunks upserts chunk records in a single transaction.
func (s *SQLiteMetadataStore) SaveChunks(ctx context.Context, chunks []*ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, path, title, chunk_index, content, start_char, end_char, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			chunk_index = excluded.chunk_index,
			content = excluded.content,
			start_char = excluded.start_char,
			end_char = excluded.end_char,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		updatedAt := chunk.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.Path, chunk.Title, chunk.ChunkIndex,
			chunk.Content, chunk.StartChar, chunk.EndChar, updatedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// GetChunk returns a single chunk by ID.
func (s *SQLiteMetadataStore) GetChunk(ctx context.Context, id string) (*ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, title, chunk_index, content, start_char, end_char, updated_at
		FROM chunks WHERE id = ?`, id)

	chunk, err := scanChunkRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk %s: %w", id, err)
	}
	return chunk, nil
}

// GetChunks batch-retrieves chunks by ID. Missing IDs are skipped.
func (s *SQLiteMetadataStore) GetChunks(ctx context.Context, ids []string) ([]*ChunkRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, path, title, chunk_index, content, start_char, end_char, updated_at
		FROM chunks WHERE id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	// Preserve the requested order, callers pass IDs ranked by score.
	byID := make(map[string]*ChunkRecord, len(ids))
	for rows.Next() {
		chunk, err := scanChunkRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		byID[chunk.ID] = chunk
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chunks := make([]*ChunkRecord, 0, len(byID))
	for _, id := range ids {
		if chunk, ok := byID[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// GetChunksByPath returns a note's chunks ordered by chunk index.
func (s *SQLiteMetadataStore) GetChunksByPath(ctx context.Context, path string) ([]*ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, title, chunk_index, content, start_char, end_char, updated_at
		FROM chunks WHERE path = ? ORDER BY chunk_index`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks for %s: %w", path, err)
	}
	defer rows.Close()

	var chunks []*ChunkRecord
	for rows.Next() {
		chunk, err := scanChunkRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// DeleteChunks removes chunks by ID.
func (s *SQLiteMetadataStore) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM chunks WHERE id IN (%s)", strings.Join(placeholders, ","))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// DeleteChunksByPath removes all chunks for a note.
func (s *SQLiteMetadataStore) DeleteChunksByPath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", path, err)
	}
	return nil
}

// CountFiles returns the number of tracked files.
func (s *SQLiteMetadataStore) CountFiles(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return count, nil
}

// CountChunks returns the number of stored chunks.
func (s *SQLiteMetadataStore) CountChunks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// GetState returns the value for a state key, or "" if unset.
func (s *SQLiteMetadataStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("store is closed")
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// SetState upserts a state key.
func (s *SQLiteMetadataStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO state (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// RebuildFileRecords reconstructs the files table from surviving chunk
// rows. Hashes are unknown after a rebuild, so every file looks changed
// and the next scan re-indexes it. Returns the number of files rebuilt.
func (s *SQLiteMetadataStore) RebuildFileRecords(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO files (path, title, hash, size, mod_time, chunk_count, indexed_at)
		SELECT path, title, '', 0, 0, COUNT(*), MAX(updated_at)
		FROM chunks
		WHERE path NOT IN (SELECT path FROM files)
		GROUP BY path`)
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild file records: %w", err)
	}

	rebuilt, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count rebuilt records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if rebuilt > 0 {
		slog.Info("file_records_rebuilt", slog.Int64("count", rebuilt))
	}

	return int(rebuilt), nil
}

// Close closes the store. Idempotent.
// Forces a WAL checkpoint before closing.
func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row rowScanner) (*FileRecord, error) {
	var file FileRecord
	var modTime, indexedAt int64
	if err := row.Scan(&file.Path, &file.Title, &file.Hash, &file.Size,
		&modTime, &file.ChunkCount, &indexedAt); err != nil {
		return nil, err
	}
	file.ModTime = time.Unix(0, modTime)
	file.IndexedAt = time.Unix(0, indexedAt)
	return &file, nil
}

func scanChunkRecord(row rowScanner) (*ChunkRecord, error) {
	var chunk ChunkRecord
	var updatedAt int64
	if err := row.Scan(&chunk.ID, &chunk.Path, &chunk.Title, &chunk.ChunkIndex,
		&chunk.Content, &chunk.StartChar, &chunk.EndChar, &updatedAt); err != nil {
		return nil, err
	}
	chunk.UpdatedAt = time.Unix(0, updatedAt)
	return &chunk, nil
}
