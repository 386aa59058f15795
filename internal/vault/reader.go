package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	vaulterrors "github.com/noteworks/vaultmcp/internal/errors"
)

// Reader reads vault notes into documents.
type Reader struct {
	root        string
	maxFileSize int64
}

// NewReader creates a Reader rooted at the vault directory.
func NewReader(root string, maxFileSize int64) *Reader {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Reader{root: root, maxFileSize: maxFileSize}
}

// Root returns the vault root directory.
func (r *Reader) Root() string {
	return r.root
}

// Read loads the note at relPath into a Document.
//
// The hash is computed over the raw bytes; the content is then decoded
// with invalid UTF-8 sequences replaced by U+FFFD so downstream chunking
// always operates on well-formed text.
func (r *Reader) Read(relPath string) (*Document, error) {
	absPath := filepath.Join(r.root, filepath.FromSlash(relPath))

	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, vaulterrors.ReadError(relPath, err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, vaulterrors.ReadError(relPath, fmt.Errorf("symlinks are not indexed"))
	}
	if info.Size() > r.maxFileSize {
		return nil, vaulterrors.New(vaulterrors.ErrCodeFileTooLarge,
			fmt.Sprintf("%s exceeds size limit (%d bytes)", relPath, info.Size()), nil).
			WithDetail("path", relPath)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, vaulterrors.ReadError(relPath, err)
	}

	sum := sha256.Sum256(raw)

	return &Document{
		Path:    filepath.ToSlash(relPath),
		AbsPath: absPath,
		Title:   NoteTitle(relPath),
		Content: strings.ToValidUTF8(string(raw), "�"),
		Hash:    hex.EncodeToString(sum[:]),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Hash computes the content hash for raw bytes, matching Document.Hash.
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
