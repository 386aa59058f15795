package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Scanner discovers notes in a vault directory.
type Scanner struct {
	excludeDirs map[string]bool
}

// NewScanner creates a new Scanner. excludeDirs are directory names
// (not paths) skipped wherever they appear in the tree.
func NewScanner(excludeDirs []string) *Scanner {
	excluded := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		excluded[d] = true
	}
	return &Scanner{excludeDirs: excluded}
}

// Scan discovers all notes under the vault root.
// It returns a channel of ScanResult that streams files as they are
// discovered. The channel is closed when scanning is complete.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	// The ignore file is re-read on every scan so edits to it take
	// effect on the next pass.
	ignore, err := LoadIgnoreFile(absRoot)
	if err != nil {
		return nil, err
	}

	results := make(chan ScanResult, 64)

	go func() {
		defer close(results)
		s.scan(ctx, absRoot, opts, maxFileSize, ignore, results)
	}()

	return results, nil
}

// scan performs the actual directory traversal.
func (s *Scanner) scan(ctx context.Context, absRoot string, opts *ScanOptions, maxFileSize int64, ignore *IgnoreMatcher, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip entries we can't access
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}

		if d.IsDir() {
			if s.shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			if ignore.Match(filepath.ToSlash(relPath), true) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinked notes are never followed; a link cycle would
		// otherwise make the scan unbounded.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if !IsNotePath(relPath) {
			return nil
		}

		if ignore.Match(filepath.ToSlash(relPath), false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		if info.Size() > maxFileSize {
			return nil
		}

		fileInfo := &FileInfo{
			Path:    filepath.ToSlash(relPath),
			AbsPath: path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		select {
		case results <- ScanResult{File: fileInfo}:
		case <-ctx.Done():
			return ctx.Err()
		}

		return nil
	})

	if err != nil && err != context.Canceled {
		select {
		case results <- ScanResult{Error: err}:
		default:
		}
	}
}

// shouldExcludeDir reports whether a directory name is skipped.
// Hidden directories are always excluded.
func (s *Scanner) shouldExcludeDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return s.excludeDirs[name]
}

// IsNotePath reports whether a relative path looks like a vault note.
// Hidden files are never notes.
func IsNotePath(relPath string) bool {
	base := filepath.Base(relPath)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return noteExtensions[strings.ToLower(filepath.Ext(base))]
}

// NoteTitle derives the note title from a path: the file name with the
// extension removed.
func NoteTitle(relPath string) string {
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
