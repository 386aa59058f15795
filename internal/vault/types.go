// Package vault provides document discovery and reading for a notes vault.
// It enumerates Markdown files under the vault root, respecting exclusion
// rules, and reads them into sanitized in-memory documents.
package vault

import (
	"time"
)

// Document is a note read from the vault.
type Document struct {
	// Path is the file path relative to the vault root.
	Path string
	// AbsPath is the absolute file path.
	AbsPath string
	// Title is the note title (file name without extension).
	Title string
	// Content is the decoded text. Invalid UTF-8 byte sequences have
	// been replaced with U+FFFD, so Content is always valid UTF-8.
	Content string
	// Hash is the SHA-256 hex digest of the raw file bytes.
	Hash string
	// Size is the raw file size in bytes.
	Size int64
	// ModTime is the file's last modification time.
	ModTime time.Time
}

// FileInfo contains metadata about a discovered file, before reading it.
type FileInfo struct {
	Path    string // Relative to vault root
	AbsPath string
	Size    int64
	ModTime time.Time
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the vault root directory to scan.
	RootDir string

	// ExcludeDirs lists directory names skipped entirely.
	ExcludeDirs []string

	// MaxFileSize is the maximum file size to include in bytes (0 = 10MB default).
	MaxFileSize int64
}

// DefaultMaxFileSize is the default maximum file size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// noteExtensions are the file extensions treated as vault notes.
var noteExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}
