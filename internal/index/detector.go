// Package index keeps the stores synchronized with the vault: it
// classifies filesystem changes, reconciles chunk sets against the
// vector and keyword stores, and coordinates full scans and watch
// events with per-path serialization.
package index

import (
	"github.com/noteworks/vaultmcp/internal/store"
)

// Classification is the change detector's verdict for a path.
type Classification int

const (
	// Unchanged means the content hash matches the recorded hash.
	Unchanged Classification = iota
	// New means the path has no prior record.
	New
	// Modified means the content hash differs from the recorded hash.
	Modified
	// Deleted means the path no longer exists on disk but a record does.
	Deleted
)

// String returns a human-readable representation of the classification.
func (c Classification) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case New:
		return "new"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Classify determines what happened to a path since it was last indexed.
// record is the scan state's last-seen record (nil if never indexed),
// exists reports whether the file is currently on disk, and hash is the
// current content hash (ignored when exists is false).
//
// Comparison is by content hash, not modification time, so a
// touch-without-edit stays Unchanged and an edit that preserves the
// timestamp is still caught.
func Classify(record *store.FileRecord, exists bool, hash string) Classification {
	switch {
	case !exists && record == nil:
		return Unchanged // never indexed and not on disk, nothing to do
	case !exists:
		return Deleted
	case record == nil:
		return New
	case record.Hash == hash:
		return Unchanged
	default:
		return Modified
	}
}
