package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noteworks/vaultmcp/internal/store"
)

func TestClassify(t *testing.T) {
	recorded := &store.FileRecord{Path: "note.md", Hash: "aaa"}
	rebuilt := &store.FileRecord{Path: "note.md", Hash: ""}

	tests := []struct {
		name   string
		record *store.FileRecord
		exists bool
		hash   string
		want   Classification
	}{
		{"never indexed and not on disk", nil, false, "", Unchanged},
		{"no prior record", nil, true, "aaa", New},
		{"hash matches", recorded, true, "aaa", Unchanged},
		{"hash differs", recorded, true, "bbb", Modified},
		{"file gone", recorded, false, "", Deleted},
		{"rebuilt record always looks modified", rebuilt, true, "aaa", Modified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.record, tt.exists, tt.hash))
		})
	}
}

func TestClassify_TouchWithoutEditStaysUnchanged(t *testing.T) {
	// Same hash with a newer mtime must not trigger re-indexing
	record := &store.FileRecord{Path: "note.md", Hash: "same"}

	assert.Equal(t, Unchanged, Classify(record, true, "same"))
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "new", New.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "deleted", Deleted.String())
}
