package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectBatch(t *testing.T, d *Debouncer, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case events := <-d.Output():
		return events
	case <-time.After(timeout):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_RapidSavesCollapseToOneEvent(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: five rapid saves arrive for the same note
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "daily/today.md", Operation: OpModify, Timestamp: time.Now()})
		time.Sleep(5 * time.Millisecond)
	}

	// Then: exactly one event is emitted
	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, "daily/today.md", batch[0].Path)
	assert.Equal(t, OpModify, batch[0].Operation)

	// And: no second batch follows
	select {
	case extra := <-d.Output():
		t.Fatalf("unexpected second batch: %v", extra)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_CreateThenModifyStaysCreate(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "new.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "new.md", Operation: OpModify})

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_CreateThenDeleteCancelsOut(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "temp.md", Operation: OpCreate})
	d.Add(FileEvent{Path: "temp.md", Operation: OpDelete})

	// The pair cancels, so nothing is emitted
	select {
	case batch := <-d.Output():
		t.Fatalf("expected no events, got %v", batch)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_ModifyThenDeleteBecomesDelete(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "note.md", Operation: OpModify})
	d.Add(FileEvent{Path: "note.md", Operation: OpDelete})

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, OpDelete, batch[0].Operation)
}

func TestDebouncer_DeleteThenCreateBecomesModify(t *testing.T) {
	// Editors often replace a file by deleting and recreating it
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "note.md", Operation: OpDelete})
	d.Add(FileEvent{Path: "note.md", Operation: OpCreate})

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_DistinctPathsEmitSeparately(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.md", Operation: OpModify})
	d.Add(FileEvent{Path: "b.md", Operation: OpCreate})

	batch := collectBatch(t, d, time.Second)
	require.Len(t, batch, 2)

	paths := map[string]Operation{}
	for _, e := range batch {
		paths[e.Path] = e.Operation
	}
	assert.Equal(t, OpModify, paths["a.md"])
	assert.Equal(t, OpCreate, paths["b.md"])
}

func TestDebouncer_StopIsIdempotentAndDropsLateEvents(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	d.Stop()
	d.Stop()

	// Adds after stop are ignored
	d.Add(FileEvent{Path: "late.md", Operation: OpCreate})

	_, open := <-d.Output()
	assert.False(t, open)
}
