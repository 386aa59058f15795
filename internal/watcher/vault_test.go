package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestWatcher(t *testing.T, root string) *VaultWatcher {
	t.Helper()

	opts := DefaultOptions()
	opts.DebounceWindow = 50 * time.Millisecond
	opts.ExcludeDirs = []string{".obsidian", ".trash"}

	w, err := NewVaultWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})

	go func() { _ = w.Start(ctx, root) }()
	// Give the watcher time to register directories
	time.Sleep(100 * time.Millisecond)

	return w
}

func waitForBatch(t *testing.T, w *VaultWatcher, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case batch := <-w.Events():
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for watcher events")
		return nil
	}
}

func TestVaultWatcher_DetectsNewNote(t *testing.T) {
	// Given: a running watcher over an empty vault
	root := t.TempDir()
	w := startTestWatcher(t, root)

	// When: a note is created
	path := filepath.Join(root, "inbox.md")
	require.NoError(t, os.WriteFile(path, []byte("# Inbox\n"), 0644))

	// Then: a create event for the note arrives
	batch := waitForBatch(t, w, 3*time.Second)
	require.NotEmpty(t, batch)

	found := false
	for _, e := range batch {
		if e.Path == "inbox.md" {
			found = true
			assert.Contains(t, []Operation{OpCreate, OpModify}, e.Operation)
		}
	}
	assert.True(t, found, "expected an event for inbox.md, got %v", batch)
}

func TestVaultWatcher_IgnoresExcludedDirectories(t *testing.T) {
	// Given: a vault with an .obsidian directory
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".obsidian"), 0755))
	w := startTestWatcher(t, root)

	// When: a file changes inside the excluded directory
	require.NoError(t, os.WriteFile(
		filepath.Join(root, ".obsidian", "workspace.json"), []byte("{}"), 0644))

	// Then: no event is emitted
	select {
	case batch := <-w.Events():
		for _, e := range batch {
			assert.NotContains(t, e.Path, ".obsidian")
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func TestVaultWatcher_ConfigChangePassesThrough(t *testing.T) {
	// The vault config file is hidden but must still produce events
	root := t.TempDir()
	w := startTestWatcher(t, root)

	require.NoError(t, os.WriteFile(
		filepath.Join(root, ".vaultmcp.yaml"), []byte("version: 1\n"), 0644))

	batch := waitForBatch(t, w, 3*time.Second)
	require.NotEmpty(t, batch)
	assert.Equal(t, OpConfigChange, batch[0].Operation)
}

func TestVaultWatcher_StartRunsUntilCancelled(t *testing.T) {
	// Start owns the event loop for the watcher's whole lifetime, so
	// callers must run it in its own goroutine
	root := t.TempDir()
	w, err := NewVaultWatcher(DefaultOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, root) }()

	select {
	case err := <-done:
		t.Fatalf("Start returned before cancellation: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestVaultWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewVaultWatcher(DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	_, open := <-w.Events()
	assert.False(t, open)
}

func TestShouldIgnore(t *testing.T) {
	opts := DefaultOptions()
	opts.ExcludeDirs = []string{".obsidian", ".trash", "archive"}
	w, err := NewVaultWatcher(opts)
	require.NoError(t, err)
	defer w.Stop()

	tests := []struct {
		name   string
		path   string
		ignore bool
	}{
		{"plain note", "notes/idea.md", false},
		{"root note", "todo.md", false},
		{"obsidian settings", ".obsidian/app.json", true},
		{"trash", ".trash/old.md", true},
		{"custom excluded dir", "archive/2019.md", true},
		{"nested excluded dir", "projects/archive/old.md", true},
		{"hidden file", ".DS_Store", true},
		{"hidden dir segment", ".sync/state.md", true},
		{"vault config", ".vaultmcp.yaml", false},
		{"empty path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ignore, w.shouldIgnore(tt.path))
		})
	}
}

func TestPollingWatcher_DetectsChanges(t *testing.T) {
	// Given: a polling watcher with a fast interval
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing.md"), []byte("old"), 0644))

	p := NewPollingWatcher(30*time.Millisecond, map[string]bool{".obsidian": true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Start(ctx, root) }()
	time.Sleep(60 * time.Millisecond)

	// When: a file is added and another modified
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.md"), []byte("fresh"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing.md"), []byte("updated content"), 0644))

	// Then: both changes surface as events
	seen := map[string]Operation{}
	deadline := time.After(3 * time.Second)
	for len(seen) < 2 {
		select {
		case e := <-p.Events():
			seen[e.Path] = e.Operation
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	assert.Equal(t, OpCreate, seen["new.md"])
	assert.Equal(t, OpModify, seen["existing.md"])
}
