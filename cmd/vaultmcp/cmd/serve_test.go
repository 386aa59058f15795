package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLoops_ServerStartsWhileWatcherRuns(t *testing.T) {
	// Given: an open pipeline over a small vault with a fast debounce
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	vaultDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, ".vaultmcp.yaml"),
		[]byte("performance:\n  watch_debounce: 100ms\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "seed.md"),
		[]byte("# Seed\n"), 0o644))

	p, err := openPipeline(vaultDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.coordinator.Initialize(ctx))
	_, err = p.coordinator.FullScan(ctx)
	require.NoError(t, err)

	w, err := p.newWatcher()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	// When: the loops run with a stand-in server
	serving := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- runLoops(ctx, p, w, func(sctx context.Context) error {
			close(serving)
			<-sctx.Done()
			return sctx.Err()
		})
	}()

	// Then: the server stage is reached even though the watcher's Start
	// never returns on its own
	select {
	case <-serving:
	case <-time.After(3 * time.Second):
		t.Fatal("server loop never started")
	}

	// And: a note written while serving is picked up by the watcher
	// Give the watcher time to register directories first
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(vaultDir, "late.md"),
		[]byte("written while serving"), 0o644))

	require.Eventually(t, func() bool {
		file, err := p.meta.GetFile(ctx, "late.md")
		return err == nil && file != nil
	}, 10*time.Second, 100*time.Millisecond)

	// And: cancellation shuts the loops down cleanly
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("loops did not stop on cancel")
	}
}
