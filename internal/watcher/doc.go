// Package watcher provides real-time vault watching with automatic
// debouncing.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: Polling for environments where fsnotify fails (network
//     mounts, some cloud-synced folders)
//
// Events are debounced to coalesce the rapid save bursts that editors
// like Obsidian produce, and filtered against the vault's excluded
// directories.
//
// Usage:
//
//	opts := watcher.DefaultOptions()
//	w, err := watcher.NewVaultWatcher(opts)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	if err := w.Start(ctx, "/path/to/vault"); err != nil {
//	    return err
//	}
//
//	for batch := range w.Events() {
//	    for _, event := range batch {
//	        // Reconcile the changed path
//	    }
//	}
package watcher
