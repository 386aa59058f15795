package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/noteworks/vaultmcp/internal/logging"
	"github.com/noteworks/vaultmcp/internal/mcp"
	"github.com/noteworks/vaultmcp/internal/preflight"
	"github.com/noteworks/vaultmcp/internal/watcher"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Scan the vault and serve MCP over stdio",
		Long: `Serve runs the full pipeline: an initial scan reconciles the index
with the vault, a watcher keeps it synchronized, and the MCP server
answers search_snippets, search_full and index_status over stdio.

Stdout carries MCP JSON-RPC exclusively; all diagnostics go to the
log file. Use 'vaultmcp logs' to follow them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), vaultFlag)
		},
	}
}

// runServe is the serve flow, also used by the bare 'vaultmcp' command.
func runServe(ctx context.Context, vaultFlag string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Re-route logs to the file only: stdio belongs to the MCP client
	// from here on.
	level := "info"
	if debugMode {
		level = "debug"
	}
	logCleanup, err := logging.SetupMCPMode(level)
	if err != nil {
		return err
	}
	defer logCleanup()

	p, err := openPipeline(vaultFlag)
	if err != nil {
		return err
	}
	defer func() { _ = p.close() }()

	checks := preflight.RunAll(ctx, preflight.Target{
		VaultPath: p.vaultPath,
		DataDir:   p.dataDir,
		Embedder:  p.embedder,
	})
	for _, check := range checks {
		if check.Status != preflight.StatusPass {
			slog.Warn("preflight check not clean",
				slog.String("check", check.Name),
				slog.String("status", check.Status.String()),
				slog.String("message", check.Message))
		}
	}
	if preflight.HasCriticalFailures(checks) {
		return fmt.Errorf("preflight checks failed, run 'vaultmcp doctor' for details")
	}

	if err := p.coordinator.Initialize(ctx); err != nil {
		return err
	}

	stats, err := p.coordinator.FullScan(ctx)
	if err != nil {
		return err
	}
	slog.Info("initial scan complete",
		slog.String("vault", p.vaultPath),
		slog.Int("indexed", stats.Indexed),
		slog.Int("unchanged", stats.Unchanged))

	w, err := p.newWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	server, err := mcp.NewServer(p.engine, p.coordinator, p.embedder)
	if err != nil {
		return err
	}

	return runLoops(ctx, p, w, server.Serve)
}

// runLoops drives the watcher, the event consumer and the server
// concurrently until the context is cancelled or one of them fails.
// The watcher's Start blocks for its whole lifetime, so it runs inside
// the group rather than ahead of it.
func runLoops(ctx context.Context, p *pipeline, w *watcher.VaultWatcher, serve func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(w.Start(gctx, p.vaultPath))
	})
	g.Go(func() error {
		return ignoreCanceled(p.coordinator.Watch(gctx, w))
	})
	g.Go(func() error {
		return serve(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ignoreCanceled treats context cancellation as a clean shutdown.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
