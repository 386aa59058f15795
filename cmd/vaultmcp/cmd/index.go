package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/noteworks/vaultmcp/internal/config"
	"github.com/noteworks/vaultmcp/internal/profiling"
	"github.com/noteworks/vaultmcp/internal/ui"
)

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	var (
		force      bool
		cpuProfile string
		memProfile string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run a one-shot full scan of the vault",
		Long: `Index reconciles the stores with the current vault contents and
exits. Unchanged notes are skipped via content hashing, so repeated
runs are cheap.

With --force the existing index is discarded first and every note is
re-chunked and re-embedded. Use this after changing chunking settings
or the embedding provider.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cpuProfile != "" {
				stop, err := profiling.NewProfiler().StartCPU(cpuProfile)
				if err != nil {
					return err
				}
				defer stop()
			}
			if memProfile != "" {
				defer func() {
					if err := profiling.NewProfiler().WriteHeap(memProfile); err != nil {
						slog.Warn("failed to write heap profile", slog.String("error", err.Error()))
					}
				}()
			}
			return runIndex(cmd.Context(), cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Discard the existing index and rebuild from scratch")
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "Write a CPU profile of the scan to this file")
	cmd.Flags().StringVar(&memProfile, "memprofile", "", "Write a heap profile after the scan to this file")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, force bool) error {
	printer := ui.NewPrinter(cmd.OutOrStdout())

	if force {
		if err := clearDataDir(vaultFlag); err != nil {
			return err
		}
		printer.Printf("existing index discarded")
	}

	p, err := openPipeline(vaultFlag)
	if err != nil {
		return err
	}
	defer func() { _ = p.close() }()

	if err := p.coordinator.Initialize(ctx); err != nil {
		return err
	}

	printer.Printf("indexing %s", p.vaultPath)
	stats, err := p.coordinator.FullScan(ctx)
	if err != nil {
		return err
	}

	printer.Successf("scanned %d notes in %s", stats.Scanned, stats.Duration.Round(10*time.Millisecond))
	printer.Printf("  indexed:   %d", stats.Indexed)
	printer.Printf("  unchanged: %d", stats.Unchanged)
	printer.Printf("  removed:   %d", stats.Removed)
	if stats.Failed > 0 {
		printer.Warnf("%d notes failed and will be retried next scan", stats.Failed)
	}

	return nil
}

// clearDataDir removes the index files so the next open starts fresh.
// The lock file and anything else in the data directory are preserved.
func clearDataDir(vaultFlagValue string) error {
	vaultPath, err := config.DiscoverVault(vaultFlagValue)
	if err != nil {
		return err
	}
	cfg, err := config.Load(vaultPath)
	if err != nil {
		return err
	}
	if cfg.Vault.Path == "" {
		cfg.Vault.Path = vaultPath
	}
	dataDir := cfg.DataDir()

	for _, name := range []string{
		metadataFileName,
		metadataFileName + "-wal",
		metadataFileName + "-shm",
		vectorFileName,
		vectorFileName + ".meta",
	} {
		if err := os.Remove(filepath.Join(dataDir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	if err := os.RemoveAll(filepath.Join(dataDir, keywordDirName)); err != nil {
		return fmt.Errorf("failed to remove keyword index: %w", err)
	}
	return nil
}
