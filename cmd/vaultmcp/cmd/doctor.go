package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noteworks/vaultmcp/internal/config"
	"github.com/noteworks/vaultmcp/internal/embed"
	"github.com/noteworks/vaultmcp/internal/preflight"
	"github.com/noteworks/vaultmcp/internal/ui"
)

// newDoctorCmd creates the doctor command.
func newDoctorCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment can run the pipeline",
		Long: `Doctor runs the same preflight checks the server performs at startup
and reports the results. It does not take the index lock, so it is
safe to run while a server is active.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, jsonOutput bool) error {
	vaultPath, err := config.DiscoverVault(vaultFlag)
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

	embedder, err := embed.New(cfg.Embeddings.Provider, cfg.Embeddings.CacheSize)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	results := preflight.RunAll(cmd.Context(), preflight.Target{
		VaultPath: vaultPath,
		DataDir:   cfg.DataDir(),
		Embedder:  embedder,
	})

	if jsonOutput {
		if err := printJSON(cmd, results); err != nil {
			return err
		}
	} else {
		printer := ui.NewPrinter(cmd.OutOrStdout())
		for _, r := range results {
			switch r.Status {
			case preflight.StatusPass:
				printer.Successf("%s: %s", r.Name, r.Message)
			case preflight.StatusWarn:
				printer.Warnf("%s: %s", r.Name, r.Message)
			default:
				printer.Errorf("%s: %s", r.Name, r.Message)
			}
		}
	}

	if preflight.HasCriticalFailures(results) {
		return fmt.Errorf("preflight checks failed")
	}
	return nil
}
