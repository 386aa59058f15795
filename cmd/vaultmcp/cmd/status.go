package cmd

import (
	"github.com/spf13/cobra"

	"github.com/noteworks/vaultmcp/internal/ui"
)

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the index state for the vault",
		Long: `Status reports what the index currently holds: the resolved vault
path, file and chunk counts, and when the last full scan finished.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	p, err := openPipeline(vaultFlag)
	if err != nil {
		return err
	}
	defer func() { _ = p.close() }()

	status, err := p.coordinator.Status(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, status)
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.Headerf("vault: %s", status.VaultPath)
	printer.Printf("  state:     %s", status.State)
	printer.Printf("  notes:     %d", status.FileCount)
	printer.Printf("  chunks:    %d", status.ChunkCount)
	if status.LastFullScan.IsZero() {
		printer.Warnf("no full scan recorded yet, run 'vaultmcp index'")
	} else {
		printer.Printf("  last scan: %s", status.LastFullScan.Local().Format("2006-01-02 15:04:05"))
	}
	printer.Printf("  embedder:  %s (%d dimensions)", p.embedder.ModelName(), p.embedder.Dimensions())

	return nil
}
