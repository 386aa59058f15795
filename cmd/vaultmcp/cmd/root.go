// Package cmd provides the CLI commands for VaultMCP.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/noteworks/vaultmcp/internal/logging"
	"github.com/noteworks/vaultmcp/pkg/version"
)

var (
	vaultFlag      string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the vaultmcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaultmcp",
		Short: "MCP search server for Markdown note vaults",
		Long: `VaultMCP watches an Obsidian-style Markdown vault, keeps a hybrid
search index (keyword + semantic) continuously synchronized with it,
and exposes search to AI assistants over the Model Context Protocol.

Running 'vaultmcp' with no arguments scans the vault and starts the
MCP server on stdio.`,
		Version: version.Version,
		// Errors are formatted once in main with their hint and code.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			// Smart default: same as 'vaultmcp serve'
			return runServe(cmd.Context(), vaultFlag)
		},
	}

	cmd.SetVersionTemplate("vaultmcp version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&vaultFlag, "vault", "", "Vault root directory (default: autodiscover)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRunE = teardownLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging routes logs to the rotating log file. Stdout stays
// reserved for MCP JSON-RPC and command output.
func setupLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
