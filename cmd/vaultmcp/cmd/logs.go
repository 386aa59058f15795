package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/noteworks/vaultmcp/internal/logging"
	"github.com/noteworks/vaultmcp/internal/ui"
)

// newLogsCmd creates the logs command.
func newLogsCmd() *cobra.Command {
	var (
		lines    int
		level    string
		grep     string
		follow   bool
		filePath string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the server log",
		Long: `Logs shows recent entries from the server log file. The server logs
to a file because stdout is reserved for MCP JSON-RPC, so this is the
way to see what a running server is doing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, logsFlags{
				lines:    lines,
				level:    level,
				grep:     grep,
				follow:   follow,
				filePath: filePath,
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&grep, "grep", "", "Only show lines matching this regexp")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep watching for new entries")
	cmd.Flags().StringVar(&filePath, "file", "", "Log file to read (default: the server log)")

	return cmd
}

type logsFlags struct {
	lines    int
	level    string
	grep     string
	follow   bool
	filePath string
}

func runLogs(cmd *cobra.Command, flags logsFlags) error {
	path, err := logging.FindLogFile(flags.filePath)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if flags.grep != "" {
		pattern, err = regexp.Compile(flags.grep)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   flags.level,
		Pattern: pattern,
		NoColor: !ui.UseColor(out),
	}, out)

	entries, err := viewer.Tail(path, flags.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !flags.follow {
		return nil
	}

	ch := make(chan logging.LogEntry, 64)
	go func() {
		for entry := range ch {
			viewer.Print([]logging.LogEntry{entry})
		}
	}()
	defer close(ch)

	return viewer.Follow(cmd.Context(), path, ch)
}
