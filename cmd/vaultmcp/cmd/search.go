package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noteworks/vaultmcp/internal/search"
	"github.com/noteworks/vaultmcp/internal/ui"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var (
		limit       int
		folder      string
		full        bool
		keywordOnly bool
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the vault from the command line",
		Long: `Search runs the same hybrid query the MCP tools use and prints the
results. By default it shows matching chunks; --full returns whole
notes with reconstructed content.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, searchFlags{
				limit:       limit,
				folder:      folder,
				full:        full,
				keywordOnly: keywordOnly,
				jsonOutput:  jsonOutput,
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVar(&folder, "folder", "", "Restrict results to notes under this vault folder")
	cmd.Flags().BoolVar(&full, "full", false, "Return whole notes instead of chunks")
	cmd.Flags().BoolVar(&keywordOnly, "keyword-only", false, "Skip semantic search")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

type searchFlags struct {
	limit       int
	folder      string
	full        bool
	keywordOnly bool
	jsonOutput  bool
}

func runSearch(cmd *cobra.Command, query string, flags searchFlags) error {
	p, err := openPipeline(vaultFlag)
	if err != nil {
		return err
	}
	defer func() { _ = p.close() }()

	ctx := cmd.Context()
	opts := search.Options{
		Limit:       flags.limit,
		Folder:      flags.folder,
		KeywordOnly: flags.keywordOnly,
	}

	if flags.full {
		results, err := p.engine.SearchFull(ctx, query, opts)
		if err != nil {
			return err
		}
		if flags.jsonOutput {
			return printJSON(cmd, results)
		}
		printNoteResults(cmd, query, results)
		return nil
	}

	snippets, err := p.engine.SearchSnippets(ctx, query, opts)
	if err != nil {
		return err
	}
	if flags.jsonOutput {
		return printJSON(cmd, snippets)
	}
	printSnippets(cmd, query, snippets)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSnippets(cmd *cobra.Command, query string, snippets []*search.Snippet) {
	printer := ui.NewPrinter(cmd.OutOrStdout())

	if len(snippets) == 0 {
		printer.Printf("no results for %q", query)
		return
	}

	printer.Headerf("%d results for %q", len(snippets), query)
	for i, s := range snippets {
		printer.Printf("")
		printer.Headerf("%d. %s (chunk %d, score %.2f)", i+1, s.Path, s.ChunkIndex, s.Score)
		if len(s.MatchedTerms) > 0 {
			printer.Dimf("   matched: %s", strings.Join(s.MatchedTerms, ", "))
		}
		printer.Printf("   %s", excerpt(s.Text, 200))
	}
}

func printNoteResults(cmd *cobra.Command, query string, results []*search.NoteResult) {
	printer := ui.NewPrinter(cmd.OutOrStdout())

	if len(results) == 0 {
		printer.Printf("no results for %q", query)
		return
	}

	printer.Headerf("%d notes for %q", len(results), query)
	for i, r := range results {
		printer.Printf("")
		printer.Headerf("%d. %s (%d chunks, score %.2f)", i+1, r.Path, r.ChunkCount, r.Score)
		printer.Printf("%s", excerpt(r.Content, 400))
	}
}

// excerpt truncates text at a rune boundary for display.
func excerpt(text string, max int) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return fmt.Sprintf("%s...", string(runes[:max]))
}
