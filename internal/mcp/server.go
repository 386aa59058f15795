package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/noteworks/vaultmcp/internal/embed"
	"github.com/noteworks/vaultmcp/internal/index"
	"github.com/noteworks/vaultmcp/internal/search"
	"github.com/noteworks/vaultmcp/pkg/version"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "VaultMCP"

// Server is the MCP server for VaultMCP. It bridges AI clients with
// the vault search engine and the index coordinator.
type Server struct {
	mcp         *mcp.Server
	engine      *search.Engine
	coordinator *index.Coordinator
	embedder    embed.Embedder
	logger      *slog.Logger
}

// NewServer creates a new MCP server and registers its tools.
// The embedder may be nil; index_status then reports it unavailable.
func NewServer(engine *search.Engine, coordinator *index.Coordinator, embedder embed.Embedder) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if coordinator == nil {
		return nil, errors.New("index coordinator is required")
	}

	s := &Server{
		engine:      engine,
		coordinator: coordinator,
		embedder:    embedder,
		logger:      slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_snippets",
		Description: "Search the vault and return the matching chunks. Fast and token-cheap; use this to locate relevant notes before reading them in full.",
	}, s.searchSnippetsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_full",
		Description: "Search the vault and return whole notes with their full content reconstructed. More expensive than search_snippets; use when the surrounding note context matters.",
	}, s.searchFullHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report index freshness: pipeline state, note and chunk counts, last full scan time and the active embedding backend.",
	}, s.indexStatusHandler)

	s.logger.Info("mcp tools registered", slog.Int("count", 3))
}

// searchSnippetsHandler is the MCP SDK handler for search_snippets.
func (s *Server) searchSnippetsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchSnippetsInput) (
	*mcp.CallToolResult,
	SearchSnippetsOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchSnippetsOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	start := time.Now()
	requestID := generateRequestID()
	opts := search.Options{
		Limit:  clampLimit(input.Limit, defaultToolLimit, maxToolLimit),
		Folder: input.Folder,
	}

	s.logger.Info("search_snippets started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("limit", opts.Limit))

	snippets, err := s.engine.SearchSnippets(ctx, input.Query, opts)
	if err != nil {
		s.logger.Error("search_snippets failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchSnippetsOutput{}, MapError(err)
	}

	output := SearchSnippetsOutput{
		Results: make([]SnippetOutput, 0, len(snippets)),
	}
	for _, snip := range snippets {
		output.Results = append(output.Results, toSnippetOutput(snip))
	}

	s.logger.Info("search_snippets completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(output.Results)))

	return nil, output, nil
}

// searchFullHandler is the MCP SDK handler for search_full.
func (s *Server) searchFullHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchFullInput) (
	*mcp.CallToolResult,
	SearchFullOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchFullOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	start := time.Now()
	requestID := generateRequestID()
	opts := search.Options{
		Limit:  clampLimit(input.Limit, defaultToolLimit, maxToolLimit),
		Folder: input.Folder,
	}

	s.logger.Info("search_full started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("limit", opts.Limit))

	notes, err := s.engine.SearchFull(ctx, input.Query, opts)
	if err != nil {
		s.logger.Error("search_full failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchFullOutput{}, MapError(err)
	}

	output := SearchFullOutput{
		Results: make([]NoteOutput, 0, len(notes)),
	}
	for _, note := range notes {
		output.Results = append(output.Results, toNoteOutput(note))
	}

	s.logger.Info("search_full completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(output.Results)))

	return nil, output, nil
}

// indexStatusHandler is the MCP SDK handler for index_status.
func (s *Server) indexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	status, err := s.coordinator.Status(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}

	output := &IndexStatusOutput{
		VaultPath:  status.VaultPath,
		State:      status.State,
		FileCount:  status.FileCount,
		ChunkCount: status.ChunkCount,
		Embeddings: s.embeddingInfo(ctx),
	}
	if !status.LastFullScan.IsZero() {
		output.LastFullScan = status.LastFullScan.Format(time.RFC3339)
	}

	return nil, output, nil
}

// embeddingInfo reports the active embedder state.
func (s *Server) embeddingInfo(ctx context.Context) EmbeddingInfo {
	if s.embedder == nil {
		return EmbeddingInfo{
			Provider: "none",
			Model:    "none",
			Status:   "unavailable",
		}
	}

	info := EmbeddingInfo{
		Provider:   providerForModel(s.embedder.ModelName()),
		Model:      s.embedder.ModelName(),
		Dimensions: s.embedder.Dimensions(),
		Status:     "unavailable",
	}
	if s.embedder.Available(ctx) {
		info.Status = "ready"
	}
	return info
}

// providerForModel derives the provider name from a model identifier.
func providerForModel(model string) string {
	if strings.HasPrefix(model, "static") {
		return "static"
	}
	return model
}

// Serve runs the server over stdio until the context is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mcp server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp server stopped")
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
