package logging

import (
	"log/slog"
)

// SetupMCPMode routes all logging to the rotating log file only.
// The MCP transport owns stdout for JSON-RPC, and some clients treat
// stderr output as a startup failure, so neither stream is safe while
// serving.
func SetupMCPMode(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("mcp mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
