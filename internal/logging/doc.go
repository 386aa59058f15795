// Package logging provides file-based logging with rotation for VaultMCP.
// Structured JSON logs are written to ~/.vaultmcp/logs/ and optionally
// mirrored to stderr.
//
// Stdout is never written to: the MCP server speaks its protocol there.
package logging
