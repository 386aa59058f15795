// Package mcp implements the Model Context Protocol server for VaultMCP.
// It exposes the vault index to AI clients over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	verrors "github.com/noteworks/vaultmcp/internal/errors"
)

// Custom MCP error codes for VaultMCP.
const (
	// ErrCodeIndexNotReady indicates the vault index is still building.
	ErrCodeIndexNotReady = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeNoteNotFound indicates a note no longer exists in the vault.
	ErrCodeNoteNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ve *verrors.VaultError
	if errors.As(err, &ve) {
		return mapVaultError(ve)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// mapVaultError converts a VaultError to an MCPError. The suggestion,
// when present, is appended so clients can surface the recovery step.
func mapVaultError(ve *verrors.VaultError) *MCPError {
	message := ve.Message
	if ve.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ve.Message, ve.Suggestion)
	}

	switch ve.Category {
	case verrors.CategoryValidation:
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: message,
		}
	case verrors.CategoryIO:
		if ve.Code == verrors.ErrCodeFileNotFound {
			return &MCPError{
				Code:    ErrCodeNoteNotFound,
				Message: message,
			}
		}
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: message,
		}
	case verrors.CategoryStore:
		if ve.Code == verrors.ErrCodeStoreCorrupt {
			return &MCPError{
				Code:    ErrCodeIndexNotReady,
				Message: message,
			}
		}
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: message,
		}
	case verrors.CategoryInternal:
		if ve.Code == verrors.ErrCodeEmbeddingFailed {
			return &MCPError{
				Code:    ErrCodeEmbeddingFailed,
				Message: message,
			}
		}
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: message,
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: message,
		}
	}
}
