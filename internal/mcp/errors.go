// Package mcp implements the Model Context Protocol server that exposes
// organization search to AI clients over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/store"
)

// Custom MCP error codes.
const (
	// ErrCodeNotFound indicates the organization does not exist.
	ErrCodeNotFound = -32001

	// ErrCodeUnavailable indicates a backing store could not be reached.
	ErrCodeUnavailable = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrToolNotFound indicates the requested tool does not exist.
var ErrToolNotFound = errors.New("tool not found")

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors. Causes never reach the
// client; they may carry SQL or upstream responses.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	switch {
	case errors.Is(err, organization.ErrInvalidRef):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid organization reference. Use a UUID or a 9-digit organisasjonsnummer.",
		}
	case errors.Is(err, store.ErrNotFound):
		return &MCPError{
			Code:    ErrCodeNotFound,
			Message: "Organization not found.",
		}
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
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Tool not found.",
		}
	}

	if e, ok := ferrors.As(err); ok {
		return mapStructured(e)
	}

	return &MCPError{
		Code:    ErrCodeInternalError,
		Message: "Internal server error.",
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapStructured(e *ferrors.Error) *MCPError {
	message := e.Message
	if e.Suggestion != "" {
		message = fmt.Sprintf("%s %s", e.Message, e.Suggestion)
	}

	switch {
	case e.Code == ferrors.ErrCodeNotFound:
		return &MCPError{Code: ErrCodeNotFound, Message: message}
	case e.Category == ferrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case e.Code == ferrors.ErrCodeUpstreamTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case e.Category == ferrors.CategoryStorage, e.Category == ferrors.CategoryUpstream:
		return &MCPError{Code: ErrCodeUnavailable, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
