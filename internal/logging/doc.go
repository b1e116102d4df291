// Package logging configures the process-wide slog logger.
//
// The HTTP server logs JSON to stderr by default. A file path enables a
// size-rotated log file; the MCP server uses file-only logging because stdout
// carries the JSON-RPC stream.
package logging
