// Package mcp exposes meeting extraction as MCP tools.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the extraction service directly. Transcripts are redacted by
// the service before any item text is returned to clients.
package mcp
