// Package mcp exposes the pacer MCP server to programs that embed it.
package mcp

import infra "github.com/felixgeelhaar/pacer/internal/infrastructure/mcp"

// Server exposes the MCP server implementation from the infrastructure layer.
type Server = infra.Server

// SchemaVersion is the version of the tool contract the server speaks.
const SchemaVersion = infra.SchemaVersion

// NewServer constructs an MCP server rooted at the provided workspace.
func NewServer(root string) (*Server, error) {
	return infra.NewServer(root)
}
