// Package mcp connects agents to Model Context Protocol tool servers. Remote
// tools are listed once at connect time and registered as local proxies, so
// the agent runtime dispatches to them like any other tools.Tool.
package mcp

import "context"

// ToolInfo describes one tool advertised by a server.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema"`
}

// ClientLike abstracts over different MCP client transports
type ClientLike interface {
	ListTools(ctx context.Context) ([]ToolInfo, error)
	// ExecuteTool calls name with JSON-encoded arguments and returns the
	// tool's text output.
	ExecuteTool(ctx context.Context, name string, input string) (string, error)
}
