package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SessionClient adapts an SDK client session to ClientLike.
type SessionClient struct {
	session *sdkmcp.ClientSession
}

// NewSessionClient wraps an established session.
func NewSessionClient(session *sdkmcp.ClientSession) *SessionClient {
	return &SessionClient{session: session}
}

// ListTools implements ClientLike, following pagination to the end.
func (c *SessionClient) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var out []ToolInfo
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, err
		}
		out = append(out, ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			Schema:      schemaMap(tool.InputSchema),
		})
	}
	return out, nil
}

// ExecuteTool implements ClientLike. A result flagged as a tool error is
// returned as an error carrying the tool's text.
func (c *SessionClient) ExecuteTool(ctx context.Context, name string, input string) (string, error) {
	args := map[string]any{}
	if s := strings.TrimSpace(input); s != "" {
		if err := json.Unmarshal([]byte(s), &args); err != nil {
			return "", fmt.Errorf("%s: arguments must be a JSON object: %w", name, err)
		}
	}

	res, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}
	text := textOf(res)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	if text == "" && res.StructuredContent != nil {
		b, err := json.Marshal(res.StructuredContent)
		if err != nil {
			return "", fmt.Errorf("%s: encode structured result: %w", name, err)
		}
		return string(b), nil
	}
	return text, nil
}

// Close ends the session.
func (c *SessionClient) Close() error {
	return c.session.Close()
}

func textOf(res *sdkmcp.CallToolResult) string {
	var sb strings.Builder
	for _, content := range res.Content {
		if txt, ok := content.(*sdkmcp.TextContent); ok {
			sb.WriteString(txt.Text)
		}
	}
	return sb.String()
}

// schemaMap normalises whatever the SDK decoded for an input schema into a
// plain JSON object map.
func schemaMap(schema any) map[string]interface{} {
	if schema == nil {
		return nil
	}
	if m, ok := schema.(map[string]interface{}); ok {
		return m
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

var _ ClientLike = (*SessionClient)(nil)
