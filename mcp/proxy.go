package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/tools"
)

// DefaultCallTimeout bounds a single proxied tool call.
const DefaultCallTimeout = 30 * time.Second

// RegisterTools lists the server's tools and registers a proxy for each one
// into reg. When only is non-empty, just those tools are exposed, and naming
// a tool the server does not offer is an error.
func RegisterTools(ctx context.Context, reg tools.Registry, client ClientLike, timeout time.Duration, only ...string) error {
	if reg == nil || client == nil {
		return fmt.Errorf("nil registry or client")
	}
	listed, err := client.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}

	want := make(map[string]bool, len(only))
	for _, name := range only {
		want[name] = false
	}
	for _, info := range listed {
		if len(want) > 0 {
			if _, ok := want[info.Name]; !ok {
				continue
			}
			want[info.Name] = true
		}
		if err := reg.Register(&remoteTool{client: client, info: info, timeout: timeout}); err != nil {
			return err
		}
	}
	for name, found := range want {
		if !found {
			return fmt.Errorf("tool %s not offered by server", name)
		}
	}
	return nil
}

// remoteTool forwards Execute to the tool server.
type remoteTool struct {
	client  ClientLike
	info    ToolInfo
	timeout time.Duration
}

func (r *remoteTool) Name() string        { return r.info.Name }
func (r *remoteTool) Description() string { return r.info.Description }

func (r *remoteTool) Schema() map[string]interface{} {
	if r.info.Schema == nil {
		return tools.EmptyObjectSchema()
	}
	return r.info.Schema
}

func (r *remoteTool) Execute(ctx context.Context, input string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.client.ExecuteTool(ctx, r.info.Name, input)
}

var _ tools.Tool = (*remoteTool)(nil)
