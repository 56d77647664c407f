package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/tools"
)

// cannedServer answers ListTools from a fixed list and echoes calls.
type cannedServer struct {
	tools    []ToolInfo
	listErr  error
	callErr  error
	deadline bool
}

func (c *cannedServer) ListTools(ctx context.Context) ([]ToolInfo, error) { return c.tools, c.listErr }

func (c *cannedServer) ExecuteTool(ctx context.Context, name string, input string) (string, error) {
	_, c.deadline = ctx.Deadline()
	if c.callErr != nil {
		return "", c.callErr
	}
	return name + " " + input, nil
}

func inventoryServer() *cannedServer {
	return &cannedServer{tools: []ToolInfo{
		{Name: "check_stock", Description: "Check stock", Schema: map[string]any{"type": "object", "required": []string{"product_id"}}},
		{Name: "get_product_info", Description: "Product details"},
		{Name: "list_products", Description: "All products"},
	}}
}

func TestRegisterToolsProxiesCalls(t *testing.T) {
	srv := inventoryServer()
	reg := tools.NewRegistry()
	if err := RegisterTools(context.Background(), reg, srv, time.Second); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := strings.Join(reg.List(), ","); got != "check_stock,get_product_info,list_products" {
		t.Fatalf("registered %s", got)
	}
	out, err := reg.Execute(context.Background(), "check_stock", `{"product_id":"PROD-002"}`)
	if err != nil || out != `check_stock {"product_id":"PROD-002"}` {
		t.Fatalf("proxied call = %q, %v", out, err)
	}
	if !srv.deadline {
		t.Fatalf("call timeout not applied")
	}

	tool, _ := reg.Get("list_products")
	if tool.Schema()["type"] != "object" || tool.Description() != "All products" {
		t.Fatalf("missing schema should default to an empty object: %v", tool.Schema())
	}
}

func TestRegisterToolsFilter(t *testing.T) {
	reg := tools.NewRegistry()
	if err := RegisterTools(context.Background(), reg, inventoryServer(), 0, "check_stock"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if names := reg.List(); len(names) != 1 || names[0] != "check_stock" {
		t.Fatalf("filter not applied: %v", names)
	}

	err := RegisterTools(context.Background(), tools.NewRegistry(), inventoryServer(), 0, "track_shipment")
	if err == nil || !strings.Contains(err.Error(), "track_shipment not offered") {
		t.Fatalf("expected unknown tool error, got %v", err)
	}
}

func TestRegisterToolsErrors(t *testing.T) {
	if err := RegisterTools(context.Background(), nil, nil, 0); err == nil {
		t.Fatalf("expected error for nil arguments")
	}
	down := &cannedServer{listErr: errors.New("server exited")}
	if err := RegisterTools(context.Background(), tools.NewRegistry(), down, 0); err == nil || !strings.Contains(err.Error(), "list tools") {
		t.Fatalf("list failure: %v", err)
	}

	srv := inventoryServer()
	srv.callErr = errors.New("Product PROD-999 not found")
	reg := tools.NewRegistry()
	_ = RegisterTools(context.Background(), reg, srv, 0)
	if _, err := reg.Execute(context.Background(), "get_product_info", `{"product_id":"PROD-999"}`); err == nil {
		t.Fatalf("expected the server's error")
	}
	if srv.deadline {
		t.Fatalf("zero timeout should not set a deadline")
	}
}
