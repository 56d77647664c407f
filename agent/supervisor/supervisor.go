// Package supervisor lets one agent delegate to another through the ordinary
// tool-calling path.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	core "github.com/suryapa1/adk-simple-mcp-demo-with-armour/agent/core"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/tools"
)

// Request is the argument object the model fills in when delegating.
type Request struct {
	Request string `json:"request" jsonschema:"description=The customer's request, restated in full for the specialist agent"`
}

// AgentTool wraps an Agent as a tools.Tool so it can be delegated to.
type AgentTool struct {
	NameStr, Desc string
	Agent         core.Agent
}

// NewAgentTool wraps agent under name.
func NewAgentTool(name, description string, agent core.Agent) *AgentTool {
	return &AgentTool{NameStr: name, Desc: description, Agent: agent}
}

func (a *AgentTool) Name() string        { return a.NameStr }
func (a *AgentTool) Description() string { return a.Desc }
func (a *AgentTool) Schema() map[string]interface{} {
	return tools.SchemaFor[Request]()
}

// Execute runs the wrapped agent on the request. Plain-text input is accepted
// as the request itself.
func (a *AgentTool) Execute(ctx context.Context, input string) (string, error) {
	if a.Agent == nil {
		return "", fmt.Errorf("%s: nil agent", a.NameStr)
	}
	request := strings.TrimSpace(input)
	var req Request
	if err := json.Unmarshal([]byte(input), &req); err == nil {
		request = strings.TrimSpace(req.Request)
	}
	if request == "" {
		return "", fmt.Errorf("%s: empty request", a.NameStr)
	}

	out, err := a.Agent.Run(ctx, core.Message{Role: "user", Content: request})
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.NameStr, err)
	}
	return out.Content, nil
}

var _ tools.Tool = (*AgentTool)(nil)
