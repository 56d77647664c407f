package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	obs "github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
)

// Tool is one function the model may call.
type Tool interface {
	Name() string
	Description() string
	// Execute runs the tool on its JSON-encoded arguments.
	Execute(ctx context.Context, input string) (string, error)
	// Schema is the JSON schema of the argument object.
	Schema() map[string]interface{}
}

// Registry is the set of tools offered to one agent.
type Registry interface {
	Register(tool Tool) error
	Get(name string) (Tool, bool)
	// List returns tool names sorted.
	List() []string
	Execute(ctx context.Context, name string, input string) (string, error)
}

// DefaultRegistry is a map-backed Registry, safe for concurrent use.
// Execution is traced and counted per tool.
type DefaultRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{tools: make(map[string]Tool)}
}

// Register fails on duplicate names.
func (r *DefaultRegistry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[name]; dup {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	return nil
}

func (r *DefaultRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *DefaultRegistry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Execute runs name. Lookups that fail in-band, a JSON object result with
// an "error" key such as an unknown product id, still succeed but are
// counted as "tool_reported_error".
func (r *DefaultRegistry) Execute(ctx context.Context, name string, input string) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("tool %s not found", name)
	}

	span, ctx := obs.TracerImpl.StartSpan(ctx, "tool.execute")
	defer span.End()
	span.SetAttribute(obs.AttrToolName, name)
	labels := map[string]string{"tool_name": name}

	start := time.Now()
	result, err := tool.Execute(ctx, input)
	obs.MetricsImpl.IncrementRequests(labels)
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	if err != nil {
		obs.MetricsImpl.RecordError("tool_error", labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return "", err
	}
	if msg, ok := ReportedError(result); ok {
		obs.MetricsImpl.RecordError("tool_reported_error", labels)
		span.AddEvent("tool.reported_error", map[string]interface{}{"error": msg})
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return result, nil
}

// ReportedError extracts the message of an in-band {"error": "..."} result.
func ReportedError(result string) (string, bool) {
	s := strings.TrimSpace(result)
	if !strings.HasPrefix(s, "{") {
		return "", false
	}
	var obj struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj.Error == nil {
		return "", false
	}
	return *obj.Error, true
}
