package screen

import (
	"context"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
)

// Noop allows everything.
type Noop struct{}

func (Noop) Name() string { return string(BackendNone) }

func (Noop) BeforeModel(context.Context, []llm.Message) (string, bool) { return "", false }

func (Noop) AfterModel(context.Context, string) (string, bool) { return "", false }

func (Noop) BeforeTool(context.Context, string, map[string]any) (map[string]any, bool) {
	return nil, false
}

func (Noop) Close() error { return nil }

var _ Screen = Noop{}
