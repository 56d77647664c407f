package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// FuncTool adapts a plain Go function into a Tool. The function's return
// value is JSON-encoded as the tool result, so static lookups can be exposed
// to the model without a hand-written Tool type.
type FuncTool struct {
	name        string
	description string
	schema      map[string]interface{}
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFuncTool builds a tool that decodes its arguments into a map before
// calling fn. A nil schema advertises an object with no properties.
func NewFuncTool(name, description string, schema map[string]interface{}, fn func(ctx context.Context, args map[string]any) (any, error)) *FuncTool {
	if schema == nil {
		schema = EmptyObjectSchema()
	}
	return &FuncTool{name: name, description: description, schema: schema, fn: fn}
}

// NewStaticTool exposes a zero-argument function returning fixed data.
func NewStaticTool(name, description string, fn func() any) *FuncTool {
	return NewFuncTool(name, description, nil, func(context.Context, map[string]any) (any, error) {
		return fn(), nil
	})
}

func (f *FuncTool) Name() string                   { return f.name }
func (f *FuncTool) Description() string            { return f.description }
func (f *FuncTool) Schema() map[string]interface{} { return f.schema }

// Execute implements Tool
func (f *FuncTool) Execute(ctx context.Context, input string) (string, error) {
	args := map[string]any{}
	if input != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", fmt.Errorf("%s: invalid arguments: %w", f.name, err)
		}
	}
	out, err := f.fn(ctx, args)
	if err != nil {
		return "", err
	}
	if s, ok := out.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("%s: encode result: %w", f.name, err)
	}
	return string(b), nil
}

var _ Tool = (*FuncTool)(nil)
