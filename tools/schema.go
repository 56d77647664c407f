package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/stoewer/go-strcase"
)

// SchemaFor reflects the JSON schema of T's arguments struct. Field names come
// from json tags, untagged fields are snake_cased, and descriptions come from
// `jsonschema:"description=..."` tags. Definitions are inlined so the result
// can be handed to any provider.
func SchemaFor[T any]() map[string]interface{} {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		Anonymous:      true,
		KeyNamer:       strcase.SnakeCase,
	}
	var zero T
	b, err := json.Marshal(r.Reflect(&zero))
	if err != nil {
		return EmptyObjectSchema()
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return EmptyObjectSchema()
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}

// EmptyObjectSchema is the schema of a tool that takes no arguments.
func EmptyObjectSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
