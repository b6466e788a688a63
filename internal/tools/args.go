package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// decodeArgs checks raw against schema and unmarshals it into v.
// Empty input is treated as an empty object.
func decodeArgs(schema jsonschema.Definition, raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var object map[string]any
	if err := json.Unmarshal(raw, &object); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if object == nil {
		return fmt.Errorf("invalid arguments: expected a JSON object")
	}
	for _, field := range schema.Required {
		if _, ok := object[field]; !ok {
			return fmt.Errorf("invalid arguments: missing required argument %q", field)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(schema.Properties)) {
		value, ok := object[name]
		if !ok {
			continue
		}
		if got := jsonType(value); !typeMatches(schema.Properties[name].Type, got) {
			return fmt.Errorf("invalid arguments: argument %q must be %s, got %s", name, schema.Properties[name].Type, got)
		}
	}
	if err := jsonschema.VerifySchemaAndUnmarshal(schema, raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// jsonType names the JSON type of a value decoded into any.
func jsonType(v any) jsonschema.DataType {
	switch val := v.(type) {
	case nil:
		return jsonschema.Null
	case string:
		return jsonschema.String
	case bool:
		return jsonschema.Boolean
	case float64:
		if val == float64(int64(val)) {
			return jsonschema.Integer
		}
		return jsonschema.Number
	case []any:
		return jsonschema.Array
	default:
		return jsonschema.Object
	}
}

func typeMatches(want, got jsonschema.DataType) bool {
	switch {
	case want == "" || want == got:
		return true
	case want == jsonschema.Number && got == jsonschema.Integer:
		return true
	}
	return false
}

// truthy reports whether a decoded JSON value is non-empty.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
