package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool is a named, schema-declared operation the model may ask to run.
// The set of tools is closed: only this package can implement it.
type Tool interface {
	Name() string
	Description() string
	Parameters() jsonschema.Definition // JSON schema for the arguments object
	Invoke(ctx context.Context, args json.RawMessage) Result
	sealed()
}

// Result is the outcome of one tool invocation. It is either a Success or a
// Failure; callers switch on the concrete type.
type Result interface {
	// Content renders the result as the text fed back to the model.
	Content() string
	isResult()
}

// Success carries the payload returned by a tool.
type Success struct {
	Value any
}

func (Success) isResult() {}

func (s Success) Content() string {
	if str, ok := s.Value.(string); ok {
		return str
	}
	data, err := json.MarshalIndent(s.Value, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", s.Value)
	}
	return string(data)
}

// Failure describes why a tool could not complete. Its content always starts
// with "Failed to <op>: " so the model can explain the problem to the user.
type Failure struct {
	Op  string
	Err error
}

func (Failure) isResult() {}

func (f Failure) Content() string {
	return fmt.Sprintf("Failed to %s: %v", f.Op, f.Err)
}

func (f Failure) Error() string { return f.Content() }

func (f Failure) Unwrap() error { return f.Err }

// Confirmator asks the user before a tool performs a write.
type Confirmator interface {
	RequestConfirmation(operation, command string, dangerous bool) bool
}

// builtin is embedded by every tool defined in this package.
type builtin struct{}

func (builtin) sealed() {}
