package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrDuplicateTool = errors.New("tool already registered")
	ErrInvalidTool   = errors.New("invalid tool")
)

// Registry maps tool names to tools. It is built once and never mutated,
// so it can be shared between conversations without locking.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry indexes ts by name, keeping their order for the model-facing declarations.
func NewRegistry(ts ...Tool) (*Registry, error) {
	r := &Registry{
		tools: make(map[string]Tool, len(ts)),
		order: make([]string, 0, len(ts)),
	}
	for i, tool := range ts {
		if tool == nil {
			return nil, fmt.Errorf("%w: tool %d is nil", ErrInvalidTool, i)
		}
		name := tool.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: tool %d has an empty name", ErrInvalidTool, i)
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTool, name)
		}
		r.tools[name] = tool
		r.order = append(r.order, name)
	}
	return r, nil
}

// Lookup retrieves a tool by name.
func (r *Registry) Lookup(name string) (Tool, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool, nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns the OpenAI function declarations for every tool.
func (r *Registry) Definitions() []openai.Tool {
	defs := make([]openai.Tool, 0, len(r.order))
	for _, tool := range r.List() {
		params := tool.Parameters()
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  &params,
			},
		})
	}
	return defs
}

// Invoke dispatches one model tool call. An unknown tool name yields a Failure
// rather than an error so the model can correct itself.
func (r *Registry) Invoke(ctx context.Context, call openai.ToolCall) Result {
	tool, err := r.Lookup(call.Function.Name)
	if err != nil {
		return Failure{Op: "call tool", Err: err}
	}
	return tool.Invoke(ctx, json.RawMessage(call.Function.Arguments))
}
