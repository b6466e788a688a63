// Package agent runs the tool-calling loop: the model is asked for the next
// step, any requested tools are executed and their results appended, and the
// cycle repeats until the model answers without requesting tools.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/Rorical/RoriTable/internal/tools"
)

const (
	DefaultModel            = openai.GPT4oMini
	DefaultMaxRounds        = 8
	DefaultMaxParallelTools = 4
)

var (
	ErrModel             = errors.New("model request failed")
	ErrMaxRoundsExceeded = errors.New("maximum tool call rounds reached")
)

// Model is the chat-completion API. *openai.Client satisfies it.
type Model interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// State is a loop state.
type State string

const (
	StateAwaitingModel  State = "awaiting-model"
	StateExecutingTools State = "executing-tools"
	StateDone           State = "done"
)

// Event is reported to the observer on every transition and appended message.
// Message is nil for pure state changes.
type Event struct {
	State   State
	Round   int
	Message *openai.ChatCompletionMessage
}

// Result is what a finished run hands back.
type Result struct {
	Answer  string
	History []openai.ChatCompletionMessage
	Rounds  int
}

type Agent struct {
	model        Model
	registry     *tools.Registry
	modelName    string
	instructions string
	maxRounds    int
	maxParallel  int
	logger       *slog.Logger
	observer     func(Event)
}

type Option func(*Agent)

func WithModelName(name string) Option {
	return func(a *Agent) {
		if name != "" {
			a.modelName = name
		}
	}
}

// WithInstructions sets the system message placed at the start of a new conversation.
func WithInstructions(instructions string) Option {
	return func(a *Agent) {
		a.instructions = instructions
	}
}

// WithMaxRounds caps how many times the model may request tools in one run.
func WithMaxRounds(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithMaxParallelTools bounds concurrent tool calls within a round. 1 runs them sequentially.
func WithMaxParallelTools(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxParallel = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithObserver(fn func(Event)) Option {
	return func(a *Agent) {
		a.observer = fn
	}
}

func New(model Model, registry *tools.Registry, opts ...Option) (*Agent, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	a := &Agent{
		model:       model,
		registry:    registry,
		modelName:   DefaultModel,
		maxRounds:   DefaultMaxRounds,
		maxParallel: DefaultMaxParallelTools,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run processes one user message on top of the prior turns in history and
// returns the model's final answer with the full updated history. history is
// not modified.
//
// On error the returned Result still carries the history built so far; every
// tool call in it has a matching tool result.
func (a *Agent) Run(ctx context.Context, history []openai.ChatCompletionMessage, userMessage string) (Result, error) {
	messages := a.initialHistory(history, userMessage)
	defs := a.registry.Definitions()
	rounds := 0

	a.emit(Event{State: StateAwaitingModel, Round: rounds, Message: &messages[len(messages)-1]})

	for {
		if err := ctx.Err(); err != nil {
			return Result{History: messages, Rounds: rounds}, err
		}

		start := time.Now()
		resp, err := a.model.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.modelName,
			Messages: messages,
			Tools:    defs,
		})
		if err != nil {
			a.logger.Error("model request failed", "round", rounds, "err", err)
			return Result{History: messages, Rounds: rounds}, fmt.Errorf("%w: %w", ErrModel, err)
		}
		if len(resp.Choices) == 0 {
			return Result{History: messages, Rounds: rounds}, fmt.Errorf("%w: response has no choices", ErrModel)
		}

		reply := resp.Choices[0].Message
		if reply.Role == "" {
			reply.Role = openai.ChatMessageRoleAssistant
		}
		a.logger.Debug("model replied",
			"round", rounds,
			"tool_calls", len(reply.ToolCalls),
			"duration", time.Since(start),
		)

		if len(reply.ToolCalls) == 0 {
			messages = append(messages, reply)
			a.emit(Event{State: StateDone, Round: rounds, Message: &messages[len(messages)-1]})
			return Result{Answer: reply.Content, History: messages, Rounds: rounds}, nil
		}

		// The capped request is not appended, so the history never holds a call without a result.
		if rounds >= a.maxRounds {
			a.logger.Warn("tool call rounds exhausted", "max_rounds", a.maxRounds)
			return Result{History: messages, Rounds: rounds}, fmt.Errorf("%w (%d)", ErrMaxRoundsExceeded, a.maxRounds)
		}
		rounds++

		reply.ToolCalls = normalizeToolCalls(reply.ToolCalls)
		messages = append(messages, reply)
		a.emit(Event{State: StateExecutingTools, Round: rounds, Message: &messages[len(messages)-1]})

		results := a.executeTools(ctx, reply.ToolCalls)
		for i, call := range reply.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    results[i].Content(),
				ToolCallID: call.ID,
			})
			a.emit(Event{State: StateExecutingTools, Round: rounds, Message: &messages[len(messages)-1]})
		}
		a.emit(Event{State: StateAwaitingModel, Round: rounds})
	}
}

func (a *Agent) initialHistory(history []openai.ChatCompletionMessage, userMessage string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if a.instructions != "" && (len(history) == 0 || history[0].Role != openai.ChatMessageRoleSystem) {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: a.instructions,
		})
	}
	messages = append(messages, history...)
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})
}

// executeTools runs calls concurrently and returns results in request order.
func (a *Agent) executeTools(ctx context.Context, calls []openai.ToolCall) []tools.Result {
	results := make([]tools.Result, len(calls))

	var g errgroup.Group
	g.SetLimit(a.maxParallel)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = a.invoke(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Agent) invoke(ctx context.Context, call openai.ToolCall) (result tools.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = tools.Failure{Op: "call tool", Err: fmt.Errorf("%s panicked: %v", call.Function.Name, r)}
		}
		_, failed := result.(tools.Failure)
		level := slog.LevelInfo
		if failed {
			level = slog.LevelWarn
		}
		a.logger.Log(ctx, level, "tool call finished",
			"tool", call.Function.Name,
			"call_id", call.ID,
			"failed", failed,
			"duration", time.Since(start),
		)
	}()

	if _, err := a.registry.Lookup(call.Function.Name); err != nil {
		a.logger.Warn("model requested an unknown tool", "tool", call.Function.Name)
	}
	return a.registry.Invoke(ctx, call)
}

func normalizeToolCalls(calls []openai.ToolCall) []openai.ToolCall {
	out := make([]openai.ToolCall, len(calls))
	for i, call := range calls {
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		if call.Type == "" {
			call.Type = openai.ToolTypeFunction
		}
		out[i] = call
	}
	return out
}

func (a *Agent) emit(ev Event) {
	if a.observer != nil {
		a.observer(ev)
	}
}
