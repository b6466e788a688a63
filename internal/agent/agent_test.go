package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriTable/internal/tablesvc"
	"github.com/Rorical/RoriTable/internal/tools"
)

const crudTableID = "687662a8780fb19d5a1277d8"

// scriptedModel replays one step per call. Each step sees the request so it
// can build its reply from earlier tool results.
type scriptedModel struct {
	mu       sync.Mutex
	steps    []func(req openai.ChatCompletionRequest) openai.ChatCompletionMessage
	requests []openai.ChatCompletionRequest
	err      error
}

func (m *scriptedModel) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.steps) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("script exhausted")
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: step(req)}},
	}, nil
}

func reply(content string) func(openai.ChatCompletionRequest) openai.ChatCompletionMessage {
	return func(openai.ChatCompletionRequest) openai.ChatCompletionMessage {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
	}
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

func requestTools(calls ...openai.ToolCall) func(openai.ChatCompletionRequest) openai.ChatCompletionMessage {
	return func(openai.ChatCompletionRequest) openai.ChatCompletionMessage {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls}
	}
}

// assertHistoryInvariant checks that every tool result answers an earlier
// request and every request has a result.
func assertHistoryInvariant(t *testing.T, history []openai.ChatCompletionMessage) {
	t.Helper()
	requested := map[string]bool{}
	answered := map[string]bool{}
	for i, msg := range history {
		for _, call := range msg.ToolCalls {
			requested[call.ID] = true
		}
		if msg.Role == openai.ChatMessageRoleTool {
			assert.True(t, requested[msg.ToolCallID], "tool result %d (%s) has no preceding request", i, msg.ToolCallID)
			answered[msg.ToolCallID] = true
		}
	}
	for id := range requested {
		assert.True(t, answered[id], "tool call %s has no result", id)
	}
}

type fakeTables struct {
	mu       sync.Mutex
	delay    map[string]time.Duration
	apps     map[string]map[string]any
	record   map[string]any
	creates  []map[string]any
	finished []string
}

func (f *fakeTables) GetApplication(_ context.Context, tableID string) (map[string]any, error) {
	time.Sleep(f.delay[tableID])
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, tableID)
	app, ok := f.apps[tableID]
	if !ok {
		return nil, errors.New("status 404 Not Found")
	}
	return app, nil
}

func (f *fakeTables) CreateRecord(_ context.Context, _ string, fields map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, fields)
	return f.record, nil
}

func (f *fakeTables) ListMembers(context.Context) ([]map[string]any, error) {
	return nil, nil
}

func newRegistry(t *testing.T, deps tools.Deps) *tools.Registry {
	t.Helper()
	registry, err := tools.NewRegistry(tools.Builtin(deps)...)
	require.NoError(t, err)
	return registry
}

func TestRun_FinalAnswerWithoutTools(t *testing.T) {
	model := &scriptedModel{steps: []func(openai.ChatCompletionRequest) openai.ChatCompletionMessage{reply("Hello!")}}
	a, err := New(model, newRegistry(t, tools.Deps{Tables: &fakeTables{}}), WithInstructions("be helpful"))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), nil, "hi")
	require.NoError(t, err)

	assert.Equal(t, "Hello!", result.Answer)
	assert.Equal(t, 0, result.Rounds)
	require.Len(t, result.History, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, result.History[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, result.History[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, result.History[2].Role)

	require.Len(t, model.requests, 1)
	assert.Len(t, model.requests[0].Tools, 4)
	assert.Equal(t, DefaultModel, model.requests[0].Model)
}

func TestRun_PriorTurnsKeepSystemMessageOnce(t *testing.T) {
	model := &scriptedModel{steps: []func(openai.ChatCompletionRequest) openai.ChatCompletionMessage{reply("again")}}
	a, err := New(model, newRegistry(t, tools.Deps{Tables: &fakeTables{}}), WithInstructions("be helpful"))
	require.NoError(t, err)

	prior := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "be helpful"},
		{Role: openai.ChatMessageRoleUser, Content: "hi"},
		{Role: openai.ChatMessageRoleAssistant, Content: "hello"},
	}
	result, err := a.Run(context.Background(), prior, "once more")
	require.NoError(t, err)

	require.Len(t, result.History, 5)
	assert.Equal(t, "once more", result.History[3].Content)
	assert.Len(t, prior, 3, "caller history must not be modified")
}

func TestRun_ShipV1Scenario(t *testing.T) {
	var writes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/applications/"+crudTableID+"/":
			_, _ = io.WriteString(w, `{"id":"`+crudTableID+`","name":"CRUD","structure":[{"slug":"title","label":"Title","field_type":"recordtitlefield"}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/applications/"+crudTableID+"/records/":
			body, _ := io.ReadAll(r.Body)
			writes = append(writes, string(body))
			_, _ = io.WriteString(w, `{"id":"64f1c0ffee","title":"Ship v1"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := tablesvc.New(
		tablesvc.WithBaseURL(srv.URL),
		tablesvc.WithCredentials(tablesvc.Credentials{APIKey: "k", AccountID: "acct"}),
	)
	require.NoError(t, err)
	registry := newRegistry(t, tools.Deps{Tables: client, AccountID: "acct", SolutionID: "sol"})

	model := &scriptedModel{steps: []func(openai.ChatCompletionRequest) openai.ChatCompletionMessage{
		requestTools(toolCall("call_1", tools.NameGetTable, `{"tableId":"`+crudTableID+`"}`)),
		func(req openai.ChatCompletionRequest) openai.ChatCompletionMessage {
			last := req.Messages[len(req.Messages)-1]
			require.Equal(t, openai.ChatMessageRoleTool, last.Role)
			require.Contains(t, last.Content, `"slug": "title"`)
			return openai.ChatCompletionMessage{ToolCalls: []openai.ToolCall{
				toolCall("call_2", tools.NameCreateRecord, `{"tableId":"`+crudTableID+`","fields":{"title":"Ship v1"}}`),
			}}
		},
		func(req openai.ChatCompletionRequest) openai.ChatCompletionMessage {
			var record map[string]any
			require.NoError(t, json.Unmarshal([]byte(req.Messages[len(req.Messages)-1].Content), &record))
			args, _ := json.Marshal(map[string]any{"application_id": crudTableID, "id": record["id"]})
			return openai.ChatCompletionMessage{ToolCalls: []openai.ToolCall{
				toolCall("call_3", tools.NameURLBuilder, string(args)),
			}}
		},
		func(req openai.ChatCompletionRequest) openai.ChatCompletionMessage {
			return openai.ChatCompletionMessage{Content: req.Messages[len(req.Messages)-1].Content}
		},
	}}

	a, err := New(model, registry, WithInstructions("tables: CRUD"))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), nil, "create a task called Ship v1 in CRUD table")
	require.NoError(t, err)

	assert.Equal(t, "https://app.smartsuite.com/acct/solution/sol/"+crudTableID+"?editRecord=64f1c0ffee", result.Answer)
	assert.Equal(t, 3, result.Rounds)
	require.Len(t, writes, 1)
	assert.JSONEq(t, `{"title":"Ship v1"}`, writes[0])
	assertHistoryInvariant(t, result.History)
}

func TestRun_ParallelResultsKeepRequestOrder(t *testing.T) {
	tables := &fakeTables{
		delay: map[string]time.Duration{"slow": 80 * time.Millisecond},
		apps: map[string]map[string]any{
			"slow": {"id": "slow"},
			"fast": {"id": "fast"},
		},
	}
	model := &scriptedModel{steps: []func(openai.ChatCompletionRequest) openai.ChatCompletionMessage{
		requestTools(
			toolCall("call_slow", tools.NameGetTable, `{"tableId":"slow"}`),
			toolCall("call_fast", tools.NameGetTable, `{"tableId":"fast"}`),
		),
		reply("done"),
	}}
	a, err := New(model, newRegistry(t, tools.Deps{Tables: tables}), WithMaxParallelTools(2))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), nil, "describe both")
	require.NoError(t, err)

	assert.Equal(t, []string{"fast", "slow"}, tables.finished, "calls should overlap")
	var toolMessages []openai.ChatCompletionMessage
	for _, msg := range result.History {
		if msg.Role == openai.ChatMessageRoleTool {
			toolMessages = append(toolMessages, msg)
		}
	}
	require.Len(t, toolMessages, 2)
	assert.Equal(t, "call_slow", toolMessages[0].ToolCallID)
	assert.Equal(t, "call_fast", toolMessages[1].ToolCallID)
	assertHistoryInvariant(t, result.History)
}

func TestRun_ToolFailureIsFedBackToModel(t *testing.T) {
	model := &scriptedModel{steps: []func(openai.ChatCompletionRequest) openai.ChatCompletionMessage{
		requestTools(toolCall("call_1", tools.NameGetTable, `{"tableId":"missing"}`)),
		func(req openai.ChatCompletionRequest) openai.ChatCompletionMessage {
			last := req.Messages[len(req.Messages)-1]
			return openai.ChatCompletionMessage{Content: "Sorry: " + last.Content}
		},
	}}
	a, err := New(model, newRegistry(t, tools.Deps{Tables: &fakeTables{}}))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), nil, "open table missing")
	require.NoError(t, err)
	assert.Equal(t, "Sorry: Failed to get table: status 404 Not Found", result.Answer)
}

func TestRun_UnknownToolAndBadArgumentsBecomeResults(t *testing.T) {
	model := &scriptedModel{steps: []func(openai.ChatCompletionRequest) openai.ChatCompletionMessage{
		requestTools(
			toolCall("call_1", "drop_table", `{}`),
			toolCall("call_2", tools.NameCreateRecord, `{"tableId":`),
		),
		reply("could not do it"),
	}}
	a, err := New(model, newRegistry(t, tools.Deps{Tables: &fakeTables{}}))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), nil, "drop it")
	require.NoError(t, err)

	n := len(result.History)
	assert.True(t, strings.HasPrefix(result.History[n-3].Content, "Failed to call tool: unknown tool"))
	assert.True(t, strings.HasPrefix(result.History[n-2].Content, "Failed to create record: invalid arguments"))
	assertHistoryInvariant(t, result.History)
}

func TestRun_MaxRoundsExceeded(t *testing.T) {
	loop := requestTools(toolCall("", tools.NameURLBuilder, `{"application_id":"T1","id":"R1"}`))
	model := &scriptedModel{steps: []func(openai.ChatCompletionRequest) openai.ChatCompletionMessage{loop, loop, loop}}
	a, err := New(model, newRegistry(t, tools.Deps{Tables: &fakeTables{}}), WithMaxRounds(2))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), nil, "loop forever")
	require.ErrorIs(t, err, ErrMaxRoundsExceeded)

	assert.Equal(t, 2, result.Rounds)
	assert.Len(t, model.requests, 3)
	assertHistoryInvariant(t, result.History)
	for _, msg := range result.History {
		for _, call := range msg.ToolCalls {
			assert.True(t, strings.HasPrefix(call.ID, "call_"), "generated id %q", call.ID)
		}
	}
}

func TestRun_ModelErrorPropagates(t *testing.T) {
	model := &scriptedModel{err: errors.New("connection refused")}
	a, err := New(model, newRegistry(t, tools.Deps{Tables: &fakeTables{}}))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), nil, "hi")
	require.ErrorIs(t, err, ErrModel)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, result.History, 1)
}

func TestRun_CancelledContextStops(t *testing.T) {
	model := &scriptedModel{steps: []func(openai.ChatCompletionRequest) openai.ChatCompletionMessage{reply("never")}}
	a, err := New(model, newRegistry(t, tools.Deps{Tables: &fakeTables{}}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Run(ctx, nil, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, model.requests)
}

func TestRun_ObserverSeesTransitions(t *testing.T) {
	model := &scriptedModel{steps: []func(openai.ChatCompletionRequest) openai.ChatCompletionMessage{
		requestTools(toolCall("call_1", tools.NameURLBuilder, `{"application_id":"T1","id":"R1"}`)),
		reply("ok"),
	}}
	var states []State
	a, err := New(model, newRegistry(t, tools.Deps{Tables: &fakeTables{}}), WithObserver(func(ev Event) {
		states = append(states, ev.State)
	}))
	require.NoError(t, err)

	_, err = a.Run(context.Background(), nil, "link")
	require.NoError(t, err)
	assert.Equal(t, []State{
		StateAwaitingModel,
		StateExecutingTools,
		StateExecutingTools,
		StateAwaitingModel,
		StateDone,
	}, states)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, newRegistry(t, tools.Deps{}))
	assert.Error(t, err)
	_, err = New(&scriptedModel{}, nil)
	assert.Error(t, err)
}
