package core

import (
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/Rorical/RoriTable/internal/models"
)

const failurePrefix = "Failed to "

// ChatState holds one conversation. The history is the single source of truth;
// UI messages are derived from it on demand.
type ChatState struct {
	mu              sync.RWMutex
	chatHistory     []openai.ChatCompletionMessage
	programMessages []models.Message
	isProcessing    bool
	lastError       error
}

func NewChatState() *ChatState {
	return &ChatState{}
}

func (cs *ChatState) GetChatHistory() []openai.ChatCompletionMessage {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return append([]openai.ChatCompletionMessage(nil), cs.chatHistory...)
}

// GetMessages renders program messages followed by the conversation. System
// instructions are not shown.
func (cs *ChatState) GetMessages() []models.Message {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	result := append([]models.Message(nil), cs.programMessages...)
	toolNames := map[string]string{}

	for _, msg := range cs.chatHistory {
		switch msg.Role {
		case openai.ChatMessageRoleUser:
			result = append(result, models.Message{Content: msg.Content, Type: models.User})
		case openai.ChatMessageRoleAssistant:
			if msg.Content != "" {
				result = append(result, models.Message{Content: msg.Content, Type: models.Assistant})
			}
			for _, call := range msg.ToolCalls {
				toolNames[call.ID] = call.Function.Name
				result = append(result, models.Message{
					Content:    call.Function.Arguments,
					Type:       models.ToolCall,
					ToolCallID: call.ID,
					ToolName:   call.Function.Name,
					ToolArgs:   call.Function.Arguments,
				})
			}
		case openai.ChatMessageRoleTool:
			name, ok := toolNames[msg.ToolCallID]
			if !ok {
				name = "unknown"
			}
			result = append(result, models.Message{
				Content:    msg.Content,
				Type:       models.ToolResult,
				ToolCallID: msg.ToolCallID,
				ToolName:   name,
				Failed:     strings.HasPrefix(msg.Content, failurePrefix),
			})
		}
	}
	return result
}

func (cs *ChatState) IsProcessing() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.isProcessing
}

func (cs *ChatState) GetLastError() error {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastError
}

// AddProgramMessage adds a program message (welcome text, status notes)
func (cs *ChatState) AddProgramMessage(content string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.programMessages = append(cs.programMessages, models.Message{Content: content, Type: models.Program})
}

// TryStartProcessing marks a turn as running. It returns false if one already is.
func (cs *ChatState) TryStartProcessing() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.isProcessing {
		return false
	}
	cs.isProcessing = true
	cs.lastError = nil
	return true
}

// AppendMessage records a message streamed from a running turn.
func (cs *ChatState) AppendMessage(msg openai.ChatCompletionMessage) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.chatHistory = append(cs.chatHistory, msg)
}

// FinishProcessing replaces the streamed history with the authoritative one
// returned by the agent and records err, if any.
func (cs *ChatState) FinishProcessing(history []openai.ChatCompletionMessage, err error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if history != nil {
		cs.chatHistory = append([]openai.ChatCompletionMessage(nil), history...)
	}
	cs.isProcessing = false
	cs.lastError = err
}
