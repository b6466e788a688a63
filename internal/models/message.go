package models

type MessageType int

const (
	User MessageType = iota
	Assistant
	Program
	ToolCall
	ToolResult
)

// Message is one rendered line of the conversation.
type Message struct {
	Content string
	Type    MessageType
	// Set on ToolCall and ToolResult messages
	ToolCallID string
	ToolName   string
	ToolArgs   string // raw JSON arguments, ToolCall only
	Failed     bool   // ToolResult content starts with the failure marker
}
