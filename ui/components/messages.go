package components

import (
	"strings"

	"github.com/Rorical/RoriTable/internal/models"
	"github.com/Rorical/RoriTable/ui/styles"
)

const maxToolPreview = 160

func RenderMessages(messages []models.Message, width int) string {
	var b strings.Builder

	for _, msg := range messages {
		switch msg.Type {
		case models.User:
			b.WriteString(styles.UserStyle().Render("You: "+msg.Content) + "\n\n")
		case models.Assistant:
			b.WriteString(styles.AssistantStyle().Render(RenderMarkdown(msg.Content)) + "\n\n")
		case models.Program:
			b.WriteString(styles.ProgramStyle().Render(msg.Content) + "\n")
		case models.ToolCall:
			b.WriteString(styles.ToolCallStyle().Render("→ "+msg.ToolName+" "+preview(msg.ToolArgs, width)) + "\n")
		case models.ToolResult:
			if msg.Failed {
				b.WriteString(styles.ToolFailureStyle().Render("✗ "+msg.ToolName+": "+preview(msg.Content, width)) + "\n")
			} else {
				b.WriteString(styles.ToolResultStyle().Render("✓ "+msg.ToolName+": "+preview(msg.Content, width)) + "\n")
			}
		}
	}

	return b.String()
}

// preview flattens tool payloads to a single line that fits the terminal.
func preview(content string, width int) string {
	content = strings.Join(strings.Fields(content), " ")
	limit := maxToolPreview
	if width > 20 && width-20 < limit {
		limit = width - 20
	}
	if runes := []rune(content); len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return content
}
