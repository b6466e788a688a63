package components

import (
	"fmt"

	"github.com/Rorical/RoriTable/internal/models"
	"github.com/Rorical/RoriTable/ui/styles"
)

// RenderConfirmation shows the oldest pending request in place of the input box.
func RenderConfirmation(req models.ConfirmationRequest, queued int, width int) string {
	body := fmt.Sprintf("%s\n%s\n\nApprove? [y/n]", req.Operation, req.Command)
	if queued > 0 {
		body += fmt.Sprintf("  (%d more waiting)", queued)
	}
	return styles.ConfirmStyle(width, req.Dangerous).Render(body)
}
