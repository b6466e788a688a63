package components

import (
	"strings"

	"github.com/Rorical/RoriTable/ui/styles"
)

func RenderStatus(status string, loading bool, loadingDots int, width int) string {
	if loading {
		status += strings.Repeat(".", loadingDots)
	}
	return styles.StatusStyle(width).Render(status)
}
