package components

import (
	"strings"

	"github.com/Rorical/RoriTable/ui/styles"
)

// RenderInput draws the prompt box. While a turn runs and nothing is typed it
// shows a working indicator instead of an empty prompt.
func RenderInput(input string, loading bool, loadingDots int, width int) string {
	if input == "" && loading {
		return styles.InputStyle(width).Render("> working" + strings.Repeat(".", loadingDots))
	}
	return styles.InputStyle(width).Render("> " + input)
}
