package components

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Rorical/RoriTable/ui/styles"
)

var (
	inlineCode  = regexp.MustCompile("`([^`]+)`")
	linkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	boldPattern = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicUnder = regexp.MustCompile(`(^|\s)_([^_]+)_`)
	orderedItem = regexp.MustCompile(`^(\d+)\.\s+(.*)`)
)

// RenderMarkdown renders the subset of markdown assistants usually produce:
// headings, lists, fenced code and inline emphasis. Link targets stay visible
// so record URLs can be copied from the terminal.
func RenderMarkdown(text string) string {
	var out []string
	inFence := false

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			out = append(out, styles.CodeStyle().Render(line))
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "#"):
			title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			out = append(out, styles.BoldStyle().Render(renderInline(title)))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			out = append(out, "  • "+renderInline(trimmed[2:]))
		case orderedItem.MatchString(trimmed):
			m := orderedItem.FindStringSubmatch(trimmed)
			out = append(out, "  "+m[1]+". "+renderInline(m[2]))
		default:
			out = append(out, renderInline(line))
		}
	}
	return strings.Join(out, "\n")
}

// renderInline handles code spans first so their contents are left alone.
func renderInline(line string) string {
	var codes []string
	line = inlineCode.ReplaceAllStringFunc(line, func(match string) string {
		codes = append(codes, styles.CodeStyle().Render(inlineCode.FindStringSubmatch(match)[1]))
		return "\x00" + strconv.Itoa(len(codes)-1) + "\x00"
	})

	line = linkPattern.ReplaceAllStringFunc(line, func(match string) string {
		m := linkPattern.FindStringSubmatch(match)
		if m[1] == m[2] {
			return styles.LinkStyle().Render(m[2])
		}
		return m[1] + " (" + styles.LinkStyle().Render(m[2]) + ")"
	})
	line = boldPattern.ReplaceAllStringFunc(line, func(match string) string {
		return styles.BoldStyle().Render(boldPattern.FindStringSubmatch(match)[1])
	})
	line = italicUnder.ReplaceAllStringFunc(line, func(match string) string {
		m := italicUnder.FindStringSubmatch(match)
		return m[1] + styles.ItalicStyle().Render(m[2])
	})

	for i, code := range codes {
		line = strings.Replace(line, "\x00"+strconv.Itoa(i)+"\x00", code, 1)
	}
	return line
}
