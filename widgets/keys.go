package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

// RenderKeyHelp formats key bindings in columns, one section per column
func RenderKeyHelp(sections []KeySection, title, body lipgloss.Style) string {
	cols := make([]string, 0, len(sections))
	for _, sec := range sections {
		var lines []string
		if sec.Title != "" {
			lines = append(lines, title.Render(sec.Title))
		}
		for _, k := range sec.Keys {
			lines = append(lines, body.Render(fmt.Sprintf("%-8s %s", k.Key, k.Desc)))
		}
		cols = append(cols, strings.Join(lines, "\n"))
	}
	for i := range cols[:max(len(cols)-1, 0)] {
		cols[i] = lipgloss.NewStyle().PaddingRight(3).Render(cols[i])
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}
