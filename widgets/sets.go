package widgets

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SetCell describes one pattern-set slot of an instrument type
type SetCell struct {
	Content  bool // has at least one active step
	Active   bool // currently playing
	Reserved bool // queued for the next bar
	Editing  bool // shown in the grid
}

// SetStyles colors the slot states; Active wins over Reserved over Content
type SetStyles struct {
	Empty    lipgloss.Style
	Content  lipgloss.Style
	Active   lipgloss.Style
	Reserved lipgloss.Style
}

// RenderSetStrip renders slots as their digit, brackets around the edited one:
// "drum   0 1[2]3 4 5 6 7 8 9"
func RenderSetStrip(label string, cells []SetCell, st SetStyles) string {
	var out strings.Builder
	out.WriteString(label)
	for i, c := range cells {
		style := st.Empty
		switch {
		case c.Active:
			style = st.Active
		case c.Reserved:
			style = st.Reserved
		case c.Content:
			style = st.Content
		}
		open, close := " ", ""
		if c.Editing {
			open, close = "[", "]"
		} else if i > 0 && cells[i-1].Editing {
			open = ""
		}
		out.WriteString(open)
		out.WriteString(style.Render(strconv.Itoa(i % 10)))
		out.WriteString(close)
	}
	return out.String()
}
