package widgets

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestRenderSetStrip(t *testing.T) {
	cells := make([]SetCell, 10)
	cells[2].Editing = true
	cells[2].Active = true
	cells[5].Content = true
	plain := lipgloss.NewStyle()
	got := RenderSetStrip("drum", cells, SetStyles{Empty: plain, Content: plain, Active: plain, Reserved: plain})
	if want := "drum 0 1[2]3 4 5 6 7 8 9"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderKeyHelp(t *testing.T) {
	plain := lipgloss.NewStyle()
	out := RenderKeyHelp([]KeySection{
		{Title: "edit", Keys: []KeyBinding{{Key: "space", Desc: "toggle"}}},
	}, plain, plain)
	if want := "edit\nspace    toggle"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}
