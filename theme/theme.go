package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

// Symbols are the grid glyphs; the Cursor variants mark the edit cursor
type Symbols struct {
	StepEmpty    rune // · off
	StepHit      rune // ● drum hit or start of a note
	StepHold     rune // ═ continuation of a legato note
	StepPlayhead rune // ▶ current playing step

	CursorEmpty    rune // ○
	CursorHit      rune // ◉
	CursorHold     rune // ╪
	CursorPlayhead rune // ▷

	Mark rune // ▼ pending range start
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			StepEmpty:    '·',
			StepHit:      '●',
			StepHold:     '═',
			StepPlayhead: '▶',

			CursorEmpty:    '○',
			CursorHit:      '◉',
			CursorHold:     '╪',
			CursorPlayhead: '▷',

			Mark: '▼',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted   = 0.25
	RoleFG      = 0.45
	RoleAccent  = 0.6
	RoleCursor  = 0.7
	RoleActive  = 0.8
	RoleWarning = 0.9
	RoleSuccess = 1.0
)

func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Active() lipgloss.Color  { return t.Color(RoleActive) }
func (t *Theme) Cursor() lipgloss.Color  { return t.Color(RoleCursor) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	c := t.Palette.Lookup(norm)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
