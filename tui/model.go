package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-stepseq/debug"
	"go-stepseq/midi"
	"go-stepseq/sequencer"
	"go-stepseq/theme"
	"go-stepseq/widgets"
)

const (
	tempoStep  = 5
	volumeStep = 0.1
	maxOctave  = 2
)

type Model struct {
	Manager  *sequencer.Manager
	Theme    *theme.Theme
	Projects sequencer.Projects
	Project  string

	watcher  *midi.PortWatcher // nil when MIDI output is disabled
	sinkOpts midi.SinkOptions
	sink     *midi.Sink
	port     string

	typ     sequencer.InstrumentType
	editing [3]int // set shown in the grid, per type
	row     int
	col     int
	mark    int // pending range start, -1 when none
	mods    sequencer.PitchModifiers

	browser *browser // project browser, nil when closed

	status   string
	quitting bool
}

type UpdateMsg struct{}

type PortEventMsg midi.PortEvent

// NewModel builds the front end. watcher may be nil.
func NewModel(manager *sequencer.Manager, th *theme.Theme, projects sequencer.Projects, project string, watcher *midi.PortWatcher, sinkOpts midi.SinkOptions) Model {
	return Model{
		Manager:  manager,
		Theme:    th,
		Projects: projects,
		Project:  project,
		watcher:  watcher,
		sinkOpts: sinkOpts,
		mark:     -1,
	}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForPorts(w *midi.PortWatcher) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return nil
		}
		return PortEventMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Manager)}
	if m.watcher != nil {
		cmds = append(cmds, ListenForPorts(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) lanes() []sequencer.Lane {
	return m.Manager.Registry().Lanes(m.typ)
}

func (m Model) lane() (sequencer.Lane, bool) {
	lanes := m.lanes()
	if m.row < 0 || m.row >= len(lanes) {
		return sequencer.Lane{}, false
	}
	return lanes[m.row], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case PortEventMsg:
		ev := midi.PortEvent(msg)
		switch ev.Type {
		case midi.PortConnected:
			m.sink = midi.NewSink(ev.Send, m.Manager.Registry(), m.sinkOpts)
			m.Manager.SetSink(m.sink)
			m.port = ev.Name
			m.status = "connected " + ev.Name
		case midi.PortDisconnected:
			m.Manager.SetSink(nil)
			m.sink = nil
			m.port = ""
			m.status = "disconnected " + ev.Name
		}
		return m, ListenForPorts(m.watcher)
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	steps := m.Manager.Store().Steps()
	nLanes := len(m.lanes())
	set := m.editing[m.typ]
	m.status = ""

	if m.browser != nil && key != "ctrl+c" {
		return m.handleBrowserKey(key), nil
	}

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.Manager.Stop()
		m.silence()
		return m, tea.Quit

	case "h", "left":
		if m.col > 0 {
			m.col--
		}
	case "l", "right":
		if m.col < steps-1 {
			m.col++
		}
	case "k", "up":
		if m.row > 0 {
			m.row--
			m.mark = -1
		}
	case "j", "down":
		if m.row < nLanes-1 {
			m.row++
			m.mark = -1
		}

	case "tab", "shift+tab":
		n := len(sequencer.InstrumentTypes)
		d := 1
		if key == "shift+tab" {
			d = n - 1
		}
		m.typ = sequencer.InstrumentTypes[(int(m.typ)+d)%n]
		m.row, m.mark = 0, -1

	case " ", "enter":
		lane, ok := m.lane()
		if !ok {
			break
		}
		var err error
		if lane.Kind == sequencer.Discrete {
			err = m.Manager.ToggleDiscrete(m.typ, set, lane.Name, m.col)
		} else {
			_, err = m.Manager.ToggleSustainAt(m.typ, set, lane.Name, m.col)
		}
		m.report(err)

	case "v":
		lane, ok := m.lane()
		if !ok || lane.Kind != sequencer.Sustain {
			break
		}
		if m.mark < 0 {
			m.mark = m.col
			break
		}
		_, err := m.Manager.SetSustainRange(m.typ, set, lane.Name, m.mark, m.col, m.mods)
		m.mark = -1
		m.report(err)

	case "esc":
		m.mark = -1

	case "x":
		lane, ok := m.lane()
		if !ok || lane.Kind != sequencer.Sustain {
			break
		}
		if ps, err := m.Manager.Store().Set(m.typ, set); err == nil {
			if st := ps.At(lane.Name, m.col); st.GroupID != 0 {
				m.report(m.Manager.ClearGroup(m.typ, set, lane.Name, st.GroupID))
			}
		}

	case "m":
		m.mods.Sharp = !m.mods.Sharp
	case "[":
		if m.mods.Octave > -maxOctave {
			m.mods.Octave--
		}
	case "]":
		if m.mods.Octave < maxOctave {
			m.mods.Octave++
		}

	case "c":
		m.report(m.Manager.ClearSet(m.typ, set))

	case ",", ".":
		if key == "," && m.editing[m.typ] > 0 {
			m.editing[m.typ]--
		} else if key == "." && m.editing[m.typ] < sequencer.NumSets-1 {
			m.editing[m.typ]++
		}

	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(key[0] - '0')
		m.editing[m.typ] = idx
		m.report(m.Manager.Select(m.typ, idx))

	case "alt+0", "alt+1", "alt+2", "alt+3", "alt+4", "alt+5", "alt+6", "alt+7", "alt+8", "alt+9":
		idx := int(key[len(key)-1] - '0')
		for i := range m.editing {
			m.editing[i] = idx
		}
		m.report(m.Manager.SelectAll(idx))

	case "r":
		mode := sequencer.Reserved
		if m.Manager.Selector().Mode() == sequencer.Reserved {
			mode = sequencer.Immediate
		}
		m.Manager.SetSwitchMode(mode)

	case "p":
		_, playing, _ := m.Manager.GetState()
		if playing {
			m.Manager.Stop()
			m.silence()
		} else {
			m.Manager.Play()
		}

	case "+", "=":
		_, _, tempo := m.Manager.GetState()
		m.Manager.SetTempo(tempo + tempoStep)
	case "-", "_":
		_, _, tempo := m.Manager.GetState()
		m.Manager.SetTempo(tempo - tempoStep)

	case "<", ">":
		v := m.Manager.Store().Volume(m.typ)
		if key == "<" {
			v -= volumeStep
		} else {
			v += volumeStep
		}
		m.report(m.Manager.SetVolume(m.typ, v))

	case "s":
		name, err := m.Projects.Save(m.Project, "", m.Manager.Export())
		if err != nil {
			m.report(err)
			break
		}
		m.status = "saved " + name

	case "P":
		m.browser = &browser{}
		m.report(m.browser.refresh(m.Projects, m.Project))

	case "L":
		snap, err := m.Projects.Load(m.Project, "")
		if err == nil {
			err = m.Manager.Import(snap)
		}
		if err != nil {
			m.report(err)
			break
		}
		m.status = "loaded latest save"
	}
	return m, nil
}

func (m *Model) report(err error) {
	if err != nil {
		debug.Log("tui", "%v", err)
		m.status = err.Error()
	}
}

func (m Model) silence() {
	if m.sink != nil {
		if err := m.sink.AllNotesOff(); err != nil {
			debug.Log("tui", "all notes off: %v", err)
		}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	step, playing, tempo := m.Manager.GetState()
	sel := m.Manager.Selector()
	sc := m.Manager.Store().Current()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	playState := "STOP"
	if playing {
		playState = "PLAY"
	}
	port := "no midi"
	if m.port != "" {
		port = m.port
	}
	header := headerStyle.Render(fmt.Sprintf("go-stepseq  %s  %3dbpm  step:%02d  %s  %s",
		playState, tempo, step+1, sel.Mode(), port))

	// Set strips
	setStyles := widgets.SetStyles{
		Empty:    dimStyle,
		Content:  fgStyle,
		Active:   lipgloss.NewStyle().Foreground(m.Theme.Success()).Bold(true),
		Reserved: warnStyle,
	}
	var strips []string
	for _, t := range sequencer.InstrumentTypes {
		active, next := sel.State(t)
		cells := make([]widgets.SetCell, sequencer.NumSets)
		for i := range cells {
			cells[i] = widgets.SetCell{
				Content:  sc.Set(t, i).HasContent(),
				Active:   i == active,
				Reserved: i == next,
				Editing:  i == m.editing[t],
			}
		}
		label := fmt.Sprintf("  %-6s", t)
		if t == m.typ {
			label = headerStyle.Render(fmt.Sprintf("> %-6s", t))
		}
		strips = append(strips, widgets.RenderSetStrip(label, cells, setStyles)+
			dimStyle.Render(fmt.Sprintf("  vol %3.0f%%", sc.Volume(t)*100)))
	}

	grid := m.renderGrid(sc.Set(m.typ, m.editing[m.typ]), step, playing)

	modInfo := fmt.Sprintf("note mods: octave %+d", m.mods.Octave)
	if m.mods.Sharp {
		modInfo += " sharp"
	}
	if m.mark >= 0 {
		modInfo += fmt.Sprintf("  range from step %d", m.mark+1)
	}

	help := widgets.RenderKeyHelp([]widgets.KeySection{
		{Title: "edit", Keys: []widgets.KeyBinding{
			{Key: "hjkl", Desc: "move"},
			{Key: "space", Desc: "toggle step"},
			{Key: "v", Desc: "mark/close legato range"},
			{Key: "x", Desc: "clear note under cursor"},
			{Key: "m [ ]", Desc: "sharp, octave down/up"},
			{Key: "c", Desc: "clear set"},
		}},
		{Title: "sets", Keys: []widgets.KeyBinding{
			{Key: "0-9", Desc: "play+edit set"},
			{Key: "alt+0-9", Desc: "all types"},
			{Key: ", .", Desc: "edit prev/next set"},
			{Key: "tab", Desc: "next instrument"},
			{Key: "r", Desc: "immediate/reserved"},
			{Key: "< >", Desc: "volume"},
		}},
		{Title: "transport", Keys: []widgets.KeyBinding{
			{Key: "p", Desc: "play/stop"},
			{Key: "+ -", Desc: "tempo"},
			{Key: "s", Desc: "save project"},
			{Key: "L", Desc: "load latest save"},
			{Key: "P", Desc: "project browser"},
			{Key: "q", Desc: "quit"},
		}},
	}, fgStyle, dimStyle)

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(strings.Join(strips, "\n"))
	out.WriteString("\n\n")
	if m.browser != nil {
		out.WriteString(m.browser.view(m.Theme, m.Project))
	} else {
		out.WriteString(grid)
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(modInfo))
		out.WriteString("\n\n")
		out.WriteString(help)
	}
	if m.status != "" {
		out.WriteString("\n\n")
		out.WriteString(warnStyle.Render(m.status))
	}
	return out.String()
}

// renderGrid draws one lane per line; legato notes show their onset and a
// hold bar over the continuation steps.
func (m Model) renderGrid(ps *sequencer.PatternSet, step int, playing bool) string {
	sym := m.Theme.Symbols
	emptyStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	onStyle := lipgloss.NewStyle().Foreground(m.Theme.Active())
	cursorStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor()).Bold(true)
	playStyle := lipgloss.NewStyle().Foreground(m.Theme.Success())
	labelStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())

	lanes := m.lanes()
	width := 0
	for _, l := range lanes {
		width = max(width, len(l.Name))
	}

	var lines []string
	for r, l := range lanes {
		var line strings.Builder
		line.WriteString(labelStyle.Render(fmt.Sprintf("%-*s ", width, l.Name)))
		cells := ps.Lane(l.Name)
		for s, st := range cells {
			if s > 0 && s%4 == 0 {
				line.WriteString(" ")
			}
			isCursor := r == m.row && s == m.col
			hold := l.Kind == sequencer.Sustain && st.On && s > 0 &&
				cells[s-1].On && cells[s-1].GroupID == st.GroupID

			var ch rune
			style := emptyStyle
			switch {
			case r == m.row && s == m.mark && !isCursor:
				ch, style = sym.Mark, cursorStyle
			case playing && s == step:
				ch, style = sym.StepPlayhead, playStyle
				if isCursor {
					ch = sym.CursorPlayhead
				}
			case hold:
				ch, style = sym.StepHold, onStyle
				if isCursor {
					ch = sym.CursorHold
				}
			case st.On:
				ch, style = sym.StepHit, onStyle
				if isCursor {
					ch = sym.CursorHit
				}
			default:
				ch = sym.StepEmpty
				if isCursor {
					ch = sym.CursorEmpty
				}
			}
			if isCursor {
				style = cursorStyle
			}
			line.WriteString(style.Render(string(ch)))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
