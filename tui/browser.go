package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-stepseq/sequencer"
	"go-stepseq/theme"
)

type inputMode int

const (
	inputNone inputMode = iota
	inputNewProject
	inputRenameSave
	inputNamedSave
)

// browser lists projects and their saves
type browser struct {
	projects []string
	saves    []sequencer.SaveInfo

	projectIdx int
	saveIdx    int
	column     int // 0=projects, 1=saves

	input  inputMode
	buffer string

	confirmMsg    string
	confirmAction func() error
}

// refresh reloads both lists, selecting current when it exists
func (b *browser) refresh(p sequencer.Projects, current string) error {
	projects, err := p.List()
	if err != nil {
		return err
	}
	b.projects = projects
	if current != "" {
		for i, name := range projects {
			if name == current {
				b.projectIdx = i
			}
		}
	}
	b.projectIdx = min(b.projectIdx, max(0, len(b.projects)-1))

	b.saves = nil
	if name := b.project(); name != "" {
		if b.saves, err = p.Saves(name); err != nil {
			return err
		}
	}
	b.saveIdx = min(b.saveIdx, max(0, len(b.saves)-1))
	return nil
}

func (b *browser) project() string {
	if b.projectIdx < len(b.projects) {
		return b.projects[b.projectIdx]
	}
	return ""
}

func (b *browser) save() (sequencer.SaveInfo, bool) {
	if b.saveIdx < len(b.saves) {
		return b.saves[b.saveIdx], true
	}
	return sequencer.SaveInfo{}, false
}

// editText applies a key to the input buffer; it reports false for enter/esc
func (b *browser) editText(key string) bool {
	switch key {
	case "enter", "esc":
		return false
	case "backspace":
		if len(b.buffer) > 0 {
			b.buffer = b.buffer[:len(b.buffer)-1]
		}
	default:
		if len(key) == 1 && key[0] >= 32 && key[0] < 127 && key != "/" && key != "\\" {
			b.buffer += key
		}
	}
	return true
}

// handleBrowserKey runs while the browser is open
func (m Model) handleBrowserKey(key string) Model {
	b := m.browser

	if b.confirmAction != nil {
		if key == "y" || key == "Y" {
			m.report(b.confirmAction())
			m.report(b.refresh(m.Projects, m.Project))
		}
		b.confirmAction, b.confirmMsg = nil, ""
		return m
	}

	if b.input != inputNone {
		if b.editText(key) {
			return m
		}
		if key == "enter" {
			m.commitInput()
		}
		b.input, b.buffer = inputNone, ""
		m.report(b.refresh(m.Projects, m.Project))
		return m
	}

	switch key {
	case "esc", "P", "q":
		m.browser = nil
	case "h", "left":
		b.column = 0
	case "l", "right":
		if len(b.saves) > 0 {
			b.column = 1
		}
	case "j", "down":
		if b.column == 0 && b.projectIdx < len(b.projects)-1 {
			b.projectIdx++
			b.saveIdx = 0
			m.report(b.refresh(m.Projects, ""))
		} else if b.column == 1 && b.saveIdx < len(b.saves)-1 {
			b.saveIdx++
		}
	case "k", "up":
		if b.column == 0 && b.projectIdx > 0 {
			b.projectIdx--
			b.saveIdx = 0
			m.report(b.refresh(m.Projects, ""))
		} else if b.column == 1 && b.saveIdx > 0 {
			b.saveIdx--
		}
	case "enter", " ":
		m.loadSelected()
	case "n":
		b.input = inputNewProject
	case "S":
		b.input = inputNamedSave
	case "r":
		if save, ok := b.save(); ok && b.column == 1 {
			b.input, b.buffer = inputRenameSave, save.Name
		}
	case "d":
		project := b.project()
		if project == "" {
			break
		}
		if save, ok := b.save(); ok && b.column == 1 {
			b.confirmMsg = fmt.Sprintf("Delete save '%s'? (y/n)", save.Timestamp.Format("2006-01-02 15:04:05"))
			b.confirmAction = func() error { return m.Projects.DeleteSave(project, save.Filename) }
		} else if b.column == 0 {
			b.confirmMsg = fmt.Sprintf("Delete project '%s' and all saves? (y/n)", project)
			b.confirmAction = func() error { return m.Projects.Delete(project) }
		}
	}
	return m
}

func (m *Model) commitInput() {
	b := m.browser
	name := strings.TrimSpace(b.buffer)
	switch b.input {
	case inputNewProject:
		if name != "" {
			m.Project = name
			m.status = "project " + name
		}
	case inputNamedSave:
		file, err := m.Projects.Save(m.Project, name, m.Manager.Export())
		if err != nil {
			m.report(err)
			return
		}
		m.status = "saved " + file
	case inputRenameSave:
		if save, ok := b.save(); ok {
			_, err := m.Projects.RenameSave(b.project(), save.Filename, name)
			m.report(err)
		}
	}
}

func (m *Model) loadSelected() {
	b := m.browser
	project := b.project()
	if project == "" {
		return
	}
	filename := ""
	if save, ok := b.save(); ok && b.column == 1 {
		filename = save.Filename
	}
	snap, err := m.Projects.Load(project, filename)
	if err == nil {
		err = m.Manager.Import(snap)
	}
	if err != nil {
		m.report(err)
		return
	}
	m.Project = project
	m.status = "loaded " + project
	m.browser = nil
}

func (b *browser) view(th *theme.Theme, current string) string {
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	fg := lipgloss.NewStyle().Foreground(th.FG())
	sel := lipgloss.NewStyle().Foreground(th.Cursor()).Bold(true)
	title := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)

	item := func(col, idx, cur int, text string) string {
		if idx == cur {
			if b.column == col {
				return sel.Render("> " + text)
			}
			return fg.Render("> " + text)
		}
		return dim.Render("  " + text)
	}

	left := []string{title.Render("PROJECTS")}
	for i, p := range b.projects {
		name := p
		if p == current {
			name += " *"
		}
		left = append(left, item(0, i, b.projectIdx, name))
	}
	if len(b.projects) == 0 {
		left = append(left, dim.Render("  (none)"))
	}

	right := []string{title.Render("SAVES")}
	for i, s := range b.saves {
		text := s.Timestamp.Format("2006-01-02 15:04:05")
		if s.Name != "" {
			text += "  " + s.Name
		}
		right = append(right, item(1, i, b.saveIdx, text))
	}
	if len(b.saves) == 0 {
		right = append(right, dim.Render("  (none)"))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(28).Render(strings.Join(left, "\n")),
		strings.Join(right, "\n"))

	var footer string
	switch {
	case b.confirmAction != nil:
		footer = sel.Render(b.confirmMsg)
	case b.input == inputNewProject:
		footer = fg.Render("new project: " + b.buffer + "_")
	case b.input == inputNamedSave:
		footer = fg.Render("save as: " + b.buffer + "_")
	case b.input == inputRenameSave:
		footer = fg.Render("rename: " + b.buffer + "_")
	default:
		footer = dim.Render("hjkl:nav  enter:load  n:new project  S:named save  r:rename  d:delete  esc:close")
	}
	return body + "\n\n" + footer
}
