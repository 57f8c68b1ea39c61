package tui

import (
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"

	"go-stepseq/midi"
	"go-stepseq/sequencer"
	"go-stepseq/theme"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	mgr := sequencer.NewManager(sequencer.DefaultRegistry(), sequencer.Options{Clock: clockwork.NewFakeClock()})
	t.Cleanup(mgr.Stop)
	projects := sequencer.Projects{Dir: t.TempDir(), Clock: clockwork.NewFakeClock()}
	return NewModel(mgr, theme.New(nil), projects, "test", nil, midi.SinkOptions{})
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.handleKey(k)
		m = next.(Model)
	}
	return m
}

func TestToggleDrumStep(t *testing.T) {
	m := press(newTestModel(t), "j", "l", "l", " ")
	ps, _ := m.Manager.Store().Set(sequencer.Drum, 0)
	if !ps.At("ride", 2).On {
		t.Fatal("ride step 2 not toggled")
	}
	m = press(m, " ")
	ps, _ = m.Manager.Store().Set(sequencer.Drum, 0)
	if ps.At("ride", 2).On {
		t.Fatal("second toggle did not clear")
	}
}

func TestLegatoRange(t *testing.T) {
	m := press(newTestModel(t), "tab", "]", "l", "l", "v", "l", "l", "l", "v")
	ps, _ := m.Manager.Store().Set(sequencer.Bass, 0)
	lane := ps.Lane("bass_C2")
	for s, st := range lane {
		want := s >= 2 && s <= 5
		if st.On != want {
			t.Fatalf("step %d on=%v", s, st.On)
		}
		if want && st.Mods.Octave != 1 {
			t.Fatalf("step %d mods = %+v", s, st.Mods)
		}
	}
	if m.mark != -1 {
		t.Error("mark not reset")
	}

	// x on any step of the note removes all of it
	m = press(m, "h", "x")
	ps, _ = m.Manager.Store().Set(sequencer.Bass, 0)
	if ps.HasContent() {
		t.Fatal("note not cleared")
	}
}

func TestSetSelection(t *testing.T) {
	m := press(newTestModel(t), "r", "3")
	sel := m.Manager.Selector()
	if sel.Mode() != sequencer.Reserved {
		t.Fatal("mode not toggled")
	}
	if sel.Active(sequencer.Drum) != 0 || sel.Reserved(sequencer.Drum) != 3 {
		t.Fatalf("drum active=%d reserved=%d", sel.Active(sequencer.Drum), sel.Reserved(sequencer.Drum))
	}
	if m.editing[sequencer.Drum] != 3 {
		t.Errorf("editing = %d", m.editing[sequencer.Drum])
	}

	m = press(m, "r", "alt+7")
	for _, typ := range sequencer.InstrumentTypes {
		if sel.Active(typ) != 7 {
			t.Errorf("%s active = %d", typ, sel.Active(typ))
		}
	}
}

func TestTempoAndVolume(t *testing.T) {
	m := press(newTestModel(t), "+", "+", "-", ">", ">")
	if _, _, tempo := m.Manager.GetState(); tempo != sequencer.DefaultBPM+tempoStep {
		t.Errorf("tempo = %d", tempo)
	}
	if v := m.Manager.Store().Volume(sequencer.Drum); v < 0.69 || v > 0.71 {
		t.Errorf("volume = %v", v)
	}
}

func TestSaveAndBrowse(t *testing.T) {
	m := press(newTestModel(t), " ", "s")
	if !strings.HasPrefix(m.status, "saved ") {
		t.Fatalf("status = %q", m.status)
	}
	m = press(m, "c")
	ps, _ := m.Manager.Store().Set(sequencer.Drum, 0)
	if ps.HasContent() {
		t.Fatal("clear failed")
	}

	m = press(m, "P")
	if m.browser == nil || len(m.browser.projects) != 1 || len(m.browser.saves) != 1 {
		t.Fatalf("browser = %+v", m.browser)
	}
	if !strings.Contains(m.View(), "PROJECTS") {
		t.Error("browser not rendered")
	}
	m = press(m, "l", "enter")
	if m.browser != nil {
		t.Fatal("browser still open after load")
	}
	ps, _ = m.Manager.Store().Set(sequencer.Drum, 0)
	if !ps.At("crash", 0).On {
		t.Fatal("save not restored")
	}
}

func TestView(t *testing.T) {
	m := press(newTestModel(t), " ", "tab", "v", "l", "v")
	out := m.View()
	for _, want := range []string{"go-stepseq", "STOP", "120bpm", "bass_C2", "drum", "synth"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
