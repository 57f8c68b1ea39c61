package sequencer

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

func newTestManager(t *testing.T, opts Options) (*Manager, clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	opts.Clock = fc
	m := NewManager(DefaultRegistry(), opts)
	t.Cleanup(m.Stop)
	return m, fc
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func TestManagerTransport(t *testing.T) {
	m, fc := newTestManager(t, Options{BPM: 100})
	rec := &recorder{clock: fc}
	m.SetSink(rec)
	m.ToggleDiscrete(Drum, 0, "kick", 0)

	if _, playing, tempo := m.GetState(); playing || tempo != 100 {
		t.Fatalf("initial state playing=%v tempo=%d", playing, tempo)
	}
	m.Play()
	fc.BlockUntil(1)
	if _, playing, _ := m.GetState(); !playing {
		t.Fatal("not playing")
	}
	if len(rec.all()) != 1 {
		t.Fatal("kick not sent to sink")
	}

	// a nil sink silences playback without stopping the clock
	m.SetSink(nil)
	fc.Advance(16 * StepDuration(100))
	fc.BlockUntil(1)
	if len(rec.all()) != 1 {
		t.Fatal("detached sink still called")
	}

	if got := m.SetTempo(2000); got != MaxBPM {
		t.Errorf("SetTempo(2000) = %d", got)
	}
	m.Stop()
	if step, playing, _ := m.GetState(); playing || step != 0 {
		t.Fatalf("after stop step=%d playing=%v", step, playing)
	}
}

func TestManagerNotifiesOnEdits(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	drain(m.UpdateChan)

	if _, err := m.ToggleSustainAt(Bass, 0, "bass_C1", 3); err != nil {
		t.Fatal(err)
	}
	select {
	case <-m.UpdateChan:
	case <-time.After(time.Second):
		t.Fatal("no update after edit")
	}

	if err := m.Select(Drum, 11); !errors.Is(err, ErrInvalidSetIndex) {
		t.Fatalf("err = %v", err)
	}
	select {
	case <-m.UpdateChan:
		t.Fatal("failed select notified")
	default:
	}
}

func TestManagerExportImport(t *testing.T) {
	src, _ := newTestManager(t, Options{BPM: 140})
	src.ToggleDiscrete(Drum, 5, "crash", 7)
	g, _ := src.SetSustainRange(Synth, 2, "synth_A2", 1, 3, PitchModifiers{Sharp: true})
	src.SetVolume(Synth, 0.9)

	snap := src.Export()
	if snap.BPM == nil || *snap.BPM != 140 {
		t.Fatalf("exported bpm = %v", snap.BPM)
	}

	dst, _ := newTestManager(t, Options{})
	if err := dst.Import(snap); err != nil {
		t.Fatal(err)
	}
	if _, _, tempo := dst.GetState(); tempo != 140 {
		t.Errorf("tempo = %d", tempo)
	}
	ps, _ := dst.Store().Set(Synth, 2)
	if st := ps.At("synth_A2", 2); !st.On || st.GroupID != g || !st.Mods.Sharp {
		t.Errorf("imported step = %+v", st)
	}
	if dst.Store().Volume(Synth) != 0.9 {
		t.Errorf("volume = %v", dst.Store().Volume(Synth))
	}
}

func TestManagerImportRejectsWithoutSideEffects(t *testing.T) {
	m, _ := newTestManager(t, Options{BPM: 90})
	bpm := 150.0
	bad := Snapshot{
		Score: map[InstrumentType][]SetData{Drum: make([]SetData, 3)},
		BPM:   &bpm,
	}
	if err := m.Import(bad); !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v", err)
	}
	if _, _, tempo := m.GetState(); tempo != 90 {
		t.Errorf("tempo changed to %d by a rejected import", tempo)
	}
}

func TestRoundBPM(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{120, 120},
		{99.6, 100},
		{0.2, MinBPM},
		{1e12, MaxBPM},
		{math.NaN(), MinBPM},
		{math.Inf(1), MaxBPM},
	}
	for _, tt := range tests {
		if got := roundBPM(tt.in); got != tt.want {
			t.Errorf("roundBPM(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
