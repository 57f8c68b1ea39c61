package midi

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepseq/sequencer"
)

type capture chan gomidi.Message

func (c capture) send(msg gomidi.Message) error {
	c <- msg
	return nil
}

func (c capture) next(t *testing.T) gomidi.Message {
	t.Helper()
	select {
	case msg := <-c:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no MIDI message")
		return nil
	}
}

func (c capture) empty(t *testing.T) {
	t.Helper()
	select {
	case msg := <-c:
		t.Fatalf("unexpected message %s", msg)
	default:
	}
}

func TestVelocity(t *testing.T) {
	tests := []struct {
		gain float64
		want uint8
	}{
		{0, 0},
		{-1, 0},
		{0.001, 1},
		{0.5, 64},
		{1, 127},
		{4, 127},
	}
	for _, tt := range tests {
		if got := Velocity(tt.gain); got != tt.want {
			t.Errorf("Velocity(%v) = %d, want %d", tt.gain, got, tt.want)
		}
	}
}

func TestSinkNoteOnOff(t *testing.T) {
	fc := clockwork.NewFakeClock()
	out := make(capture, 8)
	s := NewSink(out.send, sequencer.DefaultRegistry(), SinkOptions{Master: 1, Clock: fc})

	err := s.Play("kick", sequencer.PlayContext{
		Type:         sequencer.Drum,
		SustainSteps: 2,
		StepDuration: 125 * time.Millisecond,
		Gain:         0.5,
	})
	if err != nil {
		t.Fatal(err)
	}

	var ch, key, vel uint8
	if !out.next(t).GetNoteOn(&ch, &key, &vel) || ch != 9 || key != 36 || vel != 64 {
		t.Fatalf("note on ch=%d key=%d vel=%d", ch, key, vel)
	}

	// released at 90% of the 250ms note
	fc.BlockUntil(1)
	fc.Advance(224 * time.Millisecond)
	out.empty(t)
	fc.Advance(time.Millisecond)
	if !out.next(t).GetNoteOff(&ch, &key, &vel) || ch != 9 || key != 36 {
		t.Fatalf("note off ch=%d key=%d", ch, key)
	}
}

func TestSinkPitchAndChannel(t *testing.T) {
	out := make(capture, 8)
	s := NewSink(out.send, sequencer.DefaultRegistry(), SinkOptions{
		Master:   1,
		Channels: map[sequencer.InstrumentType]uint8{sequencer.Bass: 3},
		Clock:    clockwork.NewFakeClock(),
	})
	err := s.Play("bass_C1", sequencer.PlayContext{
		Type:         sequencer.Bass,
		SustainSteps: 1,
		StepDuration: 100 * time.Millisecond,
		Mods:         sequencer.PitchModifiers{Sharp: true, Octave: 1},
		Gain:         1,
	})
	if err != nil {
		t.Fatal(err)
	}
	var ch, key, vel uint8
	if !out.next(t).GetNoteOn(&ch, &key, &vel) || ch != 3 || key != 24+12+1 || vel != 127 {
		t.Fatalf("note on ch=%d key=%d vel=%d", ch, key, vel)
	}
}

func TestSinkSilentAndErrors(t *testing.T) {
	out := make(capture, 8)
	reg := sequencer.DefaultRegistry()

	muted := NewSink(out.send, reg, SinkOptions{Master: 0, Clock: clockwork.NewFakeClock()})
	if err := muted.Play("kick", sequencer.PlayContext{Type: sequencer.Drum, Gain: 1}); err != nil {
		t.Fatal(err)
	}
	out.empty(t)

	s := NewSink(out.send, reg, SinkOptions{Master: 1, Clock: clockwork.NewFakeClock()})
	if err := s.Play("gong", sequencer.PlayContext{Type: sequencer.Drum, Gain: 1}); !errors.Is(err, sequencer.ErrUnknownLane) {
		t.Fatalf("err = %v", err)
	}
	err := s.Play("synth_C3", sequencer.PlayContext{
		Type: sequencer.Synth,
		Gain: 1,
		Mods: sequencer.PitchModifiers{Octave: 10},
	})
	if err == nil {
		t.Fatal("note above 127 accepted")
	}
	out.empty(t)

	failing := NewSink(func(gomidi.Message) error { return errors.New("port closed") }, reg, SinkOptions{Master: 1})
	if err := failing.Play("kick", sequencer.PlayContext{Type: sequencer.Drum, Gain: 1}); err == nil {
		t.Fatal("send error swallowed")
	}
}

func TestAllNotesOff(t *testing.T) {
	out := make(capture, 8)
	s := NewSink(out.send, sequencer.DefaultRegistry(), SinkOptions{
		Channels: map[sequencer.InstrumentType]uint8{sequencer.Drum: 9, sequencer.Bass: 0, sequencer.Synth: 0},
	})
	if err := s.AllNotesOff(); err != nil {
		t.Fatal(err)
	}
	seen := map[uint8]bool{}
	for i := 0; i < 2; i++ {
		var ch, cc, val uint8
		if !out.next(t).GetControlChange(&ch, &cc, &val) || cc != 123 {
			t.Fatalf("message %d is not all-notes-off", i)
		}
		seen[ch] = true
	}
	out.empty(t)
	if !seen[9] || !seen[0] {
		t.Errorf("channels = %v", seen)
	}
}

func TestMatchPort(t *testing.T) {
	tests := []struct {
		name, want string
		match      bool
	}{
		{"IAC Driver Bus 1", "", true},
		{"IAC Driver Bus 1", "iac", true},
		{"Midi Through:Midi Through Port-0 14:0", "through", true},
		{"FLUID Synth (1234):Synth input port", "Launchpad", false},
	}
	for _, tt := range tests {
		if got := MatchPort(tt.name, tt.want); got != tt.match {
			t.Errorf("MatchPort(%q, %q) = %v", tt.name, tt.want, got)
		}
	}
}
