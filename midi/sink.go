package midi

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepseq/debug"
	"go-stepseq/sequencer"
)

// DefaultChannels puts drums on the GM percussion channel (10) and the tonal
// types on 1 and 2. Values are zero-based.
var DefaultChannels = map[sequencer.InstrumentType]uint8{
	sequencer.Drum:  9,
	sequencer.Bass:  0,
	sequencer.Synth: 1,
}

// SinkOptions configures a Sink
type SinkOptions struct {
	Channels map[sequencer.InstrumentType]uint8 // zero-based, DefaultChannels when nil
	Master   float64                            // master volume in [0, 1]
	Gate     float64                            // fraction of the note length held, 0.9 when zero
	Clock    clockwork.Clock                    // schedules note-offs, real clock when nil
}

// Sink is a sequencer.AudioSink that plays triggers as MIDI notes. Note-ons
// go out immediately; the matching note-off is scheduled on the clock so
// Play never blocks for the length of the note.
type Sink struct {
	send     func(gomidi.Message) error
	reg      *sequencer.Registry
	channels map[sequencer.InstrumentType]uint8
	master   float64
	gate     float64
	clock    clockwork.Clock

	mu sync.Mutex // send is not safe for concurrent use
}

// NewSink creates a sink writing to send
func NewSink(send func(gomidi.Message) error, reg *sequencer.Registry, opts SinkOptions) *Sink {
	if opts.Channels == nil {
		opts.Channels = DefaultChannels
	}
	if opts.Gate <= 0 || opts.Gate > 1 {
		opts.Gate = 0.9
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Sink{
		send:     send,
		reg:      reg,
		channels: opts.Channels,
		master:   math.Max(0, math.Min(opts.Master, 1)),
		gate:     opts.Gate,
		clock:    opts.Clock,
	}
}

// Velocity maps a gain in [0, 1] to a MIDI velocity; zero gain is silence
func Velocity(gain float64) uint8 {
	if gain <= 0 {
		return 0
	}
	v := math.Round(gain * 127)
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}

// Play implements sequencer.AudioSink
func (s *Sink) Play(lane string, ctx sequencer.PlayContext) error {
	base, ok := s.reg.Note(ctx.Type, lane)
	if !ok {
		return errors.Wrapf(sequencer.ErrUnknownLane, "%s lane %q", ctx.Type, lane)
	}
	n := int(base) + ctx.Mods.Semitones()
	if n < 0 || n > 127 {
		return errors.Errorf("%s: note %d out of MIDI range", lane, n)
	}
	vel := Velocity(ctx.Gain * s.master)
	if vel == 0 {
		return nil
	}
	ch := s.channels[ctx.Type]
	key := uint8(n)

	if err := s.write(gomidi.NoteOn(ch, key, vel)); err != nil {
		return errors.Wrap(err, "note on")
	}
	hold := time.Duration(float64(ctx.Duration()) * s.gate)
	s.clock.AfterFunc(hold, func() {
		if err := s.write(gomidi.NoteOff(ch, key)); err != nil {
			debug.Logger().Warn("note off", "lane", lane, "err", err)
		}
	})
	debug.Log("midi", "%s ch=%d key=%d vel=%d hold=%s", lane, ch+1, key, vel, hold)
	return nil
}

// AllNotesOff silences every channel the sink uses
func (s *Sink) AllNotesOff() error {
	seen := make(map[uint8]bool)
	for _, ch := range s.channels {
		if seen[ch] {
			continue
		}
		seen[ch] = true
		if err := s.write(gomidi.ControlChange(ch, 123, 0)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) write(msg gomidi.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(msg)
}
