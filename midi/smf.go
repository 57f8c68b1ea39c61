package midi

import (
	"io"
	"sort"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-stepseq/sequencer"
)

// ExportOptions controls SMF rendering
type ExportOptions struct {
	BPM        int
	Bars       int                                // loops of the pattern, 1 when zero
	Sets       map[sequencer.InstrumentType]int   // set rendered per type, 0 when missing
	Channels   map[sequencer.InstrumentType]uint8 // DefaultChannels when nil
	Resolution smf.MetricTicks                    // ticks per quarter note, 960 when zero
}

// Render lays the chosen pattern set of every type out as note events, using
// the same trigger decisions the live clock makes.
func Render(sc *sequencer.Score, reg *sequencer.Registry, steps int, opts ExportOptions) []Event {
	if opts.Bars <= 0 {
		opts.Bars = 1
	}
	if opts.Channels == nil {
		opts.Channels = DefaultChannels
	}
	if opts.Resolution == 0 {
		opts.Resolution = 960
	}
	per := opts.Resolution.Ticks16th()

	var events []Event
	for _, t := range sequencer.InstrumentTypes {
		set := sc.Set(t, opts.Sets[t])
		if set == nil {
			continue
		}
		ch := opts.Channels[t]
		vel := Velocity(sc.Volume(t))
		if vel == 0 {
			continue
		}
		for bar := 0; bar < opts.Bars; bar++ {
			for step := 0; step < steps; step++ {
				for _, trig := range sequencer.Triggers(set, reg.Lanes(t), step) {
					base, _ := reg.Note(t, trig.Lane)
					n := int(base) + trig.Mods.Semitones()
					if n < 0 || n > 127 {
						continue
					}
					on := uint32(bar*steps+step) * per
					off := on + uint32(trig.SustainSteps)*per - 1
					events = append(events,
						Event{Tick: on, Type: NoteOn, Channel: ch, Note: uint8(n), Velocity: vel},
						Event{Tick: off, Type: NoteOff, Channel: ch, Note: uint8(n)},
					)
				}
			}
		}
	}
	sort.Stable(byTick(events))
	return events
}

// WriteSMF renders the pattern into a single-track Standard MIDI File
func WriteSMF(w io.Writer, sc *sequencer.Score, reg *sequencer.Registry, steps int, opts ExportOptions) error {
	if opts.Resolution == 0 {
		opts.Resolution = 960
	}
	bpm := sequencer.ClampBPM(opts.BPM)

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("go-stepseq"))
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, smf.MetaTempo(float64(bpm)))

	var last uint32
	for _, ev := range Render(sc, reg, steps, opts) {
		var msg gomidi.Message
		if ev.Type == NoteOn {
			msg = gomidi.NoteOn(ev.Channel, ev.Note, ev.Velocity)
		} else {
			msg = gomidi.NoteOff(ev.Channel, ev.Note)
		}
		tr.Add(ev.Tick-last, msg)
		last = ev.Tick
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = opts.Resolution
	if err := s.Add(tr); err != nil {
		return errors.Wrap(err, "add track")
	}
	if _, err := s.WriteTo(w); err != nil {
		return errors.Wrap(err, "write smf")
	}
	return nil
}
