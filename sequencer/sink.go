package sequencer

import (
	"time"

	"github.com/pkg/errors"

	"go-stepseq/debug"
)

// PlayContext is everything an AudioSink needs to sound one trigger
type PlayContext struct {
	Type         InstrumentType
	BPM          int
	SustainSteps int
	StepDuration time.Duration
	Mods         PitchModifiers
	Gain         float64 // instrument type volume in [0, 1]
}

// Duration is how long the note should be held in real time
func (c PlayContext) Duration() time.Duration {
	return time.Duration(c.SustainSteps) * c.StepDuration
}

// AudioSink sounds triggers. Play must not block for the length of the note;
// the scheduler neither waits for nor depends on audio completion.
type AudioSink interface {
	Play(lane string, ctx PlayContext) error
}

// SinkFunc adapts a function to AudioSink
type SinkFunc func(lane string, ctx PlayContext) error

func (f SinkFunc) Play(lane string, ctx PlayContext) error { return f(lane, ctx) }

// MultiSink fans every trigger out to several sinks; the first error wins
type MultiSink []AudioSink

func (m MultiSink) Play(lane string, ctx PlayContext) error {
	var first error
	for _, s := range m {
		if err := dispatch(s, lane, ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// dispatch calls the sink and turns errors and panics into ErrAudioDispatch
func dispatch(sink AudioSink, lane string, ctx PlayContext) (err error) {
	if sink == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrAudioDispatch, "%s: panic: %v", lane, r)
		}
	}()
	if e := sink.Play(lane, ctx); e != nil {
		return errors.Wrapf(ErrAudioDispatch, "%s: %v", lane, e)
	}
	return nil
}

// safeDispatch is dispatch for the clock: failures are logged and dropped
func safeDispatch(sink AudioSink, lane string, ctx PlayContext) {
	if err := dispatch(sink, lane, ctx); err != nil {
		debug.Logger().Warn("audio dispatch", "type", ctx.Type, "lane", lane, "err", err)
	}
}
