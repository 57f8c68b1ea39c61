package sequencer

import "github.com/pkg/errors"

var (
	// ErrUnknownLane is returned when an edit addresses a lane not registered for the type
	ErrUnknownLane = errors.New("unknown lane")
	// ErrUnknownInstrument is returned for an instrument type outside the registry
	ErrUnknownInstrument = errors.New("unknown instrument type")
	// ErrLaneKind is returned when a discrete edit targets a sustain lane or vice versa
	ErrLaneKind = errors.New("wrong lane kind")
	// ErrInvalidSetIndex is returned for a pattern set outside [0, NumSets)
	ErrInvalidSetIndex = errors.New("invalid set index")
	// ErrInvalidStep is returned for a step outside [0, N)
	ErrInvalidStep = errors.New("invalid step")
	// ErrSchema is returned when a snapshot does not match the registered layout
	ErrSchema = errors.New("snapshot schema error")
	// ErrAudioDispatch wraps failures raised by an AudioSink; it is logged, never returned to callers
	ErrAudioDispatch = errors.New("audio dispatch failed")
)
