package sequencer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// NumSets is the number of pattern sets each instrument type owns (selectable 0-9)
const NumSets = 10

// DefaultSteps is one bar of sixteenth notes
const DefaultSteps = 16

// InstrumentType identifies a group of lanes sharing a pattern-set pool and a gain stage
type InstrumentType uint8

const (
	Drum InstrumentType = iota
	Bass
	Synth
	numInstrumentTypes
)

// InstrumentTypes lists every type in playback order
var InstrumentTypes = []InstrumentType{Drum, Bass, Synth}

func (t InstrumentType) String() string {
	switch t {
	case Drum:
		return "drum"
	case Bass:
		return "bass"
	case Synth:
		return "synth"
	}
	return fmt.Sprintf("InstrumentType(%d)", uint8(t))
}

// Valid reports whether t is one of the known types
func (t InstrumentType) Valid() bool {
	return t < numInstrumentTypes
}

// LaneKind returns the step variant lanes of this type carry
func (t InstrumentType) LaneKind() LaneKind {
	if t == Drum {
		return Discrete
	}
	return Sustain
}

// MarshalText encodes the type as its lowercase name (used for JSON map keys)
func (t InstrumentType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.Wrapf(ErrUnknownInstrument, "%d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText parses a lowercase type name
func (t *InstrumentType) UnmarshalText(b []byte) error {
	parsed, err := ParseInstrumentType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseInstrumentType maps "drum", "bass" or "synth" to its type
func ParseInstrumentType(s string) (InstrumentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drum":
		return Drum, nil
	case "bass":
		return Bass, nil
	case "synth":
		return Synth, nil
	}
	return 0, errors.Wrapf(ErrUnknownInstrument, "%q", s)
}

// LaneKind is the step-state variant of a lane, fixed at registration
type LaneKind uint8

const (
	Discrete LaneKind = iota // percussive hits, no sustain
	Sustain                  // tonal notes grouped into legato runs
)

func (k LaneKind) String() string {
	if k == Sustain {
		return "sustain"
	}
	return "discrete"
}

// Lane is a named channel registered against one instrument type
type Lane struct {
	Name string
	Type InstrumentType
	Kind LaneKind
	Note uint8 // MIDI note the lane sounds at (before pitch modifiers)
}
