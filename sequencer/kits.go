package sequencer

import (
	"strings"

	"github.com/pkg/errors"
)

// LaneDef declares a lane for registration. Note 0 means derive it from the
// name (GM drum table for drum lanes, trailing pitch name like "C2" otherwise).
type LaneDef struct {
	Name string
	Note uint8
}

// DefaultLanes is the stock layout: eight drum voices and one octave of
// bass and synth notes, top row first.
var DefaultLanes = map[InstrumentType][]LaneDef{
	Drum: {
		{Name: "crash"}, {Name: "ride"}, {Name: "hiHat"}, {Name: "highTom"},
		{Name: "midTom"}, {Name: "lowTom"}, {Name: "snare"}, {Name: "kick"},
	},
	Bass: {
		{Name: "bass_C2"}, {Name: "bass_B1"}, {Name: "bass_A1"}, {Name: "bass_G1"},
		{Name: "bass_F1"}, {Name: "bass_E1"}, {Name: "bass_D1"}, {Name: "bass_C1"},
	},
	Synth: {
		{Name: "synth_C3"}, {Name: "synth_B2"}, {Name: "synth_A2"}, {Name: "synth_G2"},
		{Name: "synth_F2"}, {Name: "synth_E2"}, {Name: "synth_D2"}, {Name: "synth_C2"},
	},
}

// gmDrumNotes maps drum lane names to General MIDI percussion notes
var gmDrumNotes = map[string]uint8{
	"kick":      36,
	"rimshot":   37,
	"snare":     38,
	"clap":      39,
	"hiHat":     42,
	"openHiHat": 46,
	"lowTom":    45,
	"midTom":    47,
	"highTom":   50,
	"crash":     49,
	"ride":      51,
	"cowbell":   56,
}

var noteOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParsePitch parses names like "C1", "F#2" or "Bb0" into a MIDI note (C4 = 60)
func ParsePitch(name string) (uint8, error) {
	if len(name) < 2 {
		return 0, errors.Errorf("bad pitch %q", name)
	}
	base, ok := noteOffsets[strings.ToUpper(name[:1])[0]]
	if !ok {
		return 0, errors.Errorf("bad pitch %q", name)
	}
	rest := name[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return 0, errors.Errorf("bad pitch %q: missing octave", name)
	}
	octave := 0
	neg := false
	for i, c := range rest {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, errors.Errorf("bad pitch %q", name)
		}
		octave = octave*10 + int(c-'0')
	}
	if neg {
		octave = -octave
	}
	n := (octave+1)*12 + base
	if n < 0 || n > 127 {
		return 0, errors.Errorf("pitch %q out of MIDI range", name)
	}
	return uint8(n), nil
}

// laneNote resolves the MIDI note a lane definition sounds at
func laneNote(t InstrumentType, def LaneDef) (uint8, error) {
	if def.Note != 0 {
		return def.Note, nil
	}
	if t == Drum {
		if n, ok := gmDrumNotes[def.Name]; ok {
			return n, nil
		}
		return 0, errors.Errorf("drum lane %q has no GM note, set one explicitly", def.Name)
	}
	idx := strings.LastIndexByte(def.Name, '_')
	return ParsePitch(def.Name[idx+1:])
}

// Registry holds the lanes registered for each instrument type
type Registry struct {
	order  map[InstrumentType][]Lane
	byName map[InstrumentType]map[string]Lane
}

// NewRegistry registers lanes against their owning types. The lane kind is
// taken from the type and never changes afterwards.
func NewRegistry(defs map[InstrumentType][]LaneDef) (*Registry, error) {
	for t := range defs {
		if !t.Valid() {
			return nil, errors.Wrapf(ErrUnknownInstrument, "%s", t)
		}
	}
	r := &Registry{
		order:  make(map[InstrumentType][]Lane),
		byName: make(map[InstrumentType]map[string]Lane),
	}
	for _, t := range InstrumentTypes {
		r.byName[t] = make(map[string]Lane)
		for _, def := range defs[t] {
			if def.Name == "" {
				return nil, errors.Errorf("%s: empty lane name", t)
			}
			if _, dup := r.byName[t][def.Name]; dup {
				return nil, errors.Errorf("%s: duplicate lane %q", t, def.Name)
			}
			note, err := laneNote(t, def)
			if err != nil {
				return nil, err
			}
			lane := Lane{Name: def.Name, Type: t, Kind: t.LaneKind(), Note: note}
			r.order[t] = append(r.order[t], lane)
			r.byName[t][def.Name] = lane
		}
	}
	return r, nil
}

// DefaultRegistry returns the stock lane layout
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultLanes)
	if err != nil {
		panic(err)
	}
	return r
}

// Lanes returns the lanes of a type in display order
func (r *Registry) Lanes(t InstrumentType) []Lane {
	return r.order[t]
}

// Lookup finds a lane registered under t
func (r *Registry) Lookup(t InstrumentType, name string) (Lane, bool) {
	lane, ok := r.byName[t][name]
	return lane, ok
}

// Note returns the MIDI note a lane of t sounds at
func (r *Registry) Note(t InstrumentType, name string) (uint8, bool) {
	lane, ok := r.byName[t][name]
	return lane.Note, ok
}
