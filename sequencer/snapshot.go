package sequencer

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"go-stepseq/debug"
)

// Snapshot is the persisted form of a session. Every field is optional on
// import and applied independently when present.
type Snapshot struct {
	Score   map[InstrumentType][]SetData `json:"score,omitempty"`
	BPM     *float64                     `json:"bpm,omitempty"`
	Volumes map[InstrumentType]float64   `json:"volumes,omitempty"`
}

// SetData is one pattern set keyed by lane name
type SetData map[string][]SnapStep

// SnapStep is a step as stored on disk: a bare boolean for discrete lanes,
// an object with group id and modifiers for sustain lanes.
type SnapStep struct {
	Discrete bool
	On       bool
	GroupID  GroupID
	Mods     PitchModifiers
}

type sustainStepJSON struct {
	On      bool            `json:"on"`
	GroupID GroupID         `json:"groupId"`
	Mods    *PitchModifiers `json:"mods,omitempty"`
}

func (s SnapStep) MarshalJSON() ([]byte, error) {
	if s.Discrete {
		return json.Marshal(s.On)
	}
	out := sustainStepJSON{On: s.On, GroupID: s.GroupID}
	if s.Mods != (PitchModifiers{}) {
		mods := s.Mods
		out.Mods = &mods
	}
	return json.Marshal(out)
}

func (s *SnapStep) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var in sustainStepJSON
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return err
		}
		*s = SnapStep{On: in.On, GroupID: in.GroupID}
		if in.Mods != nil {
			s.Mods = *in.Mods
		}
		return nil
	}
	var on bool
	if err := json.Unmarshal(b, &on); err != nil {
		return err
	}
	*s = SnapStep{Discrete: true, On: on}
	return nil
}

// DecodeSnapshot parses a JSON snapshot. Malformed input and unexpected
// fields are reported as ErrSchema.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, errors.Wrapf(ErrSchema, "decode: %v", err)
	}
	return snap, nil
}

// Encode writes the snapshot as indented JSON
func (snap Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ExportSnapshot returns a full, consistent copy of score and volumes
func (s *Store) ExportSnapshot() Snapshot {
	sc := s.cur.Load()
	snap := Snapshot{
		Score:   make(map[InstrumentType][]SetData, len(InstrumentTypes)),
		Volumes: make(map[InstrumentType]float64, len(InstrumentTypes)),
	}
	for _, t := range InstrumentTypes {
		sets := make([]SetData, NumSets)
		for i := 0; i < NumSets; i++ {
			sets[i] = exportSet(sc.sets[t][i], s.registry.Lanes(t))
		}
		snap.Score[t] = sets
		snap.Volumes[t] = sc.volumes[t]
	}
	return snap
}

func exportSet(p *PatternSet, lanes []Lane) SetData {
	data := make(SetData, len(lanes))
	for _, l := range lanes {
		steps := p.lanes[l.Name]
		out := make([]SnapStep, len(steps))
		for i, st := range steps {
			if l.Kind == Discrete {
				out[i] = SnapStep{Discrete: true, On: st.On}
			} else {
				out[i] = SnapStep{On: st.On, GroupID: st.GroupID, Mods: st.Mods}
			}
		}
		data[l.Name] = out
	}
	return data
}

// ImportSnapshot replaces the score and volumes found in snap. The whole
// snapshot is validated first; on any error nothing changes.
func (s *Store) ImportSnapshot(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.cur.Load()
	next := *cur
	var maxID GroupID
	for t, sets := range snap.Score {
		if !t.Valid() {
			return errors.Wrapf(ErrSchema, "unknown instrument type %s", t)
		}
		if len(sets) != NumSets {
			return errors.Wrapf(ErrSchema, "%s: %d pattern sets, want %d", t, len(sets), NumSets)
		}
		for i, data := range sets {
			p, err := s.importSet(t, data)
			if err != nil {
				return errors.Wrapf(err, "%s set %d", t, i)
			}
			if id := p.maxGroupID(); id > maxID {
				maxID = id
			}
			next.sets[t][i] = p
		}
	}
	for t, v := range snap.Volumes {
		if !t.Valid() {
			return errors.Wrapf(ErrSchema, "unknown instrument type %s in volumes", t)
		}
		next.volumes[t] = clampVolume(v)
	}
	if snap.Score == nil && snap.Volumes == nil {
		return nil
	}

	s.ids.Reserve(maxID)
	s.publish(&next)
	debug.Log("store", "imported snapshot types=%d volumes=%d maxGroup=%d", len(snap.Score), len(snap.Volumes), maxID)
	return nil
}

func (s *Store) importSet(t InstrumentType, data SetData) (*PatternSet, error) {
	p := newPatternSet(s.registry.Lanes(t), s.steps)
	for name, steps := range data {
		lane, ok := s.registry.Lookup(t, name)
		if !ok {
			return nil, errors.Wrapf(ErrSchema, "unknown lane %q", name)
		}
		if len(steps) != s.steps {
			return nil, errors.Wrapf(ErrSchema, "lane %q has %d steps, want %d", name, len(steps), s.steps)
		}
		dst := p.lanes[name]
		for i, st := range steps {
			switch {
			case lane.Kind == Discrete && !st.Discrete:
				return nil, errors.Wrapf(ErrSchema, "lane %q step %d: sustain step in discrete lane", name, i)
			case lane.Kind == Sustain && st.Discrete:
				return nil, errors.Wrapf(ErrSchema, "lane %q step %d: discrete step in sustain lane", name, i)
			case lane.Kind == Sustain && st.On != (st.GroupID != 0):
				return nil, errors.Wrapf(ErrSchema, "lane %q step %d: on=%v with group %d", name, i, st.On, st.GroupID)
			}
			dst[i] = StepState{On: st.On, GroupID: st.GroupID, Mods: st.Mods}
		}
	}
	return p, nil
}
