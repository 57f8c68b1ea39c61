package sequencer

// PitchModifiers alter the pitch a sustained note sounds at
type PitchModifiers struct {
	Sharp  bool `json:"sharp,omitempty"`
	Octave int  `json:"octave,omitempty"`
}

// Semitones returns the offset applied to the lane's base note
func (m PitchModifiers) Semitones() int {
	n := m.Octave * 12
	if m.Sharp {
		n++
	}
	return n
}

// StepState is one cell of a lane. Discrete lanes only use On; sustain lanes
// also carry the legato group the step belongs to and its pitch modifiers.
type StepState struct {
	On      bool
	GroupID GroupID
	Mods    PitchModifiers
}

// PatternSet is one full grid (all lanes x N steps) for one instrument type.
// A published PatternSet is never modified; edits produce a new one.
type PatternSet struct {
	steps int
	lanes map[string][]StepState
}

func newPatternSet(lanes []Lane, steps int) *PatternSet {
	p := &PatternSet{
		steps: steps,
		lanes: make(map[string][]StepState, len(lanes)),
	}
	for _, l := range lanes {
		p.lanes[l.Name] = make([]StepState, steps)
	}
	return p
}

// Steps returns N, the length of every lane
func (p *PatternSet) Steps() int {
	return p.steps
}

// Lane returns a copy of the named lane's steps (nil if the lane is absent)
func (p *PatternSet) Lane(name string) []StepState {
	src, ok := p.lanes[name]
	if !ok {
		return nil
	}
	out := make([]StepState, len(src))
	copy(out, src)
	return out
}

// At returns a single step
func (p *PatternSet) At(lane string, step int) StepState {
	return p.lanes[lane][step]
}

// HasContent reports whether any step in the set is on
func (p *PatternSet) HasContent() bool {
	for _, steps := range p.lanes {
		for _, s := range steps {
			if s.On {
				return true
			}
		}
	}
	return false
}

// clone deep-copies the lanes so the copy can be edited before publishing
func (p *PatternSet) clone() *PatternSet {
	c := &PatternSet{
		steps: p.steps,
		lanes: make(map[string][]StepState, len(p.lanes)),
	}
	for name, steps := range p.lanes {
		cp := make([]StepState, len(steps))
		copy(cp, steps)
		c.lanes[name] = cp
	}
	return c
}

// maxGroupID returns the largest group id referenced by the set
func (p *PatternSet) maxGroupID() GroupID {
	var max GroupID
	for _, steps := range p.lanes {
		for _, s := range steps {
			if s.GroupID > max {
				max = s.GroupID
			}
		}
	}
	return max
}
