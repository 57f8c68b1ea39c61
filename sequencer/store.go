package sequencer

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"go-stepseq/debug"
)

// OrphanPolicy decides what happens to the rest of a legato group when a new
// sustain range overwrites part of it.
type OrphanPolicy int

const (
	// OrphanClear clears the remaining fragment so every group stays one contiguous run
	OrphanClear OrphanPolicy = iota
	// OrphanKeep leaves the fragment in place as a partial group
	OrphanKeep
)

// DefaultVolume is the initial gain of every instrument type
const DefaultVolume = 0.5

// Score is an immutable view of the whole note matrix at one version
type Score struct {
	sets    [numInstrumentTypes][NumSets]*PatternSet
	volumes [numInstrumentTypes]float64
}

// Set returns pattern set idx of type t (nil for out-of-range arguments)
func (sc *Score) Set(t InstrumentType, idx int) *PatternSet {
	if !t.Valid() || idx < 0 || idx >= NumSets {
		return nil
	}
	return sc.sets[t][idx]
}

// Volume returns the output gain of t
func (sc *Score) Volume(t InstrumentType) float64 {
	if !t.Valid() {
		return 0
	}
	return sc.volumes[t]
}

// StoreOptions configures a Store
type StoreOptions struct {
	Steps   int               // N, defaults to DefaultSteps
	Orphans OrphanPolicy      // overlap handling for SetSustainRange
	IDs     *GroupIDAllocator // shared allocator, a private one is created when nil
}

// Store owns the note matrix: instrument types x pattern sets x lanes x steps.
// Writers are serialised; every mutation publishes a fresh Score, so readers
// holding an older one never observe a partial edit.
type Store struct {
	registry *Registry
	steps    int
	orphans  OrphanPolicy
	ids      *GroupIDAllocator

	mu       sync.Mutex
	cur      atomic.Pointer[Score]
	version  atomic.Uint64
	onChange func(version uint64)
}

// NewStore creates a store with every pattern set empty
func NewStore(reg *Registry, opts StoreOptions) *Store {
	if opts.Steps <= 0 {
		opts.Steps = DefaultSteps
	}
	if opts.IDs == nil {
		opts.IDs = &GroupIDAllocator{}
	}
	s := &Store{
		registry: reg,
		steps:    opts.Steps,
		orphans:  opts.Orphans,
		ids:      opts.IDs,
	}
	s.cur.Store(s.emptyScore())
	return s
}

func (s *Store) emptyScore() *Score {
	sc := &Score{}
	for _, t := range InstrumentTypes {
		for i := 0; i < NumSets; i++ {
			sc.sets[t][i] = newPatternSet(s.registry.Lanes(t), s.steps)
		}
		sc.volumes[t] = DefaultVolume
	}
	return sc
}

// SetOnChange registers a callback invoked after each published mutation.
// It runs while the store's write lock is held and must not edit the store.
func (s *Store) SetOnChange(fn func(version uint64)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Registry returns the lane registry the store validates against
func (s *Store) Registry() *Registry { return s.registry }

// Steps returns N
func (s *Store) Steps() int { return s.steps }

// Version increases by one on every published mutation
func (s *Store) Version() uint64 { return s.version.Load() }

// Current returns the latest published score
func (s *Store) Current() *Score { return s.cur.Load() }

// Set returns the latest version of one pattern set
func (s *Store) Set(t InstrumentType, idx int) (*PatternSet, error) {
	if err := s.checkSet(t, idx); err != nil {
		return nil, err
	}
	return s.cur.Load().sets[t][idx], nil
}

// Volume returns the output gain of t
func (s *Store) Volume(t InstrumentType) float64 {
	return s.cur.Load().Volume(t)
}

// SetVolume sets the output gain of t, clamped to [0, 1]
func (s *Store) SetVolume(t InstrumentType, v float64) error {
	if !t.Valid() {
		return errors.Wrapf(ErrUnknownInstrument, "%s", t)
	}
	v = clampVolume(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.cur.Load()
	if cur.volumes[t] == v {
		return nil
	}
	next := *cur
	next.volumes[t] = v
	s.publish(&next)
	return nil
}

func clampVolume(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ToggleDiscrete flips one step of a discrete lane
func (s *Store) ToggleDiscrete(t InstrumentType, idx int, lane string, step int) error {
	if _, err := s.lane(t, idx, lane, Discrete); err != nil {
		return err
	}
	if err := s.checkStep(step); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutate(t, idx, func(p *PatternSet) bool {
		p.lanes[lane][step].On = !p.lanes[lane][step].On
		return true
	})
	debug.Log("store", "toggle %s/%d %s step=%d", t, idx, lane, step)
	return nil
}

// SetSustainRange writes one legato note covering [min(start,end), max(start,end)]
// and returns its freshly allocated group id. Anything previously in the range
// is overwritten.
func (s *Store) SetSustainRange(t InstrumentType, idx int, lane string, start, end int, mods PitchModifiers) (GroupID, error) {
	if _, err := s.lane(t, idx, lane, Sustain); err != nil {
		return 0, err
	}
	if err := s.checkStep(start); err != nil {
		return 0, err
	}
	if err := s.checkStep(end); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setSustainRangeLocked(t, idx, lane, start, end, mods), nil
}

func (s *Store) setSustainRangeLocked(t InstrumentType, idx int, lane string, start, end int, mods PitchModifiers) GroupID {
	lo, hi := start, end
	if lo > hi {
		lo, hi = hi, lo
	}
	id := s.ids.Next()
	s.mutate(t, idx, func(p *PatternSet) bool {
		steps := p.lanes[lane]
		overwritten := make(map[GroupID]bool)
		for i := lo; i <= hi; i++ {
			if g := steps[i].GroupID; g != 0 {
				overwritten[g] = true
			}
			steps[i] = StepState{On: true, GroupID: id, Mods: mods}
		}
		if s.orphans == OrphanClear && len(overwritten) > 0 {
			for i := range steps {
				if overwritten[steps[i].GroupID] {
					steps[i] = StepState{}
				}
			}
		}
		return true
	})
	debug.Log("store", "sustain %s/%d %s [%d,%d] group=%d", t, idx, lane, lo, hi, id)
	return id
}

// ClearGroup turns off every step of lane that belongs to group id. It is a
// no-op when no step matches.
func (s *Store) ClearGroup(t InstrumentType, idx int, lane string, id GroupID) error {
	if _, err := s.lane(t, idx, lane, Sustain); err != nil {
		return err
	}
	if id == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearGroupLocked(t, idx, lane, id)
	return nil
}

func (s *Store) clearGroupLocked(t InstrumentType, idx int, lane string, id GroupID) {
	s.mutate(t, idx, func(p *PatternSet) bool {
		changed := false
		steps := p.lanes[lane]
		for i := range steps {
			if steps[i].GroupID == id {
				steps[i] = StepState{}
				changed = true
			}
		}
		return changed
	})
}

// ToggleSustainAt starts a single-step note on an inactive step, or clears the
// whole note an active step belongs to. It returns the new group id, or 0
// when a note was cleared.
func (s *Store) ToggleSustainAt(t InstrumentType, idx int, lane string, step int) (GroupID, error) {
	if _, err := s.lane(t, idx, lane, Sustain); err != nil {
		return 0, err
	}
	if err := s.checkStep(step); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.cur.Load().sets[t][idx].At(lane, step)
	if cur.On && cur.GroupID != 0 {
		s.clearGroupLocked(t, idx, lane, cur.GroupID)
		debug.Log("store", "clear %s/%d %s group=%d", t, idx, lane, cur.GroupID)
		return 0, nil
	}
	return s.setSustainRangeLocked(t, idx, lane, step, step, PitchModifiers{}), nil
}

// ClearSet resets every lane of one pattern set to all-inactive
func (s *Store) ClearSet(t InstrumentType, idx int) error {
	if err := s.checkSet(t, idx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.cur.Load()
	next := *cur
	next.sets[t][idx] = newPatternSet(s.registry.Lanes(t), s.steps)
	s.publish(&next)
	debug.Log("store", "clear set %s/%d", t, idx)
	return nil
}

// mutate edits a private clone of set idx and publishes it when fn reports a
// change. Callers hold s.mu.
func (s *Store) mutate(t InstrumentType, idx int, fn func(p *PatternSet) bool) {
	cur := s.cur.Load()
	p := cur.sets[t][idx].clone()
	if !fn(p) {
		return
	}
	next := *cur
	next.sets[t][idx] = p
	s.publish(&next)
}

func (s *Store) publish(next *Score) {
	s.cur.Store(next)
	v := s.version.Add(1)
	if s.onChange != nil {
		s.onChange(v)
	}
}

func (s *Store) checkSet(t InstrumentType, idx int) error {
	if !t.Valid() {
		return errors.Wrapf(ErrUnknownInstrument, "%s", t)
	}
	if idx < 0 || idx >= NumSets {
		return errors.Wrapf(ErrInvalidSetIndex, "%d", idx)
	}
	return nil
}

func (s *Store) checkStep(step int) error {
	if step < 0 || step >= s.steps {
		return errors.Wrapf(ErrInvalidStep, "%d not in [0,%d)", step, s.steps)
	}
	return nil
}

func (s *Store) lane(t InstrumentType, idx int, name string, kind LaneKind) (Lane, error) {
	if err := s.checkSet(t, idx); err != nil {
		return Lane{}, err
	}
	lane, ok := s.registry.Lookup(t, name)
	if !ok {
		return Lane{}, errors.Wrapf(ErrUnknownLane, "%s lane %q", t, name)
	}
	if lane.Kind != kind {
		return Lane{}, errors.Wrapf(ErrLaneKind, "%s lane %q is %s", t, name, lane.Kind)
	}
	return lane, nil
}
