package sequencer

import (
	"sync"

	"github.com/pkg/errors"

	"go-stepseq/debug"
)

// SwitchMode controls when a set selection takes effect
type SwitchMode int

const (
	// Immediate applies a selection on the next read
	Immediate SwitchMode = iota
	// Reserved holds a selection until the next commit boundary (end of bar)
	Reserved
)

func (m SwitchMode) String() string {
	if m == Reserved {
		return "reserved"
	}
	return "immediate"
}

// Selector tracks which pattern set of each instrument type is playing.
// It only moves pointers and never touches the store.
type Selector struct {
	mu       sync.Mutex
	mode     SwitchMode
	current  [numInstrumentTypes]int
	reserved [numInstrumentTypes]int // -1 = nothing pending
}

// NewSelector starts every type on set 0 with nothing reserved
func NewSelector(mode SwitchMode) *Selector {
	s := &Selector{mode: mode}
	for i := range s.reserved {
		s.reserved[i] = -1
	}
	return s
}

// Mode returns the switch mode
func (s *Selector) Mode() SwitchMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode changes the switch mode. Reservations already pending stay pending
// until the next commit.
func (s *Selector) SetMode(m SwitchMode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// Select applies or reserves set idx for type t depending on the mode
func (s *Selector) Select(t InstrumentType, idx int) error {
	if !t.Valid() {
		return errors.Wrapf(ErrUnknownInstrument, "%s", t)
	}
	if idx < 0 || idx >= NumSets {
		return errors.Wrapf(ErrInvalidSetIndex, "%d", idx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Reserved {
		s.reserved[t] = idx
		debug.Log("select", "%s reserve set=%d", t, idx)
		return nil
	}
	s.current[t] = idx
	s.reserved[t] = -1
	debug.Log("select", "%s set=%d", t, idx)
	return nil
}

// SelectAll applies or reserves the same set for every type at once. Any
// per-type reservation left over from earlier is discarded first.
func (s *Selector) SelectAll(idx int) error {
	if idx < 0 || idx >= NumSets {
		return errors.Wrapf(ErrInvalidSetIndex, "%d", idx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range InstrumentTypes {
		if s.mode == Reserved {
			s.reserved[t] = idx
		} else {
			s.current[t] = idx
			s.reserved[t] = -1
		}
	}
	debug.Log("select", "all %s set=%d", s.mode, idx)
	return nil
}

// Commit flushes pending reservations. The scheduler calls it at the end of
// every bar.
func (s *Selector) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range InstrumentTypes {
		if s.reserved[t] >= 0 {
			debug.Log("select", "%s commit %d -> %d", t, s.current[t], s.reserved[t])
			s.current[t] = s.reserved[t]
			s.reserved[t] = -1
		}
	}
}

// Active returns the set currently playing for t
func (s *Selector) Active(t InstrumentType) int {
	if !t.Valid() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current[t]
}

// Reserved returns the set pending for t, or -1
func (s *Selector) Reserved(t InstrumentType) int {
	if !t.Valid() {
		return -1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserved[t]
}

// State returns the playing set and the queued one; next equals pattern
// when nothing is queued.
func (s *Selector) State(t InstrumentType) (pattern, next int) {
	if !t.Valid() {
		return 0, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pattern, next = s.current[t], s.reserved[t]
	if next < 0 {
		next = pattern
	}
	return pattern, next
}
