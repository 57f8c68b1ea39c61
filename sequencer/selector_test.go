package sequencer

import (
	"testing"

	"github.com/pkg/errors"
)

func TestSelectorImmediate(t *testing.T) {
	s := NewSelector(Immediate)
	if err := s.Select(Bass, 3); err != nil {
		t.Fatal(err)
	}
	if got := s.Active(Bass); got != 3 {
		t.Fatalf("active = %d, want 3", got)
	}
	if got := s.Active(Drum); got != 0 {
		t.Fatalf("drum moved to %d", got)
	}
	if got := s.Reserved(Bass); got != -1 {
		t.Fatalf("reserved = %d", got)
	}
}

func TestSelectorReserved(t *testing.T) {
	s := NewSelector(Reserved)
	s.Select(Drum, 2)
	s.Select(Drum, 5) // last reservation wins
	if got := s.Active(Drum); got != 0 {
		t.Fatalf("active changed before commit: %d", got)
	}
	if p, n := s.State(Drum); p != 0 || n != 5 {
		t.Fatalf("State = %d, %d", p, n)
	}

	s.Commit()
	if got := s.Active(Drum); got != 5 {
		t.Fatalf("active after commit = %d", got)
	}
	if got := s.Reserved(Drum); got != -1 {
		t.Fatalf("reservation not consumed: %d", got)
	}

	// a second commit with nothing pending is a no-op
	s.Commit()
	if got := s.Active(Drum); got != 5 {
		t.Fatalf("active = %d", got)
	}
}

func TestSelectorModeSwitchKeepsPending(t *testing.T) {
	s := NewSelector(Reserved)
	s.Select(Synth, 4)
	s.SetMode(Immediate)
	if got := s.Reserved(Synth); got != 4 {
		t.Fatalf("pending reservation dropped: %d", got)
	}
	// an immediate selection supersedes it
	s.Select(Synth, 1)
	s.Commit()
	if got := s.Active(Synth); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
}

func TestSelectAll(t *testing.T) {
	s := NewSelector(Reserved)
	s.Select(Bass, 7)
	if err := s.SelectAll(2); err != nil {
		t.Fatal(err)
	}
	for _, typ := range InstrumentTypes {
		if got := s.Reserved(typ); got != 2 {
			t.Errorf("%s reserved = %d, want 2", typ, got)
		}
	}
	s.Commit()
	for _, typ := range InstrumentTypes {
		if got := s.Active(typ); got != 2 {
			t.Errorf("%s active = %d, want 2", typ, got)
		}
	}

	s.SetMode(Immediate)
	s.SelectAll(9)
	for _, typ := range InstrumentTypes {
		if got := s.Active(typ); got != 9 {
			t.Errorf("%s active = %d, want 9", typ, got)
		}
	}
}

func TestSelectorErrors(t *testing.T) {
	s := NewSelector(Immediate)
	if err := s.Select(Drum, NumSets); !errors.Is(err, ErrInvalidSetIndex) {
		t.Errorf("err = %v", err)
	}
	if err := s.Select(InstrumentType(4), 0); !errors.Is(err, ErrUnknownInstrument) {
		t.Errorf("err = %v", err)
	}
	if err := s.SelectAll(-1); !errors.Is(err, ErrInvalidSetIndex) {
		t.Errorf("err = %v", err)
	}
	if got := s.Active(Drum); got != 0 {
		t.Errorf("failed select moved drum to %d", got)
	}
}
