package sequencer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestSnapshotRoundTrip(t *testing.T) {
	src := newTestStore(t, StoreOptions{})
	src.ToggleDiscrete(Drum, 0, "kick", 0)
	src.ToggleDiscrete(Drum, 3, "hiHat", 15)
	g, _ := src.SetSustainRange(Bass, 1, "bass_C1", 2, 5, PitchModifiers{Sharp: true, Octave: -1})
	src.SetSustainRange(Synth, 9, "synth_G2", 0, 15, PitchModifiers{})
	src.SetVolume(Bass, 0.25)

	var buf bytes.Buffer
	if err := src.ExportSnapshot().Encode(&buf); err != nil {
		t.Fatal(err)
	}
	snap, err := DecodeSnapshot(&buf)
	if err != nil {
		t.Fatal(err)
	}

	dst := newTestStore(t, StoreOptions{})
	if err := dst.ImportSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	a, b := src.Current(), dst.Current()
	for _, typ := range InstrumentTypes {
		for i := 0; i < NumSets; i++ {
			for _, l := range dst.Registry().Lanes(typ) {
				sa, sb := a.Set(typ, i).Lane(l.Name), b.Set(typ, i).Lane(l.Name)
				for k := range sa {
					if sa[k] != sb[k] {
						t.Fatalf("%s/%d %s step %d: %+v != %+v", typ, i, l.Name, k, sa[k], sb[k])
					}
				}
			}
		}
		if a.Volume(typ) != b.Volume(typ) {
			t.Errorf("%s volume %v != %v", typ, a.Volume(typ), b.Volume(typ))
		}
	}

	// imported ids are never handed out again
	g2, _ := dst.SetSustainRange(Bass, 0, "bass_C2", 0, 0, PitchModifiers{})
	if g2 <= g {
		t.Errorf("new id %d collides with imported ids (max %d)", g2, g)
	}
}

func TestSnapshotWireFormat(t *testing.T) {
	s := newTestStore(t, StoreOptions{Steps: 4})
	s.ToggleDiscrete(Drum, 0, "kick", 1)
	s.SetSustainRange(Bass, 0, "bass_C1", 0, 1, PitchModifiers{Octave: 1})

	var buf bytes.Buffer
	s.ExportSnapshot().Encode(&buf)
	out := buf.String()
	for _, want := range []string{
		`"kick": [`,
		`false,`,
		`"on": true`,
		`"groupId": 1`,
		`"octave": 1`,
		`"drum": 0.5`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("encoded snapshot missing %s", want)
		}
	}
}

// minimalSnapshot is a valid 4-step snapshot with one bass note in set 0
func minimalSnapshot(bassSet0 string) string {
	empty := strings.Repeat(`{},`, NumSets-1) + `{}`
	return `{"score": {"bass": [` + bassSet0 + `,` + strings.Repeat(`{},`, NumSets-2) + `{}]` +
		`, "drum": [` + empty + `]}, "volumes": {"bass": 0.75}, "bpm": 90}`
}

func TestImportSnapshotFillsMissingLanes(t *testing.T) {
	snap, err := DecodeSnapshot(strings.NewReader(minimalSnapshot(
		`{"bass_C1": [{"on": true, "groupId": 7}, {"on": true, "groupId": 7}, {"on": false, "groupId": 0}, {"on": false, "groupId": 0}]}`)))
	if err != nil {
		t.Fatal(err)
	}
	if snap.BPM == nil || *snap.BPM != 90 {
		t.Fatalf("bpm = %v", snap.BPM)
	}
	s := newTestStore(t, StoreOptions{Steps: 4})
	s.ToggleDiscrete(Drum, 0, "kick", 0)
	s.SetSustainRange(Synth, 0, "synth_C2", 0, 0, PitchModifiers{})
	if err := s.ImportSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	sc := s.Current()
	if got := onSteps(sc.Set(Bass, 0).Lane("bass_C1")); !equalInts(got, []int{0, 1}) {
		t.Errorf("bass_C1 = %v", got)
	}
	if got := sc.Set(Bass, 0).Lane("bass_C2"); len(got) != 4 || got[0].On {
		t.Errorf("missing lane not filled empty: %+v", got)
	}
	if sc.Set(Drum, 0).HasContent() {
		t.Error("drum set 0 kept content the snapshot replaced")
	}
	// types absent from the snapshot are left alone
	if !sc.Set(Synth, 0).HasContent() {
		t.Error("synth was replaced")
	}
	if sc.Volume(Bass) != 0.75 || sc.Volume(Drum) != DefaultVolume {
		t.Errorf("volumes = %v %v", sc.Volume(Bass), sc.Volume(Drum))
	}
	if g := s.ids.Next(); g <= 7 {
		t.Errorf("allocator not advanced past imported id: %d", g)
	}
}

func TestImportSnapshotSchemaErrors(t *testing.T) {
	tests := map[string]string{
		"wrong step count":       `{"bass_C1": [{"on": false, "groupId": 0}]}`,
		"unknown lane":           `{"bass_X9": [{"on": false, "groupId": 0}, {"on": false, "groupId": 0}, {"on": false, "groupId": 0}, {"on": false, "groupId": 0}]}`,
		"discrete in sustain":    `{"bass_C1": [true, false, false, false]}`,
		"on without group":       `{"bass_C1": [{"on": true, "groupId": 0}, {"on": false, "groupId": 0}, {"on": false, "groupId": 0}, {"on": false, "groupId": 0}]}`,
		"group on inactive step": `{"bass_C1": [{"on": false, "groupId": 3}, {"on": false, "groupId": 0}, {"on": false, "groupId": 0}, {"on": false, "groupId": 0}]}`,
	}
	for name, set0 := range tests {
		t.Run(name, func(t *testing.T) {
			snap, err := DecodeSnapshot(strings.NewReader(minimalSnapshot(set0)))
			if err != nil {
				t.Fatal(err)
			}
			s := newTestStore(t, StoreOptions{Steps: 4})
			s.ToggleDiscrete(Drum, 0, "kick", 0)
			v := s.Version()

			if err := s.ImportSnapshot(snap); !errors.Is(err, ErrSchema) {
				t.Fatalf("err = %v, want ErrSchema", err)
			}
			if s.Version() != v || !s.Current().Set(Drum, 0).HasContent() || s.Volume(Bass) != DefaultVolume {
				t.Fatal("rejected snapshot was partially applied")
			}
		})
	}
}

func TestDecodeSnapshotErrors(t *testing.T) {
	tests := map[string]string{
		"not json":           `{"score":`,
		"unknown field":      `{"tempo": 120}`,
		"unknown type":       `{"volumes": {"piano": 1}}`,
		"step object fields": `{"score": {"bass": [{"bass_C1": [{"on": true, "groupId": 1, "vel": 3}]}]}}`,
		"step wrong type":    `{"score": {"drum": [{"kick": ["yes"]}]}}`,
	}
	for name, in := range tests {
		if _, err := DecodeSnapshot(strings.NewReader(in)); !errors.Is(err, ErrSchema) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestImportSnapshotSetCount(t *testing.T) {
	snap, err := DecodeSnapshot(strings.NewReader(`{"score": {"drum": [{}, {}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	s := newTestStore(t, StoreOptions{})
	if err := s.ImportSnapshot(snap); !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v", err)
	}
	// an empty snapshot changes nothing
	if err := s.ImportSnapshot(Snapshot{}); err != nil || s.Version() != 0 {
		t.Fatalf("empty import: %v, version %d", err, s.Version())
	}
}
