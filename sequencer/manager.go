package sequencer

import (
	"math"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"go-stepseq/debug"
)

// Options configures a Manager
type Options struct {
	Steps   int
	BPM     int
	Mode    SwitchMode
	Restart RestartPolicy
	Orphans OrphanPolicy
	Clock   clockwork.Clock
}

// Manager wires the store, selector and scheduler together and is the single
// entry point for edit requests coming from a front end.
type Manager struct {
	store    *Store
	selector *Selector
	sched    *Scheduler
	sink     atomic.Pointer[sinkBox]

	// Notify the front end of edits and playhead moves
	UpdateChan chan struct{}
}

type sinkBox struct{ sink AudioSink }

// NewManager creates a stopped manager with an empty score
func NewManager(reg *Registry, opts Options) *Manager {
	m := &Manager{
		UpdateChan: make(chan struct{}, 1),
	}
	m.store = NewStore(reg, StoreOptions{Steps: opts.Steps, Orphans: opts.Orphans})
	m.selector = NewSelector(opts.Mode)
	m.sched = NewScheduler(m.store, m.selector, SinkFunc(m.play), SchedulerOptions{
		BPM:     opts.BPM,
		Restart: opts.Restart,
		Clock:   opts.Clock,
		OnStep:  func(int) { m.notifyUpdate() },
	})
	m.store.SetOnChange(func(uint64) { m.notifyUpdate() })
	return m
}

// SetSink swaps the audio output; nil silences playback
func (m *Manager) SetSink(s AudioSink) {
	m.sink.Store(&sinkBox{sink: s})
}

func (m *Manager) play(lane string, ctx PlayContext) error {
	box := m.sink.Load()
	if box == nil || box.sink == nil {
		return nil
	}
	return box.sink.Play(lane, ctx)
}

// Store returns the score store
func (m *Manager) Store() *Store { return m.store }

// Selector returns the pattern selector
func (m *Manager) Selector() *Selector { return m.selector }

// Scheduler returns the clock
func (m *Manager) Scheduler() *Scheduler { return m.sched }

// Registry returns the lane registry
func (m *Manager) Registry() *Registry { return m.store.Registry() }

// Play starts playback
func (m *Manager) Play() {
	m.sched.Start()
	m.notifyUpdate()
}

// Stop stops playback
func (m *Manager) Stop() {
	m.sched.Stop()
	m.notifyUpdate()
}

// SetTempo sets the BPM, clamped to [MinBPM, MaxBPM], and returns it
func (m *Manager) SetTempo(bpm int) int {
	bpm = m.sched.ChangeBPM(bpm)
	m.notifyUpdate()
	return bpm
}

// GetState returns the current sequencer state
func (m *Manager) GetState() (step int, playing bool, tempo int) {
	return m.sched.Step(), m.sched.Running(), m.sched.BPM()
}

// Edit requests

// ToggleDiscrete flips a drum hit
func (m *Manager) ToggleDiscrete(t InstrumentType, set int, lane string, step int) error {
	return m.store.ToggleDiscrete(t, set, lane, step)
}

// ToggleSustainAt adds a one-step note or removes the note under step
func (m *Manager) ToggleSustainAt(t InstrumentType, set int, lane string, step int) (GroupID, error) {
	return m.store.ToggleSustainAt(t, set, lane, step)
}

// SetSustainRange writes a legato note from start to end
func (m *Manager) SetSustainRange(t InstrumentType, set int, lane string, start, end int, mods PitchModifiers) (GroupID, error) {
	return m.store.SetSustainRange(t, set, lane, start, end, mods)
}

// ClearGroup removes a legato note
func (m *Manager) ClearGroup(t InstrumentType, set int, lane string, id GroupID) error {
	return m.store.ClearGroup(t, set, lane, id)
}

// ClearSet empties one pattern set
func (m *Manager) ClearSet(t InstrumentType, set int) error {
	return m.store.ClearSet(t, set)
}

// SetVolume sets the gain of an instrument type
func (m *Manager) SetVolume(t InstrumentType, v float64) error {
	return m.store.SetVolume(t, v)
}

// Select switches (or queues) the set playing for one type
func (m *Manager) Select(t InstrumentType, set int) error {
	if err := m.selector.Select(t, set); err != nil {
		return err
	}
	m.notifyUpdate()
	return nil
}

// SelectAll switches (or queues) the same set for every type
func (m *Manager) SelectAll(set int) error {
	if err := m.selector.SelectAll(set); err != nil {
		return err
	}
	m.notifyUpdate()
	return nil
}

// SetSwitchMode chooses between immediate and end-of-bar set switching
func (m *Manager) SetSwitchMode(mode SwitchMode) {
	m.selector.SetMode(mode)
	m.notifyUpdate()
}

// Export returns the full persisted snapshot including tempo
func (m *Manager) Export() Snapshot {
	snap := m.store.ExportSnapshot()
	bpm := float64(m.sched.BPM())
	snap.BPM = &bpm
	return snap
}

// Import applies a snapshot. Score and volumes are validated and swapped in
// atomically; the tempo is applied only once they succeeded.
func (m *Manager) Import(snap Snapshot) error {
	if err := m.store.ImportSnapshot(snap); err != nil {
		debug.Logger().Error("import rejected", "err", err)
		return err
	}
	if snap.BPM != nil {
		m.sched.ChangeBPM(roundBPM(*snap.BPM))
	}
	m.notifyUpdate()
	return nil
}

func roundBPM(v float64) int {
	switch {
	case math.IsNaN(v) || v < MinBPM:
		return MinBPM
	case v > MaxBPM:
		return MaxBPM
	}
	return int(math.Round(v))
}

// notifyUpdate tells the front end something changed
func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
