package sequencer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"go-stepseq/debug"
)

// Tempo limits; out-of-range values are clamped
const (
	MinBPM     = 1
	MaxBPM     = 999
	DefaultBPM = 120
)

// ClampBPM forces bpm into [MinBPM, MaxBPM]
func ClampBPM(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// StepDuration is the length of one sixteenth note at bpm
func StepDuration(bpm int) time.Duration {
	return time.Minute / time.Duration(ClampBPM(bpm)*4)
}

// RestartPolicy decides where playback resumes after a tempo change
type RestartPolicy int

const (
	// RestartReset restarts the bar from step 0
	RestartReset RestartPolicy = iota
	// RestartPreserve carries on with the next logical step
	RestartPreserve
)

// SchedulerOptions configures a Scheduler
type SchedulerOptions struct {
	BPM     int
	Restart RestartPolicy
	Clock   clockwork.Clock // real clock when nil
	OnStep  func(step int)  // runs on the tick goroutine; must not call BPM, Running, Start, Stop or ChangeBPM
}

// run is one uninterrupted stretch of playback at a fixed tempo. Tick k is
// due at t0 + (k-k0)*stepDur, an absolute deadline, so late wake-ups never
// push later ticks back.
type run struct {
	cancel  context.CancelFunc
	done    chan struct{}
	t0      time.Time
	k0      int64
	bpm     int
	stepDur time.Duration
}

// Scheduler is the drift-corrected clock. Each tick reads the active pattern
// set of every instrument type fresh from the selector and store, computes
// triggers and hands them to the sink.
type Scheduler struct {
	store    *Store
	selector *Selector
	sink     AudioSink
	clock    clockwork.Clock
	restart  RestartPolicy
	onStep   func(int)

	mu  sync.Mutex // guards bpm and cur; serialises Start/Stop/ChangeBPM
	bpm int
	cur *run

	step     atomic.Int64 // published step
	lastTick atomic.Int64 // logical index of the last tick that fired, -1 before any
}

// NewScheduler creates a stopped scheduler
func NewScheduler(store *Store, selector *Selector, sink AudioSink, opts SchedulerOptions) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.BPM == 0 {
		opts.BPM = DefaultBPM
	}
	s := &Scheduler{
		store:    store,
		selector: selector,
		sink:     sink,
		clock:    opts.Clock,
		restart:  opts.Restart,
		onStep:   opts.OnStep,
		bpm:      ClampBPM(opts.BPM),
	}
	s.lastTick.Store(-1)
	return s
}

// Start begins playback at step 0. Calling it while running does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		return
	}
	s.lastTick.Store(-1)
	s.launch(s.clock.Now(), 0)
	debug.Log("clock", "start bpm=%d step=%s", s.bpm, s.cur.stepDur)
}

// Stop cancels the pending wake-up and waits for the tick goroutine to exit,
// so no tick fires after Stop returns. The published step resets to 0.
// Stop must not be called from inside a tick (sink or OnStep callback).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return
	}
	s.halt()
	s.step.Store(0)
	debug.Log("clock", "stop after tick %d", s.lastTick.Load())
}

// ChangeBPM clamps and applies a new tempo, returning the value in effect.
// While running, the loop restarts against a fresh reference time so the new
// step length never applies to the old one.
func (s *Scheduler) ChangeBPM(bpm int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	bpm = ClampBPM(bpm)
	if bpm == s.bpm {
		return bpm
	}
	s.bpm = bpm
	if s.cur == nil {
		return bpm
	}

	s.halt()
	now := s.clock.Now()
	if s.restart == RestartPreserve {
		next := s.lastTick.Load() + 1
		s.launch(now.Add(StepDuration(bpm)), next)
	} else {
		s.step.Store(0)
		s.lastTick.Store(-1)
		s.launch(now, 0)
	}
	debug.Log("clock", "tempo %d restart=%d", bpm, s.restart)
	return bpm
}

// BPM returns the current tempo
func (s *Scheduler) BPM() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// Running reports whether the loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Step returns the most recently published step
func (s *Scheduler) Step() int {
	return int(s.step.Load())
}

// launch starts a loop goroutine; callers hold s.mu
func (s *Scheduler) launch(t0 time.Time, k0 int64) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		cancel:  cancel,
		done:    make(chan struct{}),
		t0:      t0,
		k0:      k0,
		bpm:     s.bpm,
		stepDur: StepDuration(s.bpm),
	}
	s.cur = r
	go s.loop(ctx, r)
}

// halt cancels the current loop and waits for it; callers hold s.mu
func (s *Scheduler) halt() {
	s.cur.cancel()
	<-s.cur.done
	s.cur = nil
}

func (s *Scheduler) loop(ctx context.Context, r *run) {
	defer close(r.done)
	for k := r.k0; ; k++ {
		deadline := r.t0.Add(time.Duration(k-r.k0) * r.stepDur)
		if wait := deadline.Sub(s.clock.Now()); wait > 0 {
			timer := s.clock.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.Chan():
			}
		}
		if ctx.Err() != nil {
			return
		}
		s.tick(k, r)
	}
}

func (s *Scheduler) tick(k int64, r *run) {
	n := s.store.Steps()
	step := int(k % int64(n))
	sc := s.store.Current()
	reg := s.store.Registry()
	for _, t := range InstrumentTypes {
		set := sc.Set(t, s.selector.Active(t))
		for _, trig := range Triggers(set, reg.Lanes(t), step) {
			safeDispatch(s.sink, trig.Lane, PlayContext{
				Type:         t,
				BPM:          r.bpm,
				SustainSteps: trig.SustainSteps,
				StepDuration: r.stepDur,
				Mods:         trig.Mods,
				Gain:         sc.Volume(t),
			})
		}
	}
	s.step.Store(int64(step))
	s.lastTick.Store(k)
	if s.onStep != nil {
		s.onStep(step)
	}
	if step == n-1 {
		s.selector.Commit()
	}
	debug.LogEvery(64, "clock", "tick k=%d step=%d", k, step)
}
