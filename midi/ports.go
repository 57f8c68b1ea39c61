package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-stepseq/debug"
)

// discoveryTimeout bounds a port scan (CoreMIDI can hang)
const discoveryTimeout = 3 * time.Second

// OutPorts lists MIDI output ports, giving up after a timeout
func OutPorts() ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(discoveryTimeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return nil, errors.New("MIDI port discovery timed out")
	}
}

// MatchPort reports whether a port name satisfies want: a case-insensitive
// substring match, where an empty want accepts any port.
func MatchPort(name, want string) bool {
	return want == "" || strings.Contains(strings.ToLower(name), strings.ToLower(want))
}

// OpenOut opens the first output port matching want and returns its sender
func OpenOut(want string) (drivers.Out, func(gomidi.Message) error, error) {
	outs, err := OutPorts()
	if err != nil {
		return nil, nil, err
	}
	for _, port := range outs {
		if !MatchPort(port.String(), want) {
			continue
		}
		send, err := gomidi.SendTo(port)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open %s", port.String())
		}
		return port, send, nil
	}
	return nil, nil, errors.Errorf("no MIDI output matching %q", want)
}

// PortEvent is emitted when the watched output appears or disappears
type PortEvent struct {
	Type PortEventType
	Name string
	Send func(gomidi.Message) error // set on PortConnected
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

// PortWatcher handles hot-plug of the configured MIDI output
type PortWatcher struct {
	want     string
	pollRate time.Duration
	events   chan PortEvent

	mu      sync.Mutex
	current drivers.Out
}

// NewPortWatcher watches for an output port matching want
func NewPortWatcher(want string) *PortWatcher {
	return &PortWatcher{
		want:     want,
		pollRate: time.Second,
		events:   make(chan PortEvent, 16),
	}
}

// Events returns a channel of connect/disconnect events
func (w *PortWatcher) Events() <-chan PortEvent {
	return w.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *PortWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	w.scan()
	for {
		select {
		case <-ctx.Done():
			w.close()
			close(w.events)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *PortWatcher) scan() {
	outs, err := OutPorts()
	if err != nil {
		debug.Log("ports", "scan: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil {
		for _, p := range outs {
			if p.String() == w.current.String() {
				return
			}
		}
		name := w.current.String()
		w.current.Close()
		w.current = nil
		debug.Log("ports", "disconnected %s", name)
		w.events <- PortEvent{Type: PortDisconnected, Name: name}
	}

	for _, p := range outs {
		if !MatchPort(p.String(), w.want) {
			continue
		}
		send, err := gomidi.SendTo(p)
		if err != nil {
			debug.Log("ports", "open %s: %v", p.String(), err)
			continue
		}
		w.current = p
		debug.Log("ports", "connected %s", p.String())
		w.events <- PortEvent{Type: PortConnected, Name: p.String(), Send: send}
		return
	}
}

func (w *PortWatcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		w.current.Close()
		w.current = nil
	}
}
