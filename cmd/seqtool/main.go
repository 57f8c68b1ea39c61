package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-stepseq/config"
	"go-stepseq/midi"
	"go-stepseq/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "ports":
		err = listPorts()
	case "poll":
		err = pollPorts()
	case "note":
		err = testNote()
	case "validate":
		err = validate()
	case "export":
		err = export()
	case "play":
		err = play()
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("go-stepseq tools")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  ports                               - List MIDI output ports")
	fmt.Println("  poll                                - Watch the configured output come and go")
	fmt.Println("  note [lane]                         - Play one drum lane on the configured output")
	fmt.Println("  validate <snapshot.json>            - Check a snapshot against the lane registry")
	fmt.Println("  export <snapshot.json> <out.mid> [bars]")
	fmt.Println("                                      - Render set 0 of every type to a MIDI file")
	fmt.Println("  play <snapshot.json> [seconds]      - Play a snapshot headless")
}

func arg(i int) (string, error) {
	if len(os.Args) <= i {
		return "", fmt.Errorf("missing argument %d, see usage", i-1)
	}
	return os.Args[i], nil
}

func listPorts() error {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")
	outs, err := midi.OutPorts()
	if err != nil {
		fmt.Println("Fix on macOS: sudo killall coreaudiod midiserver")
		return err
	}
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	return nil
}

func pollPorts() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fmt.Printf("Watching for output %q. Ctrl+C to exit.\n", cfg.MIDI.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	w := midi.NewPortWatcher(cfg.MIDI.Port)
	go w.Run(ctx)
	for ev := range w.Events() {
		state := "connected"
		if ev.Type == midi.PortDisconnected {
			state = "disconnected"
		}
		fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), state, ev.Name)
	}
	return nil
}

func testNote() error {
	cfg, reg, err := loadConfig()
	if err != nil {
		return err
	}
	lane := "snare"
	if len(os.Args) > 2 {
		lane = os.Args[2]
	}
	port, send, err := midi.OpenOut(cfg.MIDI.Port)
	if err != nil {
		return err
	}
	defer port.Close()

	sink := midi.NewSink(send, reg, midi.SinkOptions{Channels: cfg.Channels(), Master: 1})
	fmt.Printf("Playing %s on %s\n", lane, port.String())
	err = sink.Play(lane, sequencer.PlayContext{
		Type:         sequencer.Drum,
		BPM:          cfg.BPM,
		SustainSteps: 1,
		StepDuration: sequencer.StepDuration(cfg.BPM),
		Gain:         sequencer.DefaultVolume,
	})
	time.Sleep(500 * time.Millisecond)
	return err
}

func loadConfig() (*config.Config, *sequencer.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, nil, err
	}
	return cfg, reg, nil
}

// loadSnapshot decodes a snapshot file into a fresh manager
func loadSnapshot(path string) (*config.Config, *sequencer.Manager, error) {
	cfg, reg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.ManagerOptions()
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	snap, err := sequencer.DecodeSnapshot(f)
	if err != nil {
		return nil, nil, err
	}
	m := sequencer.NewManager(reg, opts)
	if err := m.Import(snap); err != nil {
		return nil, nil, err
	}
	return cfg, m, nil
}

func validate() error {
	path, err := arg(2)
	if err != nil {
		return err
	}
	_, m, err := loadSnapshot(path)
	if err != nil {
		return err
	}
	sc := m.Store().Current()
	for _, t := range sequencer.InstrumentTypes {
		used := 0
		for i := 0; i < sequencer.NumSets; i++ {
			if sc.Set(t, i).HasContent() {
				used++
			}
		}
		fmt.Printf("  %-6s %d/%d sets used, volume %.2f\n", t, used, sequencer.NumSets, sc.Volume(t))
	}
	_, _, bpm := m.GetState()
	fmt.Printf("OK: %s (%d bpm)\n", path, bpm)
	return nil
}

func export() error {
	in, err := arg(2)
	if err != nil {
		return err
	}
	out, err := arg(3)
	if err != nil {
		return err
	}
	bars := 1
	if len(os.Args) > 4 {
		if bars, err = strconv.Atoi(os.Args[4]); err != nil {
			return err
		}
	}

	cfg, m, err := loadSnapshot(in)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	_, _, bpm := m.GetState()
	err = midi.WriteSMF(f, m.Store().Current(), m.Registry(), m.Store().Steps(), midi.ExportOptions{
		BPM:      bpm,
		Bars:     bars,
		Channels: cfg.Channels(),
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bars at %d bpm)\n", out, bars, bpm)
	return nil
}

func play() error {
	path, err := arg(2)
	if err != nil {
		return err
	}
	secs := 8
	if len(os.Args) > 3 {
		if secs, err = strconv.Atoi(os.Args[3]); err != nil {
			return err
		}
	}

	cfg, m, err := loadSnapshot(path)
	if err != nil {
		return err
	}
	port, send, err := midi.OpenOut(cfg.MIDI.Port)
	if err != nil {
		return err
	}
	defer port.Close()

	sink := midi.NewSink(send, m.Registry(), midi.SinkOptions{
		Channels: cfg.Channels(),
		Master:   cfg.MasterVolume,
		Gate:     cfg.MIDI.Gate,
	})
	m.SetSink(sink)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	fmt.Printf("Playing %s on %s for %ds. Ctrl+C to stop.\n", path, port.String(), secs)
	m.Play()
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(secs) * time.Second):
	}
	m.Stop()
	return sink.AllNotesOff()
}
