package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-stepseq/config"
	"go-stepseq/debug"
	"go-stepseq/midi"
	"go-stepseq/sequencer"
	"go-stepseq/theme"
	"go-stepseq/tui"
)

func main() {
	project := "untitled"
	if len(os.Args) > 1 {
		project = os.Args[1]
	}
	if err := run(project); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(project string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Debug {
		if err := debug.Enable(""); err != nil {
			fmt.Fprintf(os.Stderr, "debug log disabled: %v\n", err)
		}
		defer debug.Disable()
	}

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	opts, err := cfg.ManagerOptions()
	if err != nil {
		return err
	}
	projects, err := cfg.Projects()
	if err != nil {
		return err
	}

	palette := theme.DefaultPalette()
	if cfg.Palette != "" {
		p, err := theme.LoadGPL(cfg.Palette)
		if err != nil {
			return err
		}
		palette = p
	}

	manager := sequencer.NewManager(reg, opts)
	if saves, err := projects.Saves(project); err == nil && len(saves) > 0 {
		snap, err := projects.Load(project, saves[0].Filename)
		if err == nil {
			err = manager.Import(snap)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not restore %s: %v\n", saves[0].Filename, err)
		}
	}
	defer manager.Stop()

	// MIDI output is hot-plugged: the watcher reports the port coming and going
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var watcher *midi.PortWatcher
	if !cfg.MIDI.Disabled {
		watcher = midi.NewPortWatcher(cfg.MIDI.Port)
		go watcher.Run(ctx)
	}

	sinkOpts := midi.SinkOptions{
		Channels: cfg.Channels(),
		Master:   cfg.MasterVolume,
		Gate:     cfg.MIDI.Gate,
	}
	m := tui.NewModel(manager, theme.New(palette), projects, project, watcher, sinkOpts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
