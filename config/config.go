package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go-stepseq/sequencer"
)

// MaxSteps bounds the grid length
const MaxSteps = 64

// LaneConfig declares one lane; Note 0 derives the note from the lane name
type LaneConfig struct {
	Name string `yaml:"name"`
	Note uint8  `yaml:"note,omitempty"`
}

// MIDIConfig defines the MIDI output
type MIDIConfig struct {
	Disabled bool           `yaml:"disabled,omitempty"`
	Port     string         `yaml:"port,omitempty"`     // substring of the output port name, any port when empty
	Channels map[string]int `yaml:"channels,omitempty"` // instrument type -> channel 1-16
	Gate     float64        `yaml:"gate,omitempty"`     // fraction of a note's length it is held
}

// Config is the main configuration structure
type Config struct {
	Steps        int                     `yaml:"steps"`
	BPM          int                     `yaml:"bpm"`
	SwitchMode   string                  `yaml:"switchMode"`   // immediate | reserved
	TempoRestart string                  `yaml:"tempoRestart"` // reset | preserve
	Orphans      string                  `yaml:"orphans"`      // clear | keep
	Lanes        map[string][]LaneConfig `yaml:"lanes,omitempty"`
	MIDI         MIDIConfig              `yaml:"midi"`
	MasterVolume float64                 `yaml:"masterVolume"`
	Debug        bool                    `yaml:"debug"`
	ProjectsDir  string                  `yaml:"projectsDir,omitempty"`
	Palette      string                  `yaml:"palette,omitempty"` // GIMP .gpl file
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Steps:        sequencer.DefaultSteps,
		BPM:          sequencer.DefaultBPM,
		SwitchMode:   "immediate",
		TempoRestart: "reset",
		Orphans:      "clear",
		MasterVolume: 0.5,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-stepseq"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path, or returns defaults if it does not exist
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enum values
func (c *Config) Validate() error {
	if c.Steps < 1 || c.Steps > MaxSteps {
		return errors.Errorf("steps %d not in [1,%d]", c.Steps, MaxSteps)
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if _, err := c.Restart(); err != nil {
		return err
	}
	if _, err := c.OrphanPolicy(); err != nil {
		return err
	}
	for name, ch := range c.MIDI.Channels {
		if _, err := sequencer.ParseInstrumentType(name); err != nil {
			return errors.Wrap(err, "midi.channels")
		}
		if ch < 1 || ch > 16 {
			return errors.Errorf("midi.channels.%s: %d not in [1,16]", name, ch)
		}
	}
	if c.MIDI.Gate < 0 || c.MIDI.Gate > 1 {
		return errors.Errorf("midi.gate %v not in [0,1]", c.MIDI.Gate)
	}
	if c.MasterVolume < 0 || c.MasterVolume > 1 {
		return errors.Errorf("masterVolume %v not in [0,1]", c.MasterVolume)
	}
	_, err := c.Registry()
	return err
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Mode returns the pattern-set switch mode
func (c *Config) Mode() (sequencer.SwitchMode, error) {
	switch strings.ToLower(c.SwitchMode) {
	case "", "immediate":
		return sequencer.Immediate, nil
	case "reserved":
		return sequencer.Reserved, nil
	}
	return 0, errors.Errorf("switchMode %q: want immediate or reserved", c.SwitchMode)
}

// Restart returns the tempo-change restart policy
func (c *Config) Restart() (sequencer.RestartPolicy, error) {
	switch strings.ToLower(c.TempoRestart) {
	case "", "reset":
		return sequencer.RestartReset, nil
	case "preserve":
		return sequencer.RestartPreserve, nil
	}
	return 0, errors.Errorf("tempoRestart %q: want reset or preserve", c.TempoRestart)
}

// OrphanPolicy returns how overlapped legato fragments are handled
func (c *Config) OrphanPolicy() (sequencer.OrphanPolicy, error) {
	switch strings.ToLower(c.Orphans) {
	case "", "clear":
		return sequencer.OrphanClear, nil
	case "keep":
		return sequencer.OrphanKeep, nil
	}
	return 0, errors.Errorf("orphans %q: want clear or keep", c.Orphans)
}

// Registry builds the lane registry; types without configured lanes get the defaults
func (c *Config) Registry() (*sequencer.Registry, error) {
	defs := make(map[sequencer.InstrumentType][]sequencer.LaneDef)
	for name, lanes := range c.Lanes {
		t, err := sequencer.ParseInstrumentType(name)
		if err != nil {
			return nil, errors.Wrap(err, "lanes")
		}
		for _, l := range lanes {
			defs[t] = append(defs[t], sequencer.LaneDef{Name: l.Name, Note: l.Note})
		}
	}
	for _, t := range sequencer.InstrumentTypes {
		if _, ok := defs[t]; !ok {
			defs[t] = sequencer.DefaultLanes[t]
		}
	}
	return sequencer.NewRegistry(defs)
}

// ManagerOptions converts the config into engine options
func (c *Config) ManagerOptions() (sequencer.Options, error) {
	mode, err := c.Mode()
	if err != nil {
		return sequencer.Options{}, err
	}
	restart, err := c.Restart()
	if err != nil {
		return sequencer.Options{}, err
	}
	orphans, err := c.OrphanPolicy()
	if err != nil {
		return sequencer.Options{}, err
	}
	return sequencer.Options{
		Steps:   c.Steps,
		BPM:     sequencer.ClampBPM(c.BPM),
		Mode:    mode,
		Restart: restart,
		Orphans: orphans,
	}, nil
}

// Channels returns zero-based MIDI channels per type, defaults filled in
func (c *Config) Channels() map[sequencer.InstrumentType]uint8 {
	out := map[sequencer.InstrumentType]uint8{
		sequencer.Drum:  9,
		sequencer.Bass:  0,
		sequencer.Synth: 1,
	}
	for name, ch := range c.MIDI.Channels {
		if t, err := sequencer.ParseInstrumentType(name); err == nil && ch >= 1 && ch <= 16 {
			out[t] = uint8(ch - 1)
		}
	}
	return out
}

// Projects returns the project store, defaulting to ~/.config/go-stepseq/projects
func (c *Config) Projects() (sequencer.Projects, error) {
	dir := c.ProjectsDir
	if dir == "" {
		d, err := sequencer.DefaultProjectsDir()
		if err != nil {
			return sequencer.Projects{}, err
		}
		dir = d
	}
	return sequencer.Projects{Dir: dir}, nil
}
