package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wavesim"
)

// Defaults for scenario files.
const (
	DefaultProvider   = "cpu"
	DefaultSteps      = 1000
	DefaultProbeEvery = 100
)

// File is a scenario document: which provider to run on, the engine
// configuration, the scene and how long to run it.
type File struct {
	Provider   string         `yaml:"provider"`
	Engine     wavesim.Config `yaml:"engine"`
	Scene      Scene          `yaml:"scene"`
	Steps      int            `yaml:"steps"`
	ProbeEvery int            `yaml:"probe_every"`
}

// Default returns a scenario with a single centred pulse on the default grid.
func Default() *File {
	cfg := wavesim.DefaultConfig()
	return &File{
		Provider: DefaultProvider,
		Engine:   cfg,
		Scene: Scene{
			Speed: 1,
			Pulses: []Pulse{{
				X:         cfg.XLength / 2,
				Y:         cfg.YLength / 2,
				Width:     cfg.XLength / 64,
				Amplitude: 1,
			}},
		},
		Steps:      DefaultSteps,
		ProbeEvery: DefaultProbeEvery,
	}
}

// Parse decodes a scenario over the defaults and validates it. Keys absent
// from data keep their default values.
func Parse(data []byte) (*File, error) {
	f := Default()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("%w: decoding scenario: %w", wavesim.ErrInvalidConfig, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads and parses the scenario at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks the engine configuration, the scene and the run length.
func (f *File) Validate() error {
	if err := f.Engine.Validate(); err != nil {
		return err
	}
	if f.Steps < 0 || f.ProbeEvery < 0 {
		return fmt.Errorf("%w: steps %d and probe_every %d must not be negative",
			wavesim.ErrInvalidConfig, f.Steps, f.ProbeEvery)
	}
	return f.Scene.Validate(f.Engine.Grid())
}
