package wavesim

import (
	"flag"
	"fmt"
	"math"
)

// Defaults used by DefaultConfig.
const (
	DefaultResolution = 512
	DefaultLength     = 1.0
	// DefaultCourant is the fraction of the CFL limit DefaultConfig picks
	// for a unit wave speed.
	DefaultCourant = 0.5
)

// Config holds the construction parameters of an engine and the provider
// settings it runs with. Everything is fixed once an engine is built.
type Config struct {
	XResolution int     `yaml:"x_resolution"`
	YResolution int     `yaml:"y_resolution"`
	XLength     float64 `yaml:"x_length"`
	YLength     float64 `yaml:"y_length"`
	Dt          float64 `yaml:"dt"`
	Addressing  string  `yaml:"addressing"`
	Format      string  `yaml:"format"`
}

// DefaultConfig returns a 512x512 unit square stepped at half the CFL limit
// for wave speed 1.
func DefaultConfig() Config {
	g := Grid{
		XResolution: DefaultResolution,
		YResolution: DefaultResolution,
		XLength:     DefaultLength,
		YLength:     DefaultLength,
	}
	return Config{
		XResolution: g.XResolution,
		YResolution: g.YResolution,
		XLength:     g.XLength,
		YLength:     g.YLength,
		Dt:          DefaultCourant * g.StableDt(1),
		Addressing:  Wrap.String(),
		Format:      Float32.String(),
	}
}

// Grid returns the grid described by c.
func (c Config) Grid() Grid {
	return Grid{
		XResolution: c.XResolution,
		YResolution: c.YResolution,
		XLength:     c.XLength,
		YLength:     c.YLength,
	}
}

// Validate checks that c describes a simulation. It does not check the CFL
// bound; see Engine.CheckStability.
func (c Config) Validate() error {
	if err := c.Grid().validate(); err != nil {
		return err
	}
	if err := validateDt(c.Dt); err != nil {
		return err
	}
	_, err := c.ProviderOptions()
	return err
}

// ProviderOptions parses the provider settings.
func (c Config) ProviderOptions() (ProviderOptions, error) {
	mode, err := ParseAddressMode(c.Addressing)
	if err != nil {
		return ProviderOptions{}, err
	}
	format, err := ParseTextureFormat(c.Format)
	if err != nil {
		return ProviderOptions{}, err
	}
	return ProviderOptions{Addressing: mode, Format: format}, nil
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.XResolution, "x-res", c.XResolution, "grid cells along x")
	fs.IntVar(&c.YResolution, "y-res", c.YResolution, "grid cells along y")
	fs.Float64Var(&c.XLength, "x-len", c.XLength, "physical domain length along x")
	fs.Float64Var(&c.YLength, "y-len", c.YLength, "physical domain length along y")
	fs.Float64Var(&c.Dt, "dt", c.Dt, "time step")
	fs.StringVar(&c.Addressing, "addressing", c.Addressing, "edge addressing: wrap or clamp")
	fs.StringVar(&c.Format, "format", c.Format, "texture format: float32 or float16")
}

// Override copies the configuration flags explicitly set on parsed into c,
// leaving the rest untouched. It lets command-line flags win over values
// loaded from a file after flag parsing.
func (c *Config) Override(parsed *flag.FlagSet) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	c.Bind(fs)
	var err error
	parsed.Visit(func(f *flag.Flag) {
		if err != nil || fs.Lookup(f.Name) == nil {
			return
		}
		if setErr := fs.Set(f.Name, f.Value.String()); setErr != nil {
			err = fmt.Errorf("%w: flag -%s: %w", ErrInvalidConfig, f.Name, setErr)
		}
	})
	return err
}

func validateDt(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return errInvalidf("time step %g must be positive and finite", dt)
	}
	return nil
}
