// Package scenario builds initial conditions for wave engines: Gaussian
// pulses, plane standing waves and slabs of slower medium, described in
// YAML scenario files.
package scenario

import (
	"fmt"
	"math"
	"math/rand"

	"wavesim"
)

// Pulse is a Gaussian bump at rest, centred at (X, Y) in domain units.
type Pulse struct {
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Width     float64 `yaml:"width"`
	Amplitude float64 `yaml:"amplitude"`
}

// StandingWave is sin(kx x) sin(ky y) with ModesX and ModesY half
// wavelengths across the domain. A zero mode drops that factor.
type StandingWave struct {
	ModesX    int     `yaml:"modes_x"`
	ModesY    int     `yaml:"modes_y"`
	Amplitude float64 `yaml:"amplitude"`
}

// Slabs scatters straight segments of slower medium across the grid.
type Slabs struct {
	Count     int     `yaml:"count"`
	MinLength int     `yaml:"min_length"`
	MaxLength int     `yaml:"max_length"`
	Thickness int     `yaml:"thickness"`
	Speed     float64 `yaml:"speed"`
	Seed      int64   `yaml:"seed"`
	// Clearance keeps slabs this many cells away from every pulse centre.
	Clearance int `yaml:"clearance"`
}

// Probe names a cell whose amplitude is sampled while stepping.
type Probe struct {
	Name string `yaml:"name"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
}

// Scene describes the initial field.
type Scene struct {
	// Speed is the background speed coefficient.
	Speed    float64       `yaml:"speed"`
	Pulses   []Pulse       `yaml:"pulses"`
	Standing *StandingWave `yaml:"standing_wave"`
	Slabs    *Slabs        `yaml:"slabs"`
	Probes   []Probe       `yaml:"probes"`
}

// Validate checks the scene against grid g.
func (s Scene) Validate(g wavesim.Grid) error {
	if !(s.Speed > 0) || math.IsInf(s.Speed, 0) {
		return fmt.Errorf("%w: background speed %g must be positive", wavesim.ErrInvalidConfig, s.Speed)
	}
	for i, p := range s.Pulses {
		if !(p.Width > 0) {
			return fmt.Errorf("%w: pulse %d width %g must be positive", wavesim.ErrInvalidConfig, i, p.Width)
		}
	}
	if sl := s.Slabs; sl != nil {
		if sl.Count < 0 || sl.MinLength < 1 || sl.MaxLength < sl.MinLength || sl.Thickness < 0 {
			return fmt.Errorf("%w: slab count %d length %d..%d thickness %d",
				wavesim.ErrInvalidConfig, sl.Count, sl.MinLength, sl.MaxLength, sl.Thickness)
		}
		if !(sl.Speed > 0) {
			return fmt.Errorf("%w: slab speed %g must be positive", wavesim.ErrInvalidConfig, sl.Speed)
		}
	}
	for _, p := range s.Probes {
		if !g.Contains(p.X, p.Y) {
			return fmt.Errorf("%w: probe %q at (%d,%d) outside %s", wavesim.ErrInvalidConfig, p.Name, p.X, p.Y, g)
		}
	}
	return nil
}

// MaxWaveSpeed returns the largest wave speed the scene places, the square
// root of the largest speed coefficient.
func (s Scene) MaxWaveSpeed() float64 {
	c := s.Speed
	if s.Slabs != nil && s.Slabs.Count > 0 && s.Slabs.Speed > c {
		c = s.Slabs.Speed
	}
	return math.Sqrt(c)
}

// Build returns the fields at t-dt and t. Pulses start at rest; the
// standing wave is phased so that it oscillates in place at the background
// speed.
func (s Scene) Build(g wavesim.Grid, dt float64) (old, cur *wavesim.Field, err error) {
	if err := s.Validate(g); err != nil {
		return nil, nil, err
	}
	cur = wavesim.NewField(g)
	cur.Fill(0, float32(s.Speed))
	if s.Slabs != nil {
		s.Slabs.apply(cur, s.pulseCells(g))
	}

	dx, dy := g.Dx(), g.Dy()
	var kx, ky, lag float64
	if sw := s.Standing; sw != nil {
		kx = float64(sw.ModesX) * math.Pi / g.XLength
		ky = float64(sw.ModesY) * math.Pi / g.YLength
		omega := math.Sqrt(s.Speed) * math.Hypot(kx, ky)
		lag = math.Cos(omega * dt)
	}

	old = cur.Clone()
	for y := 0; y < g.YResolution; y++ {
		py := float64(y) * dy
		for x := 0; x < g.XResolution; x++ {
			px := float64(x) * dx
			var rest float64
			for _, p := range s.Pulses {
				r2 := (px-p.X)*(px-p.X) + (py-p.Y)*(py-p.Y)
				rest += p.Amplitude * math.Exp(-r2/(2*p.Width*p.Width))
			}
			var wave float64
			if sw := s.Standing; sw != nil {
				wave = sw.Amplitude * modeShape(kx, px) * modeShape(ky, py)
			}
			cur.SetAmplitude(x, y, float32(rest+wave))
			old.SetAmplitude(x, y, float32(rest+wave*lag))
		}
	}
	return old, cur, nil
}

func modeShape(k, x float64) float64 {
	if k == 0 {
		return 1
	}
	return math.Sin(k * x)
}

// pulseCells returns the grid cell of every pulse centre.
func (s Scene) pulseCells(g wavesim.Grid) [][2]int {
	cells := make([][2]int, len(s.Pulses))
	for i, p := range s.Pulses {
		cells[i] = [2]int{int(math.Round(p.X / g.Dx())), int(math.Round(p.Y / g.Dy()))}
	}
	return cells
}

// apply procedurally places slab segments into f, lowering the speed
// coefficient of every covered cell.
func (sl *Slabs) apply(f *wavesim.Field, keepClear [][2]int) {
	w, h := f.Width, f.Height
	if w < 5 || h < 5 {
		return
	}
	rng := rand.New(rand.NewSource(sl.Seed))
	for s := 0; s < sl.Count; s++ {
		length := sl.MinLength + rng.Intn(sl.MaxLength-sl.MinLength+1)
		thickness := sl.Thickness
		horizontal := rng.Intn(2) == 0
		x := rng.Intn(w-4) + 2
		y := rng.Intn(h-4) + 2
		dx, dy := 0, 1
		if horizontal {
			dx, dy = 1, 0
		}
		perpX, perpY := dy, dx
		cx, cy := x, y
		for l := 0; l < length; l++ {
			if cx <= 1 || cx >= w-1 || cy <= 1 || cy >= h-1 {
				break
			}
			for t := -thickness; t <= thickness; t++ {
				sl.trySet(f, cx+perpX*t, cy+perpY*t, keepClear)
			}
			cx += dx
			cy += dy
		}
	}
}

// trySet marks one cell as slab unless it is on the border or within the
// clearance radius of a kept cell.
func (sl *Slabs) trySet(f *wavesim.Field, x, y int, keepClear [][2]int) {
	if x <= 1 || x >= f.Width-1 || y <= 1 || y >= f.Height-1 {
		return
	}
	r2 := sl.Clearance * sl.Clearance
	for _, c := range keepClear {
		dx, dy := x-c[0], y-c[1]
		if dx*dx+dy*dy < r2 {
			return
		}
	}
	t := f.At(x, y)
	f.Set(x, y, t.Amplitude, float32(sl.Speed))
}
