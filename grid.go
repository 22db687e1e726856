package wavesim

import (
	"fmt"
	"math"
)

// Grid describes the discretized simulation domain. It is fixed when an
// engine is constructed.
type Grid struct {
	XResolution int
	YResolution int
	XLength     float64
	YLength     float64
}

// Dx returns the cell spacing along x.
func (g Grid) Dx() float64 { return g.XLength / float64(g.XResolution) }

// Dy returns the cell spacing along y.
func (g Grid) Dy() float64 { return g.YLength / float64(g.YResolution) }

// Cells returns the number of texels covering the grid.
func (g Grid) Cells() int { return g.XResolution * g.YResolution }

// Index maps a cell coordinate to its row-major texel index.
func (g Grid) Index(x, y int) int { return y*g.XResolution + x }

// Contains reports whether (x, y) addresses a cell inside the grid.
func (g Grid) Contains(x, y int) bool {
	return x >= 0 && x < g.XResolution && y >= 0 && y < g.YResolution
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d over %gx%g", g.XResolution, g.YResolution, g.XLength, g.YLength)
}

func (g Grid) validate() error {
	if g.XResolution <= 0 || g.YResolution <= 0 {
		return fmt.Errorf("%w: resolution %dx%d must be positive", ErrInvalidConfig, g.XResolution, g.YResolution)
	}
	if !(g.XLength > 0) || !(g.YLength > 0) || math.IsInf(g.XLength, 0) || math.IsInf(g.YLength, 0) {
		return fmt.Errorf("%w: domain %gx%g must be positive and finite", ErrInvalidConfig, g.XLength, g.YLength)
	}
	return nil
}

// StableDt returns the largest time step satisfying the CFL bound
// dt <= min(dx, dy) / (sqrt(2) * c) for a maximum wave speed c.
func (g Grid) StableDt(maxWaveSpeed float64) float64 {
	if maxWaveSpeed <= 0 {
		return math.Inf(1)
	}
	return math.Min(g.Dx(), g.Dy()) / (math.Sqrt2 * maxWaveSpeed)
}

// AddressMode selects how neighbor lookups outside the grid are resolved.
type AddressMode int

const (
	// Wrap addresses the grid periodically, so waves leaving one edge enter
	// from the opposite edge.
	Wrap AddressMode = iota
	// Clamp repeats the edge texel. Edges then act as zero-gradient,
	// reflecting boundaries.
	Clamp
)

func (m AddressMode) String() string {
	switch m {
	case Wrap:
		return "wrap"
	case Clamp:
		return "clamp"
	default:
		return fmt.Sprintf("AddressMode(%d)", int(m))
	}
}

// ParseAddressMode converts a configuration string into an AddressMode.
func ParseAddressMode(s string) (AddressMode, error) {
	switch s {
	case "", "wrap", "repeat":
		return Wrap, nil
	case "clamp":
		return Clamp, nil
	}
	return Wrap, fmt.Errorf("%w: unknown addressing %q", ErrInvalidConfig, s)
}

// Resolve maps coordinate i onto [0, n) according to the mode.
func (m AddressMode) Resolve(i, n int) int {
	if i >= 0 && i < n {
		return i
	}
	if m == Clamp {
		return clampCoord(i, 0, n-1)
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// clampCoord constrains v to lie within the inclusive [min, max] range.
func clampCoord(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
