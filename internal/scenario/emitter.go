package scenario

import "wavesim"

// Offset is a cell displacement from an emitter centre.
type Offset struct {
	DX, DY int
}

// Footprint returns the cells within radius of the origin.
func Footprint(radius int) []Offset {
	if radius < 0 {
		return nil
	}
	footprint := make([]Offset, 0, (2*radius+1)*(2*radius+1))
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= r2 {
				footprint = append(footprint, Offset{DX: x, DY: y})
			}
		}
	}
	return footprint
}

// Emitter adds amplitude to a disc of cells around its centre.
type Emitter struct {
	X, Y      int
	Amplitude float32
	footprint []Offset
}

// NewEmitter returns an emitter at (x, y) covering the given radius.
func NewEmitter(x, y, radius int, amplitude float32) *Emitter {
	return &Emitter{X: x, Y: y, Amplitude: amplitude, footprint: Footprint(radius)}
}

// Move shifts the emitter, keeping it inside a width by height grid.
func (e *Emitter) Move(dx, dy, width, height int) {
	e.X = min(max(e.X+dx, 0), width-1)
	e.Y = min(max(e.Y+dy, 0), height-1)
}

// Inject adds the emitter's amplitude to f. Cells beyond the edge follow
// mode, so a wrapping grid receives the part of the disc that crosses it.
func (e *Emitter) Inject(f *wavesim.Field, mode wavesim.AddressMode) {
	for _, o := range e.footprint {
		x := mode.Resolve(e.X+o.DX, f.Width)
		y := mode.Resolve(e.Y+o.DY, f.Height)
		if mode == wavesim.Clamp && (x != e.X+o.DX || y != e.Y+o.DY) {
			continue
		}
		i := y*f.Width + x
		f.Texels[i].Amplitude += e.Amplitude
	}
}

// Pulse injects the emitter into both source textures of engine, so the
// impulse starts at rest.
func (e *Emitter) Pulse(engine *wavesim.Engine, store wavesim.TextureStore, mode wavesim.AddressMode) error {
	g := engine.Grid()
	for _, tex := range engine.SourceTextures() {
		if tex == nil {
			return wavesim.ErrNotSeeded
		}
		f := wavesim.NewField(g)
		if err := store.ReadTexture(tex, f.Texels); err != nil {
			return err
		}
		e.Inject(f, mode)
		if err := store.WriteTexture(tex, f.Texels); err != nil {
			return err
		}
	}
	return nil
}
