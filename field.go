package wavesim

import (
	"fmt"
	"math"
)

// FieldTexel is one cell of a field generation as stored in an RGBA texture.
// Amplitude lives in the red channel and the speed coefficient in green.
// The remaining two channels are not used by the update and are carried
// forward unchanged.
type FieldTexel struct {
	Amplitude float32
	Speed     float32
	Aux       [2]float32
}

// Field is a host-side copy of one generation, laid out row-major.
type Field struct {
	Width, Height int
	Texels        []FieldTexel
}

// NewField allocates a zeroed field sized for g.
func NewField(g Grid) *Field {
	return &Field{
		Width:  g.XResolution,
		Height: g.YResolution,
		Texels: make([]FieldTexel, g.Cells()),
	}
}

// At returns the texel at (x, y).
func (f *Field) At(x, y int) FieldTexel {
	return f.Texels[y*f.Width+x]
}

// Set writes amplitude and speed coefficient at (x, y).
func (f *Field) Set(x, y int, amplitude, speed float32) {
	t := &f.Texels[y*f.Width+x]
	t.Amplitude = amplitude
	t.Speed = speed
}

// SetAmplitude writes only the amplitude channel at (x, y).
func (f *Field) SetAmplitude(x, y int, amplitude float32) {
	f.Texels[y*f.Width+x].Amplitude = amplitude
}

// Amplitude reads the amplitude channel at (x, y).
func (f *Field) Amplitude(x, y int) float32 {
	return f.Texels[y*f.Width+x].Amplitude
}

// Fill sets every texel to the given amplitude and speed coefficient.
func (f *Field) Fill(amplitude, speed float32) {
	for i := range f.Texels {
		f.Texels[i] = FieldTexel{Amplitude: amplitude, Speed: speed}
	}
}

// Clone returns a deep copy of f.
func (f *Field) Clone() *Field {
	out := &Field{Width: f.Width, Height: f.Height, Texels: make([]FieldTexel, len(f.Texels))}
	copy(out.Texels, f.Texels)
	return out
}

// Amplitudes copies the amplitude channel into dst, growing it if needed.
func (f *Field) Amplitudes(dst []float32) []float32 {
	if cap(dst) < len(f.Texels) {
		dst = make([]float32, len(f.Texels))
	}
	dst = dst[:len(f.Texels)]
	for i, t := range f.Texels {
		dst[i] = t.Amplitude
	}
	return dst
}

// MaxWaveSpeed returns the largest wave speed present in the field. The
// speed coefficient multiplies the Laplacian directly, so the wave speed of
// a cell is its square root.
func (f *Field) MaxWaveSpeed() float64 {
	var maxCoef float32
	for _, t := range f.Texels {
		if t.Speed > maxCoef {
			maxCoef = t.Speed
		}
	}
	return math.Sqrt(float64(maxCoef))
}

// Stats summarizes the amplitude channel.
type Stats struct {
	Min, Max, Mean float64
	Energy         float64
	NaNs           int
}

// Stats computes amplitude statistics; non-finite cells are counted and skipped.
func (f *Field) Stats() Stats {
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	n := 0
	for _, t := range f.Texels {
		v := float64(t.Amplitude)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.NaNs++
			continue
		}
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		s.Mean += v
		s.Energy += v * v
		n++
	}
	if n == 0 {
		return Stats{NaNs: s.NaNs}
	}
	s.Mean /= float64(n)
	return s
}

func (f *Field) checkSize(w, h int) error {
	if f.Width != w || f.Height != h || len(f.Texels) != w*h {
		return fmt.Errorf("%w: field %dx%d does not match texture %dx%d", ErrInvalidTexture, f.Width, f.Height, w, h)
	}
	return nil
}

// TexelChannels is the number of float channels in a FieldTexel.
const TexelChannels = 4

// PackTexels flattens src into RGBA channel order. dst must hold at least
// TexelChannels*len(src) values.
func PackTexels(dst []float32, src []FieldTexel) {
	for i, t := range src {
		o := i * TexelChannels
		dst[o] = t.Amplitude
		dst[o+1] = t.Speed
		dst[o+2] = t.Aux[0]
		dst[o+3] = t.Aux[1]
	}
}

// UnpackTexels is the inverse of PackTexels.
func UnpackTexels(dst []FieldTexel, src []float32) {
	for i := range dst {
		o := i * TexelChannels
		dst[i] = FieldTexel{Amplitude: src[o], Speed: src[o+1], Aux: [2]float32{src[o+2], src[o+3]}}
	}
}
