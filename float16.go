package wavesim

import "math"

// TextureFormat is the per-channel storage precision of field textures.
type TextureFormat int

const (
	// Float32 stores each channel as an IEEE 754 binary32 value (RGBA32F).
	Float32 TextureFormat = iota
	// Float16 stores each channel as IEEE 754-2008 binary16 (RGBA16F).
	Float16
)

func (f TextureFormat) String() string {
	if f == Float16 {
		return "float16"
	}
	return "float32"
}

// ParseTextureFormat converts a configuration string into a TextureFormat.
func ParseTextureFormat(s string) (TextureFormat, error) {
	switch s {
	case "", "float32", "rgba32f":
		return Float32, nil
	case "float16", "half", "rgba16f":
		return Float16, nil
	}
	return Float32, errInvalidf("unknown texture format %q", s)
}

// QuantizeHalf rounds v to the nearest binary16 value.
func QuantizeHalf(v float32) float32 {
	return HalfToFloat32(Float32ToHalf(v))
}

// QuantizeTexel rounds every channel of t to binary16.
func QuantizeTexel(t FieldTexel) FieldTexel {
	return FieldTexel{
		Amplitude: QuantizeHalf(t.Amplitude),
		Speed:     QuantizeHalf(t.Speed),
		Aux:       [2]float32{QuantizeHalf(t.Aux[0]), QuantizeHalf(t.Aux[1])},
	}
}

// EncodeHalf converts a slice of float32 values into binary16 representation
// stored in dst. dst must be at least len(src).
func EncodeHalf(dst []uint16, src []float32) {
	for i, v := range src {
		dst[i] = Float32ToHalf(v)
	}
}

// DecodeHalf expands binary16 data into float32 values.
// dst must be at least len(src).
func DecodeHalf(dst []float32, src []uint16) {
	for i, v := range src {
		dst[i] = HalfToFloat32(v)
	}
}

// Float32ToHalf returns the binary16 bit pattern nearest to f, rounding
// ties to even. Magnitudes beyond the half range become infinity and NaN
// stays NaN.
func Float32ToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	abs := bits &^ 0x80000000
	switch {
	case abs > 0x7f800000:
		return sign | 0x7e00 | uint16(abs>>13)&0x3ff
	case abs >= 0x477ff000:
		// 65520 and up round past the largest finite half.
		return sign | 0x7c00
	case abs >= 0x38800000:
		// Normal: rebias the exponent from 127 to 15 in place. A mantissa
		// carry rolls into the exponent.
		return sign | uint16(shiftRoundEven(abs-112<<23, 13))
	case abs >= 0x33000000:
		// Subnormal half, counted in units of 2^-24.
		exp := abs >> 23
		mant := abs&0x7fffff | 0x800000
		return sign | uint16(shiftRoundEven(mant, 126-exp))
	}
	return sign
}

// shiftRoundEven returns v >> s rounded to nearest, ties to even.
func shiftRoundEven(v, s uint32) uint32 {
	half := uint32(1) << (s - 1)
	rem := v & (half<<1 - 1)
	v >>= s
	if rem > half || rem == half && v&1 == 1 {
		v++
	}
	return v
}

// HalfToFloat32 expands a binary16 bit pattern. Every half value is exact
// in float32.
func HalfToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)
	switch exp {
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	case 0:
		return math.Float32frombits(sign | math.Float32bits(float32(mant)*0x1p-24))
	}
	return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
}
