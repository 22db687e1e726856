package webgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"wavesim"
)

func TestUpdateKernelLayout(t *testing.T) {
	params := wavesim.UpdateKernelSource().Params

	// width, height, dt, xLength, yLength, xResolution, yResolution
	assert.Equal(t, 32, paramBlockSize(params))
	assert.Equal(t, []int{8, 12, 16, -1, 20, 24, -1}, uniformOffsets(params))
	assert.Equal(t, []int{-1, -1, -1, 2, -1, -1, 3}, samplerBindings(params))
	assert.Equal(t, 2, countSamplers(params))
}

func TestColormapLayout(t *testing.T) {
	params := wavesim.ColormapSource().Params
	assert.Equal(t, 16, paramBlockSize(params))
	assert.Equal(t, []int{bindingSampler}, samplerBindings(params))
}

func TestPutUniform(t *testing.T) {
	block := make([]byte, 8)
	putUniform(block, 0, wavesim.Float1(0, 0.25))
	putUniform(block, 4, wavesim.Int1(0, -3))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(block)))
	assert.Equal(t, int32(-3), int32(binary.LittleEndian.Uint32(block[4:])))
}

func TestWorkgroups(t *testing.T) {
	assert.Equal(t, uint32(1), workgroups(1))
	assert.Equal(t, uint32(1), workgroups(8))
	assert.Equal(t, uint32(2), workgroups(9))
	assert.Equal(t, uint32(64), workgroups(512))
}
