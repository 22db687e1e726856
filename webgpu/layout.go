package webgpu

import (
	"encoding/binary"
	"math"

	"wavesim"
)

const (
	workgroupSize = 8

	bindingParams  = 0
	bindingTarget  = 1
	bindingSampler = 2

	texelBytes = wavesim.TexelChannels * 4
)

// paramBlockSize is the byte size of the uniform block: width, height and
// one 4-byte slot per scalar param, rounded up to 16.
func paramBlockSize(params []wavesim.Param) int {
	n := 2
	for _, prm := range params {
		if prm.Kind != wavesim.ParamSampler {
			n++
		}
	}
	size := n * 4
	return (size + 15) &^ 15
}

// uniformOffsets maps each scalar param location to its byte offset in the
// uniform block; sampler params map to -1.
func uniformOffsets(params []wavesim.Param) []int {
	offsets := make([]int, len(params))
	off := 8
	for i, prm := range params {
		if prm.Kind == wavesim.ParamSampler {
			offsets[i] = -1
			continue
		}
		offsets[i] = off
		off += 4
	}
	return offsets
}

// samplerBindings maps each sampler param location to its binding number.
func samplerBindings(params []wavesim.Param) []int {
	bindings := make([]int, len(params))
	next := bindingSampler
	for i, prm := range params {
		if prm.Kind != wavesim.ParamSampler {
			bindings[i] = -1
			continue
		}
		bindings[i] = next
		next++
	}
	return bindings
}

func putUniform(block []byte, off int, u wavesim.Uniform) {
	if u.Kind == wavesim.UniformInt {
		binary.LittleEndian.PutUint32(block[off:], uint32(u.Int))
		return
	}
	binary.LittleEndian.PutUint32(block[off:], math.Float32bits(u.Float))
}

func workgroups(n int) uint32 {
	return uint32((n + workgroupSize - 1) / workgroupSize)
}

func countSamplers(params []wavesim.Param) int {
	n := 0
	for _, prm := range params {
		if prm.Kind == wavesim.ParamSampler {
			n++
		}
	}
	return n
}
