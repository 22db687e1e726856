//go:build !wgpu

package webgpu

import (
	"errors"

	"wavesim"
)

// ErrUnavailable is returned when the binary was built without WebGPU.
var ErrUnavailable = errors.New("WebGPU support is not enabled; rebuild with -tags wgpu")

// Open always fails in builds without the wgpu tag.
func Open(wavesim.ProviderOptions) (wavesim.Provider, error) {
	return nil, ErrUnavailable
}
