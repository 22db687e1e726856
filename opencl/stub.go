//go:build !opencl

package opencl

import (
	"errors"

	"wavesim"
)

// ErrUnavailable is returned when the binary was built without OpenCL.
var ErrUnavailable = errors.New("OpenCL support is not enabled; rebuild with -tags opencl")

// Open always fails in builds without the opencl tag.
func Open(wavesim.ProviderOptions) (wavesim.Provider, error) {
	return nil, ErrUnavailable
}
