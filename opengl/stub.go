//go:build !gl

package opengl

import (
	"errors"

	"wavesim"
)

// ErrUnavailable is returned when the binary was built without OpenGL.
var ErrUnavailable = errors.New("OpenGL support is not enabled; rebuild with -tags gl")

// Open always fails in builds without the gl tag.
func Open(wavesim.ProviderOptions) (wavesim.Provider, error) {
	return nil, ErrUnavailable
}
