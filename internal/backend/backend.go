// Package backend selects a compute provider by name.
package backend

import (
	"fmt"
	"strings"

	"wavesim"
	"wavesim/cpu"
	"wavesim/opencl"
	"wavesim/opengl"
	"wavesim/webgpu"
)

// Provider names accepted by Open.
const (
	CPU    = "cpu"
	OpenCL = "opencl"
	OpenGL = "opengl"
	WebGPU = "webgpu"
)

// Names lists the providers in the order they are documented.
func Names() []string {
	return []string{CPU, OpenCL, OpenGL, WebGPU}
}

// Open constructs the named provider. GPU providers only work in binaries
// built with their tag; otherwise their stub error is returned.
func Open(name string, opts wavesim.ProviderOptions) (wavesim.Provider, error) {
	switch strings.ToLower(name) {
	case "", CPU:
		return cpu.New(cpu.WithOptions(opts)), nil
	case OpenCL:
		return opencl.Open(opts)
	case OpenGL, "gl":
		return opengl.Open(opts)
	case WebGPU, "wgpu":
		return webgpu.Open(opts)
	}
	return nil, fmt.Errorf("%w: unknown provider %q (want one of %s)",
		wavesim.ErrInvalidConfig, name, strings.Join(Names(), ", "))
}
