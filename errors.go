package wavesim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig reports grid, time step or option values that cannot
	// describe a simulation.
	ErrInvalidConfig = errors.New("wavesim: invalid configuration")
	// ErrCompile wraps program compile and link failures from a provider.
	ErrCompile = errors.New("wavesim: program compilation failed")
	// ErrNotSeeded is returned by Timestep before SetInitialTextures.
	ErrNotSeeded = errors.New("wavesim: state ring not seeded")
	// ErrReleased is returned when an engine or plotter is used after Done.
	ErrReleased = errors.New("wavesim: program released")
	// ErrDispatch wraps device and dispatch failures surfaced by a provider.
	ErrDispatch = errors.New("wavesim: dispatch failed")
	// ErrInvalidTexture reports nil or mis-sized textures.
	ErrInvalidTexture = errors.New("wavesim: invalid texture")
	// ErrForeignResource is returned by providers given a handle they did not create.
	ErrForeignResource = errors.New("wavesim: resource belongs to another provider")
	// ErrUnstable is returned by CheckStability when dt exceeds the CFL bound.
	ErrUnstable = errors.New("wavesim: time step violates CFL bound")
)

func errInvalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
