package main

import "flag"

// Command-line flags for the interactive viewer. Grid and time-step flags
// come from wavesim.Config.Bind and override the scenario file when given.
var (
	// configPath names the YAML scenario to open. Empty opens the built-in pulse.
	configPath = flag.String("config", "", "YAML scenario file")

	// providerFlag overrides the scenario's compute provider.
	providerFlag = flag.String("provider", "", "compute provider: cpu, opencl, opengl or webgpu")

	// stepsPerFrameFlag is the initial number of timesteps per frame.
	stepsPerFrameFlag = flag.Int("steps-per-frame", defaultStepsPerFrame, "timesteps run each frame (+/- adjust)")

	// scaleFlag sets the window size as a multiple of the grid.
	scaleFlag = flag.Int("scale", 2, "window pixels per grid cell")

	// showSlabsFlag tints cells whose speed differs from the background.
	showSlabsFlag = flag.Bool("show-slabs", true, "render slab overlays")

	// impulseFlag is the amplitude each emitter impulse adds.
	impulseFlag = flag.Float64("impulse", 1, "amplitude added per emitter impulse")

	// recordPGO triggers a scripted walk while capturing a CPU profile to
	// the given path.
	recordPGO = flag.String("record-pgo", "", "walk randomly for 15s while writing a CPU profile here")

	// debugFlag enables the FPS and simulation overlay.
	debugFlag = flag.Bool("debug", false, "show FPS and simulation speed overlay")

	logLevelFlag = flag.String("log-level", "info", "log level: debug, info, warn or error")
)
