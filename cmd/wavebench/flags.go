package main

import "flag"

// Command-line flags for headless runs. Grid and time-step flags come from
// wavesim.Config.Bind and override the scenario file when given.
var (
	// configPath names the YAML scenario to run. Empty runs the built-in pulse.
	configPath = flag.String("config", "", "YAML scenario file")

	// providerFlag overrides the scenario's compute provider.
	providerFlag = flag.String("provider", "", "compute provider: cpu, opencl, opengl or webgpu")

	// stepsFlag overrides the number of timesteps when non-negative.
	stepsFlag = flag.Int("steps", -1, "timesteps to run (default from scenario)")

	// probeEveryFlag overrides the probe sampling interval when non-negative.
	probeEveryFlag = flag.Int("probe-every", -1, "sample probes every N steps; 0 samples only the first and last")

	// snapshotFlag writes the final generation as a colormapped PNG.
	snapshotFlag = flag.String("snapshot", "", "write the final field as a PNG to this path")

	snapshotScaleFlag = flag.Int("snapshot-scale", 1, "integer upscale factor for -snapshot")

	// metricsAddrFlag serves Prometheus metrics while the run is in progress.
	metricsAddrFlag = flag.String("metrics-addr", "", "serve /metrics on this address, e.g. :9090")

	// strictFlag turns the CFL warning into a failure.
	strictFlag = flag.Bool("strict", false, "refuse to run when dt exceeds the CFL bound")

	logLevelFlag = flag.String("log-level", "info", "log level: debug, info, warn or error")

	// devLogFlag switches to colored console logs.
	devLogFlag = flag.Bool("dev-log", false, "human-readable development logging")
)
