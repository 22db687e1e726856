// Command wavebench steps a scenario headlessly on any provider, sampling
// probe points along the way.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"wavesim"
	"wavesim/internal/backend"
	"wavesim/internal/scenario"
)

var (
	warn = color.New(color.FgHiYellow, color.Bold)
	good = color.New(color.FgHiGreen)
)

func main() {
	engineFlags := wavesim.DefaultConfig()
	engineFlags.Bind(flag.CommandLine)
	flag.Parse()

	logger, err := wavesim.NewLogger(wavesim.LogConfig{Level: *logLevelFlag, Development: *devLogFlag})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	wavesim.SetLogger(logger)

	if err := run(logger); err != nil {
		logger.Error("wavebench failed", zap.Error(err))
		os.Exit(1)
	}
}

// loadScenario reads -config and applies the command-line overrides.
func loadScenario() (*scenario.File, error) {
	file := scenario.Default()
	if *configPath != "" {
		var err error
		if file, err = scenario.Load(*configPath); err != nil {
			return nil, err
		}
	}
	if err := file.Engine.Override(flag.CommandLine); err != nil {
		return nil, err
	}
	if *providerFlag != "" {
		file.Provider = *providerFlag
	}
	if *stepsFlag >= 0 {
		file.Steps = *stepsFlag
	}
	if *probeEveryFlag >= 0 {
		file.ProbeEvery = *probeEveryFlag
	}
	return file, file.Validate()
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}

func run(log *zap.Logger) error {
	file, err := loadScenario()
	if err != nil {
		return err
	}
	opts, err := file.Engine.ProviderOptions()
	if err != nil {
		return err
	}
	provider, err := backend.Open(file.Provider, opts)
	if err != nil {
		return err
	}
	defer provider.Close()

	reg := prometheus.NewRegistry()
	metrics := wavesim.NewMetrics(reg)
	if *metricsAddrFlag != "" {
		srv := serveMetrics(*metricsAddrFlag, reg, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	engine, err := wavesim.NewFromConfig(provider, file.Engine, wavesim.WithLogger(log), wavesim.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer engine.Done()

	g := engine.Grid()
	var ring [wavesim.RingSize]wavesim.Texture
	for i := range ring {
		tex, err := provider.NewTexture(g.XResolution, g.YResolution)
		if err != nil {
			return err
		}
		defer provider.DeleteTexture(tex)
		ring[i] = tex
	}
	if err := engine.SetInitialTextures(ring[0], ring[1], ring[2]); err != nil {
		return err
	}
	old, cur, err := file.Scene.Build(g, engine.Dt())
	if err != nil {
		return err
	}
	if err := engine.Seed(provider, old, cur); err != nil {
		return err
	}

	if err := engine.CheckStability(file.Scene.MaxWaveSpeed()); err != nil {
		if *strictFlag {
			return err
		}
		warn.Fprintf(os.Stderr, "warning: %v; the field will grow without bound\n", err)
	}

	fmt.Printf("%s on %s, %s, %d steps of dt=%g\n",
		g, provider.Name(), opts.Addressing, file.Steps, engine.Dt())

	table := newProbeTable(file.Scene.Probes)
	field := wavesim.NewField(g)
	total := uint64(file.Steps)
	start := time.Now()
	for step := uint64(0); ; step++ {
		if shouldSample(step, total, file.ProbeEvery) {
			if err := engine.ReadRendered(provider, field); err != nil {
				return err
			}
			table.sample(step, engine.Dt(), field)
		}
		if step == total {
			break
		}
		if err := engine.Timestep(); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
	elapsed := time.Since(start)

	if err := table.render(os.Stdout); err != nil {
		return err
	}
	rate := float64(total) / elapsed.Seconds()
	good.Printf("%d steps in %s (%.0f steps/s, %.2f Mcell/s)\n",
		total, elapsed.Round(time.Millisecond), rate, rate*float64(g.Cells())/1e6)

	if *snapshotFlag != "" {
		if err := engine.ReadRendered(provider, field); err != nil {
			return err
		}
		if err := writeSnapshot(*snapshotFlag, field, *snapshotScaleFlag); err != nil {
			return err
		}
		log.Info("snapshot written", zap.String("path", *snapshotFlag))
	}
	return nil
}
