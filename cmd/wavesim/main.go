//go:build ebiten

// Command wavesim opens a window on a running wave engine. WASD moves an
// emitter that injects impulses, +/- change the steps per frame and Esc
// quits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"wavesim"
	"wavesim/internal/backend"
	"wavesim/internal/scenario"
)

const pgoWalkDuration = 15 * time.Second

func main() {
	engineFlags := wavesim.DefaultConfig()
	engineFlags.Bind(flag.CommandLine)
	flag.Parse()

	logger, err := wavesim.NewLogger(wavesim.LogConfig{Level: *logLevelFlag, Development: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	wavesim.SetLogger(logger)

	if err := run(logger); err != nil {
		logger.Error("wavesim failed", zap.Error(err))
		os.Exit(1)
	}
}

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
	return file, file.Validate()
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

	v, err := newViewer(provider, file, opts.Addressing, log)
	if err != nil {
		return err
	}
	defer v.close()

	if err := v.engine.CheckStability(file.Scene.MaxWaveSpeed()); err != nil {
		log.Warn("time step is unstable for this scene", zap.Error(err))
	}

	if *recordPGO != "" {
		prof, err := startCPUProfile(*recordPGO)
		if err != nil {
			return err
		}
		defer prof.Stop()
		v.startAutoWalk(pgoWalkDuration, func() {
			if err := prof.Stop(); err != nil {
				log.Warn("finishing profile", zap.Error(err))
				return
			}
			log.Info("profile written", zap.String("path", *recordPGO))
		})
	}

	g := v.engine.Grid()
	scale := max(*scaleFlag, 1)
	ebiten.SetWindowSize(g.XResolution*scale, g.YResolution*scale)
	ebiten.SetWindowTitle(fmt.Sprintf("wavesim: %s on %s", g, provider.Name()))
	if err := ebiten.RunGame(v); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
