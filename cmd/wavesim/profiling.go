package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"sync"
)

// cpuProfile is a CPU profile being written for profile-guided builds.
type cpuProfile struct {
	path string
	f    *os.File
	once sync.Once
	err  error
}

// startCPUProfile begins writing a CPU profile to path.
func startCPUProfile(path string) (*cpuProfile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("starting profile: %w", err)
	}
	return &cpuProfile{path: path, f: f}, nil
}

// Stop ends the profile and closes its file. Later calls return the first
// result.
func (p *cpuProfile) Stop() error {
	p.once.Do(func() {
		pprof.StopCPUProfile()
		p.err = p.f.Close()
	})
	return p.err
}
