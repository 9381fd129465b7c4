// Package profiling writes CPU and heap profiles of a dockbar-go run with
// runtime/pprof.
package profiling

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
)

// Config selects the profiles to write. An empty path disables that profile.
type Config struct {
	CPUProfilePath string
	MemProfilePath string
}

// Enabled reports whether any profile is requested.
func (c Config) Enabled() bool {
	return c.CPUProfilePath != "" || c.MemProfilePath != ""
}

// Session is a running profile. The CPU profile covers the time between
// Start and Stop; the heap profile is taken at Stop.
type Session struct {
	cfg Config

	mu      sync.Mutex
	cpuFile *os.File
	stopped bool
}

// Start begins CPU profiling when cfg asks for it. Only one CPU profile can
// run per process.
func Start(cfg Config) (*Session, error) {
	s := &Session{cfg: cfg}
	if cfg.CPUProfilePath == "" {
		return s, nil
	}
	f, err := os.Create(cfg.CPUProfilePath)
	if err != nil {
		return nil, fmt.Errorf("create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("start CPU profile: %w", err)
	}
	s.cpuFile = f
	return s, nil
}

// Stop ends CPU profiling and writes the heap profile. Calls after the first
// return nil.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	var errs []error
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := s.cpuFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close CPU profile: %w", err))
		}
		s.cpuFile = nil
	}
	if s.cfg.MemProfilePath != "" {
		if err := WriteHeapProfile(s.cfg.MemProfilePath); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteHeapProfile collects garbage and writes a heap profile to path.
func WriteHeapProfile(path string) error {
	runtime.GC()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create heap profile: %w", err)
	}
	defer f.Close()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("write heap profile: %w", err)
	}
	return nil
}
