// util/prof.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
)

// Profiler records CPU and heap profiles for the lifetime of a command.
type Profiler struct {
	cpu, mem *os.File
}

// StartProfiler starts CPU profiling to the file named cpu and arranges
// for a heap profile to be written to mem when the Profiler is stopped.
// Either name may be empty.
func StartProfiler(cpu, mem string) (*Profiler, error) {
	p := &Profiler{}

	if cpu != "" {
		f, err := os.Create(cpu)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to create CPU profile file: %w", cpu, err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("unable to start CPU profile: %w", err)
		}
		p.cpu = f
	}

	if mem != "" {
		f, err := os.Create(mem)
		if err != nil {
			p.Stop()
			return nil, fmt.Errorf("%s: unable to create memory profile file: %w", mem, err)
		}
		p.mem = f
	}

	return p, nil
}

// Stop finishes the CPU profile and writes the heap profile. It may be
// called more than once.
func (p *Profiler) Stop() error {
	var errs []error
	if p.cpu != nil {
		pprof.StopCPUProfile()
		errs = append(errs, p.cpu.Close())
		p.cpu = nil
	}
	if p.mem != nil {
		if err := pprof.WriteHeapProfile(p.mem); err != nil {
			errs = append(errs, fmt.Errorf("unable to write memory profile: %w", err))
		}
		errs = append(errs, p.mem.Close())
		p.mem = nil
	}
	return errors.Join(errs...)
}
