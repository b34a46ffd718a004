// Package source wraps fallible host telemetry providers. Every adapter's
// Sample method substitutes fallback values instead of returning an error, so
// one broken provider never stops the sampler.
package source

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
)

var (
	// ErrGPUUnavailable means no compatible accelerator or driver tooling exists.
	ErrGPUUnavailable = errors.New("gpu not available")
	// ErrFieldUnsupported means the provider reported a field as N/A.
	ErrFieldUnsupported = errors.New("field not supported")
)

// Set bundles one adapter per telemetry domain.
type Set struct {
	CPU      *CPUSource
	Memory   *MemorySource
	GPU      *GPUSource
	Disk     *DiskSource
	Network  *NetworkSource
	Identity *IdentitySource
}

// NewDefault builds adapters over gopsutil and nvidia-smi. GPU discovery runs
// once here; with enableGPU false the GPU adapter reports "not available".
func NewDefault(ctx context.Context, enableGPU bool, logger *slog.Logger) Set {
	ps := gopsutilProvider{}
	opener := OpenNvidiaSMI
	if !enableGPU {
		opener = func(context.Context) (GPUDevice, error) { return nil, ErrGPUUnavailable }
	}
	return Set{
		CPU:      NewCPUSource(ps, logger),
		Memory:   NewMemorySource(ps, logger),
		GPU:      NewGPUSource(ctx, opener, logger),
		Disk:     NewDiskSource(ps, runtime.GOOS, logger),
		Network:  NewNetworkSource(ps, logger),
		Identity: NewIdentitySource(ps, runtime.GOOS, logger),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
