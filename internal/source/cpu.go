package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/kazuninishiki/SysMonServer/internal/model"
)

// DefaultCPUWindow is how long a usage sample blocks.
const DefaultCPUWindow = 100 * time.Millisecond

// CPUProvider reads processor usage and clock speed.
type CPUProvider interface {
	CPUPercent(ctx context.Context, window time.Duration) (float64, error)
	CPUFrequency(ctx context.Context) (currentMHz, maxMHz float64, err error)
}

type CPUSource struct {
	provider CPUProvider
	window   time.Duration
	logger   *slog.Logger
}

func NewCPUSource(p CPUProvider, logger *slog.Logger) *CPUSource {
	return &CPUSource{provider: p, window: DefaultCPUWindow, logger: logger}
}

// Sample blocks for the usage window. Frequency falls back to 0 / 5.0 GHz.
func (s *CPUSource) Sample(ctx context.Context) model.CPU {
	out := model.FallbackCPU()

	pct, err := s.provider.CPUPercent(ctx, s.window)
	if err != nil {
		s.logger.Error("cpu usage read failed", "error", err)
	} else {
		out.UsagePercent = model.Round(clamp(pct, 0, 100), 1)
	}

	cur, maxMHz, err := s.provider.CPUFrequency(ctx)
	if err != nil {
		s.logger.Error("cpu frequency read failed", "error", err)
		return out
	}
	out.FrequencyGHz = model.Round(cur/1000, 1)
	if maxMHz > 0 {
		out.MaxFrequencyGHz = model.Round(maxMHz/1000, 1)
	}
	return out
}
