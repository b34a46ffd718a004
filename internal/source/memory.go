package source

import (
	"context"
	"log/slog"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/kazuninishiki/SysMonServer/internal/model"
)

type MemoryProvider interface {
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

type MemorySource struct {
	provider MemoryProvider
	logger   *slog.Logger
}

func NewMemorySource(p MemoryProvider, logger *slog.Logger) *MemorySource {
	return &MemorySource{provider: p, logger: logger}
}

func (s *MemorySource) Sample(ctx context.Context) model.Memory {
	vm, err := s.provider.VirtualMemory(ctx)
	if err != nil || vm == nil {
		if err != nil {
			s.logger.Error("memory read failed", "error", err)
		}
		return model.Memory{}
	}
	return model.Memory{
		UsagePercent: model.Round(vm.UsedPercent, 1),
		UsedGB:       model.Round(model.BytesToGB(vm.Used), 1),
		TotalGB:      model.Round(model.BytesToGB(vm.Total), 1),
	}
}
