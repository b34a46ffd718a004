package source

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kazuninishiki/SysMonServer/internal/model"
)

// fanRPMPerPercent approximates RPM when a device only exposes fan percent.
const fanRPMPerPercent = 22

// GPUDevice is an opened accelerator. Refresh loads one reading; the getters
// then report each field independently so one unsupported field does not
// blank the rest.
type GPUDevice interface {
	Name() (string, error)
	Refresh(ctx context.Context) error
	Temperature() (float64, error)
	FanSpeedPercent() (float64, error)
	PowerDraw() (float64, error)
	PowerLimit() (float64, error)
	Utilization() (float64, error)
	MemoryUsed() (uint64, error)
	MemoryTotal() (uint64, error)
	DriverVersion() (string, error)
	CUDAVersion() (string, error)
}

// GPUOpener acquires the first device. It returns ErrGPUUnavailable when no
// accelerator is present.
type GPUOpener func(ctx context.Context) (GPUDevice, error)

type gpuState int

const (
	gpuAbsent gpuState = iota
	gpuBroken
	gpuReady
)

type GPUSource struct {
	state  gpuState
	device GPUDevice
	name   string
	logger *slog.Logger
}

// NewGPUSource opens the device once. Absence and open failures are logged
// here and never again per tick.
func NewGPUSource(ctx context.Context, open GPUOpener, logger *slog.Logger) *GPUSource {
	s := &GPUSource{logger: logger, name: model.GPUNotAvailable}
	dev, err := open(ctx)
	switch {
	case errors.Is(err, ErrGPUUnavailable):
		logger.Warn("gpu monitoring not available")
		return s
	case err != nil:
		logger.Error("gpu initialization failed", "error", err)
		s.state, s.name = gpuBroken, model.GPUError
		return s
	}
	name, err := dev.Name()
	if err != nil {
		logger.Error("gpu initialization failed", "error", err)
		s.state, s.name = gpuBroken, model.GPUError
		return s
	}
	s.state, s.device, s.name = gpuReady, dev, normalizeName(name)
	logger.Info("gpu monitoring initialized", "gpu", s.name)
	return s
}

// Name is the normalized device name or a sentinel.
func (s *GPUSource) Name() string { return s.name }

// Sample reads the device. live is false when the record is a sentinel; the
// caller must not feed its temperature into peak tracking then.
func (s *GPUSource) Sample(ctx context.Context) (out model.GPU, live bool) {
	switch s.state {
	case gpuAbsent:
		return model.UnavailableGPU(), false
	case gpuBroken:
		return model.ErrorGPU(s.name), false
	}
	if err := s.device.Refresh(ctx); err != nil {
		s.logger.Error("gpu stats error", "error", err)
		return model.ErrorGPU(s.name), false
	}

	out = model.GPU{Name: s.name}

	if t, err := s.device.Temperature(); err != nil {
		s.fieldError("temperature", err)
	} else {
		out.TemperatureC = model.Round(t, 0)
	}

	if fan, err := s.device.FanSpeedPercent(); err != nil {
		s.fieldError("fan", err)
	} else {
		out.FanPercent = model.Round(fan, 0)
		out.FanSpeedRPM = model.Round(fan*fanRPMPerPercent, 0)
	}

	if w, err := s.device.PowerDraw(); err != nil {
		s.fieldError("power draw", err)
	} else {
		out.PowerDrawW = model.Round(w, 0)
	}
	out.MaxPowerW = model.FallbackPowerLimitW
	if w, err := s.device.PowerLimit(); err != nil {
		s.fieldError("power limit", err)
	} else if w > 0 {
		out.MaxPowerW = model.Round(w, 0)
	}

	if u, err := s.device.Utilization(); err != nil {
		s.fieldError("utilization", err)
	} else {
		out.UsagePercent = model.Round(clamp(u, 0, 100), 0)
	}

	usedGB, totalGB := 0.0, model.FallbackGPUMemoryGB
	if used, err := s.device.MemoryUsed(); err != nil {
		s.fieldError("memory used", err)
	} else {
		usedGB = model.BytesToGB(used)
	}
	if total, err := s.device.MemoryTotal(); err != nil {
		s.fieldError("memory total", err)
	} else if total > 0 {
		totalGB = model.BytesToGB(total)
	}
	if totalGB > 0 {
		out.MemoryUsagePercent = model.Round(usedGB/totalGB*100, 1)
	}
	out.MemoryUsedGB = model.Round(usedGB, 1)
	out.MemoryTotalGB = model.Round(totalGB, 0)

	out.DriverVersion = model.VersionUnknown
	if v, err := s.device.DriverVersion(); err != nil {
		s.fieldError("driver version", err)
	} else if v = normalizeName(v); v != "" {
		out.DriverVersion = v
	}
	out.CUDAVersion = model.VersionUnknown
	if v, err := s.device.CUDAVersion(); err != nil {
		s.fieldError("cuda version", err)
	} else if v = normalizeName(v); v != "" {
		out.CUDAVersion = v
	}
	return out, true
}

// Unsupported fields are a property of the card, not a failure.
func (s *GPUSource) fieldError(field string, err error) {
	if errors.Is(err, ErrFieldUnsupported) {
		return
	}
	s.logger.Error("gpu field read failed", "field", field, "error", err)
}

func normalizeName(raw string) string {
	return strings.TrimSpace(strings.TrimRight(raw, "\x00"))
}
