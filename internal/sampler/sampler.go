package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kazuninishiki/SysMonServer/internal/model"
	"github.com/kazuninishiki/SysMonServer/internal/source"
)

// ClientLister provides a consistent copy of the connected consumers.
type ClientLister interface {
	SnapshotView() map[string]model.Client
}

// Publisher fans a snapshot out to consumers. It must not block on any one
// consumer.
type Publisher interface {
	Publish(snap model.Snapshot) error
}

// Options tune a Sampler. Zero values select defaults.
type Options struct {
	ReferenceMbps float64
	RetryDelay    time.Duration
}

// Sampler polls every source on the shared cadence, derives rates and peaks
// and publishes one Snapshot per tick. It owns the network baseline and the
// GPU peak; nothing else reads or writes them.
type Sampler struct {
	logger   *slog.Logger
	sources  source.Set
	identity source.Identity
	clients  ClientLister
	out      Publisher
	cadence  *Cadence

	baseline      NetworkBaseline
	peak          GPUPeak
	referenceMbps float64
	retryDelay    time.Duration

	latest atomic.Pointer[model.Snapshot]

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) bool
}

// New reads host identity and seeds the network baseline.
func New(ctx context.Context, sources source.Set, clients ClientLister, out Publisher, cadence *Cadence, opts Options, logger *slog.Logger) *Sampler {
	if opts.ReferenceMbps <= 0 {
		opts.ReferenceMbps = DefaultReferenceMbps
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	s := &Sampler{
		logger:        logger,
		sources:       sources,
		clients:       clients,
		out:           out,
		cadence:       cadence,
		referenceMbps: opts.ReferenceMbps,
		retryDelay:    opts.RetryDelay,
		now:           time.Now,
		wait:          sleepWithContext,
	}
	s.identity = sources.Identity.Sample(ctx)
	if c, ok := sources.Network.Read(ctx); ok {
		s.baseline.Reset(c, s.now())
	}
	logger.Info("system monitor initialized",
		"platform", s.identity.Platform,
		"hostname", s.identity.Hostname,
		"gpu", sources.GPU.Name(),
	)
	return s
}

// Cadence returns the shared interval handle.
func (s *Sampler) Cadence() *Cadence { return s.cadence }

// Run ticks until ctx is cancelled. Assembly or publish failures are logged
// and retried after the retry delay; only cancellation ends the loop.
// The suspend starts after each tick's work, so period = work + cadence.
func (s *Sampler) Run(ctx context.Context) error {
	s.logger.Info("sampler started", "interval_ms", s.cadence.Milliseconds())
	defer s.logger.Info("sampler stopped")
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.tick(ctx); err != nil {
			s.logger.Error("stats update error", "error", err)
			if !s.wait(ctx, s.retryDelay) {
				return nil
			}
			continue
		}
		if !s.wait(ctx, s.cadence.Interval()) {
			return nil
		}
	}
}

func (s *Sampler) tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during tick: %v", r)
		}
	}()
	snap := s.Sample(ctx)
	s.latest.Store(&snap)
	if err := s.out.Publish(snap); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Sample builds one Snapshot and advances the derivers. Call it only from
// the tick goroutine.
func (s *Sampler) Sample(ctx context.Context) model.Snapshot {
	snap := model.Snapshot{
		CPU:          s.sources.CPU.Sample(ctx),
		Memory:       s.sources.Memory.Sample(ctx),
		Disks:        s.sources.Disk.Sample(ctx),
		Hostname:     s.identity.Hostname,
		IPAddresses:  append([]string{}, s.identity.IPAddresses...),
		PlatformName: s.identity.Platform,
	}

	gpu, live := s.sources.GPU.Sample(ctx)
	if live {
		gpu.MaxTemperatureC = s.peak.Observe(gpu.TemperatureC)
	}
	snap.GPU = gpu

	if c, ok := s.sources.Network.Read(ctx); ok {
		snap.Network = s.baseline.Throughput(c, s.now(), s.referenceMbps)
	}

	snap.ConnectedClients = s.clients.SnapshotView()
	snap.TimestampUTC = s.now().UTC()
	return snap
}

// Current returns the latest tick's Snapshot with a fresh client view. It
// never samples, so it cannot disturb the derivers. Before the first tick it
// returns fallback records with host identity filled in.
func (s *Sampler) Current() model.Snapshot {
	var snap model.Snapshot
	if p := s.latest.Load(); p != nil {
		snap = p.Clone()
	} else {
		snap = model.Empty()
		snap.GPU = fallbackGPU(s.sources.GPU.Name())
		snap.Hostname = s.identity.Hostname
		snap.IPAddresses = append([]string{}, s.identity.IPAddresses...)
		snap.PlatformName = s.identity.Platform
		snap.TimestampUTC = s.now().UTC()
	}
	snap.ConnectedClients = s.clients.SnapshotView()
	return snap
}

func fallbackGPU(name string) model.GPU {
	if name == model.GPUNotAvailable {
		return model.UnavailableGPU()
	}
	g := model.ErrorGPU(name)
	if name != model.GPUError {
		g.DriverVersion, g.CUDAVersion = model.VersionUnknown, model.VersionUnknown
	}
	return g
}

// sleepWithContext reports false if ctx ended first.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
