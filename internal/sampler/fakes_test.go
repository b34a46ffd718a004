package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/kazuninishiki/SysMonServer/internal/model"
	"github.com/kazuninishiki/SysMonServer/internal/source"
)

var errBoom = errors.New("boom")

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// brokenHost fails every provider call.
type brokenHost struct{}

func (brokenHost) CPUPercent(context.Context, time.Duration) (float64, error) { return 0, errBoom }
func (brokenHost) CPUFrequency(context.Context) (float64, float64, error)     { return 0, 0, errBoom }
func (brokenHost) VirtualMemory(context.Context) (*mem.VirtualMemoryStat, error) {
	return nil, errBoom
}
func (brokenHost) Partitions(context.Context) ([]disk.PartitionStat, error) { return nil, errBoom }
func (brokenHost) Usage(context.Context, string) (*disk.UsageStat, error)   { return nil, errBoom }
func (brokenHost) NetCounters(context.Context) (source.Counters, error) {
	return source.Counters{}, errBoom
}
func (brokenHost) Hostname(context.Context) (string, error)         { return "", errBoom }
func (brokenHost) InterfaceAddrs(context.Context) ([]string, error) { return nil, errBoom }

// scriptedNet returns the queued counters in order, repeating the last one.
type scriptedNet struct {
	mu     sync.Mutex
	values []source.Counters
}

func (n *scriptedNet) NetCounters(context.Context) (source.Counters, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := n.values[0]
	if len(n.values) > 1 {
		n.values = n.values[1:]
	}
	return c, nil
}

// tempGPU reports a scripted temperature sequence.
type tempGPU struct {
	temps []float64
	cur   float64
}

func (g *tempGPU) Name() (string, error) { return "Test GPU", nil }
func (g *tempGPU) Refresh(context.Context) error {
	if len(g.temps) > 0 {
		g.cur, g.temps = g.temps[0], g.temps[1:]
	}
	return nil
}
func (g *tempGPU) Temperature() (float64, error)     { return g.cur, nil }
func (g *tempGPU) FanSpeedPercent() (float64, error) { return 30, nil }
func (g *tempGPU) PowerDraw() (float64, error)       { return 100, nil }
func (g *tempGPU) PowerLimit() (float64, error)      { return 250, nil }
func (g *tempGPU) Utilization() (float64, error)     { return 50, nil }
func (g *tempGPU) MemoryUsed() (uint64, error)       { return 1 << 30, nil }
func (g *tempGPU) MemoryTotal() (uint64, error)      { return 8 << 30, nil }
func (g *tempGPU) DriverVersion() (string, error)    { return "550.1", nil }
func (g *tempGPU) CUDAVersion() (string, error)      { return "12.4", nil }

type staticClients map[string]model.Client

func (c staticClients) SnapshotView() map[string]model.Client {
	out := make(map[string]model.Client, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []model.Snapshot
	errs  []error
	sent  chan struct{}
}

func newRecordingPublisher(errs ...error) *recordingPublisher {
	return &recordingPublisher{errs: errs, sent: make(chan struct{}, 64)}
}

func (p *recordingPublisher) Publish(s model.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, s)
	select {
	case p.sent <- struct{}{}:
	default:
	}
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return err
	}
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

func brokenSet(ctx context.Context, gpu source.GPUOpener) source.Set {
	log := testLogger()
	h := brokenHost{}
	return source.Set{
		CPU:      source.NewCPUSource(h, log),
		Memory:   source.NewMemorySource(h, log),
		GPU:      source.NewGPUSource(ctx, gpu, log),
		Disk:     source.NewDiskSource(h, "linux", log),
		Network:  source.NewNetworkSource(h, log),
		Identity: source.NewIdentitySource(h, "linux", log),
	}
}

func noGPU(context.Context) (source.GPUDevice, error) { return nil, source.ErrGPUUnavailable }

func gpuOpener(dev source.GPUDevice) source.GPUOpener {
	return func(context.Context) (source.GPUDevice, error) { return dev, nil }
}

// fakeClock advances by step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}
