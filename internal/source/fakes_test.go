package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

var errBoom = errors.New("boom")

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeCPU struct {
	pct      float64
	pctErr   error
	cur, max float64
	freqErr  error
}

func (f fakeCPU) CPUPercent(context.Context, time.Duration) (float64, error) {
	return f.pct, f.pctErr
}

func (f fakeCPU) CPUFrequency(context.Context) (float64, float64, error) {
	return f.cur, f.max, f.freqErr
}

type fakeMemory struct {
	stat *mem.VirtualMemoryStat
	err  error
}

func (f fakeMemory) VirtualMemory(context.Context) (*mem.VirtualMemoryStat, error) {
	return f.stat, f.err
}

type fakeDisks struct {
	parts    []disk.PartitionStat
	partsErr error
	usage    map[string]*disk.UsageStat
	usageErr map[string]error
}

func (f fakeDisks) Partitions(context.Context) ([]disk.PartitionStat, error) {
	return f.parts, f.partsErr
}

func (f fakeDisks) Usage(_ context.Context, path string) (*disk.UsageStat, error) {
	if err := f.usageErr[path]; err != nil {
		return nil, err
	}
	if u, ok := f.usage[path]; ok {
		return u, nil
	}
	return &disk.UsageStat{Path: path}, nil
}

type fakeNet struct {
	c   Counters
	err error
}

func (f fakeNet) NetCounters(context.Context) (Counters, error) { return f.c, f.err }

type fakeIdentity struct {
	host    string
	hostErr error
	addrs   []string
	addrErr error
}

func (f fakeIdentity) Hostname(context.Context) (string, error) { return f.host, f.hostErr }
func (f fakeIdentity) InterfaceAddrs(context.Context) ([]string, error) {
	return f.addrs, f.addrErr
}

// fakeGPU reports fixed values; any field listed in errs fails.
type fakeGPU struct {
	name        string
	refreshErr  error
	temp        float64
	fan         float64
	draw, limit float64
	util        float64
	used, total uint64
	driver      string
	cuda        string
	errs        map[string]error
}

func (f *fakeGPU) Name() (string, error)             { return f.name, f.errs["name"] }
func (f *fakeGPU) Refresh(context.Context) error     { return f.refreshErr }
func (f *fakeGPU) Temperature() (float64, error)     { return f.temp, f.errs["temp"] }
func (f *fakeGPU) FanSpeedPercent() (float64, error) { return f.fan, f.errs["fan"] }
func (f *fakeGPU) PowerDraw() (float64, error)       { return f.draw, f.errs["draw"] }
func (f *fakeGPU) PowerLimit() (float64, error)      { return f.limit, f.errs["limit"] }
func (f *fakeGPU) Utilization() (float64, error)     { return f.util, f.errs["util"] }
func (f *fakeGPU) MemoryUsed() (uint64, error)       { return f.used, f.errs["used"] }
func (f *fakeGPU) MemoryTotal() (uint64, error)      { return f.total, f.errs["total"] }
func (f *fakeGPU) DriverVersion() (string, error)    { return f.driver, f.errs["driver"] }
func (f *fakeGPU) CUDAVersion() (string, error)      { return f.cuda, f.errs["cuda"] }

func openerFor(dev GPUDevice, err error) GPUOpener {
	return func(context.Context) (GPUDevice, error) { return dev, err }
}

func memStat(used, total uint64, pct float64) *mem.VirtualMemoryStat {
	return &mem.VirtualMemoryStat{Used: used, Total: total, UsedPercent: pct}
}
