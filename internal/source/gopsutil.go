package source

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
)

const scalingCurFreq = "/sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq"

// gopsutilProvider implements every host provider interface over gopsutil.
type gopsutilProvider struct{}

func (gopsutilProvider) CPUPercent(ctx context.Context, window time.Duration) (float64, error) {
	pct, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, errors.New("cpu percent: no data")
	}
	return pct[0], nil
}

// CPUFrequency reports MHz. gopsutil's Info carries the rated maximum; the
// live clock comes from cpufreq where the kernel exposes it.
func (gopsutilProvider) CPUFrequency(ctx context.Context) (float64, float64, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(infos) == 0 {
		return 0, 0, errors.New("cpu info: no data")
	}
	maxMHz := infos[0].Mhz
	cur := maxMHz
	if b, err := os.ReadFile(scalingCurFreq); err == nil {
		if khz, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64); err == nil && khz > 0 {
			cur = khz / 1000
		}
	}
	return cur, maxMHz, nil
}

func (gopsutilProvider) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (gopsutilProvider) Partitions(ctx context.Context) ([]disk.PartitionStat, error) {
	return disk.PartitionsWithContext(ctx, false)
}

func (gopsutilProvider) Usage(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path)
}

func (gopsutilProvider) NetCounters(ctx context.Context) (Counters, error) {
	stats, err := psnet.IOCountersWithContext(ctx, false)
	if err != nil {
		return Counters{}, err
	}
	if len(stats) == 0 {
		return Counters{}, errors.New("net counters: no data")
	}
	return Counters{BytesSent: stats[0].BytesSent, BytesRecv: stats[0].BytesRecv}, nil
}

func (gopsutilProvider) Hostname(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return os.Hostname()
	}
	return info.Hostname, nil
}

func (gopsutilProvider) InterfaceAddrs(ctx context.Context) ([]string, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	var addrs []string
	for _, iface := range ifaces {
		for _, a := range iface.Addrs {
			addrs = append(addrs, a.Addr)
		}
	}
	return addrs, nil
}
