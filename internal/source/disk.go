package source

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/kazuninishiki/SysMonServer/internal/model"
)

var (
	pseudoFilesystems = map[string]bool{
		"tmpfs":    true,
		"devtmpfs": true,
		"sysfs":    true,
		"proc":     true,
		"squashfs": true,
		"overlay":  true,
	}
	reservedMountPrefixes = []string{"/sys", "/proc", "/dev", "/run", "/snap"}
)

type DiskProvider interface {
	Partitions(ctx context.Context) ([]disk.PartitionStat, error)
	Usage(ctx context.Context, path string) (*disk.UsageStat, error)
}

type DiskSource struct {
	provider DiskProvider
	windows  bool
	logger   *slog.Logger
}

// NewDiskSource picks filtering rules from goos; anything but "windows" is
// treated as Unix-like.
func NewDiskSource(p DiskProvider, goos string, logger *slog.Logger) *DiskSource {
	return &DiskSource{provider: p, windows: goos == "windows", logger: logger}
}

// Sample maps volume id to usage. Volumes whose usage cannot be read are
// skipped.
func (s *DiskSource) Sample(ctx context.Context) map[string]model.Disk {
	disks := make(map[string]model.Disk)
	parts, err := s.provider.Partitions(ctx)
	if err != nil {
		s.logger.Error("disk stats error", "error", err)
		return disks
	}
	for _, p := range parts {
		if s.skip(p) {
			continue
		}
		usage, err := s.provider.Usage(ctx, p.Mountpoint)
		if err != nil || usage == nil {
			continue
		}
		id, label := s.identify(p)
		if _, dup := disks[id]; dup {
			continue
		}
		disks[id] = model.Disk{
			UsedGB:         model.Round(model.BytesToGB(usage.Used), 1),
			TotalGB:        model.Round(model.BytesToGB(usage.Total), 1),
			Label:          label,
			FilesystemType: p.Fstype,
		}
	}
	return disks
}

func (s *DiskSource) skip(p disk.PartitionStat) bool {
	if s.windows {
		if p.Fstype == "" {
			return true
		}
		for _, o := range p.Opts {
			if strings.Contains(strings.ToLower(o), "cdrom") {
				return true
			}
		}
		return false
	}
	if pseudoFilesystems[p.Fstype] {
		return true
	}
	for _, prefix := range reservedMountPrefixes {
		if p.Mountpoint == prefix || strings.HasPrefix(p.Mountpoint, prefix+"/") {
			return true
		}
	}
	return false
}

// identify returns the stable map key and the display label for a volume.
func (s *DiskSource) identify(p disk.PartitionStat) (id, label string) {
	if s.windows {
		id = strings.ToLower(strings.NewReplacer(":", "", `\`, "").Replace(p.Device))
		label = strings.TrimRight(p.Device, `\`)
		if label == "" {
			label = "Local Disk"
		}
		return id, label
	}
	id = strings.Trim(strings.ReplaceAll(p.Mountpoint, "/", "_"), "_")
	if id == "" {
		id = "root"
	}
	return id, p.Mountpoint
}
