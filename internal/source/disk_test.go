package source

import (
	"context"
	"errors"
	"io/fs"
	"reflect"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/kazuninishiki/SysMonServer/internal/model"
)

const gib = 1024 * 1024 * 1024

func TestDiskSourceLinuxFiltersPseudoFilesystems(t *testing.T) {
	p := fakeDisks{
		parts: []disk.PartitionStat{
			{Device: "/dev/nvme0n1p2", Mountpoint: "/", Fstype: "ext4"},
			{Device: "tmpfs", Mountpoint: "/run", Fstype: "tmpfs"},
			{Device: "/dev/loop3", Mountpoint: "/snap/core/1", Fstype: "ext4"},
			{Device: "/dev/sda1", Mountpoint: "/run/media/usb", Fstype: "vfat"},
			{Device: "overlay", Mountpoint: "/var/lib/docker/overlay2/x", Fstype: "overlay"},
		},
		usage: map[string]*disk.UsageStat{"/": {Used: 120 * gib, Total: 476 * gib}},
	}
	got := NewDiskSource(p, "linux", testLogger()).Sample(context.Background())
	want := map[string]model.Disk{
		"root": {UsedGB: 120, TotalGB: 476, Label: "/", FilesystemType: "ext4"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sample() = %+v, want %+v", got, want)
	}
}

func TestDiskSourceLinuxIdentifiers(t *testing.T) {
	p := fakeDisks{
		parts: []disk.PartitionStat{
			{Mountpoint: "/mnt/data", Fstype: "xfs"},
			{Mountpoint: "/home", Fstype: "btrfs"},
			{Mountpoint: "/runner", Fstype: "ext4"},
		},
	}
	got := NewDiskSource(p, "linux", testLogger()).Sample(context.Background())
	for id, label := range map[string]string{"mnt_data": "/mnt/data", "home": "/home", "runner": "/runner"} {
		d, ok := got[id]
		if !ok {
			t.Errorf("missing %q in %v", id, got)
			continue
		}
		if d.Label != label {
			t.Errorf("%s label = %q, want %q", id, d.Label, label)
		}
	}
}

func TestDiskSourceSkipsUnreadableVolumes(t *testing.T) {
	p := fakeDisks{
		parts: []disk.PartitionStat{
			{Mountpoint: "/", Fstype: "ext4"},
			{Mountpoint: "/media/locked", Fstype: "ext4"},
		},
		usageErr: map[string]error{"/media/locked": fs.ErrPermission},
	}
	got := NewDiskSource(p, "linux", testLogger()).Sample(context.Background())
	if _, ok := got["media_locked"]; ok || len(got) != 1 {
		t.Errorf("Sample() = %v, want only root", got)
	}
}

func TestDiskSourceWindows(t *testing.T) {
	p := fakeDisks{
		parts: []disk.PartitionStat{
			{Device: `C:\`, Mountpoint: `C:\`, Fstype: "NTFS", Opts: []string{"rw", "fixed"}},
			{Device: `D:\`, Mountpoint: `D:\`, Fstype: "CDFS", Opts: []string{"ro", "cdrom"}},
			{Device: `E:\`, Mountpoint: `E:\`, Fstype: ""},
		},
		usage: map[string]*disk.UsageStat{`C:\`: {Used: 200 * gib, Total: 931 * gib}},
	}
	got := NewDiskSource(p, "windows", testLogger()).Sample(context.Background())
	want := map[string]model.Disk{
		"c": {UsedGB: 200, TotalGB: 931, Label: "C:", FilesystemType: "NTFS"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sample() = %+v, want %+v", got, want)
	}
}

func TestDiskSourcePartitionFailure(t *testing.T) {
	got := NewDiskSource(fakeDisks{partsErr: errors.New("no mtab")}, "linux", testLogger()).Sample(context.Background())
	if got == nil || len(got) != 0 {
		t.Errorf("Sample() = %v, want empty non-nil map", got)
	}
}
