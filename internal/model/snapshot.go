package model

import (
	"math"
	"time"
)

// CPU holds instantaneous processor usage and clock speed.
type CPU struct {
	UsagePercent    float64 `json:"usagePercent"`
	FrequencyGHz    float64 `json:"frequencyGHz"`
	MaxFrequencyGHz float64 `json:"maxFrequencyGHz"`
}

// Memory captures RAM usage, rounded to one decimal.
type Memory struct {
	UsagePercent float64 `json:"usagePercent"`
	UsedGB       float64 `json:"usedGB"`
	TotalGB      float64 `json:"totalGB"`
}

// GPU is the single-accelerator record. Name and version fields carry
// sentinels when the device is missing or broken.
type GPU struct {
	Name               string  `json:"name"`
	TemperatureC       float64 `json:"temperatureC"`
	MaxTemperatureC    float64 `json:"maxTemperatureC"`
	FanSpeedRPM        float64 `json:"fanSpeedRPM"`
	FanPercent         float64 `json:"fanPercent"`
	PowerDrawW         float64 `json:"powerDrawW"`
	MaxPowerW          float64 `json:"maxPowerW"`
	UsagePercent       float64 `json:"usagePercent"`
	MemoryUsagePercent float64 `json:"memoryUsagePercent"`
	MemoryUsedGB       float64 `json:"memoryUsedGB"`
	MemoryTotalGB      float64 `json:"memoryTotalGB"`
	DriverVersion      string  `json:"driverVersion"`
	CUDAVersion        string  `json:"cudaVersion"`
}

// Disk is one mounted volume. The map key in Snapshot.Disks is the stable id;
// Label is for display only.
type Disk struct {
	UsedGB         float64 `json:"usedGB"`
	TotalGB        float64 `json:"totalGB"`
	Label          string  `json:"label"`
	FilesystemType string  `json:"filesystemType"`
}

// Network holds throughput derived from counter deltas plus session totals.
type Network struct {
	UsagePercent    float64 `json:"usagePercent"`
	UploadMbps      float64 `json:"uploadMbps"`
	DownloadMbps    float64 `json:"downloadMbps"`
	TotalSentGB     float64 `json:"totalSentGB"`
	TotalReceivedGB float64 `json:"totalReceivedGB"`
}

// Client is the public view of a connected dashboard consumer.
type Client struct {
	RemoteAddress string    `json:"remoteAddress"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
}

// Snapshot is the full point-in-time bundle pushed to consumers each tick.
// Treat it as immutable once built; use Clone before modifying.
type Snapshot struct {
	CPU              CPU               `json:"cpu"`
	Memory           Memory            `json:"memory"`
	GPU              GPU               `json:"gpu"`
	Disks            map[string]Disk   `json:"disks"`
	Network          Network           `json:"network"`
	Hostname         string            `json:"hostname"`
	IPAddresses      []string          `json:"ipAddresses"`
	ConnectedClients map[string]Client `json:"connectedClients"`
	PlatformName     string            `json:"platformName"`
	TimestampUTC     time.Time         `json:"timestampUTC"`
}

// Clone returns a copy that shares no maps or slices with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Disks = make(map[string]Disk, len(s.Disks))
	for k, v := range s.Disks {
		out.Disks[k] = v
	}
	out.IPAddresses = append([]string{}, s.IPAddresses...)
	out.ConnectedClients = make(map[string]Client, len(s.ConnectedClients))
	for k, v := range s.ConnectedClients {
		out.ConnectedClients[k] = v
	}
	return out
}

// Round rounds v to the given number of decimals. NaN and infinities become 0
// so every numeric Snapshot field stays encodable.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow(10, float64(decimals))
	r := math.Round(v*p) / p
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// BytesToGB converts bytes to binary gigabytes.
func BytesToGB(b uint64) float64 { return float64(b) / (1024 * 1024 * 1024) }
