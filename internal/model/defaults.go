package model

// GPU sentinels.
const (
	GPUNotAvailable = "GPU Not Available"
	GPUError        = "GPU Error"
	VersionNA       = "N/A"
	VersionError    = "Error"
	VersionUnknown  = "Unknown"
)

// Fallback values used when a provider cannot report a field.
const (
	FallbackMaxFrequencyGHz = 5.0
	FallbackPowerLimitW     = 320.0
	FallbackGPUMemoryGB     = 16.0
)

// FallbackCPU is reported when the CPU provider fails.
func FallbackCPU() CPU { return CPU{MaxFrequencyGHz: FallbackMaxFrequencyGHz} }

// UnavailableGPU is reported when no compatible accelerator is present.
func UnavailableGPU() GPU {
	return GPU{Name: GPUNotAvailable, DriverVersion: VersionNA, CUDAVersion: VersionNA}
}

// ErrorGPU is reported when the device is present but cannot be read.
func ErrorGPU(name string) GPU {
	if name == "" {
		name = GPUError
	}
	return GPU{Name: name, DriverVersion: VersionError, CUDAVersion: VersionError}
}

// Empty returns a snapshot with every record at its fallback value.
func Empty() Snapshot {
	return Snapshot{
		CPU:              FallbackCPU(),
		GPU:              UnavailableGPU(),
		Disks:            map[string]Disk{},
		IPAddresses:      []string{},
		ConnectedClients: map[string]Client{},
	}
}
