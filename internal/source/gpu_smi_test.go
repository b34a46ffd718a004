package source

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const smiHeader = `+-----------------------------------------------------------------------------+
| NVIDIA-SMI 550.54.14    Driver Version: 550.54.14    CUDA Version: 12.4     |
+-----------------------------------------------------------------------------+`

func scriptedSMI(query string, queryErr error) smiRunner {
	return func(_ context.Context, args ...string) ([]byte, error) {
		if len(args) == 0 {
			return []byte(smiHeader), nil
		}
		if strings.HasPrefix(args[0], "--query-gpu=name") {
			return []byte("NVIDIA GeForce RTX 4080\n"), nil
		}
		return []byte(query), queryErr
	}
}

func TestSMIDeviceFields(t *testing.T) {
	d, err := openSMI(context.Background(), scriptedSMI("61, 40, 212.40, 320.00, 87, 6144, 16384, 550.54.14\n", nil))
	if err != nil {
		t.Fatalf("openSMI: %v", err)
	}
	if name, _ := d.Name(); name != "NVIDIA GeForce RTX 4080" {
		t.Errorf("Name() = %q", name)
	}
	if v, err := d.CUDAVersion(); err != nil || v != "12.4" {
		t.Errorf("CUDAVersion() = %q, %v", v, err)
	}
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if v, _ := d.Temperature(); v != 61 {
		t.Errorf("Temperature() = %v", v)
	}
	if v, _ := d.PowerDraw(); v != 212.4 {
		t.Errorf("PowerDraw() = %v", v)
	}
	if used, err := d.MemoryUsed(); err != nil || used != 6144*mib {
		t.Errorf("MemoryUsed() = %d, %v", used, err)
	}
	if total, err := d.MemoryTotal(); err != nil || total != 16384*mib {
		t.Errorf("MemoryTotal() = %d, %v", total, err)
	}
	if v, _ := d.DriverVersion(); v != "550.54.14" {
		t.Errorf("DriverVersion() = %q", v)
	}
}

func TestSMIDeviceUnsupportedFields(t *testing.T) {
	d, err := openSMI(context.Background(), scriptedSMI("55, [N/A], [Not Supported], 250.00, 3, 100, 8192, 535.1\n", nil))
	if err != nil {
		t.Fatalf("openSMI: %v", err)
	}
	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := d.FanSpeedPercent(); !errors.Is(err, ErrFieldUnsupported) {
		t.Errorf("FanSpeedPercent() err = %v, want ErrFieldUnsupported", err)
	}
	if _, err := d.PowerDraw(); !errors.Is(err, ErrFieldUnsupported) {
		t.Errorf("PowerDraw() err = %v, want ErrFieldUnsupported", err)
	}
	if v, err := d.PowerLimit(); err != nil || v != 250 {
		t.Errorf("PowerLimit() = %v, %v", v, err)
	}
}

func TestSMIMemoryTotalMissing(t *testing.T) {
	d, err := openSMI(context.Background(), scriptedSMI("55, 40, 200, 250.00, 3, 6144, [N/A], 535.1\n", nil))
	if err != nil {
		t.Fatalf("openSMI: %v", err)
	}
	s := NewGPUSource(context.Background(), openerFor(d, nil), testLogger())
	got, live := s.Sample(context.Background())
	if !live {
		t.Fatal("expected live record")
	}
	if got.MemoryUsedGB != 6 || got.MemoryTotalGB != 16 || got.MemoryUsagePercent != 37.5 {
		t.Errorf("memory = %v/%v (%v%%), want 6/16 (37.5%%)", got.MemoryUsedGB, got.MemoryTotalGB, got.MemoryUsagePercent)
	}
	if got.TemperatureC != 55 || got.MaxPowerW != 250 {
		t.Errorf("other fields = %+v", got)
	}
}

func TestSMIDeviceRefreshError(t *testing.T) {
	d, err := openSMI(context.Background(), scriptedSMI("", errBoom))
	if err != nil {
		t.Fatalf("openSMI: %v", err)
	}
	if err := d.Refresh(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("Refresh() err = %v, want wrapped errBoom", err)
	}
}
