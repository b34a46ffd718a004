package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const smiTimeout = 2 * time.Second

// Order matters: Refresh indexes the CSV row by position.
var smiFields = []string{
	"temperature.gpu",
	"fan.speed",
	"power.draw",
	"power.limit",
	"utilization.gpu",
	"memory.used",
	"memory.total",
	"driver_version",
}

var cudaVersionRe = regexp.MustCompile(`CUDA Version:\s*([0-9]+(?:\.[0-9]+)?)`)

type smiRunner func(ctx context.Context, args ...string) ([]byte, error)

// smiDevice reads GPU 0 through the nvidia-smi CLI.
type smiDevice struct {
	run     smiRunner
	name    string
	cuda    string
	cudaErr error
	row     map[string]string
}

// OpenNvidiaSMI locates nvidia-smi and reads the static device fields.
func OpenNvidiaSMI(ctx context.Context) (GPUDevice, error) {
	bin, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return nil, ErrGPUUnavailable
	}
	d, err := openSMI(ctx, func(ctx context.Context, args ...string) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, smiTimeout)
		defer cancel()
		return exec.CommandContext(ctx, bin, args...).Output()
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func openSMI(ctx context.Context, run smiRunner) (*smiDevice, error) {
	d := &smiDevice{run: run}
	rows, err := d.query(ctx, "name")
	if err != nil {
		return nil, fmt.Errorf("query gpu name: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrGPUUnavailable
	}
	d.name = strings.TrimSpace(rows[0][0])

	// CUDA version is only printed in the default report header.
	out, err := run(ctx)
	if err != nil {
		d.cudaErr = fmt.Errorf("read cuda version: %w", err)
	} else if m := cudaVersionRe.FindSubmatch(out); m != nil {
		d.cuda = string(m[1])
	} else {
		d.cudaErr = ErrFieldUnsupported
	}
	return d, nil
}

func (d *smiDevice) query(ctx context.Context, fields ...string) ([][]string, error) {
	out, err := d.run(ctx,
		"--query-gpu="+strings.Join(fields, ","),
		"--format=csv,noheader,nounits",
		"--id=0",
	)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(strings.NewReader(string(out)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func (d *smiDevice) Name() (string, error) { return d.name, nil }

func (d *smiDevice) Refresh(ctx context.Context) error {
	rows, err := d.query(ctx, smiFields...)
	if err != nil {
		return fmt.Errorf("query gpu: %w", err)
	}
	if len(rows) == 0 {
		return errors.New("query gpu: empty output")
	}
	row := make(map[string]string, len(smiFields))
	for i, f := range smiFields {
		if i < len(rows[0]) {
			row[f] = rows[0][i]
		}
	}
	d.row = row
	return nil
}

func (d *smiDevice) field(name string) (string, error) {
	v := strings.TrimSpace(d.row[name])
	switch strings.ToLower(v) {
	case "", "n/a", "[n/a]", "[not supported]", "not supported", "[unknown error]":
		return "", ErrFieldUnsupported
	}
	return v, nil
}

func (d *smiDevice) float(name string) (float64, error) {
	v, err := d.field(name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.Fields(v)[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", name, v, err)
	}
	return f, nil
}

func (d *smiDevice) Temperature() (float64, error)     { return d.float("temperature.gpu") }
func (d *smiDevice) FanSpeedPercent() (float64, error) { return d.float("fan.speed") }
func (d *smiDevice) PowerDraw() (float64, error)       { return d.float("power.draw") }
func (d *smiDevice) PowerLimit() (float64, error)      { return d.float("power.limit") }
func (d *smiDevice) Utilization() (float64, error)     { return d.float("utilization.gpu") }

func (d *smiDevice) MemoryUsed() (uint64, error)  { return d.mebibytes("memory.used") }
func (d *smiDevice) MemoryTotal() (uint64, error) { return d.mebibytes("memory.total") }

// mebibytes converts a MiB field to bytes.
func (d *smiDevice) mebibytes(name string) (uint64, error) {
	v, err := d.float(name)
	if err != nil {
		return 0, err
	}
	return uint64(v * 1024 * 1024), nil
}

func (d *smiDevice) DriverVersion() (string, error) { return d.field("driver_version") }
func (d *smiDevice) CUDAVersion() (string, error)   { return d.cuda, d.cudaErr }
