package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries runtime options for the sysmon server.
type Config struct {
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	IntervalMs           int           `yaml:"interval_ms"`
	QueueSize            int           `yaml:"queue_size"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"`
	NetworkReferenceMbps float64       `yaml:"network_reference_mbps"`
	EnableGPU            bool          `yaml:"enable_gpu"`
	LogLevel             string        `yaml:"log_level"`
	LogJSON              bool          `yaml:"log_json"`
}

func Default() Config {
	return Config{
		Host:                 "0.0.0.0",
		Port:                 9876,
		IntervalMs:           1000,
		QueueSize:            4,
		WriteTimeout:         5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		NetworkReferenceMbps: 100,
		EnableGPU:            true,
		LogLevel:             "info",
		LogJSON:              false,
	}
}

// Addr is the listen address.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// FromFlags builds a Config from defaults, then the optional YAML file named
// by -config, then SYSMON_* environment variables, then explicit flags.
func FromFlags(args []string, stderr io.Writer) (Config, error) {
	cfg := Default()

	var (
		path     string
		host     string
		port     int
		interval int
		debug    bool
		noGPU    bool
		logJSON  bool
	)
	fs := flag.NewFlagSet("sysmon", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&path, "config", "", "path to YAML config file")
	fs.StringVar(&host, "host", cfg.Host, "server host")
	fs.IntVar(&port, "port", cfg.Port, "server port")
	fs.IntVar(&port, "p", cfg.Port, "server port (shorthand)")
	fs.IntVar(&interval, "interval", cfg.IntervalMs, "update interval in ms (100-10000)")
	fs.IntVar(&interval, "i", cfg.IntervalMs, "update interval in ms (shorthand)")
	fs.BoolVar(&debug, "debug", false, "enable debug logging")
	fs.BoolVar(&noGPU, "no-gpu", false, "disable GPU sampling")
	fs.BoolVar(&logJSON, "log-json", cfg.LogJSON, "emit JSON logs")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = host
		case "port", "p":
			cfg.Port = port
		case "interval", "i":
			cfg.IntervalMs = interval
		case "debug":
			if debug {
				cfg.LogLevel = "debug"
			}
		case "no-gpu":
			cfg.EnableGPU = !noGPU
		case "log-json":
			cfg.LogJSON = logJSON
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. A missing file is not an
// error.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SYSMON_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("SYSMON_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SYSMON_PORT: %w", err)
		}
		cfg.Port = n
	}
	if v := os.Getenv("SYSMON_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSuffix(v, "ms"))
		if err != nil {
			return fmt.Errorf("SYSMON_INTERVAL_MS: %w", err)
		}
		cfg.IntervalMs = n
	}
	if v := os.Getenv("SYSMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SYSMON_LOG_JSON"); v != "" {
		cfg.LogJSON = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SYSMON_GPU"); v == "0" || strings.EqualFold(v, "false") {
		cfg.EnableGPU = false
	}
	return nil
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.IntervalMs < 100 || c.IntervalMs > 10000 {
		return fmt.Errorf("interval %dms must be between 100 and 10000", c.IntervalMs)
	}
	if c.QueueSize <= 0 {
		return errors.New("queue_size must be > 0")
	}
	if c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("timeouts must be > 0")
	}
	if c.NetworkReferenceMbps <= 0 {
		return errors.New("network_reference_mbps must be > 0")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.LogLevel)
	}
	return nil
}
