package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"
)

// TopConfig carries options for the terminal dashboard client.
type TopConfig struct {
	URL            string
	IntervalMs     int
	ReconnectDelay time.Duration
}

func DefaultTop() TopConfig {
	return TopConfig{URL: "ws://127.0.0.1:9876/ws", ReconnectDelay: 2 * time.Second}
}

// TopFromFlags parses sysmon-top flags. SYSMON_URL overrides the default URL.
func TopFromFlags(args []string, stderr io.Writer) (TopConfig, error) {
	cfg := DefaultTop()
	if v := os.Getenv("SYSMON_URL"); v != "" {
		cfg.URL = v
	}
	fs := flag.NewFlagSet("sysmon-top", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.URL, "url", cfg.URL, "live channel URL")
	fs.IntVar(&cfg.IntervalMs, "interval", 0, "request this update interval in ms on connect (0 keeps the server's)")
	fs.DurationVar(&cfg.ReconnectDelay, "reconnect", cfg.ReconnectDelay, "delay between reconnect attempts")
	if err := fs.Parse(args); err != nil {
		return TopConfig{}, err
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return TopConfig{}, fmt.Errorf("url %q must be a ws:// or wss:// URL", cfg.URL)
	}
	if cfg.IntervalMs != 0 && (cfg.IntervalMs < 100 || cfg.IntervalMs > 10000) {
		return TopConfig{}, fmt.Errorf("interval %dms must be between 100 and 10000", cfg.IntervalMs)
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultTop().ReconnectDelay
	}
	return cfg, nil
}
