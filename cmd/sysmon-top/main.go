package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kazuninishiki/SysMonServer/internal/config"
	"github.com/kazuninishiki/SysMonServer/internal/stream"
	"github.com/kazuninishiki/SysMonServer/internal/ui"
)

func main() {
	cfg, err := config.TopFromFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "sysmon-top: %v\n", err)
		os.Exit(2)
	}

	// Logs are discarded unless SYSMON_TOP_DEBUG is set.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("SYSMON_TOP_DEBUG") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := stream.New(cfg, logger)
	m := ui.New(client.Stream(ctx), client, cfg.IntervalMs)

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "sysmon-top: %v\n", err)
		os.Exit(1)
	}
}
