package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/kazuninishiki/SysMonServer/internal/config"
	"github.com/kazuninishiki/SysMonServer/internal/hub"
	"github.com/kazuninishiki/SysMonServer/internal/registry"
	"github.com/kazuninishiki/SysMonServer/internal/sampler"
	"github.com/kazuninishiki/SysMonServer/internal/server"
	"github.com/kazuninishiki/SysMonServer/internal/source"
)

func main() {
	cfg, err := config.FromFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "sysmon: %v\n", err)
		os.Exit(2)
	}

	logger := buildLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("sysmon failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("cannot bind %s (port in use?): %w", cfg.Addr(), err)
	}

	cadence := sampler.NewCadence(cfg.IntervalMs)
	reg := registry.New(cadence, logger)
	h := hub.New(cfg.QueueSize, logger)
	smp := sampler.New(ctx, source.NewDefault(ctx, cfg.EnableGPU, logger), reg, h, cadence,
		sampler.Options{ReferenceMbps: cfg.NetworkReferenceMbps}, logger)
	srv := server.New(smp, reg, h, server.Options{
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	logger.Info("system monitor server listening",
		"addr", ln.Addr().String(),
		"interval_ms", cadence.Milliseconds(),
		"stats", fmt.Sprintf("http://%s/api/stats", ln.Addr()),
		"ws", fmt.Sprintf("ws://%s/ws", ln.Addr()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return smp.Run(gctx) })
	g.Go(func() error { return srv.Serve(gctx, ln) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("system monitor server stopped")
	return nil
}

func buildLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(w, hOpts))
	}
	return slog.New(slog.NewTextHandler(w, hOpts))
}
