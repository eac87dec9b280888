package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ronojak/Relay-App/internal/admin"
	"github.com/ronojak/Relay-App/internal/config"
	"github.com/ronojak/Relay-App/pkg/input"
	"github.com/ronojak/Relay-App/pkg/pipeline"
	"github.com/ronojak/Relay-App/pkg/relay"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		synthetic  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay",
		Long: `Start the relay server and input pipeline.

Configuration comes from relay.yaml (or --config), overridden by
RELAY_* environment variables and flags. With --synthetic the relay
feeds itself generated samples instead of a capture backend, which is
useful for development and for soak-testing clients.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("synthetic") {
				cfg.Input.Synthetic = synthetic
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to relay.yaml")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "TCP listen port")
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "Generate synthetic input samples")

	return cmd
}

func runServe(cfg *config.Config) error {
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()

	relayCfg := relay.DefaultConfig()
	relayCfg.Port = cfg.Server.Port
	relayCfg.QueueCapacity = cfg.Server.QueueCapacity
	relayCfg.KeepAlivePeriod = cfg.Server.KeepAlivePeriod
	relayCfg.Logger = logger
	relayCfg.Metrics = relay.NewMetrics(registry)

	normCfg := input.DefaultConfig()
	normCfg.StickDeadzone = cfg.Input.StickDeadzone
	normCfg.TriggerDeadzone = cfg.Input.TriggerDeadzone
	normCfg.MinEmitInterval = cfg.Input.MinEmitInterval()
	normCfg.Logger = logger

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.Relay = relayCfg
	pipeCfg.Normalizer = normCfg
	pipeCfg.Logger = logger

	orch := pipeline.New(pipeCfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("relay start: %w", err)
	}
	defer orch.Stop()

	logger.Info("relay ready",
		"addr", orch.Server().Addr().String(),
		"version", version)

	var adminSrv *admin.Server
	if cfg.Admin.Enabled {
		adminSrv = admin.New(&admin.Config{
			Addr:     cfg.Admin.Addr,
			Pipeline: orch,
			Registry: registry,
			Logger:   logger,
		})
		if err := adminSrv.Start(); err != nil {
			return fmt.Errorf("admin start: %w", err)
		}
	}

	if cfg.Input.Synthetic {
		gen := input.NewSynthesizer(1)
		go gen.Run(ctx, orch.Normalizer(), cfg.Input.MaxRate)
		logger.Info("synthetic input enabled", "rate", cfg.Input.MaxRate)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if adminSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin shutdown", "error", err)
		}
	}
	return nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
