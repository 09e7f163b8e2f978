package main

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cfxwasm/sdk/application/config"
	"github.com/cfxwasm/sdk/host"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type runFlags struct {
	tick          time.Duration
	duration      time.Duration
	metricsAddr   string
	client        bool
	clientModules []string
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <module.wasm>...",
		Short: "Load modules and run the host loop",
		Long: `Load each module as its own resource and tick them until interrupted.

A single module is named by CFXWASM_RESOURCE_NAME; with several, each is
named after its file (adder.wasm runs as "adder").

Modules given with --client-module run as client scripts next to the
others, so server and client modules exchange network events in-process.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args)+len(flags.clientModules) == 0 {
				return stdErrors.New("at least one module is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tick") {
				cfg.TickInterval = flags.tick
			}
			if flags.client {
				cfg.Server = false
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if flags.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, flags.duration)
				defer cancel()
			}

			return run(ctx, cfg, flags, args, logger)
		},
	}

	cmd.Flags().DurationVar(&flags.tick, "tick", 0, "tick interval (overrides CFXWASM_TICK_INTERVAL)")
	cmd.Flags().DurationVar(&flags.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&flags.client, "client", false, "load modules as client scripts")
	cmd.Flags().StringArrayVar(&flags.clientModules, "client-module", nil, "load this module as a client script (repeatable)")
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func run(ctx context.Context, cfg config.Config, flags runFlags, paths []string, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := host.NewMetrics(reg)

	modules, err := readModules(paths, flags.clientModules, cfg.ResourceName)
	if err != nil {
		return err
	}

	hs, err := newHostSet(ctx, cfg, logger, modules,
		host.WithMetrics(metrics),
		host.WithStdout(os.Stdout),
		host.WithStderr(os.Stderr),
	)
	if err != nil {
		return err
	}
	defer hs.Close(context.Background())

	if flags.metricsAddr != "" {
		srv := &http.Server{
			Addr:              flags.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("host started",
		zap.Int("modules", len(modules)),
		zap.Duration("tick", cfg.TickInterval),
		zap.Bool("server", cfg.Server),
		zap.Int("client_modules", len(flags.clientModules)),
	)
	hs.Run(ctx, clock.New(), cfg.TickInterval)
	logger.Info("host stopped")
	return nil
}

type module struct {
	name string
	wasm []byte
	// client forces the module onto the client side regardless of
	// config.Config.Server.
	client bool
}

// readModules reads paths followed by clientPaths. Names come from the file
// names unless exactly one module is given.
func readModules(paths, clientPaths []string, singleName string) ([]module, error) {
	total := len(paths) + len(clientPaths)
	modules := make([]module, 0, total)
	seen := make(map[string]string)
	for i, p := range append(slices.Clone(paths), clientPaths...) {
		wasm, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read module: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if total == 1 {
			name = singleName
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("resource %q is loaded from both %s and %s", name, prev, p)
		}
		seen[name] = p
		modules = append(modules, module{name: name, wasm: wasm, client: i >= len(paths)})
	}
	return modules, nil
}
