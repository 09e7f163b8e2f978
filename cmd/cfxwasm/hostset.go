package main

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cfxwasm/sdk/application/config"
	"github.com/cfxwasm/sdk/host"
	"github.com/cfxwasm/sdk/hostfuncs"
	"go.uber.org/zap"
)

// hostSet is the group of runtimes sharing one event router.
type hostSet struct {
	router   *hostfuncs.Router
	runtimes []*host.Runtime
	logger   *zap.Logger
}

// newHostSet loads every module into its own runtime. Each runtime gets the
// core natives bound to its resource and resolves refs through the router.
func newHostSet(ctx context.Context, cfg config.Config, logger *zap.Logger, modules []module, opts ...host.Option) (*hostSet, error) {
	hs := &hostSet{
		router: hostfuncs.NewRouter(hostfuncs.WithRouterLogger(logger.Named("router"))),
		logger: logger,
	}
	for _, m := range modules {
		rt, err := hs.load(ctx, cfg, m, opts)
		if err != nil {
			hs.Close(ctx)
			return nil, err
		}
		hs.runtimes = append(hs.runtimes, rt)
	}
	return hs, nil
}

func (hs *hostSet) load(ctx context.Context, cfg config.Config, m module, opts []host.Option) (*host.Runtime, error) {
	natives, err := hostfuncs.NewRegistry(
		hostfuncs.WithBundle(hostfuncs.CoreBundle(hs.router, m.name)),
		hostfuncs.WithMiddleware(
			hostfuncs.PanicRecoveryMiddleware(),
			hostfuncs.LoggingMiddleware(hs.logger.Named("natives").With(zap.String("resource", m.name))),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build natives for %s: %w", m.name, err)
	}

	rtOpts := append([]host.Option{
		host.WithConfig(cfg),
		host.WithLogger(hs.logger),
	}, opts...)
	rtOpts = append(rtOpts,
		host.WithResourceName(m.name),
		host.WithNativeInvoker(natives),
		host.WithRefInvoker(hs.router.InvokeRef),
	)

	rt, err := host.NewRuntime(ctx, rtOpts...)
	if err != nil {
		return nil, err
	}

	server := cfg.Server && !m.client

	// Attached before loading so registrations made while the module
	// initializes are not lost.
	hs.router.Attach(m.name, rt, server)
	if err := rt.LoadModule(ctx, m.wasm, server); err != nil {
		hs.router.Detach(m.name)
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to load %s: %w", m.name, err)
	}
	hs.logger.Info("resource attached", zap.String("resource", m.name), zap.Bool("server", server))
	return rt, nil
}

// Tick runs every module's scheduler once, then delivers the events they
// emitted.
func (hs *hostSet) Tick(ctx context.Context) {
	for _, rt := range hs.runtimes {
		if err := rt.Tick(ctx); err != nil {
			hs.logger.Warn("tick failed", zap.String("resource", rt.ResourceName()), zap.Error(err))
		}
	}
	hs.router.Flush(ctx)
}

// Run ticks on every interval of clk until ctx is done.
func (hs *hostSet) Run(ctx context.Context, clk clock.Clock, interval time.Duration) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.Tick(ctx)
		}
	}
}

// Close detaches and closes every runtime.
func (hs *hostSet) Close(ctx context.Context) {
	for _, rt := range hs.runtimes {
		hs.router.Detach(rt.ResourceName())
		if err := rt.Close(ctx); err != nil {
			hs.logger.Warn("close failed", zap.String("resource", rt.ResourceName()), zap.Error(err))
		}
	}
	hs.runtimes = nil
}
