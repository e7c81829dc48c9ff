package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/balhun/ISSTracker/internal/api"
	"github.com/balhun/ISSTracker/internal/app"
	"github.com/balhun/ISSTracker/internal/observability"
	"github.com/balhun/ISSTracker/internal/scene"
	"github.com/balhun/ISSTracker/internal/stream"
	"github.com/balhun/ISSTracker/internal/telemetry"
	"github.com/balhun/ISSTracker/internal/tle"
	"github.com/balhun/ISSTracker/internal/track"
	"github.com/balhun/ISSTracker/web"
)

func (c *cli) serve(ctx context.Context) error {
	cfg, logger := c.cfg, c.logger
	logger.Info("config", cfg.LogAttrs()...)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("initialising tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	sampler := track.NewSampler(cfg.Orbit, logger.With("component", "sampler"))
	orbits, err := track.NewCache(sampler, cfg.OrbitCacheSize)
	if err != nil {
		return err
	}

	hub := stream.NewHub()
	tracker := app.New(
		telemetry.NewClient(cfg.TelemetryURL, httpClient),
		tle.NewFetcher(cfg.TLEURL, httpClient),
		sampler,
		hub,
		app.Config{
			PollInterval: cfg.PollInterval,
			OrbitRefresh: cfg.OrbitRefresh,
			Scene:        scene.DefaultOptions(),
		},
		logger.With("component", "tracker"),
	)

	srv := api.NewServer(cfg.HTTPAddr, logger, api.Deps{
		Tracker:    tracker,
		Orbits:     orbits,
		Stream:     stream.NewHandler(hub, cfg.Stream, logger.With("component", "stream")),
		Static:     web.Content,
		TrustProxy: cfg.Stream.TrustProxy,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tracker.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
