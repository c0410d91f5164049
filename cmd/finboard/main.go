// Command finboard serves the personal finance dashboard.
package main

import (
	"context"
	"errors"
	"net"

	"golang.org/x/sync/errgroup"

	"finboard/internal/apiclient"
	"finboard/internal/cli"
	"finboard/internal/config"
	apphttp "finboard/internal/http"
	applog "finboard/internal/log"
	"finboard/internal/scheduler"
	"finboard/internal/session"
	"finboard/internal/state"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		cli.Fatal(applog.New(applog.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	logger.InfoContext(context.Background(), "Starting finboard", "port", cfg.Port, "api", cfg.APIBaseURL)

	store, err := state.NewSQLiteStore(cfg.StateDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to open state store", err)
	}
	defer store.Close()

	sess := session.New(apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout), store, session.Config{
		Budget: cfg.Budget,
		Logger: logger,
	})

	ctx, stop := cli.SignalContext()
	defer stop()

	// A failed fetch is kept in the error slot; the dashboard still starts.
	if err := sess.Load(ctx); err != nil {
		logger.WarnContext(ctx, "Initial load incomplete", applog.FieldError, err)
	}

	sched, err := scheduler.New(cfg.StreakCron, sess, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to schedule streak evaluation", err)
	}

	srv := apphttp.NewServer(net.JoinHostPort("", cfg.Port), sess, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheTTL:           cfg.CacheTTL,
		Ready:              store.Ping,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cli.ServeHTTP(gctx, logger, &srv.Server, srv.Shutdown) })
	g.Go(func() error { return sched.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "finboard stopped with error", err)
	}
	logger.InfoContext(context.Background(), "finboard shutdown complete")
}
