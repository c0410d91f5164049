// Command finboard-api serves the expense REST API.
package main

import (
	"context"
	"errors"
	"net"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/api"
	"finboard/internal/cli"
	"finboard/internal/config"
	applog "finboard/internal/log"
	"finboard/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		cli.Fatal(applog.New(applog.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentAPI)
	logger.InfoContext(context.Background(), "Starting finboard-api", "port", cfg.APIPort, "db", cfg.ExpensesDBPath)

	repo, err := storage.NewSQLiteRepository(cfg.ExpensesDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err)
	}
	defer repo.Close()

	// A nil publisher disables change events.
	var publisher api.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer client.Close()
		publisher = client
		logger.InfoContext(context.Background(), "Publishing expense events", "exchange", cfg.AMQPExchange)
	} else {
		logger.InfoContext(context.Background(), "AMQP disabled - no AMQP_URL provided")
	}

	srv := api.NewServer(net.JoinHostPort("", cfg.APIPort), repo, publisher, api.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, stop := cli.SignalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cli.ServeHTTP(gctx, logger, &srv.Server, srv.Shutdown) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "finboard-api stopped with error", err)
	}
	logger.InfoContext(context.Background(), "finboard-api shutdown complete")
}
