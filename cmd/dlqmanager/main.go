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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/footprint/internal/config"
	"example.com/footprint/internal/logging"
	"example.com/footprint/internal/outbox"
	"example.com/footprint/internal/supervisor"
	httptransport "example.com/footprint/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Msg("dlq manager exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	logger := logging.Component("dlq-manager")

	if cfg.Storage.Driver != config.StoragePostgres {
		return fmt.Errorf("dlq manager requires storage.driver=%s", config.StoragePostgres)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Storage.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	tree := supervisor.NewTree("footprint-dlq", logging.Component("supervisor"), supervisor.TreeConfig{})
	tree.AddBackgroundService(outbox.NewDLQManager(pool, outbox.DLQConfig{
		MaxRetries:   cfg.DLQ.MaxRetries,
		BaseDelay:    cfg.DLQ.BaseDelay,
		PollInterval: cfg.DLQ.PollInterval,
		BatchSize:    cfg.DLQ.BatchSize,
	}))
	tree.AddAPIService(httptransport.NewService("metrics-server", &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}, 10*time.Second))

	logger.Info().Dur("interval", cfg.DLQ.PollInterval).Int("max_retries", cfg.DLQ.MaxRetries).Msg("dlq manager started")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
