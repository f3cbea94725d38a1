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
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"example.com/footprint/internal/config"
	"example.com/footprint/internal/consumer"
	"example.com/footprint/internal/logging"
	httptransport "example.com/footprint/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Msg("footprint consumer exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	logger := logging.Component("consumer")

	if cfg.Storage.Driver != config.StoragePostgres {
		return fmt.Errorf("consumer requires storage.driver=%s", config.StoragePostgres)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Storage.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	handler := consumer.Chain{
		consumer.NewPersistenceHandler(pool),
		consumer.NewFootprintProjector(),
	}

	group, ctx := errgroup.WithContext(ctx)

	metrics := httptransport.NewService("metrics-server", &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}, 10*time.Second)
	group.Go(func() error { return metrics.Serve(ctx) })

	for _, topic := range cfg.Consumer.Topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.Kafka.Brokers,
			GroupID:         cfg.Consumer.GroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger.With().Str("topic", topic).Logger()))

		group.Go(func() error {
			defer reader.Close()
			logger.Info().Str("topic", topic).Str("group", cfg.Consumer.GroupID).Msg("consumer started")
			return proc.Run(ctx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("consumer stopped")
	return nil
}
