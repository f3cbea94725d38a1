package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/footprint/internal/api"
	"example.com/footprint/internal/auth"
	"example.com/footprint/internal/config"
	"example.com/footprint/internal/logging"
	"example.com/footprint/internal/outbox"
	"example.com/footprint/internal/persistence/memory"
	persistence "example.com/footprint/internal/persistence/postgres"
	"example.com/footprint/internal/referencedata"
	"example.com/footprint/internal/supervisor"
	httptransport "example.com/footprint/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Msg("footprint api exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	logger := logging.Component("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	airports, err := referencedata.NewAirportStore()
	if err != nil {
		return fmt.Errorf("load airports: %w", err)
	}
	regions, err := referencedata.NewRegionStore()
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	repos := api.Repositories{Airports: airports, Regions: regions}

	tree := supervisor.NewTree("footprint-api", logging.Component("supervisor"), supervisor.TreeConfig{})

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		repos.Activities = persistence.NewActivityRepository(pool)
		repos.Factors = persistence.NewEmissionFactorRepository(pool)
		repos.Users = persistence.NewUserRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.Kafka.SchemaRegistryURL, outbox.BreakerConfig{
			FailureThreshold: cfg.Outbox.BreakerThreshold,
			OpenTimeout:      cfg.Outbox.BreakerTimeout,
		})
		tree.AddBackgroundService(outbox.NewDispatcher(pool, producer, registry, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize))
	default:
		factors, err := memory.NewSeededEmissionFactorRepository()
		if err != nil {
			return fmt.Errorf("seed emission factors: %w", err)
		}
		repos.Activities = memory.NewActivityRepository()
		repos.Factors = factors
		repos.Users = memory.NewUserRepository()
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
	}

	authCfg := auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.JWTIssuer, Audience: cfg.Auth.JWTAudience}
	handler := api.NewHandler(api.NewServices(repos), authCfg).Routes(api.RouterConfig{
		Auth:        authCfg,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		RateLimit:   cfg.HTTP.RateLimit,
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTP.Address,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, handler)
	tree.AddAPIService(httptransport.NewService("http-server", server, 0))

	logger.Info().Str("address", cfg.HTTP.Address).Str("storage", cfg.Storage.Driver).Msg("footprint api listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("footprint api stopped")
	return nil
}
