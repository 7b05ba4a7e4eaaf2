// Command outbox-worker relays pending audit events from the outbox table to
// Kafka. The API server runs an in-process relay when Kafka is configured;
// this binary exists for deployments that scale the relay separately.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordergate/internal/audit"
	"ordergate/internal/platform/config"
	"ordergate/internal/platform/logger"
	"ordergate/internal/platform/postgres"
)

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("outbox worker exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	publisher, err := audit.NewKafkaPublisher(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	defer publisher.Close()

	relay := audit.NewRelay(
		audit.NewOutboxStore(db),
		publisher,
		log,
		audit.WithInterval(time.Second),
		audit.WithBatchSize(200),
	)

	log.Info("outbox worker started", "topic", cfg.Kafka.Topic)
	if err := relay.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("outbox worker stopped")
	return nil
}
