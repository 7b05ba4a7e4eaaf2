// Command server runs the order compliance API: checkout pipeline, order
// reads, health, and metrics. With DATABASE_URL set it persists to PostgreSQL
// and relays audit events through the outbox; without it, everything runs in
// memory for local development.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ordergate/internal/address"
	"ordergate/internal/ageverify"
	"ordergate/internal/audit"
	"ordergate/internal/compliance"
	"ordergate/internal/order"
	"ordergate/internal/order/handler"
	"ordergate/internal/order/service"
	"ordergate/internal/payment"
	"ordergate/internal/platform/config"
	"ordergate/internal/platform/httpserver"
	"ordergate/internal/platform/logger"
	"ordergate/internal/platform/metrics"
	"ordergate/internal/platform/middleware"
	"ordergate/internal/platform/postgres"
	"ordergate/internal/platform/redis"
	"ordergate/internal/product"
	"ordergate/internal/stakecall"
	"ordergate/pkg/platform/httputil"
)

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	m := metrics.New()

	var (
		db          *sql.DB
		stores      service.Stores
		auditStore  audit.Store
		outboxStore *audit.OutboxStore
		committer   service.Committer
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		stores = service.Stores{
			Addresses:        address.NewPostgres(db),
			Products:         product.NewPostgres(db),
			AgeVerifications: ageverify.NewPostgres(db),
			StakeCalls:       stakecall.NewPostgres(db),
			Snapshots:        compliance.NewPostgres(db),
			Orders:           order.NewPostgres(db),
		}
		outboxStore = audit.NewOutboxStore(db)
		auditStore = outboxStore
		committer = service.NewSQLCommitter(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		stores = service.Stores{
			Addresses:        address.NewMemoryStore(),
			Products:         product.NewMemoryStore(),
			AgeVerifications: ageverify.NewMemoryStore(),
			StakeCalls:       stakecall.NewMemoryStore(),
			Snapshots:        compliance.NewMemoryStore(),
			Orders:           order.NewMemoryStore(),
		}
		auditStore = audit.NewMemoryStore()
		committer = service.NopCommitter{}
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	verifier := ageverify.NewVerifier(
		ageverify.NewHTTPProvider(cfg.AgeVerification),
		cfg.AgeVerification.MinimumAge,
		ageverify.WithLogger(log),
		ageverify.WithMaxRetries(cfg.AgeVerification.MaxRetries),
	)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
	}
	if cfg.Payment.Enabled {
		var idem payment.IdempotencyStore = payment.NewMemoryIdempotencyStore()
		if redisClient != nil {
			idem = payment.NewRedisIdempotencyStore(redisClient.Client, cfg.Payment.IdempotencyTTL)
		}
		processor := payment.NewProcessor(
			payment.NewHTTPGateway(cfg.Payment),
			idem,
			payment.WithLogger(log),
		)
		var payStore service.PaymentStore = payment.NewMemoryStore()
		if db != nil {
			payStore = payment.NewPostgres(db)
		}
		opts = append(opts, service.WithPayment(processor, payStore))
	}

	svc := service.New(
		stores,
		address.NewValidator(),
		verifier,
		stakecall.NewEvaluator(),
		audit.NewPublisher(auditStore),
		committer,
		opts...,
	)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RequestTime,
		middleware.ClientMetadata,
		middleware.IdempotencyKey,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.Timeout(60*time.Second),
		middleware.ContentTypeJSON,
	)
	router.Get("/healthz", healthz(db, redisClient))
	router.Handle("/metrics", promhttp.Handler())
	handler.New(svc, middleware.NewJWTValidator(cfg.JWTSigningKey), log).Register(router)

	server := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Kafka.Enabled && outboxStore != nil {
		publisher, err := audit.NewKafkaPublisher(ctx, cfg.Kafka)
		if err != nil {
			return err
		}
		defer publisher.Close()
		relay := audit.NewRelay(outboxStore, publisher, log)
		g.Go(func() error {
			if err := relay.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// healthz reports liveness of the process and its backing stores.
func healthz(db *sql.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded", "database": err.Error(),
				})
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded", "redis": err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
