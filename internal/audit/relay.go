package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	txcontext "ordergate/pkg/platform/tx"
)

// BrokerPublisher delivers one outbox entry to the message broker.
type BrokerPublisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Relay polls the outbox and publishes pending entries to the broker. Each
// batch is fetched, published, and marked inside one transaction so a crash
// republishes rather than drops; consumers must tolerate duplicates.
type Relay struct {
	outbox    *OutboxStore
	publisher BrokerPublisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) { r.interval = d }
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) { r.batchSize = n }
}

func NewRelay(outbox *OutboxStore, publisher BrokerPublisher, logger *slog.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		logger:    logger,
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox batch failed", "error", err.Error())
			}
		}
	}
}

func (r *Relay) processBatch(ctx context.Context) error {
	return txcontext.Run(ctx, r.outbox.DB(), func(ctx context.Context) error {
		entries, err := r.outbox.FetchPending(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		published := make([]uuid.UUID, 0, len(entries))
		for _, entry := range entries {
			if err := r.publisher.Publish(ctx, entry.AggregateID, entry.Payload); err != nil {
				r.logger.WarnContext(ctx, "publish failed, entry stays pending",
					"entry_id", entry.ID.String(),
					"error", err.Error(),
				)
				break
			}
			published = append(published, entry.ID)
		}
		return r.outbox.MarkPublished(ctx, published)
	})
}
