package payment

import (
	"context"
	"errors"
	"log/slog"

	dErrors "ordergate/pkg/domain-errors"
	"ordergate/pkg/platform/circuit"
	"ordergate/pkg/platform/sentinel"
	"ordergate/pkg/requestcontext"
)

// Processor sequences one authorization attempt. It never retries a failed
// authorization automatically: a retry risks double-charging, so a new
// attempt must be explicitly initiated by the client (which may reuse its
// idempotency token and get the cached transaction back).
type Processor struct {
	gateway Gateway
	idem    IdempotencyStore
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type ProcessorOption func(*Processor)

func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logger }
}

func WithBreaker(b *circuit.Breaker) ProcessorOption {
	return func(p *Processor) { p.breaker = b }
}

// NewProcessor constructs a Processor.
func NewProcessor(gateway Gateway, idem IdempotencyStore, opts ...ProcessorOption) *Processor {
	p := &Processor{
		gateway: gateway,
		idem:    idem,
		breaker: circuit.New("payment-gateway", circuit.WithFailureThreshold(5)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authorize authorizes funds for the given amount. When the request carries
// an idempotency token and a prior authorization exists for it, that
// transaction is returned without contacting the gateway.
func (p *Processor) Authorize(ctx context.Context, card Card, amountCents int64) (Transaction, error) {
	token := requestcontext.IdempotencyKey(ctx)
	if token != "" {
		cached, err := p.idem.Get(ctx, token)
		if err != nil {
			p.logger.WarnContext(ctx, "idempotency lookup failed, proceeding without cache",
				"error", err.Error(),
			)
		} else if cached != nil {
			return *cached, nil
		}
	}

	if p.breaker.IsOpen() {
		return Transaction{}, dErrors.New(dErrors.CodePaymentGatewayUnavailable,
			"payment gateway temporarily unavailable")
	}

	txn, err := p.gateway.Authorize(ctx, card, amountCents, token)
	if err != nil {
		var decline *DeclineError
		if errors.As(err, &decline) {
			// A decline is a gateway answer, not a gateway outage.
			p.breaker.RecordSuccess()
			return Transaction{}, dErrors.New(dErrors.CodePaymentDeclined, "card declined").
				WithReasons(decline.ReasonCodes)
		}
		if errors.Is(err, sentinel.ErrUnavailable) {
			if _, change := p.breaker.RecordFailure(); change.Opened {
				p.logger.ErrorContext(ctx, "payment gateway circuit opened")
			}
			return Transaction{}, dErrors.Wrap(err, dErrors.CodePaymentGatewayUnavailable,
				"payment gateway unreachable")
		}
		p.breaker.RecordFailure()
		return Transaction{}, dErrors.Wrap(err, dErrors.CodeInternal, "payment authorization failed")
	}

	p.breaker.RecordSuccess()

	if token != "" {
		if err := p.idem.Put(ctx, token, txn); err != nil {
			p.logger.WarnContext(ctx, "failed to record idempotency entry",
				"error", err.Error(),
			)
		}
	}
	return txn, nil
}
