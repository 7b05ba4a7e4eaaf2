package ageverify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"ordergate/pkg/platform/sentinel"
	"ordergate/pkg/requestcontext"
)

// Provider is the raw external adapter. Implementations return
// sentinel.ErrUnavailable (wrapped) for transient failures so the verifier
// knows what is safe to retry.
type Provider interface {
	Verify(ctx context.Context, req Request) (Result, error)
}

// Verifier wraps a Provider with the local age precheck and bounded retry.
// Verify always returns a Result with a definite Status; the error return is
// reserved for context cancellation and programming errors.
type Verifier struct {
	provider   Provider
	minimumAge int
	maxRetries uint64
	logger     *slog.Logger
}

type Option func(*Verifier)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) { v.logger = logger }
}

func WithMaxRetries(n uint64) Option {
	return func(v *Verifier) { v.maxRetries = n }
}

// NewVerifier constructs a Verifier enforcing the given minimum age.
func NewVerifier(provider Provider, minimumAge int, opts ...Option) *Verifier {
	v := &Verifier{
		provider:   provider,
		minimumAge: minimumAge,
		maxRetries: 3,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs the local precheck and, if inconclusive, calls the provider.
//
// Retry policy: only transient failures (sentinel.ErrUnavailable) are
// retried, with backoff, up to maxRetries. A DECLINED result is a final
// provider determination and is never retried. Exhausted retries yield
// StatusError, which callers must treat as "no determination", not a decline.
func (v *Verifier) Verify(ctx context.Context, req Request) (Result, error) {
	now := requestcontext.Now(ctx)

	if Age(req.DateOfBirth, now) < v.minimumAge {
		return Result{
			ID:         uuid.New(),
			Status:     StatusDeclined,
			ReasonCode: ReasonUnderage,
			Message:    "customer does not meet the minimum age requirement",
			VerifiedAt: now,
		}, nil
	}

	var result Result
	operation := func() error {
		res, err := v.provider.Verify(ctx, req)
		if err != nil {
			if errors.Is(err, sentinel.ErrUnavailable) {
				v.logger.WarnContext(ctx, "age verification provider unavailable, retrying",
					"error", err.Error(),
				)
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackOff(), v.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if errors.Is(err, sentinel.ErrUnavailable) {
			return Result{
				ID:         uuid.New(),
				Status:     StatusError,
				ReasonCode: ReasonUnavailable,
				Message:    "age verification provider unreachable",
				VerifiedAt: now,
			}, nil
		}
		return Result{}, err
	}

	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	if result.VerifiedAt.IsZero() {
		result.VerifiedAt = now
	}
	return result, nil
}

func newExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}
