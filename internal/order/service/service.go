// Package service orchestrates the checkout pipeline: address eligibility,
// age verification, stake call evaluation, compliance snapshot, optional
// payment authorization, and the atomic commit of the order aggregate.
//
// Stage ordering is load-bearing. No payment authorization may happen before
// every compliance gate has passed, and nothing is persisted unless the whole
// pipeline succeeds.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ordergate/internal/address"
	"ordergate/internal/ageverify"
	"ordergate/internal/audit"
	"ordergate/internal/compliance"
	"ordergate/internal/order"
	"ordergate/internal/payment"
	"ordergate/internal/platform/metrics"
	"ordergate/internal/product"
	"ordergate/internal/stakecall"
	dErrors "ordergate/pkg/domain-errors"
	"ordergate/pkg/platform/sentinel"
	"ordergate/pkg/requestcontext"
)

// Pipeline stage labels used for metrics and audit.
const (
	stageValidation      = "validation"
	stageAddress         = "address_validation"
	stageAgeVerification = "age_verification"
	stagePayment         = "payment"
	stageCommit          = "commit"
)

// Dependencies are declared here, where they are consumed.

type AddressStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (address.Address, error)
}

type AddressValidator interface {
	Validate(addr address.Address) error
}

type ProductStore interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]product.Product, error)
}

type AgeVerifier interface {
	Verify(ctx context.Context, req ageverify.Request) (ageverify.Result, error)
}

type AgeVerificationStore interface {
	Create(ctx context.Context, result ageverify.Result) error
	FindByID(ctx context.Context, id uuid.UUID) (ageverify.Result, error)
}

type StakeCallEvaluator interface {
	Evaluate(c stakecall.OrderContext, now time.Time) stakecall.Evaluation
}

type StakeCallStore interface {
	Create(ctx context.Context, call stakecall.StakeCall) error
	FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (stakecall.StakeCall, error)
	Resolve(ctx context.Context, id uuid.UUID, result stakecall.Result, reasonCode string, at time.Time) error
}

type SnapshotStore interface {
	Create(ctx context.Context, snap compliance.Snapshot) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) (compliance.Snapshot, error)
}

type PaymentAuthorizer interface {
	Authorize(ctx context.Context, card payment.Card, amountCents int64) (payment.Transaction, error)
}

type PaymentStore interface {
	Create(ctx context.Context, txn payment.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (payment.Transaction, error)
}

type OrderStore interface {
	Create(ctx context.Context, ord order.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (order.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to order.Status, at time.Time) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Committer runs fn atomically. The SQL implementation opens a transaction
// and carries it in the context so every store joins it; the no-op
// implementation backs memory stores, which commit as they go.
type Committer interface {
	Commit(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the checkout orchestrator.
type Service struct {
	addresses  AddressStore
	validator  AddressValidator
	products   ProductStore
	verifier   AgeVerifier
	ageStore   AgeVerificationStore
	evaluator  StakeCallEvaluator
	stakeStore StakeCallStore
	builder    compliance.Builder
	snapshots  SnapshotStore
	payments   PaymentAuthorizer
	payStore   PaymentStore
	orders     OrderStore
	auditor    AuditPublisher
	committer  Committer

	paymentEnabled bool
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPayment wires the payment gateway. Without it, requests carrying
// payment details are rejected and orders commit as AWAITING_PAYMENT.
func WithPayment(authorizer PaymentAuthorizer, store PaymentStore) Option {
	return func(s *Service) {
		s.payments = authorizer
		s.payStore = store
		s.paymentEnabled = true
	}
}

// Stores groups the persistence dependencies so New stays readable.
type Stores struct {
	Addresses        AddressStore
	Products         ProductStore
	AgeVerifications AgeVerificationStore
	StakeCalls       StakeCallStore
	Snapshots        SnapshotStore
	Orders           OrderStore
}

func New(
	stores Stores,
	validator AddressValidator,
	verifier AgeVerifier,
	evaluator StakeCallEvaluator,
	auditor AuditPublisher,
	committer Committer,
	opts ...Option,
) *Service {
	s := &Service{
		addresses:  stores.Addresses,
		validator:  validator,
		products:   stores.Products,
		verifier:   verifier,
		ageStore:   stores.AgeVerifications,
		evaluator:  evaluator,
		stakeStore: stores.StakeCalls,
		builder:    compliance.NewBuilder(),
		snapshots:  stores.Snapshots,
		orders:     stores.Orders,
		auditor:    auditor,
		committer:  committer,
		logger:     slog.Default(),
		tracer:     otel.Tracer("ordergate/order"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder runs the full pipeline for one checkout attempt. On any stage
// failure nothing is persisted except the audit record of the attempt; there
// is never a partially created order.
func (s *Service) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (order.CreateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.create")
	defer span.End()

	start := time.Now()
	now := requestcontext.Now(ctx).UTC()

	req.Normalize()
	if err := req.Validate(now); err != nil {
		return s.fail(ctx, span, stageValidation, err)
	}
	if req.Payment != nil && !s.paymentEnabled {
		return s.fail(ctx, span, stageValidation,
			dErrors.New(dErrors.CodeValidation, "payment is not available on this deployment"))
	}

	shipping, err := s.loadAddresses(ctx, req)
	if err != nil {
		return s.fail(ctx, span, stageValidation, err)
	}

	products, items, totalCents, err := s.loadItems(ctx, req.Items)
	if err != nil {
		return s.fail(ctx, span, stageValidation, err)
	}

	// Stage 1: address eligibility. Deterministic, never retried.
	if err := s.validator.Validate(shipping); err != nil {
		return s.fail(ctx, span, stageAddress, err)
	}

	// Stage 2: age verification. The verifier retries transient provider
	// failures internally; a DECLINED determination is final.
	dob, _ := ageverify.ParseDateOfBirth(req.DateOfBirth)
	verification, err := s.verifier.Verify(ctx, ageverify.Request{
		FirstName:   req.CustomerFirstName,
		LastName:    req.CustomerLastName,
		DateOfBirth: dob,
		Address:     &shipping,
	})
	if err != nil {
		return s.fail(ctx, span, stageAgeVerification, err)
	}
	switch verification.Status {
	case ageverify.StatusApproved:
	case ageverify.StatusDeclined:
		return s.fail(ctx, span, stageAgeVerification,
			dErrors.New(dErrors.CodeAgeVerificationFailed, "age verification failed").
				WithReason(verification.ReasonCode))
	default:
		// ERROR and PENDING both mean "no determination". Never treated as
		// a decline; the client should retry later.
		return s.fail(ctx, span, stageAgeVerification,
			dErrors.New(dErrors.CodeAgeVerificationUnavailable,
				"age verification is temporarily unavailable"))
	}

	// Stage 3: stake call evaluation. Only records the obligation; the live
	// re-contact happens after checkout.
	var accountID *uuid.UUID
	if id, ok := requestcontext.AccountID(ctx); ok {
		accountID = &id
	}
	evaluation := s.evaluator.Evaluate(stakecall.OrderContext{
		AccountID:          accountID,
		ShippingAddressID:  shipping.ID,
		FirstTimeRecipient: req.IsFirstTimeRecipient,
	}, now)

	// Stage 4: freeze the compliance snapshot.
	snap := s.builder.Build(verification, compliance.AddressEligibility{
		AddressID: shipping.ID,
		Eligible:  true,
		PoBox:     false,
	}, productFlags(products), now)

	// Stage 5: payment, only after every compliance gate has passed.
	var txn *payment.Transaction
	if req.Payment != nil {
		authorized, err := s.payments.Authorize(ctx, payment.Card{
			Number:         req.Payment.CardNumber,
			ExpirationDate: req.Payment.ExpirationDate,
			CVV:            req.Payment.CVV,
		}, totalCents)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodePaymentDeclined) {
				s.metrics.RecordPaymentDecline()
			}
			return s.fail(ctx, span, stagePayment, err)
		}
		txn = &authorized
	}

	// Stage 6: assemble and commit atomically.
	ord := order.Order{
		ID:                uuid.New(),
		AccountID:         accountID,
		ShippingAddressID: shipping.ID,
		BillingAddressID:  req.BillingAddressID,
		Status:            orderStatus(evaluation.Required, txn != nil),
		Items:             items,
		TotalCents:        totalCents,
		AgeVerificationID: verification.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if evaluation.Required {
		evaluation.StakeCall.OrderID = ord.ID
		ord.StakeCallID = &evaluation.StakeCall.ID
	}
	if txn != nil {
		ord.PaymentTransactionID = &txn.ID
	}
	snap.OrderID = ord.ID

	err = s.committer.Commit(ctx, func(ctx context.Context) error {
		if err := s.ageStore.Create(ctx, verification); err != nil {
			return err
		}
		if evaluation.Required {
			if err := s.stakeStore.Create(ctx, *evaluation.StakeCall); err != nil {
				return err
			}
		}
		if txn != nil {
			if err := s.payStore.Create(ctx, *txn); err != nil {
				return err
			}
		}
		if err := s.snapshots.Create(ctx, snap); err != nil {
			return err
		}
		if err := s.orders.Create(ctx, ord); err != nil {
			return err
		}
		return s.auditor.Emit(ctx, audit.Event{
			Action:    audit.ActionOrderCreateSucceeded,
			OrderID:   ord.ID.String(),
			AccountID: accountIDString(accountID),
			Outcome:   "success",
		})
	})
	if err != nil {
		return s.fail(ctx, span, stageCommit,
			dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit order"))
	}

	s.metrics.RecordOrderCreated()
	if evaluation.Required {
		s.metrics.RecordStakeCallRequired()
	}
	s.metrics.ObservePipelineDuration(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("order.id", ord.ID.String()),
		attribute.String("order.status", string(ord.Status)),
		attribute.Bool("order.stake_call_required", evaluation.Required),
	)
	s.logger.InfoContext(ctx, "order created",
		"order_id", ord.ID.String(),
		"status", string(ord.Status),
		"stake_call_required", evaluation.Required,
		"total_cents", totalCents,
	)

	result := order.CreateOrderResult{
		Order:             ord,
		StakeCallRequired: evaluation.Required,
		SnapshotID:        snap.ID,
	}
	if txn != nil {
		result.PaymentTransactionID = &txn.ID
	}
	return result, nil
}

// OrderView is an order together with the records that justify it: the
// addresses it ships and bills to, the frozen compliance snapshot, the age
// verification, and the most recent stake call and payment transaction.
type OrderView struct {
	Order              order.Order
	ShippingAddress    address.Address
	BillingAddress     address.Address
	Snapshot           compliance.Snapshot
	AgeVerification    ageverify.Result
	StakeCall          *stakecall.StakeCall
	PaymentTransaction *payment.Transaction
}

// GetOrder returns an order and its associated records to its owner. Guest
// orders carry no account and are not readable through the API.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (OrderView, error) {
	ord, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return OrderView{}, dErrors.New(dErrors.CodeNotFound, "order not found")
		}
		return OrderView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}
	accountID, ok := requestcontext.AccountID(ctx)
	if !ok || ord.AccountID == nil || *ord.AccountID != accountID {
		return OrderView{}, dErrors.New(dErrors.CodeForbidden, "order belongs to another account")
	}

	view := OrderView{Order: ord}

	view.ShippingAddress, err = s.addresses.FindByID(ctx, ord.ShippingAddressID)
	if err != nil {
		return OrderView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load shipping address")
	}
	view.BillingAddress = view.ShippingAddress
	if ord.BillingAddressID != ord.ShippingAddressID {
		view.BillingAddress, err = s.addresses.FindByID(ctx, ord.BillingAddressID)
		if err != nil {
			return OrderView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load billing address")
		}
	}

	view.Snapshot, err = s.snapshots.FindByOrder(ctx, ord.ID)
	if err != nil {
		return OrderView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load compliance snapshot")
	}
	view.AgeVerification, err = s.ageStore.FindByID(ctx, ord.AgeVerificationID)
	if err != nil {
		return OrderView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load age verification")
	}

	if ord.StakeCallID != nil {
		call, err := s.stakeStore.FindLatestByOrder(ctx, ord.ID)
		if err != nil {
			return OrderView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stake call")
		}
		view.StakeCall = &call
	}
	if ord.PaymentTransactionID != nil && s.payStore != nil {
		txn, err := s.payStore.FindByID(ctx, *ord.PaymentTransactionID)
		if err != nil {
			return OrderView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment transaction")
		}
		view.PaymentTransaction = &txn
	}
	return view, nil
}

// ResolveStakeCall finalizes an order's pending stake call and moves the
// order forward: passed releases it (CREATED if paid, AWAITING_PAYMENT
// otherwise), failed cancels it.
func (s *Service) ResolveStakeCall(ctx context.Context, orderID uuid.UUID, passed bool, reasonCode string) error {
	ctx, span := s.tracer.Start(ctx, "order.resolve_stake_call")
	defer span.End()

	now := requestcontext.Now(ctx).UTC()

	ord, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "order not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}
	if ord.Status != order.StatusAwaitingStakeCall || ord.StakeCallID == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "order is not awaiting a stake call")
	}

	result := stakecall.ResultPassed
	next := order.StatusAwaitingPayment
	if ord.PaymentTransactionID != nil {
		next = order.StatusCreated
	}
	if !passed {
		result = stakecall.ResultFailed
		next = order.StatusCancelled
	}
	if !ord.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"order cannot move from %s to %s", ord.Status, next)
	}

	err = s.committer.Commit(ctx, func(ctx context.Context) error {
		if err := s.stakeStore.Resolve(ctx, *ord.StakeCallID, result, reasonCode, now); err != nil {
			return err
		}
		if err := s.orders.UpdateStatus(ctx, ord.ID, ord.Status, next, now); err != nil {
			return err
		}
		return s.auditor.Emit(ctx, audit.Event{
			Action:    audit.ActionStakeCallResolved,
			OrderID:   ord.ID.String(),
			AccountID: accountIDString(ord.AccountID),
			Outcome:   string(result),
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeConflict, "stake call was already resolved")
		}
		span.SetStatus(codes.Error, err.Error())
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve stake call")
	}

	s.logger.InfoContext(ctx, "stake call resolved",
		"order_id", ord.ID.String(),
		"result", string(result),
		"order_status", string(next),
	)
	return nil
}

// fail records the attempt in the audit log (best effort, outside any
// transaction), bumps the stage failure counter, and returns the error.
func (s *Service) fail(ctx context.Context, span trace.Span, stage string, err error) (order.CreateOrderResult, error) {
	s.metrics.RecordPipelineFailure(stage)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("pipeline.failed_stage", stage))

	var accountID *uuid.UUID
	if id, ok := requestcontext.AccountID(ctx); ok {
		accountID = &id
	}
	if auditErr := s.auditor.Emit(ctx, audit.Event{
		Action:      audit.ActionOrderCreateFailed,
		AccountID:   accountIDString(accountID),
		Outcome:     "failure",
		FailureCode: string(dErrors.CodeOf(err)),
		Stage:       stage,
	}); auditErr != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event", "error", auditErr.Error())
	}

	s.logger.WarnContext(ctx, "order pipeline failed",
		"stage", stage,
		"code", string(dErrors.CodeOf(err)),
	)
	return order.CreateOrderResult{}, err
}

// loadAddresses checks both addresses exist and returns the shipping one,
// which is what eligibility is judged on.
func (s *Service) loadAddresses(ctx context.Context, req order.CreateOrderRequest) (address.Address, error) {
	shipping, err := s.addresses.FindByID(ctx, req.ShippingAddressID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return address.Address{}, dErrors.New(dErrors.CodeValidation, "unknown shipping address")
		}
		return address.Address{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load shipping address")
	}
	if req.BillingAddressID != req.ShippingAddressID {
		if _, err := s.addresses.FindByID(ctx, req.BillingAddressID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return address.Address{}, dErrors.New(dErrors.CodeValidation, "unknown billing address")
			}
			return address.Address{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load billing address")
		}
	}
	return shipping, nil
}

func (s *Service) loadItems(ctx context.Context, reqItems []order.ItemRequest) ([]product.Product, []order.LineItem, int64, error) {
	ids := make([]uuid.UUID, len(reqItems))
	for i, item := range reqItems {
		ids[i] = item.ProductID
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, 0, dErrors.New(dErrors.CodeValidation, "unknown product in order")
		}
		return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load products")
	}

	byID := make(map[uuid.UUID]product.Product, len(products))
	for _, p := range products {
		if !p.RegulatorApproved {
			return nil, nil, 0, dErrors.Newf(dErrors.CodeValidation,
				"product %q is not approved for sale", p.Name)
		}
		byID[p.ID] = p
	}

	items := make([]order.LineItem, len(reqItems))
	var total int64
	for i, item := range reqItems {
		p := byID[item.ProductID]
		items[i] = order.LineItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: p.UnitPriceCents,
		}
		total += int64(item.Quantity) * p.UnitPriceCents
	}
	return products, items, total, nil
}

func orderStatus(stakeCallRequired, paid bool) order.Status {
	switch {
	case stakeCallRequired:
		return order.StatusAwaitingStakeCall
	case !paid:
		return order.StatusAwaitingPayment
	default:
		return order.StatusCreated
	}
}

func productFlags(products []product.Product) []compliance.ProductFlags {
	flags := make([]compliance.ProductFlags, len(products))
	for i, p := range products {
		flags[i] = compliance.ProductFlags{
			ProductID:         p.ID,
			NicotineMgPerML:   p.NicotineMgPerML,
			RegulatorApproved: p.RegulatorApproved,
			FlavorRestricted:  p.FlavorRestricted,
		}
	}
	return flags
}

func accountIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
