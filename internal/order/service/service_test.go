package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ordergate/internal/address"
	"ordergate/internal/ageverify"
	"ordergate/internal/audit"
	"ordergate/internal/compliance"
	"ordergate/internal/order"
	"ordergate/internal/payment"
	"ordergate/internal/product"
	"ordergate/internal/stakecall"
	dErrors "ordergate/pkg/domain-errors"
	"ordergate/pkg/platform/sentinel"
	"ordergate/pkg/requestcontext"
)

// =============================================================================
// Order Pipeline Test Suite
// =============================================================================
// Exercises the full checkout orchestration against in-memory stores, a fake
// verification provider, and a fake payment gateway. Persistence is only
// asserted through the same store interfaces the service uses.

type fakeVerificationProvider struct {
	calls  int
	result ageverify.Result
	err    error
}

func (p *fakeVerificationProvider) Verify(_ context.Context, _ ageverify.Request) (ageverify.Result, error) {
	p.calls++
	if p.err != nil {
		return ageverify.Result{}, p.err
	}
	return p.result, nil
}

type fakePaymentGateway struct {
	calls int
	err   error
}

func (g *fakePaymentGateway) Authorize(_ context.Context, card payment.Card, amountCents int64, _ string) (payment.Transaction, error) {
	g.calls++
	if g.err != nil {
		return payment.Transaction{}, g.err
	}
	return payment.Transaction{
		ID:           uuid.New(),
		GatewayTxnID: fmt.Sprintf("gw-%d", g.calls),
		AmountCents:  amountCents,
		Status:       payment.StatusAuthorized,
		CardLast4:    card.Last4(),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

type PipelineSuite struct {
	suite.Suite

	addresses  *address.MemoryStore
	products   *product.MemoryStore
	stakeStore *stakecall.MemoryStore
	snapshots  *compliance.MemoryStore
	orders     *order.MemoryStore
	auditStore *audit.MemoryStore
	provider   *fakeVerificationProvider
	gateway    *fakePaymentGateway

	svc *Service

	accountID  uuid.UUID
	shippingID uuid.UUID
	billingID  uuid.UUID
	productID  uuid.UUID
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.addresses = address.NewMemoryStore()
	s.stakeStore = stakecall.NewMemoryStore()
	s.snapshots = compliance.NewMemoryStore()
	s.orders = order.NewMemoryStore()
	s.auditStore = audit.NewMemoryStore()
	s.provider = &fakeVerificationProvider{
		result: ageverify.Result{Status: ageverify.StatusApproved, ReferenceID: "ref-ok"},
	}
	s.gateway = &fakePaymentGateway{}

	s.accountID = uuid.New()
	s.shippingID = uuid.New()
	s.billingID = uuid.New()
	s.productID = uuid.New()

	s.products = product.NewMemoryStore(product.Product{
		ID:                s.productID,
		Name:              "Nic Pods 20mg",
		NicotineMgPerML:   20,
		RegulatorApproved: true,
		UnitPriceCents:    1099,
	})

	s.Require().NoError(s.addresses.Create(context.Background(), address.Address{
		ID:        s.shippingID,
		AccountID: &s.accountID,
		Line1:     "742 Evergreen Terrace",
		City:      "Springfield",
	}))
	s.Require().NoError(s.addresses.Create(context.Background(), address.Address{
		ID:        s.billingID,
		AccountID: &s.accountID,
		Line1:     "10 Downing Street",
		City:      "Springfield",
	}))

	s.svc = s.newService()
}

func (s *PipelineSuite) newService(extra ...Option) *Service {
	verifier := ageverify.NewVerifier(s.provider, 21, ageverify.WithMaxRetries(1))
	processor := payment.NewProcessor(s.gateway, payment.NewMemoryIdempotencyStore())

	opts := append([]Option{
		WithPayment(processor, payment.NewMemoryStore()),
	}, extra...)

	return New(
		Stores{
			Addresses:        s.addresses,
			Products:         s.products,
			AgeVerifications: ageverify.NewMemoryStore(),
			StakeCalls:       s.stakeStore,
			Snapshots:        s.snapshots,
			Orders:           s.orders,
		},
		address.NewValidator(),
		verifier,
		stakecall.NewEvaluator(),
		audit.NewPublisher(s.auditStore),
		NopCommitter{},
		opts...,
	)
}

func (s *PipelineSuite) request() order.CreateOrderRequest {
	return order.CreateOrderRequest{
		ShippingAddressID: s.shippingID,
		BillingAddressID:  s.billingID,
		Items:             []order.ItemRequest{{ProductID: s.productID, Quantity: 3}},
		CustomerFirstName: "Ada",
		CustomerLastName:  "Lovelace",
		DateOfBirth:       "1990-12-10",
	}
}

func (s *PipelineSuite) requestWithPayment() order.CreateOrderRequest {
	req := s.request()
	req.Payment = &order.PaymentDetails{
		CardNumber:     "4111 1111 1111 1111",
		ExpirationDate: "12/28",
		CVV:            "123",
	}
	return req
}

func (s *PipelineSuite) ctx() context.Context {
	ctx := requestcontext.WithTime(context.Background(),
		time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC))
	return requestcontext.WithAccountID(ctx, s.accountID)
}

func (s *PipelineSuite) auditActions() []string {
	events := s.auditStore.Events()
	actions := make([]string, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}
	return actions
}

// =============================================================================
// Happy Paths
// =============================================================================

func (s *PipelineSuite) TestCreateOrder_PaidReturningCustomer() {
	result, err := s.svc.CreateOrder(s.ctx(), s.requestWithPayment())
	s.Require().NoError(err)

	s.Equal(order.StatusCreated, result.Order.Status)
	s.False(result.StakeCallRequired)
	s.Require().NotNil(result.PaymentTransactionID)
	s.Equal(int64(3*1099), result.Order.TotalCents)

	persisted, err := s.orders.FindByID(s.ctx(), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(order.StatusCreated, persisted.Status)
	s.Require().Len(persisted.Items, 1)
	s.Equal(int64(1099), persisted.Items[0].UnitPriceCents)

	snap, err := s.snapshots.FindByOrder(s.ctx(), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(result.SnapshotID, snap.ID)
	s.Equal(string(ageverify.StatusApproved), snap.AgeVerification.Status)
	s.Require().Len(snap.ProductFlags, 1)
	s.True(snap.ProductFlags[0].RegulatorApproved)

	s.Equal([]string{audit.ActionOrderCreateSucceeded}, s.auditActions())
}

func (s *PipelineSuite) TestCreateOrder_WithoutPaymentAwaitsPayment() {
	result, err := s.svc.CreateOrder(s.ctx(), s.request())
	s.Require().NoError(err)

	s.Equal(order.StatusAwaitingPayment, result.Order.Status)
	s.Nil(result.PaymentTransactionID)
	s.Equal(0, s.gateway.calls)
}

func (s *PipelineSuite) TestCreateOrder_FirstTimeRecipientAwaitsStakeCall() {
	req := s.requestWithPayment()
	req.IsFirstTimeRecipient = true

	result, err := s.svc.CreateOrder(s.ctx(), req)
	s.Require().NoError(err)

	// The stake call gate wins over payment state.
	s.Equal(order.StatusAwaitingStakeCall, result.Order.Status)
	s.True(result.StakeCallRequired)

	call, err := s.stakeStore.FindLatestByOrder(s.ctx(), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(stakecall.ResultPending, call.Result)
	s.Nil(call.ResolvedAt)
}

func (s *PipelineSuite) TestCreateOrder_GuestCheckout() {
	ctx := requestcontext.WithTime(context.Background(),
		time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC))

	result, err := s.svc.CreateOrder(ctx, s.request())
	s.Require().NoError(err)
	s.Nil(result.Order.AccountID)
}

// =============================================================================
// Compliance Gates
// =============================================================================

func (s *PipelineSuite) TestCreateOrder_UnderageIsDeclinedWithoutProviderCall() {
	req := s.requestWithPayment()
	req.DateOfBirth = "2008-01-01"

	_, err := s.svc.CreateOrder(s.ctx(), req)
	s.True(dErrors.HasCode(err, dErrors.CodeAgeVerificationFailed))

	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal(ageverify.ReasonUnderage, de.ReasonCode)

	s.Equal(0, s.provider.calls, "underage must be decided locally")
	s.Equal(0, s.gateway.calls, "no payment may be attempted after a compliance failure")

	events := s.auditStore.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionOrderCreateFailed, events[0].Action)
	s.Equal("age_verification", events[0].Stage)
	s.Equal(string(dErrors.CodeAgeVerificationFailed), events[0].FailureCode)
}

func (s *PipelineSuite) TestCreateOrder_ProviderDeclineCarriesReason() {
	s.provider.result = ageverify.Result{
		Status:     ageverify.StatusDeclined,
		ReasonCode: "IDENTITY_MISMATCH",
	}

	_, err := s.svc.CreateOrder(s.ctx(), s.requestWithPayment())
	s.True(dErrors.HasCode(err, dErrors.CodeAgeVerificationFailed))

	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal("IDENTITY_MISMATCH", de.ReasonCode)
	s.Equal(0, s.gateway.calls)
}

func (s *PipelineSuite) TestCreateOrder_ProviderOutageIsNotADecline() {
	s.provider.err = fmt.Errorf("provider down: %w", sentinel.ErrUnavailable)

	_, err := s.svc.CreateOrder(s.ctx(), s.requestWithPayment())
	s.True(dErrors.HasCode(err, dErrors.CodeAgeVerificationUnavailable),
		"an unreachable provider must never surface as a verification failure")
	s.Equal(0, s.gateway.calls)
}

func (s *PipelineSuite) TestCreateOrder_PoBoxRejectedBeforeVerification() {
	poBoxID := uuid.New()
	s.Require().NoError(s.addresses.Create(context.Background(), address.Address{
		ID:        poBoxID,
		AccountID: &s.accountID,
		Line1:     "PO Box 123",
		City:      "Springfield",
	}))
	req := s.requestWithPayment()
	req.ShippingAddressID = poBoxID

	_, err := s.svc.CreateOrder(s.ctx(), req)
	s.True(dErrors.HasCode(err, dErrors.CodeAddressIneligible))
	s.Equal(0, s.provider.calls, "ineligible addresses fail before verification")
	s.Equal(0, s.gateway.calls)

	events := s.auditStore.Events()
	s.Require().Len(events, 1)
	s.Equal("address_validation", events[0].Stage)
}

func (s *PipelineSuite) TestCreateOrder_UnapprovedProductRejected() {
	unapproved := uuid.New()
	s.products.Add(product.Product{
		ID:             unapproved,
		Name:           "Flavored Disposable",
		UnitPriceCents: 999,
	})
	req := s.request()
	req.Items = []order.ItemRequest{{ProductID: unapproved, Quantity: 1}}

	_, err := s.svc.CreateOrder(s.ctx(), req)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(0, s.provider.calls)
}

func (s *PipelineSuite) TestCreateOrder_UnknownAddressOrProduct() {
	req := s.request()
	req.ShippingAddressID = uuid.New()
	_, err := s.svc.CreateOrder(s.ctx(), req)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	req = s.request()
	req.Items = []order.ItemRequest{{ProductID: uuid.New(), Quantity: 1}}
	_, err = s.svc.CreateOrder(s.ctx(), req)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// =============================================================================
// Payment
// =============================================================================

func (s *PipelineSuite) TestCreateOrder_PaymentDeclined() {
	s.gateway.err = &payment.DeclineError{
		ResponseCode: "05",
		ReasonCodes:  []string{"INSUFFICIENT_FUNDS"},
	}

	_, err := s.svc.CreateOrder(s.ctx(), s.requestWithPayment())
	s.True(dErrors.HasCode(err, dErrors.CodePaymentDeclined))

	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal([]string{"INSUFFICIENT_FUNDS"}, de.ReasonCodes)

	events := s.auditStore.Events()
	s.Require().Len(events, 1)
	s.Equal("payment", events[0].Stage)
	s.NotContains(s.auditActions(), audit.ActionOrderCreateSucceeded)
}

func (s *PipelineSuite) TestCreateOrder_PaymentSuppliedButDisabled() {
	svc := New(
		Stores{
			Addresses:        s.addresses,
			Products:         s.products,
			AgeVerifications: ageverify.NewMemoryStore(),
			StakeCalls:       s.stakeStore,
			Snapshots:        s.snapshots,
			Orders:           s.orders,
		},
		address.NewValidator(),
		ageverify.NewVerifier(s.provider, 21),
		stakecall.NewEvaluator(),
		audit.NewPublisher(s.auditStore),
		NopCommitter{},
	)

	_, err := svc.CreateOrder(s.ctx(), s.requestWithPayment())
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(0, s.gateway.calls)
}

func (s *PipelineSuite) TestCreateOrder_RetriedPaymentReusesAuthorization() {
	ctx := requestcontext.WithIdempotencyKey(s.ctx(), "checkout-attempt-1")

	first, err := s.svc.CreateOrder(ctx, s.requestWithPayment())
	s.Require().NoError(err)

	second, err := s.svc.CreateOrder(ctx, s.requestWithPayment())
	s.Require().NoError(err)

	s.Equal(1, s.gateway.calls, "retry with the same idempotency token must not charge twice")
	s.Equal(*first.PaymentTransactionID, *second.PaymentTransactionID)
}

// =============================================================================
// Stake Call Resolution
// =============================================================================

func (s *PipelineSuite) createAwaitingStakeCall(paid bool) order.CreateOrderResult {
	req := s.request()
	if paid {
		req = s.requestWithPayment()
	}
	req.IsFirstTimeRecipient = true
	result, err := s.svc.CreateOrder(s.ctx(), req)
	s.Require().NoError(err)
	s.Require().Equal(order.StatusAwaitingStakeCall, result.Order.Status)
	return result
}

func (s *PipelineSuite) TestResolveStakeCall_PassedReleasesPaidOrder() {
	result := s.createAwaitingStakeCall(true)

	s.Require().NoError(s.svc.ResolveStakeCall(s.ctx(), result.Order.ID, true, "VERIFIED"))

	ord, err := s.orders.FindByID(s.ctx(), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(order.StatusCreated, ord.Status)

	call, err := s.stakeStore.FindByID(s.ctx(), *ord.StakeCallID)
	s.Require().NoError(err)
	s.Equal(stakecall.ResultPassed, call.Result)
	s.NotNil(call.ResolvedAt)

	s.Contains(s.auditActions(), audit.ActionStakeCallResolved)
}

func (s *PipelineSuite) TestResolveStakeCall_PassedUnpaidAwaitsPayment() {
	result := s.createAwaitingStakeCall(false)

	s.Require().NoError(s.svc.ResolveStakeCall(s.ctx(), result.Order.ID, true, ""))

	ord, err := s.orders.FindByID(s.ctx(), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(order.StatusAwaitingPayment, ord.Status)
}

func (s *PipelineSuite) TestResolveStakeCall_FailedCancelsOrder() {
	result := s.createAwaitingStakeCall(true)

	s.Require().NoError(s.svc.ResolveStakeCall(s.ctx(), result.Order.ID, false, "NO_ANSWER"))

	ord, err := s.orders.FindByID(s.ctx(), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(order.StatusCancelled, ord.Status)

	call, err := s.stakeStore.FindByID(s.ctx(), *ord.StakeCallID)
	s.Require().NoError(err)
	s.Equal(stakecall.ResultFailed, call.Result)
	s.Equal("NO_ANSWER", call.ReasonCode)
}

func (s *PipelineSuite) TestResolveStakeCall_OnlyOnce() {
	result := s.createAwaitingStakeCall(true)

	s.Require().NoError(s.svc.ResolveStakeCall(s.ctx(), result.Order.ID, true, ""))

	err := s.svc.ResolveStakeCall(s.ctx(), result.Order.ID, false, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *PipelineSuite) TestResolveStakeCall_NotAwaiting() {
	result, err := s.svc.CreateOrder(s.ctx(), s.requestWithPayment())
	s.Require().NoError(err)

	err = s.svc.ResolveStakeCall(s.ctx(), result.Order.ID, true, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

// =============================================================================
// Reads
// =============================================================================

func (s *PipelineSuite) TestGetOrder_OwnerOnly() {
	result, err := s.svc.CreateOrder(s.ctx(), s.requestWithPayment())
	s.Require().NoError(err)

	view, err := s.svc.GetOrder(s.ctx(), result.Order.ID)
	s.Require().NoError(err)
	s.Equal(result.Order.ID, view.Order.ID)
	s.Equal(s.shippingID, view.ShippingAddress.ID)
	s.Equal(s.billingID, view.BillingAddress.ID)
	s.Equal(result.SnapshotID, view.Snapshot.ID)
	s.Equal(ageverify.StatusApproved, view.AgeVerification.Status)
	s.Nil(view.StakeCall)
	s.Require().NotNil(view.PaymentTransaction)
	s.Equal(*result.PaymentTransactionID, view.PaymentTransaction.ID)

	otherCtx := requestcontext.WithAccountID(context.Background(), uuid.New())
	_, err = s.svc.GetOrder(otherCtx, result.Order.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.GetOrder(s.ctx(), uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PipelineSuite) TestGetOrder_IncludesLatestStakeCall() {
	result := s.createAwaitingStakeCall(false)

	view, err := s.svc.GetOrder(s.ctx(), result.Order.ID)
	s.Require().NoError(err)
	s.Require().NotNil(view.StakeCall)
	s.Equal(stakecall.ResultPending, view.StakeCall.Result)
	s.Nil(view.PaymentTransaction)
}

func (s *PipelineSuite) TestGetOrder_GuestOrdersNotReadable() {
	guestCtx := requestcontext.WithTime(context.Background(),
		time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC))
	result, err := s.svc.CreateOrder(guestCtx, s.request())
	s.Require().NoError(err)

	_, err = s.svc.GetOrder(s.ctx(), result.Order.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
