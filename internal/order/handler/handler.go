// Package handler exposes the checkout pipeline over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ordergate/internal/address"
	"ordergate/internal/compliance"
	"ordergate/internal/order"
	"ordergate/internal/payment"
	"ordergate/internal/order/service"
	"ordergate/internal/platform/middleware"
	dErrors "ordergate/pkg/domain-errors"
	"ordergate/pkg/platform/httputil"
)

// Handler wires the order service into the router.
type Handler struct {
	service   *service.Service
	validator *middleware.JWTValidator
	logger    *slog.Logger
}

func New(svc *service.Service, validator *middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{service: svc, validator: validator, logger: logger}
}

// Register mounts the order routes. Checkout allows guests, so creation uses
// optional auth; reads and stake call resolution require a token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.With(middleware.OptionalAuth(h.validator)).Post("/", h.createOrder)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.validator, h.logger))
			r.Get("/{orderID}", h.getOrder)
			r.Post("/{orderID}/stake-call", h.resolveStakeCall)
		})
	})
}

type createOrderResponse struct {
	Order                orderSummary    `json:"order"`
	StakeCallRequired    bool            `json:"stakeCallRequired"`
	ComplianceSnapshot   snapshotSummary `json:"complianceSnapshot"`
	PaymentTransactionID *uuid.UUID      `json:"paymentTransactionId,omitempty"`
}

type orderSummary struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type snapshotSummary struct {
	ID uuid.UUID `json:"id"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed request body"))
		return
	}

	result, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, createOrderResponse{
		Order: orderSummary{
			ID:     result.Order.ID,
			Status: string(result.Order.Status),
		},
		StakeCallRequired:    result.StakeCallRequired,
		ComplianceSnapshot:   snapshotSummary{ID: result.SnapshotID},
		PaymentTransactionID: result.PaymentTransactionID,
	})
}

type orderResponse struct {
	ID                 uuid.UUID            `json:"id"`
	Status             string               `json:"status"`
	Items              []order.LineItem     `json:"items"`
	TotalCents         int64                `json:"totalCents"`
	ShippingAddress    addressResponse      `json:"shippingAddress"`
	BillingAddress     addressResponse      `json:"billingAddress"`
	ComplianceSnapshot snapshotResponse     `json:"complianceSnapshot"`
	AgeVerification    verificationResponse `json:"ageVerification"`
	StakeCall          *stakeCallResponse   `json:"stakeCall,omitempty"`
	PaymentTransaction *payment.Transaction `json:"paymentTransaction,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
}

type addressResponse struct {
	ID            uuid.UUID `json:"id"`
	RecipientName string    `json:"recipientName"`
	Line1         string    `json:"line1"`
	Line2         string    `json:"line2,omitempty"`
	City          string    `json:"city"`
	Region        string    `json:"region"`
	PostalCode    string    `json:"postalCode"`
	Country       string    `json:"country"`
}

type snapshotResponse struct {
	ID                 uuid.UUID                         `json:"id"`
	AgeVerification    compliance.AgeVerificationOutcome `json:"ageVerification"`
	AddressEligibility compliance.AddressEligibility     `json:"addressEligibility"`
	ProductFlags       []compliance.ProductFlags         `json:"productFlags"`
	CreatedAt          time.Time                         `json:"createdAt"`
}

type verificationResponse struct {
	ID          uuid.UUID `json:"id"`
	Status      string    `json:"status"`
	ReferenceID string    `json:"referenceId"`
	ReasonCode  string    `json:"reasonCode,omitempty"`
	VerifiedAt  time.Time `json:"verifiedAt"`
}

type stakeCallResponse struct {
	ID         uuid.UUID  `json:"id"`
	Result     string     `json:"result"`
	ReasonCode string     `json:"reasonCode,omitempty"`
	InvokedAt  time.Time  `json:"invokedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

func toAddressResponse(addr address.Address) addressResponse {
	return addressResponse{
		ID:            addr.ID,
		RecipientName: addr.RecipientName,
		Line1:         addr.Line1,
		Line2:         addr.Line2,
		City:          addr.City,
		Region:        addr.Region,
		PostalCode:    addr.PostalCode,
		Country:       addr.Country,
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid order id"))
		return
	}

	view, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := orderResponse{
		ID:              view.Order.ID,
		Status:          string(view.Order.Status),
		Items:           view.Order.Items,
		TotalCents:      view.Order.TotalCents,
		ShippingAddress: toAddressResponse(view.ShippingAddress),
		BillingAddress:  toAddressResponse(view.BillingAddress),
		ComplianceSnapshot: snapshotResponse{
			ID:                 view.Snapshot.ID,
			AgeVerification:    view.Snapshot.AgeVerification,
			AddressEligibility: view.Snapshot.AddressEligibility,
			ProductFlags:       view.Snapshot.ProductFlags,
			CreatedAt:          view.Snapshot.CreatedAt,
		},
		AgeVerification: verificationResponse{
			ID:          view.AgeVerification.ID,
			Status:      string(view.AgeVerification.Status),
			ReferenceID: view.AgeVerification.ReferenceID,
			ReasonCode:  view.AgeVerification.ReasonCode,
			VerifiedAt:  view.AgeVerification.VerifiedAt,
		},
		PaymentTransaction: view.PaymentTransaction,
		CreatedAt:          view.Order.CreatedAt,
	}
	if view.StakeCall != nil {
		resp.StakeCall = &stakeCallResponse{
			ID:         view.StakeCall.ID,
			Result:     string(view.StakeCall.Result),
			ReasonCode: view.StakeCall.ReasonCode,
			InvokedAt:  view.StakeCall.InvokedAt,
			ResolvedAt: view.StakeCall.ResolvedAt,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type resolveStakeCallRequest struct {
	Passed     bool   `json:"passed"`
	ReasonCode string `json:"reasonCode"`
}

func (h *Handler) resolveStakeCall(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid order id"))
		return
	}

	var req resolveStakeCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed request body"))
		return
	}

	if err := h.service.ResolveStakeCall(r.Context(), id, req.Passed, req.ReasonCode); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
