package ageverify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ordergate/internal/platform/config"
	"ordergate/pkg/platform/sentinel"
)

// HTTPProvider calls the external identity provider's verification API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider builds a provider adapter with the configured per-call
// timeout. Verification tolerates a longer timeout than payment
// authorization, which fails fast.
func NewHTTPProvider(cfg config.AgeVerificationConfig) *HTTPProvider {
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type verifyRequest struct {
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	DateOfBirth string         `json:"dateOfBirth"`
	Address     *verifyAddress `json:"address,omitempty"`
}

type verifyAddress struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type verifyResponse struct {
	Status      string `json:"status"`
	ReferenceID string `json:"referenceId"`
	ReasonCode  string `json:"reasonCode"`
	Message     string `json:"message"`
}

// Verify calls the provider. Network failures and 5xx responses map to
// sentinel.ErrUnavailable so the verifier retries them; everything else is
// a definitive provider answer.
func (p *HTTPProvider) Verify(ctx context.Context, req Request) (Result, error) {
	payload := verifyRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth.Format("2006-01-02"),
	}
	if req.Address != nil {
		payload.Address = &verifyAddress{
			Line1:      req.Address.Line1,
			City:       req.Address.City,
			Region:     req.Address.Region,
			PostalCode: req.Address.PostalCode,
			Country:    req.Address.Country,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal verify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/verifications", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("call verification provider: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{}, fmt.Errorf("verification provider returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("verification provider rejected request with status %d", resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return Result{}, fmt.Errorf("decode verify response: %w", err)
	}

	return Result{
		Status:      normalizeStatus(vr.Status),
		ReferenceID: vr.ReferenceID,
		ReasonCode:  vr.ReasonCode,
		Message:     vr.Message,
		VerifiedAt:  time.Now().UTC(),
	}, nil
}

func normalizeStatus(s string) Status {
	switch Status(s) {
	case StatusApproved, StatusDeclined, StatusPending:
		return Status(s)
	default:
		return StatusError
	}
}
