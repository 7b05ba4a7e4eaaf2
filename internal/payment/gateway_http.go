package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ordergate/internal/platform/config"
	"ordergate/pkg/platform/sentinel"
)

// Gateway is the raw external adapter. Implementations return *DeclineError
// for rejected charges and sentinel.ErrUnavailable (wrapped) when the
// gateway cannot be reached.
type Gateway interface {
	Authorize(ctx context.Context, card Card, amountCents int64, idempotencyKey string) (Transaction, error)
}

// HTTPGateway calls the payment gateway's authorization API with a fail-fast
// timeout: unlike verification, a slow authorization is worse than a retried
// one, and the idempotency key makes the retry safe.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(cfg config.PaymentConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type authorizeRequest struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CVV            string `json:"cvv"`
	AmountCents    int64  `json:"amountCents"`
}

type authorizeResponse struct {
	TransactionID string   `json:"transactionId"`
	Status        string   `json:"status"`
	ResponseCode  string   `json:"responseCode"`
	ReasonCodes   []string `json:"reasonCodes"`
}

func (g *HTTPGateway) Authorize(ctx context.Context, card Card, amountCents int64, idempotencyKey string) (Transaction, error) {
	body, err := json.Marshal(authorizeRequest{
		CardNumber:     card.Number,
		ExpirationDate: card.ExpirationDate,
		CVV:            card.CVV,
		AmountCents:    amountCents,
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("marshal authorize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/authorizations", bytes.NewReader(body))
	if err != nil {
		return Transaction{}, fmt.Errorf("build authorize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Transaction{}, fmt.Errorf("call payment gateway: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Transaction{}, fmt.Errorf("payment gateway returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var ar authorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return Transaction{}, fmt.Errorf("decode authorize response: %w", err)
	}

	if resp.StatusCode == http.StatusPaymentRequired || ar.Status == string(StatusDeclined) {
		return Transaction{}, &DeclineError{ResponseCode: ar.ResponseCode, ReasonCodes: ar.ReasonCodes}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Transaction{}, fmt.Errorf("payment gateway rejected request with status %d", resp.StatusCode)
	}

	return Transaction{
		ID:           uuid.New(),
		GatewayTxnID: ar.TransactionID,
		AmountCents:  amountCents,
		Status:       StatusAuthorized,
		ResponseCode: ar.ResponseCode,
		CardLast4:    card.Last4(),
		CreatedAt:    time.Now().UTC(),
	}, nil
}
