package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "ordergate/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Code != "INTERNAL_ERROR" {
			t.Fatalf("expected code INTERNAL_ERROR, got %q", body.Code)
		}
		if body.Message != "internal error" {
			t.Fatalf("expected generic message, got %q", body.Message)
		}
	})

	t.Run("unclassified error treated as internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("connection reset"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Message != "internal error" {
			t.Fatalf("internal detail leaked: %q", body.Message)
		}
	})

	t.Run("validation error includes message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "items are required"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Code != "VALIDATION_ERROR" {
			t.Fatalf("expected code VALIDATION_ERROR, got %q", body.Code)
		}
		if body.Message != "items are required" {
			t.Fatalf("expected message to be returned, got %q", body.Message)
		}
	})

	t.Run("payment decline carries gateway reason codes", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := dErrors.New(dErrors.CodePaymentDeclined, "card declined").
			WithReasons([]string{"insufficient_funds", "do_not_honor"})
		WriteError(w, err)

		if w.Code != http.StatusPaymentRequired {
			t.Fatalf("expected status %d, got %d", http.StatusPaymentRequired, w.Code)
		}
		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(body.ReasonCodes) != 2 || body.ReasonCodes[0] != "insufficient_funds" {
			t.Fatalf("expected reason codes passed through, got %v", body.ReasonCodes)
		}
	})

	t.Run("age verification failure maps to 422", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeAgeVerificationFailed, "must be 21 or older").WithReason("UNDERAGE"))

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
		}
		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.ReasonCode != "UNDERAGE" {
			t.Fatalf("expected reason code UNDERAGE, got %q", body.ReasonCode)
		}
	})
}
