// Package httputil centralizes domain error translation to HTTP responses so
// every handler emits the same JSON error envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "ordergate/pkg/domain-errors"
)

// ErrorResponse is the wire envelope for failures. Code values come from
// pkg/domain-errors; reason codes are provider/gateway codes passed through
// verbatim.
type ErrorResponse struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	ReasonCode  string   `json:"reasonCode,omitempty"`
	ReasonCodes []string `json:"reasonCodes,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeValidation:                 http.StatusBadRequest,
	dErrors.CodeAddressIneligible:          http.StatusUnprocessableEntity,
	dErrors.CodeAgeVerificationFailed:      http.StatusUnprocessableEntity,
	dErrors.CodeAgeVerificationUnavailable: http.StatusServiceUnavailable,
	dErrors.CodePaymentDeclined:            http.StatusPaymentRequired,
	dErrors.CodePaymentGatewayUnavailable:  http.StatusServiceUnavailable,
	dErrors.CodeNotFound:                   http.StatusNotFound,
	dErrors.CodeUnauthorized:               http.StatusUnauthorized,
	dErrors.CodeForbidden:                  http.StatusForbidden,
	dErrors.CodeConflict:                   http.StatusConflict,
	dErrors.CodeInvariantViolation:         http.StatusUnprocessableEntity,
	dErrors.CodeInternal:                   http.StatusInternalServerError,
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError renders err as a JSON error envelope. Internal errors get a
// generic message so storage and orchestration detail never reaches clients.
func WriteError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		Code:    string(dErrors.CodeInternal),
		Message: "internal error",
	}

	var de *dErrors.Error
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal {
		resp.Code = string(de.Code)
		resp.Message = de.Message
		resp.ReasonCode = de.ReasonCode
		resp.ReasonCodes = de.ReasonCodes
	}

	WriteJSON(w, ToHTTPStatus(dErrors.Code(resp.Code)), resp)
}

// WriteJSON renders v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
