// Package domainerrors defines the error taxonomy shared by services and the
// HTTP layer. Each failure mode gets exactly one Code; services construct
// errors with New or Wrap and transports translate them with httputil.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a failure mode. Values are the wire format used in HTTP
// error envelopes, so they are stable API.
type Code string

const (
	CodeValidation                 Code = "VALIDATION_ERROR"
	CodeAddressIneligible          Code = "ADDRESS_INELIGIBLE"
	CodeAgeVerificationFailed      Code = "AGE_VERIFICATION_FAILED"
	CodeAgeVerificationUnavailable Code = "AGE_VERIFICATION_UNAVAILABLE"
	CodePaymentDeclined            Code = "PAYMENT_DECLINED"
	CodePaymentGatewayUnavailable  Code = "PAYMENT_GATEWAY_UNAVAILABLE"
	CodeNotFound                   Code = "NOT_FOUND"
	CodeUnauthorized               Code = "UNAUTHORIZED"
	CodeForbidden                  Code = "FORBIDDEN"
	CodeConflict                   Code = "CONFLICT"
	CodeInvariantViolation         Code = "INVARIANT_VIOLATION"
	CodeInternal                   Code = "INTERNAL_ERROR"
)

// Error is the tagged error carried across layers. ReasonCode/ReasonCodes
// hold provider or gateway reason codes verbatim so callers can render an
// actionable, legally meaningful message.
type Error struct {
	Code        Code
	Message     string
	ReasonCode  string
	ReasonCodes []string
	err         error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause remains
// reachable via errors.Is/errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, err: err}
}

// WithReason returns a copy of the error carrying a single provider reason code.
func (e *Error) WithReason(reasonCode string) *Error {
	clone := *e
	clone.ReasonCode = reasonCode
	return &clone
}

// WithReasons returns a copy of the error carrying multiple gateway reason codes.
func (e *Error) WithReasons(reasonCodes []string) *Error {
	clone := *e
	clone.ReasonCodes = reasonCodes
	return &clone
}

// HasCode reports whether err is (or wraps) a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so transports never leak internals.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
