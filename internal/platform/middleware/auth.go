package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "ordergate/pkg/domain-errors"
	"ordergate/pkg/platform/httputil"
	"ordergate/pkg/requestcontext"
)

// AccountClaims are the claims expected from the identity service's tokens.
type AccountClaims struct {
	AccountID string `json:"sub"`
	jwt.RegisteredClaims
}

// JWTValidator validates bearer tokens and extracts the account ID.
type JWTValidator struct {
	signingKey []byte
}

// NewJWTValidator constructs a validator for HMAC-signed tokens.
func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a token, returning the account ID.
func (v *JWTValidator) ValidateToken(tokenString string) (uuid.UUID, error) {
	claims := &AccountClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.signingKey, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "invalid subject claim")
	}
	return accountID, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// account ID in the context.
func RequireAuth(validator *JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := bearerAccount(validator, r)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized request",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccountID(r.Context(), accountID)))
		})
	}
}

// OptionalAuth attaches the account ID when a valid token is present but
// lets unauthenticated requests through. Checkout supports guest orders, so
// POST /orders uses this rather than RequireAuth.
func OptionalAuth(validator *JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if accountID, err := bearerAccount(validator, r); err == nil {
				r = r.WithContext(requestcontext.WithAccountID(r.Context(), accountID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerAccount(validator *JWTValidator, r *http.Request) (uuid.UUID, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "missing authorization header")
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "malformed authorization header")
	}
	return validator.ValidateToken(tokenString)
}
