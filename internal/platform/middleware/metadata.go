package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"ordergate/pkg/requestcontext"
)

// ClientMetadata captures the caller's IP and a parsed User-Agent summary so
// audit entries can record who initiated each order attempt.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), uaSummary(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdempotencyKey propagates the caller-supplied Idempotency-Key header so the
// payment stage can reuse a prior authorization on retried requests.
func IdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			r = r.WithContext(requestcontext.WithIdempotencyKey(r.Context(), key))
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func uaSummary(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	parts := []string{}
	if name != "" {
		parts = append(parts, name+"/"+version)
	}
	if os := ua.OS(); os != "" {
		parts = append(parts, os)
	}
	if len(parts) == 0 {
		return raw
	}
	return strings.Join(parts, " ")
}
