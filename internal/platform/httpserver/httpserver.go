package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. WriteTimeout leaves headroom above the 60s
// request timeout middleware: a checkout can sit behind verification retries
// and a payment authorization, and the middleware must win the race so the
// client gets a JSON error rather than a dropped connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      75 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
