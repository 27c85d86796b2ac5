package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest"
)

var timeoutBody = func() string {
	b, _ := json.Marshal(rest.APIResponse{
		Success: false,
		Error:   &rest.APIError{Code: application.ErrCodeTimeout, Message: "request timed out"},
	})
	return string(b)
}()

// Timeout bounds every request. Handlers see the deadline on their context;
// if they overrun it the client gets a 503 with a JSON body.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		bounded := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			w.Header().Set("Content-Type", "application/json")
			bounded.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
