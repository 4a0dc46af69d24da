// Package requesttime pins one wall-clock reading per request so every
// component in the call path (accrual math included) agrees on "now".
package requesttime

import (
	"net/http"
	"time"

	"incorp/pkg/requestcontext"
)

// Middleware stamps the request context with the arrival time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
