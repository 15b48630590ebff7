package httpmiddleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKeyRequestID struct{}

// RequestIDFromContext returns the request ID stored by RequestID, or ""
// when the request did not pass through the middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

// RequestID tags every request with an identifier for log correlation. A
// usable incoming X-Request-ID header is kept so IDs survive proxy hops;
// anything else is replaced with a fresh UUID. The ID is echoed on the
// response header and stored in the request context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if !usableRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// usableRequestID rejects IDs that would pollute logs: empty, longer than
// 128 bytes, or containing non-printable or non-ASCII bytes.
func usableRequestID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		if id[i] < ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
