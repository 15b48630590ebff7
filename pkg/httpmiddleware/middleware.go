// Package httpmiddleware provides composable net/http middleware:
// panic recovery, CORS, rate limiting, request IDs, and request logging.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(next http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware in the list is the
// outermost: Wrap(h, a, b) serves requests through a, then b, then h.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
