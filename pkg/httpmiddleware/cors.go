package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// allowedMethods is fixed: the checkout API only serves GET and POST.
const allowedMethods = "GET, POST, OPTIONS"

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	// AllowOrigins lists origins permitted to call the API. Empty or a
	// single "*" admits every origin.
	AllowOrigins []string

	// AllowHeaders lists request headers clients may send. When empty the
	// preflight echoes back whatever the client asked for.
	AllowHeaders []string

	// AllowCredentials permits cookies and Authorization headers. Setting
	// it forces origin echo-back: the CORS spec forbids "*" together with
	// credentials.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds; zero omits the
	// header.
	MaxAge int
}

// CORS returns a middleware handling cross-origin requests. Preflights are
// answered with 204 and never reach the handlers. Origin matching is
// case-insensitive and the configured casing is echoed back; responses
// vary on Origin so shared caches keep per-origin copies.
func CORS(cfg CORSConfig) Middleware {
	wildcard := len(cfg.AllowOrigins) == 0
	origins := make(map[string]string, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		origins[strings.ToLower(o)] = o
	}
	if cfg.AllowCredentials {
		wildcard = false
	}

	headers := strings.Join(cfg.AllowHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	allowFor := func(origin string) string {
		if wildcard {
			return "*"
		}
		return origins[strings.ToLower(origin)]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !wildcard {
				w.Header().Add("Vary", "Origin")
			}
			allow := allowFor(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")

				if allow != "" {
					w.Header().Set("Access-Control-Allow-Origin", allow)
					w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
					switch {
					case headers != "":
						w.Header().Set("Access-Control-Allow-Headers", headers)
					case r.Header.Get("Access-Control-Request-Headers") != "":
						w.Header().Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
					}
					if cfg.AllowCredentials {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
					if maxAge != "" {
						w.Header().Set("Access-Control-Max-Age", maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allow != "" {
				w.Header().Set("Access-Control-Allow-Origin", allow)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
