package httpmiddleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig bounds request volume per client IP.
type RateLimitConfig struct {
	// Max is the request budget per window.
	Max int
	// Window is the sliding window length.
	Window time.Duration
}

// window tracks one client's request counts across the current and the
// previous window.
type window struct {
	count     int
	prevCount int
	start     time.Time
}

// limiter applies a sliding-window estimate: the previous window's count
// is weighted by how much of it still overlaps the sliding window, so a
// burst at a window boundary cannot double the budget.
type limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	clients map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{cfg: cfg, clients: make(map[string]*window)}
}

func (l *limiter) take(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.clients[key]
	if !found {
		w = &window{start: now}
		l.clients[key] = w
	}

	if elapsed := now.Sub(w.start); elapsed >= l.cfg.Window {
		w.prevCount = w.count
		if elapsed >= 2*l.cfg.Window {
			w.prevCount = 0
		}
		w.count = 0
		w.start = now.Truncate(l.cfg.Window)
	}

	overlap := 1 - now.Sub(w.start).Seconds()/l.cfg.Window.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	weighted := float64(w.prevCount)*overlap + float64(w.count)
	resetAt = w.start.Add(l.cfg.Window)

	if weighted >= float64(l.cfg.Max) {
		return 0, resetAt, false
	}
	w.count++

	remaining = l.cfg.Max - int(weighted) - 1
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

func (l *limiter) evictStale(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.clients {
		if now.Sub(w.start) >= 2*l.cfg.Window {
			delete(l.clients, key)
		}
	}
}

// RateLimit enforces the per-client budget. Every response carries the
// X-RateLimit-* headers; over-budget requests get 429 with the API's JSON
// error shape. Client entries are never evicted; long-running servers
// should use RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return limitMiddleware(newLimiter(cfg))
}

// RateLimitWithCleanup is RateLimit plus a background sweep dropping
// clients idle for two full windows. The sweep stops with ctx.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evictStale(now)
			}
		}
	}()
	return limitMiddleware(l)
}

func limitMiddleware(l *limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := l.take(clientIP(r), time.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retry := int(time.Until(resetAt).Seconds()) + 1
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keys the limiter: first X-Forwarded-For hop, then X-Real-IP,
// then the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
