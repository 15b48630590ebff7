package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limitedRequest(t *testing.T, handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_BudgetAndRejection(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(noopHandler())

	for i := range 3 {
		rec := limitedRequest(t, handler, "10.0.0.1:1000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d should be within budget", i+1)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	}

	rec := limitedRequest(t, handler, "10.0.0.1:1000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusTooManyRequests), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_ClientsAreIndependent(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(noopHandler())

	assert.Equal(t, http.StatusOK, limitedRequest(t, handler, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, limitedRequest(t, handler, "10.0.0.2:1000").Code)
	// Port changes do not reset a client's budget.
	assert.Equal(t, http.StatusTooManyRequests, limitedRequest(t, handler, "10.0.0.1:2000").Code)
}

func TestRateLimit_ForwardedForKeysTheClient(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(noopHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = "192.168.0.1:1000"
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 198.51.100.7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Same origin client behind a different proxy hop is still limited.
	req2 := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req2.RemoteAddr = "192.168.0.2:1000"
	req2.Header.Set("X-Forwarded-For", "203.0.113.50, 198.51.100.7")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

func TestLimiter_SlidingWindowWeighting(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 10, Window: time.Minute})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Fill the budget in the first window.
	for range 10 {
		_, _, ok := l.take("c", base)
		require.True(t, ok)
	}
	_, _, ok := l.take("c", base)
	require.False(t, ok)

	// Halfway into the next window the previous 10 still weigh 5, so
	// about half the budget is free again.
	halfway := base.Add(90 * time.Second)
	granted := 0
	for range 10 {
		if _, _, ok := l.take("c", halfway); ok {
			granted++
		}
	}
	assert.Equal(t, 5, granted)

	// Two full windows later the history is gone.
	later := base.Add(3 * time.Minute)
	_, _, ok = l.take("c", later)
	assert.True(t, ok)
}
