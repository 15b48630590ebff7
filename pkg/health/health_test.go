package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysPass(context.Context) error { return nil }

func alwaysFail(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

// pollAll drives every registered probe n times without the ticker, so
// threshold behaviour is deterministic in tests.
func pollAll(s *Service, n int) {
	probes := append(s.snapshot(&s.liveness), s.snapshot(&s.readiness)...)
	for range n {
		for _, p := range probes {
			p.poll(context.Background())
		}
	}
}

func decodeProbe(t *testing.T, rec *httptest.ResponseRecorder) probeResponse {
	t.Helper()
	var resp probeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLiveEndpoint(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, alwaysPass)
	pollAll(s, 1)

	rec := httptest.NewRecorder()
	s.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pass", decodeProbe(t, rec).Status)
}

func TestFailThreshold(t *testing.T) {
	s := New()
	s.AddLivenessCheck("db", time.Second, alwaysFail("dial refused"))

	// Two failed polls are still within the threshold.
	pollAll(s, failThreshold-1)
	rec := httptest.NewRecorder()
	s.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The third consecutive failure marks the probe down.
	pollAll(s, 1)
	rec = httptest.NewRecorder()
	s.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decodeProbe(t, rec)
	assert.Equal(t, "fail", resp.Status)
	assert.Equal(t, "dial refused", resp.Failed["db"])
}

func TestRecoveryOnFirstPass(t *testing.T) {
	s := New()
	flaky := true
	s.AddReadinessCheck("postgres", time.Second, func(context.Context) error {
		if flaky {
			return errors.New("connection reset")
		}
		return nil
	})
	s.SetReady(true)

	pollAll(s, failThreshold)
	assert.False(t, s.IsReady())

	// One passing poll is enough to recover.
	flaky = false
	pollAll(s, 1)
	assert.True(t, s.IsReady())
}

func TestReadyEndpointGatedBySetReady(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, alwaysPass)
	pollAll(s, 1)

	rec := httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", decodeProbe(t, rec).Failed["service"])

	s.SetReady(true)
	rec = httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Graceful shutdown flips the gate back.
	s.SetReady(false)
	rec = httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIsReadyRequiresPassingChecks(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, alwaysFail("down"))
	s.SetReady(true)

	pollAll(s, failThreshold)

	assert.False(t, s.IsReady())
}

func TestCheckTimeoutIsEnforced(t *testing.T) {
	s := New()
	s.AddReadinessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	s.SetReady(true)

	pollAll(s, failThreshold)

	assert.False(t, s.IsReady())
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
