// Package health serves the /livez and /readyz probes for the checkout
// service.
//
// Registered checks are polled together on one ticker. A check has to fail
// failThreshold consecutive polls before its probe reports it down, and
// recovers on the first passing poll, so a single slow database ping does
// not bounce the pod.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// failThreshold is how many consecutive failed polls mark a probe down.
const failThreshold = 3

// CheckFunc reports nil while the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// probe is one registered check plus its polled state. poll runs on the
// single ticker goroutine; failure is read from HTTP handlers, hence the
// mutex.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	mu      sync.Mutex
	fails   int
	lastErr error
	down    bool
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.check(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err == nil {
		p.fails = 0
		p.down = false
		return
	}
	p.fails++
	if p.fails >= failThreshold {
		p.down = true
	}
}

// failure returns the probe's failure message and whether it is down.
func (p *probe) failure() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.down {
		return "", false
	}
	if p.lastErr != nil {
		return p.lastErr.Error(), true
	}
	return "check failed", true
}

// Service tracks liveness and readiness state for the process.
type Service struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*probe
	readiness []*probe
	stop      context.CancelFunc
}

// New returns a Service in the not-ready state. Call SetReady(true) once
// startup completes.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a check behind /livez: process health, such
// as goroutine leaks. A probe starts out passing.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, &probe{name: name, timeout: timeout, check: check})
}

// AddReadinessCheck registers a check behind /readyz: whether the service
// can take traffic, such as database connectivity.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, &probe{name: name, timeout: timeout, check: check})
}

// Start polls every registered check on one ticker until Stop is called or
// ctx is cancelled. Register all checks before Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stop = cancel
	probes := make([]*probe, 0, len(s.liveness)+len(s.readiness))
	probes = append(probes, s.liveness...)
	probes = append(probes, s.readiness...)
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, p := range probes {
			p.poll(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, p := range probes {
					p.poll(ctx)
				}
			}
		}
	}()
}

// Stop cancels the poll loop. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// SetReady flips the manual readiness gate: true once startup completes,
// false at the start of graceful shutdown so the load balancer drains the
// instance before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the service should receive traffic: manually
// marked ready and every readiness check passing.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	for _, p := range s.snapshot(&s.readiness) {
		if _, down := p.failure(); down {
			return false
		}
	}
	return true
}

func (s *Service) snapshot(probes *[]*probe) []*probe {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*probe, len(*probes))
	copy(out, *probes)
	return out
}

type probeResponse struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

// LiveEndpoint serves /livez: 200 while every liveness check passes, 503
// with the failing checks otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, failures(s.snapshot(&s.liveness)))
}

// ReadyEndpoint serves /readyz: 200 while the service is marked ready and
// every readiness check passes.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	failed := failures(s.snapshot(&s.readiness))
	if !s.ready.Load() {
		failed["service"] = "not ready"
	}
	writeProbe(w, failed)
}

func failures(probes []*probe) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		if msg, down := p.failure(); down {
			failed[p.name] = msg
		}
	}
	return failed
}

func writeProbe(w http.ResponseWriter, failed map[string]string) {
	resp := probeResponse{Status: "pass"}
	status := http.StatusOK
	if len(failed) > 0 {
		resp = probeResponse{Status: "fail", Failed: failed}
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
