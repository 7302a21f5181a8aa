package http

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// CheckFunc probes one dependency and returns an error if it is unavailable.
type CheckFunc func(ctx context.Context) error

// Overall service states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Critical bool   `json:"critical"`
	Message  string `json:"message"`
	Duration string `json:"duration"`
}

type check struct {
	fn       CheckFunc
	critical bool
}

// HealthChecker runs registered probes concurrently.
// A failing critical probe makes the service unhealthy; a failing optional
// probe only degrades it. The snapshot cache is optional because the engine
// keeps working from the store without it.
type HealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]check
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewHealthChecker creates a checker with no probes.
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		checks:    make(map[string]check),
		startTime: time.Now(),
		version:   version,
		timeout:   3 * time.Second,
	}
}

// SetTimeout sets the per-probe timeout.
func (h *HealthChecker) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		h.timeout = timeout
	}
}

// AddCritical registers a probe whose failure makes the service unhealthy.
func (h *HealthChecker) AddCritical(name string, fn CheckFunc) {
	h.add(name, fn, true)
}

// AddOptional registers a probe whose failure only degrades the service.
func (h *HealthChecker) AddOptional(name string, fn CheckFunc) {
	h.add(name, fn, false)
}

func (h *HealthChecker) add(name string, fn CheckFunc, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: fn, critical: critical}
}

// Check runs every probe and aggregates the results.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, c := range checks {
		wg.Add(1)
		go func(name string, c check) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()

			start := time.Now()
			err := c.fn(checkCtx)
			result := CheckResult{
				Healthy:  err == nil,
				Critical: c.critical,
				Message:  "OK",
				Duration: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				result.Message = err.Error()
			}

			mu.Lock()
			status.Checks[name] = result
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	var failed []string
	for name, r := range status.Checks {
		if r.Healthy {
			continue
		}
		failed = append(failed, name)
		if r.Critical {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		status.Message = "failing checks: " + strings.Join(failed, ", ")
	}
	return status
}
