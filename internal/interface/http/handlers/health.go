// Package handlers contains reusable HTTP building blocks: the dependency
// health report and the per-client rate limiter.
package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// CheckFunc reports on one dependency. A non-nil error marks it down.
type CheckFunc func(ctx context.Context) error

// HealthChecker is what the status routes need.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthStatus is the body of GET /health. Healthy drops when any check
// fails. Ready drops only when a required one does.
type HealthStatus struct {
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is one dependency's line in the report.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Required bool   `json:"required"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type check struct {
	run      CheckFunc
	required bool
}

// Report runs the registered checks concurrently, each under its own
// deadline.
type Report struct {
	mu      sync.RWMutex
	checks  map[string]check
	version string
	timeout time.Duration
	started time.Time
	now     func() time.Time
}

// NewReport builds an empty report. A non-positive timeout means 3s.
func NewReport(version string, timeout time.Duration) *Report {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Report{
		checks:  make(map[string]check),
		version: version,
		timeout: timeout,
		started: time.Now(),
		now:     time.Now,
	}
}

// Require adds a check the server cannot serve without, e.g. the database.
func (r *Report) Require(name string, fn CheckFunc) { r.add(name, check{run: fn, required: true}) }

// Watch adds a check whose failure degrades the server without taking it
// out of rotation, e.g. the cross-instance event relay.
func (r *Report) Watch(name string, fn CheckFunc) { r.add(name, check{run: fn}) }

func (r *Report) add(name string, c check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = c
}

// Check runs every check and folds the results.
func (r *Report) Check(ctx context.Context) HealthStatus {
	r.mu.RLock()
	checks := make(map[string]check, len(r.checks))
	for name, c := range r.checks {
		checks[name] = c
	}
	r.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Message:   "All checks passed",
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    r.now().Sub(r.started).Round(time.Second).String(),
		Timestamp: r.now().UTC(),
		Version:   r.version,
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := r.run(ctx, c)
			mu.Lock()
			status.Checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	var down, degraded []string
	for name, res := range status.Checks {
		switch {
		case res.Healthy:
		case res.Required:
			down = append(down, name)
		default:
			degraded = append(degraded, name)
		}
	}
	sort.Strings(down)
	sort.Strings(degraded)

	switch {
	case len(down) > 0:
		status.Healthy, status.Ready = false, false
		status.Message = "Unavailable: " + strings.Join(append(down, degraded...), ", ")
	case len(degraded) > 0:
		status.Healthy = false
		status.Message = "Degraded: " + strings.Join(degraded, ", ")
	}
	return status
}

func (r *Report) run(ctx context.Context, c check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := c.run(ctx)
	res := CheckResult{
		Healthy:  err == nil,
		Required: c.required,
		Message:  "OK",
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		res.Message = err.Error()
	}
	return res
}

// NewListCheck turns a cheap read, e.g. listing the mentor directory, into a check.
func NewListCheck[T any](list func(ctx context.Context) ([]T, error)) CheckFunc {
	return func(ctx context.Context) error {
		_, err := list(ctx)
		return err
	}
}
