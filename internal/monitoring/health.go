// Package monitoring evaluates liveness and readiness probes for the health
// endpoints.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// rank orders statuses from healthiest to worst.
func (s ProbeStatus) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// ProbeResult is the outcome of one dependency check.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Report aggregates the probe results of one evaluation.
type Report struct {
	Success   bool          `json:"success"`
	Status    ProbeStatus   `json:"status"`
	CheckedAt time.Time     `json:"checked_at"`
	Checks    []ProbeResult `json:"checks"`
}

// Check is a named dependency probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// NewCheck builds a Check. A nil fn always reports down.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager holds the liveness and readiness probes.
type HealthManager struct {
	liveness  []Check
	readiness []Check
	now       func() time.Time
}

// NewHealthManager returns a manager with no probes; an empty evaluation is up.
func NewHealthManager() *HealthManager {
	return &HealthManager{now: time.Now}
}

// RegisterLiveness appends a liveness probe. Unnamed checks are ignored.
func (m *HealthManager) RegisterLiveness(check Check) {
	if check.Name != "" {
		m.liveness = append(m.liveness, check)
	}
}

// RegisterReadiness appends a readiness probe. Unnamed checks are ignored.
func (m *HealthManager) RegisterReadiness(check Check) {
	if check.Name != "" {
		m.readiness = append(m.readiness, check)
	}
}

// Liveness runs every liveness probe.
func (m *HealthManager) Liveness(ctx context.Context) Report {
	return m.evaluate(ctx, m.liveness)
}

// Readiness runs every liveness and readiness probe.
func (m *HealthManager) Readiness(ctx context.Context) Report {
	all := append(append([]Check(nil), m.liveness...), m.readiness...)
	return m.evaluate(ctx, all)
}

// evaluate runs checks concurrently. Results keep registration order and
// the report takes the worst status seen.
func (m *HealthManager) evaluate(ctx context.Context, checks []Check) Report {
	results := make([]ProbeResult, len(checks))

	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			results[i] = runCheck(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusUp, CheckedAt: m.now().UTC(), Checks: results}
	for _, r := range results {
		if r.Status.rank() > report.Status.rank() {
			report.Status = r.Status
		}
	}
	report.Success = report.Status == StatusUp
	return report
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
	}()
	return check.Run(ctx)
}

// ResultFromError maps err onto a result: nil is up, a timeout or
// cancellation is degraded, anything else is down.
func ResultFromError(err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	switch {
	case err == nil:
		return ProbeResult{Status: StatusUp, Duration: duration}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ProbeResult{Status: StatusDegraded, Details: err.Error(), Duration: duration}
	default:
		return ProbeResult{Status: StatusDown, Details: err.Error(), Duration: duration}
	}
}
