package health

import (
	"context"
	"time"

	"github.com/nanotrace/certification-backend/internal/observability"

	"golang.org/x/sync/errgroup"
)

type CheckResult struct {
	Name       string `json:"name"`
	Healthy    bool   `json:"healthy"`
	Optional   bool   `json:"optional,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// optionalChecker marks a dependency whose failure degrades but does not fail readiness.
type optionalChecker struct {
	Checker
}

func Optional(c Checker) Checker {
	if c == nil {
		return nil
	}
	return optionalChecker{Checker: c}
}

type ProbeRunner struct {
	checkers    []Checker
	timeout     time.Duration
	gracePeriod time.Duration
	startedAt   time.Time
}

func NewProbeRunner(timeout, gracePeriod time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = time.Second
	}
	active := make([]Checker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			active = append(active, c)
		}
	}
	return &ProbeRunner{
		checkers:    active,
		timeout:     timeout,
		gracePeriod: gracePeriod,
		startedAt:   time.Now(),
	}
}

// Ready runs every checker concurrently and reports false if any required one fails.
func (r *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if r == nil {
		return true, nil
	}
	if r.gracePeriod > 0 && time.Since(r.startedAt) < r.gracePeriod {
		return false, []CheckResult{{Name: "startup_grace", Healthy: false, Error: "startup grace period active"}}
	}

	results := make([]CheckResult, len(r.checkers))
	var g errgroup.Group
	for i, c := range r.checkers {
		g.Go(func() error {
			results[i] = r.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, res := range results {
		if !res.Healthy && !res.Optional {
			ready = false
		}
	}
	return ready, results
}

func (r *ProbeRunner) run(ctx context.Context, c Checker) CheckResult {
	_, optional := c.(optionalChecker)
	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(checkCtx)
	elapsed := time.Since(start)

	res := CheckResult{Name: c.Name(), Healthy: err == nil, Optional: optional, DurationMS: elapsed.Milliseconds()}
	outcome := "ready"
	if err != nil {
		res.Error = err.Error()
		outcome = "unready"
	}
	observability.RecordHealthCheckResult(ctx, res.Name, outcome)
	observability.RecordHealthCheckDuration(ctx, res.Name, elapsed)
	return res
}
