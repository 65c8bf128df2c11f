// Package doctor diagnoses an oltstat installation: whether the config
// resolves, whether the polling user can write snapshots, locks and metrics,
// whether the chosen transport can run, and optionally whether a device
// answers with a document.
package doctor

import (
	"context"
	"fmt"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string
	Status     CheckStatus
	Message    string
	Suggestion string
	Fixable    bool // --fix can address this
}

// Check is one diagnostic.
type Check interface {
	Name() string

	// Category groups checks in the report, e.g. "CONFIG" or "DEVICE".
	Category() string

	Run(ctx context.Context) CheckResult

	// Fix repairs what Run reported as Fixable. It is a no-op otherwise.
	Fix() error
}

// Report pairs each check with its latest result.
type Report struct {
	Checks  []Check
	Results []CheckResult
}

// Run executes checks in order.
func Run(ctx context.Context, checks []Check) *Report {
	r := &Report{Checks: checks, Results: make([]CheckResult, len(checks))}
	for i, check := range checks {
		r.Results[i] = check.Run(ctx)
	}
	return r
}

// Fix runs Fix on every fixable issue and re-runs the check afterwards.
// It returns one error per fix that failed.
func (r *Report) Fix(ctx context.Context) []error {
	var errs []error
	for i, check := range r.Checks {
		res := r.Results[i]
		if !res.Fixable || res.Status == StatusPass {
			continue
		}
		if err := check.Fix(); err != nil {
			errs = append(errs, fmt.Errorf("fix %s: %w", check.Name(), err))
			continue
		}
		r.Results[i] = check.Run(ctx)
	}
	return errs
}

// Categories returns each distinct category in first-seen order.
func (r *Report) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, check := range r.Checks {
		if cat := check.Category(); !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	return out
}

// Count returns how many results have status s.
func (r *Report) Count(s CheckStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any check failed. Warnings do not count.
func (r *Report) Failed() bool {
	return r.Count(StatusFail) > 0
}

// Fixable returns the number of open issues Fix could address.
func (r *Report) Fixable() int {
	n := 0
	for _, res := range r.Results {
		if res.Fixable && res.Status != StatusPass {
			n++
		}
	}
	return n
}

// Summary is the closing line of the report.
func (r *Report) Summary() string {
	issues := r.Count(StatusWarn) + r.Count(StatusFail)
	switch {
	case issues == 0:
		return "Everything looks good"
	case r.Fixable() > 0:
		return fmt.Sprintf("%d issue%s found (%d fixable with --fix)", issues, pluralize(issues), r.Fixable())
	}
	return fmt.Sprintf("%d issue%s found", issues, pluralize(issues))
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
