// Package verdict computes QualityGate's pass/fail decision from a set of
// findings, an optional baseline, and a severity threshold
package verdict

import (
	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/qualitygate/domain"
)

// Result is the outcome of Compute: Pass/fail plus the fingerprints that
// drove a failing verdict, for rendering in the CLI's JSON report.
type Result struct {
	Pass     bool     `json:"pass"`
	Reason   string   `json:"reason,omitempty"`
	FailedOn []string `json:"failed_on,omitempty"`
}

// Compute implements the verdict rule:
//
//  1. CRITICAL short-circuit: any CRITICAL finding fails immediately,
//     regardless of baseline.
//  2. With a baseline: only findings whose fingerprint is not in the
//     baseline ("new" findings) are considered against fail_on.
//  3. Without a baseline: all findings are considered against fail_on.
func Compute(findings []domain.Finding, baseline *domain.Baseline, failOn common.Severity) Result {
	for _, f := range findings {
		if f.Severity == common.SeverityCritical {
			return Result{Pass: false, Reason: "critical finding", FailedOn: []string{f.Fingerprint()}}
		}
	}

	considered := findings
	if baseline != nil {
		considered = nil
		for _, f := range findings {
			if !baseline.Contains(f.Fingerprint()) {
				considered = append(considered, f)
			}
		}
	}

	var failedOn []string
	for _, f := range considered {
		if f.Severity.GTE(failOn) {
			failedOn = append(failedOn, f.Fingerprint())
		}
	}
	if len(failedOn) > 0 {
		reason := "new finding at or above threshold"
		if baseline == nil {
			reason = "finding at or above threshold"
		}
		return Result{Pass: false, Reason: reason, FailedOn: failedOn}
	}
	return Result{Pass: true}
}
