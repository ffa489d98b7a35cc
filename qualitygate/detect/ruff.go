package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/qualitygate/domain"
)

// SubprocessTimeout is the bound the design places on detector subprocesses.
const SubprocessTimeout = 60 * time.Second

// RuffDetector shells out to `ruff check --output-format=json`, grounded on
// aegis's scanners/ruff_scanner.py. Absent binaries, timeouts, and parse
// failures are converted into a single self-describing low-severity
// Finding rather than failing the scan.
type RuffDetector struct {
	// Binary overrides the executable name, for tests.
	Binary string
}

func (d *RuffDetector) Name() string { return "ruff" }

type ruffIssue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Location struct {
		Row int `json:"row"`
	} `json:"location"`
}

func (d *RuffDetector) Scan(ctx context.Context, repoPath string) []domain.Finding {
	bin := d.Binary
	if bin == "" {
		bin = "ruff"
	}

	ctx, cancel := context.WithTimeout(ctx, SubprocessTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "check", repoPath, "--output-format=json")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return []domain.Finding{{
			RuleID:   "ruff-timeout",
			Message:  "ruff scanner timed out",
			Severity: common.SeverityMedium,
		}}
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return []domain.Finding{{
				RuleID:   "ruff-not-found",
				Message:  "ruff binary not found in PATH",
				Severity: common.SeverityInfo,
			}}
		}
	}

	if stdout.Len() == 0 {
		return nil
	}
	var issues []ruffIssue
	if jerr := json.Unmarshal(stdout.Bytes(), &issues); jerr != nil {
		return []domain.Finding{{
			RuleID:   "ruff-error",
			Message:  "ruff scanner failed: " + jerr.Error(),
			Severity: common.SeverityMedium,
		}}
	}

	findings := make([]domain.Finding, 0, len(issues))
	for _, issue := range issues {
		findings = append(findings, domain.Finding{
			RuleID:   "ruff-" + orUnknown(issue.Code),
			Message:  orDefault(issue.Message, "Ruff violation"),
			Severity: mapRuffSeverity(issue.Code),
			Path:     issue.Filename,
			Line:     issue.Location.Row,
			Extra: map[string]any{
				"code": issue.Code,
				"url":  issue.URL,
			},
		})
	}
	return findings
}

// mapRuffSeverity implements the rule-family prefix mapping:
// F,E -> MEDIUM; W,N -> LOW; C,R -> LOW; S -> HIGH; unknown -> LOW.
func mapRuffSeverity(code string) common.Severity {
	if code == "" {
		return common.SeverityLow
	}
	switch code[0] {
	case 'F', 'E':
		return common.SeverityMedium
	case 'W', 'N':
		return common.SeverityLow
	case 'C', 'R':
		return common.SeverityLow
	case 'S':
		return common.SeverityHigh
	default:
		return common.SeverityLow
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
