// Package domain holds QualityGate's entities: Finding with its
// deterministic fingerprint, Scan, Baseline, and Waiver.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/opsplatform/core/pkg/common"
)

// Finding is one detector result. Its Fingerprint is the identity used for
// baseline comparison and waiver matching.
type Finding struct {
	ID       string         `json:"id,omitempty"`
	RuleID   string         `json:"rule_id"`
	Message  string         `json:"message"`
	Severity common.Severity `json:"severity"`
	Path     string         `json:"path,omitempty"`
	Line     int            `json:"line,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Fingerprint is SHA256(repr(sorted({rule_id, message, severity, path|"",
// line|0}))): a Python repr of the key-sorted field list, so the hash
// stays stable for any implementation that reproduces the same field set
// and ordering. String values are single-quoted without escaping.
func (f Finding) Fingerprint() string {
	payload := []struct {
		key string
		val string
	}{
		{"line", fmt.Sprintf("%d", f.Line)},
		{"message", fmt.Sprintf("'%s'", f.Message)},
		{"path", fmt.Sprintf("'%s'", f.Path)},
		{"rule_id", fmt.Sprintf("'%s'", f.RuleID)},
		{"severity", fmt.Sprintf("'%s'", f.Severity)},
	}
	sort.Slice(payload, func(i, j int) bool { return payload[i].key < payload[j].key })

	repr := "["
	for i, p := range payload {
		if i > 0 {
			repr += ", "
		}
		repr += fmt.Sprintf("('%s', %s)", p.key, p.val)
	}
	repr += "]"

	sum := sha256.Sum256([]byte(repr))
	return hex.EncodeToString(sum[:])
}

// Scan is one orchestrated run of the gate's detectors against a repo+commit.
type Scan struct {
	ID      string    `json:"id,omitempty"`
	Repo    string    `json:"repo"`
	Commit  string    `json:"commit"`
	Ts      time.Time `json:"ts"`
	Findings []Finding `json:"findings"`
}

// Summary counts findings by severity.
func (s Scan) Summary() map[common.Severity]int {
	counts := map[common.Severity]int{
		common.SeverityInfo: 0, common.SeverityLow: 0, common.SeverityMedium: 0,
		common.SeverityHigh: 0, common.SeverityCritical: 0,
	}
	for _, f := range s.Findings {
		counts[f.Severity]++
	}
	return counts
}

// Baseline is a persisted set of "known, accepted" finding fingerprints.
type Baseline struct {
	Repo         string   `json:"repo"`
	Commit       string   `json:"commit"`
	Fingerprints []string `json:"fingerprints"`
}

// Contains reports whether fp is an accepted baseline fingerprint.
func (b Baseline) Contains(fp string) bool {
	for _, f := range b.Fingerprints {
		if f == fp {
			return true
		}
	}
	return false
}

// Waiver records an accepted finding; the gate records it but does not
// enforce it.
type Waiver struct {
	ID                 string    `json:"id,omitempty"`
	FindingFingerprint string    `json:"finding_fingerprint"`
	Justification      string    `json:"justification"`
	Owner              string    `json:"owner"`
	ExpiresAt          time.Time `json:"expires_at"`
	CreatedAt          time.Time `json:"created_at"`
}

// Verdict is the pass/fail decision QualityGate produces from a scan.
type Verdict struct {
	Pass         bool     `json:"pass"`
	NewFindings  []string `json:"new_findings,omitempty"`
	FailedOn     []string `json:"failed_on,omitempty"`
}
