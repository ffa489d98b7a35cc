package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/qualitygate/domain"
	"github.com/opsplatform/core/qualitygate/ports"
)

func TestMapRuffSeverity(t *testing.T) {
	cases := map[string]common.Severity{
		"F401":   common.SeverityMedium,
		"E501":   common.SeverityMedium,
		"W605":   common.SeverityLow,
		"N806":   common.SeverityLow,
		"C901":   common.SeverityLow,
		"R0913":  common.SeverityLow,
		"S101":   common.SeverityHigh,
		"":       common.SeverityLow,
		"ZZ9999": common.SeverityLow,
	}
	for code, want := range cases {
		assert.Equal(t, want, mapRuffSeverity(code), "code %q", code)
	}
}

func TestRuffDetectorMissingBinary(t *testing.T) {
	d := &RuffDetector{Binary: "ruff-binary-that-does-not-exist-anywhere"}
	findings := d.Scan(context.Background(), ".")
	require.Len(t, findings, 1)
	assert.Equal(t, "ruff-not-found", findings[0].RuleID)
	assert.Equal(t, common.SeverityInfo, findings[0].Severity)
}

func TestSecretsDetectorMissingBinary(t *testing.T) {
	d := &SecretsDetector{Binary: "detect-secrets-binary-that-does-not-exist"}
	findings := d.Scan(context.Background(), ".")
	require.Len(t, findings, 1)
	assert.Equal(t, "secrets-not-found", findings[0].RuleID)
}

func TestRuffDetectorUnparsableOutput(t *testing.T) {
	// "echo" reprints its args, which is not valid JSON, exercising the
	// parse-failure path without depending on a real ruff binary.
	d := &RuffDetector{Binary: "echo"}
	findings := d.Scan(context.Background(), ".")
	require.Len(t, findings, 1)
	assert.Equal(t, "ruff-error", findings[0].RuleID)
	assert.Equal(t, common.SeverityMedium, findings[0].Severity)
}

func TestSecretsDetectorUnparsableOutput(t *testing.T) {
	d := &SecretsDetector{Binary: "echo"}
	findings := d.Scan(context.Background(), ".")
	require.Len(t, findings, 1)
	assert.Equal(t, "secrets-error", findings[0].RuleID)
	assert.Equal(t, common.SeverityMedium, findings[0].Severity)
}

type fakeDetector struct {
	name     string
	findings []domain.Finding
}

func (f *fakeDetector) Name() string { return f.name }
func (f *fakeDetector) Scan(context.Context, string) []domain.Finding {
	return f.findings
}

func TestScannerRunMergesDetectors(t *testing.T) {
	var _ ports.Detector = (*fakeDetector)(nil)

	s := New(
		&fakeDetector{name: "a", findings: []domain.Finding{{RuleID: "a1", Severity: common.SeverityLow}}},
		&fakeDetector{name: "b", findings: []domain.Finding{{RuleID: "b1", Severity: common.SeverityHigh}}},
	)
	merged := s.Run(context.Background(), ".")
	assert.Len(t, merged, 2)
}
