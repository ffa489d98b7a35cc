package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/qualitygate/domain"
)

func TestCompute(t *testing.T) {
	finding := domain.Finding{RuleID: "r", Message: "m", Severity: common.SeverityHigh, Path: "a", Line: 1}

	t.Run("baseline pass", func(t *testing.T) {
		baseline := &domain.Baseline{Repo: "x", Commit: "c", Fingerprints: []string{finding.Fingerprint()}}
		res := Compute([]domain.Finding{finding}, baseline, common.SeverityHigh)
		assert.True(t, res.Pass)
	})

	t.Run("baseline fail on new", func(t *testing.T) {
		baseline := &domain.Baseline{Repo: "x", Commit: "c"}
		res := Compute([]domain.Finding{finding}, baseline, common.SeverityHigh)
		assert.False(t, res.Pass)
		assert.Contains(t, res.FailedOn, finding.Fingerprint())
	})

	t.Run("no baseline, below threshold passes", func(t *testing.T) {
		low := domain.Finding{RuleID: "r", Message: "m", Severity: common.SeverityLow}
		res := Compute([]domain.Finding{low}, nil, common.SeverityHigh)
		assert.True(t, res.Pass)
	})

	t.Run("critical short-circuits regardless of baseline", func(t *testing.T) {
		critical := domain.Finding{RuleID: "secret-aws", Message: "m", Severity: common.SeverityCritical}
		baseline := &domain.Baseline{Repo: "x", Commit: "c", Fingerprints: []string{critical.Fingerprint()}}
		res := Compute([]domain.Finding{critical}, baseline, common.SeverityHigh)
		assert.False(t, res.Pass)
		assert.Equal(t, "critical finding", res.Reason)
	})
}
