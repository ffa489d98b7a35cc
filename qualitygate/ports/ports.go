// Package ports declares the capability interfaces QualityGate's use-cases
// depend on: detectors, and persistence for scans/baselines/waivers.
package ports

import (
	"context"

	"github.com/opsplatform/core/qualitygate/domain"
)

// Detector is one scanner capability: lint, format, secrets. Implementations
// must apply their own bounded timeout (the design: 60s for detector
// subprocesses) and convert unknown failures into a low-severity,
// self-describing Finding rather than returning an error that aborts the
// scan.
type Detector interface {
	Name() string
	Scan(ctx context.Context, repoPath string) []domain.Finding
}

// ScanRepository persists scans.
type ScanRepository interface {
	Save(ctx context.Context, scan domain.Scan) (string, error)
	Get(ctx context.Context, id string) (domain.Scan, error)
}

// BaselineRepository persists baselines, one per repo.
type BaselineRepository interface {
	Save(ctx context.Context, baseline domain.Baseline) error
	GetForRepo(ctx context.Context, repo string) (domain.Baseline, error)
}

// WaiverRepository persists waivers; the gate records but does not enforce
// them
type WaiverRepository interface {
	Save(ctx context.Context, waiver domain.Waiver) (string, error)
	ListActive(ctx context.Context) ([]domain.Waiver, error)
}
