// Package detect runs QualityGate's detector capabilities in parallel and
// merges their findings, grounded on aegis's scanners/base.py Scanner
// protocol and cli.py's orchestration.
package detect

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/opsplatform/core/qualitygate/domain"
	"github.com/opsplatform/core/qualitygate/ports"
)

// Scanner orchestrates a fixed set of detectors against a repo path.
type Scanner struct {
	Detectors []ports.Detector
}

func New(detectors ...ports.Detector) *Scanner {
	return &Scanner{Detectors: detectors}
}

// Run executes every detector concurrently and merges their findings.
// Detectors never fail the scan outright — each one is responsible for
// converting its own unknown failures into findings — so Run itself
// returns no error.
func (s *Scanner) Run(ctx context.Context, repoPath string) []domain.Finding {
	results := make([][]domain.Finding, len(s.Detectors))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range s.Detectors {
		i, d := i, d
		g.Go(func() error {
			results[i] = d.Scan(gctx, repoPath)
			return nil
		})
	}
	_ = g.Wait()

	var merged []domain.Finding
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}
