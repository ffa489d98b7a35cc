// Package memory implements QualityGate's ScanRepository, BaselineRepository,
// and WaiverRepository in-process, grounded on mnemosyne/eyeofhorusops's
// in-memory adapters and used the same way here: test infrastructure, with
// store/postgres as the durable default.
//
// Three distinct types rather than one, following opscontroller/store/
// memory's precedent: ScanRepository.Save and BaselineRepository.Save (and
// WaiverRepository.Save) share a method name with different signatures,
// which Go cannot overload on a single receiver.
package memory

import (
	"sync"

	"context"

	"github.com/opsplatform/core/pkg/apierr"
	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/qualitygate/domain"
)

// ScanStore implements ports.ScanRepository.
type ScanStore struct {
	mu    sync.RWMutex
	scans map[string]domain.Scan
}

func NewScanStore() *ScanStore {
	return &ScanStore{scans: make(map[string]domain.Scan)}
}

func (s *ScanStore) Save(_ context.Context, scan domain.Scan) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scan.ID == "" {
		scan.ID = common.NewID()
	}
	s.scans[scan.ID] = scan
	return scan.ID, nil
}

func (s *ScanStore) Get(_ context.Context, id string) (domain.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scan, ok := s.scans[id]
	if !ok {
		return domain.Scan{}, apierr.NotFoundf("scan %s", id)
	}
	return scan, nil
}

// BaselineStore implements ports.BaselineRepository, keyed by repo.
type BaselineStore struct {
	mu        sync.RWMutex
	baselines map[string]domain.Baseline
}

func NewBaselineStore() *BaselineStore {
	return &BaselineStore{baselines: make(map[string]domain.Baseline)}
}

func (s *BaselineStore) Save(_ context.Context, baseline domain.Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselines[baseline.Repo] = baseline
	return nil
}

func (s *BaselineStore) GetForRepo(_ context.Context, repo string) (domain.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	baseline, ok := s.baselines[repo]
	if !ok {
		return domain.Baseline{}, apierr.NotFoundf("baseline for repo %s", repo)
	}
	return baseline, nil
}

// WaiverStore implements ports.WaiverRepository.
type WaiverStore struct {
	mu      sync.RWMutex
	waivers map[string]domain.Waiver
}

func NewWaiverStore() *WaiverStore {
	return &WaiverStore{waivers: make(map[string]domain.Waiver)}
}

func (s *WaiverStore) Save(_ context.Context, waiver domain.Waiver) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if waiver.ID == "" {
		waiver.ID = common.NewID()
	}
	s.waivers[waiver.ID] = waiver
	return waiver.ID, nil
}

func (s *WaiverStore) ListActive(_ context.Context) ([]domain.Waiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := common.SystemClock{}.Now()
	out := make([]domain.Waiver, 0, len(s.waivers))
	for _, w := range s.waivers {
		if w.ExpiresAt.After(now) {
			out = append(out, w)
		}
	}
	return out, nil
}
