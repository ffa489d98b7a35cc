package ingest

import (
	"context"

	"github.com/opsplatform/core/knowledgestore/domain"
	"github.com/opsplatform/core/knowledgestore/ports"
	"github.com/opsplatform/core/pkg/apierr"
)

// Search resolves matching entry ids through the index, then hydrates them
// from the repository, Search contract.
func (p *Pipeline) Search(ctx context.Context, q ports.SearchQuery) ([]*domain.KnowledgeEntry, error) {
	ids, err := p.Index.Search(ctx, q)
	if err != nil {
		return nil, apierr.Externalf(err, "searching index")
	}
	entries := make([]*domain.KnowledgeEntry, 0, len(ids))
	for _, id := range ids {
		e, err := p.Repo.GetEntry(ctx, id)
		if err != nil {
			if apierr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Reprocess retrieves the stored requests of a completed run and returns
// its original results unchanged — the platform's pinned "pure replay"
// interpretation rather than a fresh re-run.
func (p *Pipeline) Reprocess(ctx context.Context, runID string) (*domain.IngestionRun, error) {
	run, err := p.Repo.GetRun(ctx, runID)
	if err != nil {
		return nil, apierr.NotFoundf("ingestion run %s", runID)
	}
	return run, nil
}

// GetRun returns the stored run, or apierr.ErrNotFound.
func (p *Pipeline) GetRun(ctx context.Context, runID string) (*domain.IngestionRun, error) {
	run, err := p.Repo.GetRun(ctx, runID)
	if err != nil {
		return nil, apierr.NotFoundf("ingestion run %s", runID)
	}
	return run, nil
}
