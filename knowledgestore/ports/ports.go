// Package ports declares the capability interfaces KnowledgeStore's
// use-cases depend on. Adapters in store/memory and store/postgres satisfy
// these; the pipeline itself never imports a concrete backend.
package ports

import (
	"context"

	"github.com/opsplatform/core/knowledgestore/domain"
)

// Repository persists KnowledgeEntry and IngestionRun aggregates.
type Repository interface {
	// GetEntry returns the entry for id, or apierr.ErrNotFound.
	GetEntry(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	// PutEntry upserts the full entry (used after a version append).
	PutEntry(ctx context.Context, entry *domain.KnowledgeEntry) error
	// ListEntries returns every stored entry, for Search to filter over.
	ListEntries(ctx context.Context) ([]*domain.KnowledgeEntry, error)

	// GetRun returns the run for runID, or apierr.ErrNotFound.
	GetRun(ctx context.Context, runID string) (*domain.IngestionRun, error)
	// PutRun stores a completed run once. Runs are never mutated after.
	PutRun(ctx context.Context, run *domain.IngestionRun) error
}

// SearchIndex maintains the queryable projection of each entry's latest
// version. Index is called once per successfully persisted version.
type SearchIndex interface {
	Index(ctx context.Context, entry *domain.KnowledgeEntry, latest domain.Version) error
	// Search returns entry ids matching every supplied filter. A nil or
	// empty slice for a filter means "no constraint on that dimension".
	Search(ctx context.Context, q SearchQuery) ([]string, error)
}

// SearchQuery is the composed filter for KnowledgeStore.Search.
type SearchQuery struct {
	Text        string
	Tags        []string
	Taxonomy    []string
	SourceTypes []domain.SourceType
}

// BlobStore persists raw document content, when configured. With a nil
// BlobStore no raw content is written and raw_uri stays unset; the
// persist_raw audit event is still recorded as ok.
type BlobStore interface {
	// Put writes content under key and returns its retrieval URI.
	Put(ctx context.Context, key string, content []byte) (uri string, err error)
}
