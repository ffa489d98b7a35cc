// Package memory implements KnowledgeStore's ports.Repository, SearchIndex,
// and BlobStore in-process, for tests and the PERSISTENCE=memory mode.
// Grounded on mnemosyne's infrastructure/persistence/in_memory.py.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/opsplatform/core/knowledgestore/domain"
	"github.com/opsplatform/core/knowledgestore/ports"
	"github.com/opsplatform/core/pkg/apierr"
)

// Store is a single in-memory backend satisfying Repository, SearchIndex,
// and BlobStore. Real deployments would not share state across the three
// ports this way; the in-process adapter can because it is test
// infrastructure, "durable adapter is the default, memory
// adapter is test infrastructure" design note.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*domain.KnowledgeEntry
	runs    map[string]*domain.IngestionRun
	blobs   map[string][]byte

	indexMu sync.RWMutex
	docs    map[string]indexedDoc
}

type indexedDoc struct {
	text        string
	tags        map[string]struct{}
	taxonomy    map[string]struct{}
	sourceType  domain.SourceType
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]*domain.KnowledgeEntry),
		runs:    make(map[string]*domain.IngestionRun),
		blobs:   make(map[string][]byte),
		docs:    make(map[string]indexedDoc),
	}
}

func (s *Store) GetEntry(_ context.Context, id string) (*domain.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, apierr.NotFoundf("knowledge entry %s", id)
	}
	cp := *e
	cp.Versions = append([]domain.Version(nil), e.Versions...)
	return &cp, nil
}

func (s *Store) PutEntry(_ context.Context, entry *domain.KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	cp.Versions = append([]domain.Version(nil), entry.Versions...)
	s.entries[entry.ID] = &cp
	return nil
}

func (s *Store) ListEntries(_ context.Context) ([]*domain.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.KnowledgeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		cp.Versions = append([]domain.Version(nil), e.Versions...)
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) GetRun(_ context.Context, runID string) (*domain.IngestionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, apierr.NotFoundf("ingestion run %s", runID)
	}
	return r, nil
}

func (s *Store) PutRun(_ context.Context, run *domain.IngestionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.RunID] = run
	return nil
}

func (s *Store) Put(_ context.Context, key string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), content...)
	return "mem://" + key, nil
}

func (s *Store) Index(_ context.Context, entry *domain.KnowledgeEntry, latest domain.Version) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	tags := make(map[string]struct{}, len(latest.Tags))
	for _, t := range latest.Tags {
		tags[t.Key] = struct{}{}
	}
	taxonomy := make(map[string]struct{}, len(latest.Taxonomy))
	for _, t := range latest.Taxonomy {
		taxonomy[t] = struct{}{}
	}

	s.docs[entry.ID] = indexedDoc{
		text:       strings.ToLower(latest.NormalizedContent + " " + latest.Summary),
		tags:       tags,
		taxonomy:   taxonomy,
		sourceType: entry.Source.Type,
	}
	return nil
}

func (s *Store) Search(_ context.Context, q ports.SearchQuery) ([]string, error) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	var ids []string
	for id, doc := range s.docs {
		if q.Text != "" && !strings.Contains(doc.text, strings.ToLower(q.Text)) {
			continue
		}
		if len(q.Tags) > 0 && !intersects(doc.tags, q.Tags) {
			continue
		}
		if len(q.Taxonomy) > 0 && !intersects(doc.taxonomy, q.Taxonomy) {
			continue
		}
		if len(q.SourceTypes) > 0 && !containsSourceType(q.SourceTypes, doc.sourceType) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func intersects(set map[string]struct{}, values []string) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func containsSourceType(types []domain.SourceType, t domain.SourceType) bool {
	for _, st := range types {
		if st == t {
			return true
		}
	}
	return false
}
