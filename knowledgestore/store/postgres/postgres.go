// Package postgres persists KnowledgeStore's entries and runs as JSONB
// documents over jackc/pgx/v5, the platform's uniform document-store
// engine across every service.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsplatform/core/knowledgestore/domain"
	"github.com/opsplatform/core/knowledgestore/ports"
	"github.com/opsplatform/core/pkg/apierr"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is passed to pkg/dbutil.Open alongside Migrations.
const MigrationsDir = "migrations"

// Store implements ports.Repository and ports.SearchIndex over a pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-migrated pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetEntry(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT source_id, source_name, source_type, external_id, versions
		FROM knowledge_entries WHERE id = $1`, id)

	var sourceID, sourceName, sourceType, externalID string
	var versionsJSON []byte
	if err := row.Scan(&sourceID, &sourceName, &sourceType, &externalID, &versionsJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apierr.NotFoundf("knowledge entry %s", id)
		}
		return nil, apierr.Externalf(err, "loading knowledge entry %s", id)
	}
	var versions []domain.Version
	if err := json.Unmarshal(versionsJSON, &versions); err != nil {
		return nil, apierr.Externalf(err, "decoding versions for %s", id)
	}
	return &domain.KnowledgeEntry{
		ID:         id,
		Source:     domain.Source{ID: sourceID, Name: sourceName, Type: domain.SourceType(sourceType)},
		ExternalID: externalID,
		Versions:   versions,
	}, nil
}

func (s *Store) PutEntry(ctx context.Context, entry *domain.KnowledgeEntry) error {
	versionsJSON, err := json.Marshal(entry.Versions)
	if err != nil {
		return apierr.Externalf(err, "encoding versions for %s", entry.ID)
	}
	var latestFingerprint string
	var searchText string
	var tags, taxonomy []string
	if latest, ok := entry.LatestVersion(); ok {
		latestFingerprint = latest.Fingerprint
		searchText = latest.NormalizedContent + " " + latest.Summary
		taxonomy = latest.Taxonomy
		for _, t := range latest.Tags {
			tags = append(tags, t.Key)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO knowledge_entries (id, source_id, source_name, source_type, external_id, versions, latest_fingerprint, search_text, tags, taxonomy)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			versions = EXCLUDED.versions,
			latest_fingerprint = EXCLUDED.latest_fingerprint,
			search_text = EXCLUDED.search_text,
			tags = EXCLUDED.tags,
			taxonomy = EXCLUDED.taxonomy`,
		entry.ID, entry.Source.ID, entry.Source.Name, string(entry.Source.Type), entry.ExternalID,
		versionsJSON, latestFingerprint, searchText, tags, taxonomy,
	)
	if err != nil {
		return apierr.Externalf(err, "persisting knowledge entry %s", entry.ID)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context) ([]*domain.KnowledgeEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM knowledge_entries`)
	if err != nil {
		return nil, apierr.Externalf(err, "listing knowledge entries")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apierr.Externalf(err, "scanning knowledge entry id")
		}
		ids = append(ids, id)
	}
	out := make([]*domain.KnowledgeEntry, 0, len(ids))
	for _, id := range ids {
		e, err := s.GetEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (*domain.IngestionRun, error) {
	row := s.pool.QueryRow(ctx, `SELECT payload FROM ingestion_runs WHERE run_id = $1`, runID)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apierr.NotFoundf("ingestion run %s", runID)
		}
		return nil, apierr.Externalf(err, "loading ingestion run %s", runID)
	}
	var run domain.IngestionRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, apierr.Externalf(err, "decoding ingestion run %s", runID)
	}
	return &run, nil
}

func (s *Store) PutRun(ctx context.Context, run *domain.IngestionRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return apierr.Externalf(err, "encoding ingestion run %s", run.RunID)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ingestion_runs (run_id, payload, status, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (run_id) DO NOTHING`,
		run.RunID, payload, string(run.Status), run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return apierr.Externalf(err, "persisting ingestion run %s", run.RunID)
	}
	return nil
}

// Index updates the denormalized search columns for entry's latest
// version; the actual text predicate in Search runs against search_text
// directly rather than a separate index table.
func (s *Store) Index(ctx context.Context, entry *domain.KnowledgeEntry, latest domain.Version) error {
	return s.PutEntry(ctx, entry)
}

func (s *Store) Search(ctx context.Context, q ports.SearchQuery) ([]string, error) {
	clauses := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Text != "" {
		clauses = append(clauses, "search_text ILIKE "+arg("%"+q.Text+"%"))
	}
	if len(q.Tags) > 0 {
		clauses = append(clauses, "tags && "+arg(q.Tags)+"::text[]")
	}
	if len(q.Taxonomy) > 0 {
		clauses = append(clauses, "taxonomy && "+arg(q.Taxonomy)+"::text[]")
	}
	if len(q.SourceTypes) > 0 {
		types := make([]string, len(q.SourceTypes))
		for i, t := range q.SourceTypes {
			types[i] = string(t)
		}
		clauses = append(clauses, "source_type = ANY("+arg(types)+"::text[])")
	}

	query := "SELECT id FROM knowledge_entries WHERE " + strings.Join(clauses, " AND ")
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apierr.Externalf(err, "searching knowledge entries")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apierr.Externalf(err, "scanning search result")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
