// Package postgres persists QualityGate's scans, baselines, and waivers
// over jackc/pgx/v5 as JSONB documents, the same storage shape
// KnowledgeStore and OpsController use. Three distinct types mirror
// store/memory's split for the same Save-method-overload reason.
package postgres

import (
	"context"
	"embed"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsplatform/core/pkg/apierr"
	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/qualitygate/domain"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is passed to pkg/dbutil.Open alongside Migrations.
const MigrationsDir = "migrations"

// ScanStore implements ports.ScanRepository.
type ScanStore struct{ pool *pgxpool.Pool }

func NewScanStore(pool *pgxpool.Pool) *ScanStore { return &ScanStore{pool: pool} }

func (s *ScanStore) Save(ctx context.Context, scan domain.Scan) (string, error) {
	if scan.ID == "" {
		scan.ID = common.NewID()
	}
	payload, err := json.Marshal(scan)
	if err != nil {
		return "", apierr.Externalf(err, "encoding scan %s", scan.ID)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scans (id, repo, commit, ts, payload)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		scan.ID, scan.Repo, scan.Commit, scan.Ts, payload,
	)
	if err != nil {
		return "", apierr.Externalf(err, "persisting scan %s", scan.ID)
	}
	return scan.ID, nil
}

func (s *ScanStore) Get(ctx context.Context, id string) (domain.Scan, error) {
	row := s.pool.QueryRow(ctx, `SELECT payload FROM scans WHERE id = $1`, id)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Scan{}, apierr.NotFoundf("scan %s", id)
		}
		return domain.Scan{}, apierr.Externalf(err, "loading scan %s", id)
	}
	var scan domain.Scan
	if err := json.Unmarshal(payload, &scan); err != nil {
		return domain.Scan{}, apierr.Externalf(err, "decoding scan %s", id)
	}
	return scan, nil
}

// BaselineStore implements ports.BaselineRepository, one row per repo.
type BaselineStore struct{ pool *pgxpool.Pool }

func NewBaselineStore(pool *pgxpool.Pool) *BaselineStore { return &BaselineStore{pool: pool} }

func (s *BaselineStore) Save(ctx context.Context, baseline domain.Baseline) error {
	fingerprints, err := json.Marshal(baseline.Fingerprints)
	if err != nil {
		return apierr.Externalf(err, "encoding baseline for %s", baseline.Repo)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO baselines (repo, commit, fingerprints)
		VALUES ($1,$2,$3)
		ON CONFLICT (repo) DO UPDATE SET commit = EXCLUDED.commit, fingerprints = EXCLUDED.fingerprints`,
		baseline.Repo, baseline.Commit, fingerprints,
	)
	if err != nil {
		return apierr.Externalf(err, "persisting baseline for %s", baseline.Repo)
	}
	return nil
}

func (s *BaselineStore) GetForRepo(ctx context.Context, repo string) (domain.Baseline, error) {
	row := s.pool.QueryRow(ctx, `SELECT commit, fingerprints FROM baselines WHERE repo = $1`, repo)
	var commit string
	var fingerprintsJSON []byte
	if err := row.Scan(&commit, &fingerprintsJSON); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Baseline{}, apierr.NotFoundf("baseline for repo %s", repo)
		}
		return domain.Baseline{}, apierr.Externalf(err, "loading baseline for %s", repo)
	}
	var fingerprints []string
	if err := json.Unmarshal(fingerprintsJSON, &fingerprints); err != nil {
		return domain.Baseline{}, apierr.Externalf(err, "decoding baseline for %s", repo)
	}
	return domain.Baseline{Repo: repo, Commit: commit, Fingerprints: fingerprints}, nil
}

// WaiverStore implements ports.WaiverRepository.
type WaiverStore struct{ pool *pgxpool.Pool }

func NewWaiverStore(pool *pgxpool.Pool) *WaiverStore { return &WaiverStore{pool: pool} }

func (s *WaiverStore) Save(ctx context.Context, waiver domain.Waiver) (string, error) {
	if waiver.ID == "" {
		waiver.ID = common.NewID()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO waivers (id, finding_fingerprint, justification, owner, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING`,
		waiver.ID, waiver.FindingFingerprint, waiver.Justification, waiver.Owner, waiver.ExpiresAt, waiver.CreatedAt,
	)
	if err != nil {
		return "", apierr.Externalf(err, "persisting waiver %s", waiver.ID)
	}
	return waiver.ID, nil
}

func (s *WaiverStore) ListActive(ctx context.Context) ([]domain.Waiver, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, finding_fingerprint, justification, owner, expires_at, created_at
		FROM waivers WHERE expires_at > now()`)
	if err != nil {
		return nil, apierr.Externalf(err, "listing active waivers")
	}
	defer rows.Close()

	var out []domain.Waiver
	for rows.Next() {
		var w domain.Waiver
		if err := rows.Scan(&w.ID, &w.FindingFingerprint, &w.Justification, &w.Owner, &w.ExpiresAt, &w.CreatedAt); err != nil {
			return nil, apierr.Externalf(err, "scanning waiver row")
		}
		out = append(out, w)
	}
	return out, nil
}
