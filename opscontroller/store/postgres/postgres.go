// Package postgres persists OpsController's aggregates as JSONB documents
// over jackc/pgx/v5, the uniform document-store substitution described in
// the design. Each repository port gets its own Go type for the same
// reason the memory adapter does: ServiceRepository and IncidentRepository
// both need a method named Get with a different return type.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/pkg/apierr"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

// ServiceStore implements ports.ServiceRepository.
type ServiceStore struct{ pool *pgxpool.Pool }

func NewServiceStore(pool *pgxpool.Pool) *ServiceStore { return &ServiceStore{pool: pool} }

func (s *ServiceStore) Upsert(ctx context.Context, svc *domain.Service) error {
	doc, err := json.Marshal(svc)
	if err != nil {
		return apierr.Externalf(err, "encoding service %s", svc.ID)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO services (id, document) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document`, svc.ID, doc)
	if err != nil {
		return apierr.Externalf(err, "upserting service %s", svc.ID)
	}
	return nil
}

func (s *ServiceStore) Get(ctx context.Context, id string) (*domain.Service, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM services WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apierr.NotFoundf("service %s", id)
		}
		return nil, apierr.Externalf(err, "loading service %s", id)
	}
	var svc domain.Service
	if err := json.Unmarshal(doc, &svc); err != nil {
		return nil, apierr.Externalf(err, "decoding service %s", id)
	}
	return &svc, nil
}

func (s *ServiceStore) List(ctx context.Context) ([]*domain.Service, error) {
	rows, err := s.pool.Query(ctx, `SELECT document FROM services ORDER BY id`)
	if err != nil {
		return nil, apierr.Externalf(err, "listing services")
	}
	defer rows.Close()
	var out []*domain.Service
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, apierr.Externalf(err, "scanning service")
		}
		var svc domain.Service
		if err := json.Unmarshal(doc, &svc); err != nil {
			return nil, apierr.Externalf(err, "decoding service")
		}
		out = append(out, &svc)
	}
	return out, nil
}

// LogStore implements ports.LogSink.
type LogStore struct{ pool *pgxpool.Pool }

func NewLogStore(pool *pgxpool.Pool) *LogStore { return &LogStore{pool: pool} }

func (s *LogStore) Append(ctx context.Context, record domain.LogRecord) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return apierr.Externalf(err, "encoding log record for %s", record.ServiceID)
	}
	var level any
	if record.Level != nil {
		level = *record.Level
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO log_records (service_id, level, message, ts, document)
		VALUES ($1,$2,$3,$4,$5)`, record.ServiceID, level, record.Message, record.Ts, doc)
	if err != nil {
		return apierr.Externalf(err, "appending log record for %s", record.ServiceID)
	}
	return nil
}

func (s *LogStore) Search(ctx context.Context, filters ports.LogFilters, limit int) ([]domain.LogRecord, error) {
	where := "1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filters.ServiceID != "" {
		where += " AND service_id = " + arg(filters.ServiceID)
	}
	if filters.Level != "" {
		where += " AND level = " + arg(filters.Level)
	}
	if filters.Text != "" {
		where += " AND message ILIKE " + arg("%"+filters.Text+"%")
	}
	query := "SELECT document FROM log_records WHERE " + where + " ORDER BY ts DESC LIMIT " + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apierr.Externalf(err, "searching log records")
	}
	defer rows.Close()
	var out []domain.LogRecord
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, apierr.Externalf(err, "scanning log record")
		}
		var r domain.LogRecord
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, apierr.Externalf(err, "decoding log record")
		}
		out = append(out, r)
	}
	return out, nil
}

// IncidentStore implements ports.IncidentRepository.
type IncidentStore struct{ pool *pgxpool.Pool }

func NewIncidentStore(pool *pgxpool.Pool) *IncidentStore { return &IncidentStore{pool: pool} }

func (s *IncidentStore) Create(ctx context.Context, incident *domain.Incident) error {
	doc, err := json.Marshal(incident)
	if err != nil {
		return apierr.Externalf(err, "encoding incident %s", incident.ID)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO incidents (id, service_id, status, created_at, document)
		VALUES ($1,$2,$3,$4,$5)`, incident.ID, incident.ServiceID, string(incident.Status), incident.CreatedAt, doc)
	if err != nil {
		return apierr.Externalf(err, "creating incident %s", incident.ID)
	}
	return nil
}

func (s *IncidentStore) Get(ctx context.Context, id string) (*domain.Incident, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM incidents WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apierr.NotFoundf("incident %s", id)
		}
		return nil, apierr.Externalf(err, "loading incident %s", id)
	}
	var incident domain.Incident
	if err := json.Unmarshal(doc, &incident); err != nil {
		return nil, apierr.Externalf(err, "decoding incident %s", id)
	}
	return &incident, nil
}

func (s *IncidentStore) Update(ctx context.Context, incident *domain.Incident) error {
	doc, err := json.Marshal(incident)
	if err != nil {
		return apierr.Externalf(err, "encoding incident %s", incident.ID)
	}
	ct, err := s.pool.Exec(ctx, `
		UPDATE incidents SET status = $2, document = $3 WHERE id = $1`,
		incident.ID, string(incident.Status), doc)
	if err != nil {
		return apierr.Externalf(err, "updating incident %s", incident.ID)
	}
	if ct.RowsAffected() == 0 {
		return apierr.NotFoundf("incident %s", incident.ID)
	}
	return nil
}

func (s *IncidentStore) List(ctx context.Context) ([]*domain.Incident, error) {
	rows, err := s.pool.Query(ctx, `SELECT document FROM incidents ORDER BY created_at`)
	if err != nil {
		return nil, apierr.Externalf(err, "listing incidents")
	}
	defer rows.Close()
	var out []*domain.Incident
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, apierr.Externalf(err, "scanning incident")
		}
		var incident domain.Incident
		if err := json.Unmarshal(doc, &incident); err != nil {
			return nil, apierr.Externalf(err, "decoding incident")
		}
		out = append(out, &incident)
	}
	return out, nil
}

// RunbookStore implements ports.RunbookRepository.
type RunbookStore struct{ pool *pgxpool.Pool }

func NewRunbookStore(pool *pgxpool.Pool) *RunbookStore { return &RunbookStore{pool: pool} }

func (s *RunbookStore) PutAction(ctx context.Context, action domain.RunbookAction) error {
	doc, err := json.Marshal(action)
	if err != nil {
		return apierr.Externalf(err, "encoding runbook action %s", action.ID)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO runbook_actions (id, document) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document`, action.ID, doc)
	if err != nil {
		return apierr.Externalf(err, "persisting runbook action %s", action.ID)
	}
	return nil
}

func (s *RunbookStore) GetAction(ctx context.Context, id string) (domain.RunbookAction, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM runbook_actions WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.RunbookAction{}, apierr.NotFoundf("runbook action %s", id)
		}
		return domain.RunbookAction{}, apierr.Externalf(err, "loading runbook action %s", id)
	}
	var action domain.RunbookAction
	if err := json.Unmarshal(doc, &action); err != nil {
		return domain.RunbookAction{}, apierr.Externalf(err, "decoding runbook action %s", id)
	}
	return action, nil
}

func (s *RunbookStore) ListActions(ctx context.Context) ([]domain.RunbookAction, error) {
	rows, err := s.pool.Query(ctx, `SELECT document FROM runbook_actions ORDER BY id`)
	if err != nil {
		return nil, apierr.Externalf(err, "listing runbook actions")
	}
	defer rows.Close()
	var out []domain.RunbookAction
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, apierr.Externalf(err, "scanning runbook action")
		}
		var action domain.RunbookAction
		if err := json.Unmarshal(doc, &action); err != nil {
			return nil, apierr.Externalf(err, "decoding runbook action")
		}
		out = append(out, action)
	}
	return out, nil
}

func (s *RunbookStore) CreateJob(ctx context.Context, job *domain.RemediationJob) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return apierr.Externalf(err, "encoding remediation job %s", job.ID)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO remediation_jobs (id, service_id, action_id, finished_at, document)
		VALUES ($1,$2,$3,$4,$5)`, job.ID, job.ServiceID, job.ActionID, job.FinishedAt, doc)
	if err != nil {
		return apierr.Externalf(err, "creating remediation job %s", job.ID)
	}
	return nil
}

func (s *RunbookStore) UpdateJob(ctx context.Context, job *domain.RemediationJob) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return apierr.Externalf(err, "encoding remediation job %s", job.ID)
	}
	ct, err := s.pool.Exec(ctx, `
		UPDATE remediation_jobs SET finished_at = $2, document = $3 WHERE id = $1`,
		job.ID, job.FinishedAt, doc)
	if err != nil {
		return apierr.Externalf(err, "updating remediation job %s", job.ID)
	}
	if ct.RowsAffected() == 0 {
		return apierr.NotFoundf("remediation job %s", job.ID)
	}
	return nil
}

func (s *RunbookStore) GetJob(ctx context.Context, id string) (*domain.RemediationJob, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM remediation_jobs WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apierr.NotFoundf("remediation job %s", id)
		}
		return nil, apierr.Externalf(err, "loading remediation job %s", id)
	}
	var job domain.RemediationJob
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, apierr.Externalf(err, "decoding remediation job %s", id)
	}
	return &job, nil
}

func (s *RunbookStore) JobsFor(ctx context.Context, serviceID, actionID string) ([]*domain.RemediationJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT document FROM remediation_jobs WHERE service_id = $1 AND action_id = $2`, serviceID, actionID)
	if err != nil {
		return nil, apierr.Externalf(err, "loading jobs for %s/%s", serviceID, actionID)
	}
	defer rows.Close()
	var out []*domain.RemediationJob
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, apierr.Externalf(err, "scanning remediation job")
		}
		var job domain.RemediationJob
		if err := json.Unmarshal(doc, &job); err != nil {
			return nil, apierr.Externalf(err, "decoding remediation job")
		}
		out = append(out, &job)
	}
	return out, nil
}
