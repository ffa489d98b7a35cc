// Package ports declares the capability interfaces OpsController's
// use-cases depend on.
package ports

import (
	"context"
	"time"

	"github.com/opsplatform/core/opscontroller/domain"
)

// ServiceRepository stores the service registry.
type ServiceRepository interface {
	Upsert(ctx context.Context, svc *domain.Service) error
	Get(ctx context.Context, id string) (*domain.Service, error)
	List(ctx context.Context) ([]*domain.Service, error)
}

// LogSink stores and searches ingested log records.
type LogSink interface {
	Append(ctx context.Context, record domain.LogRecord) error
	// Search returns up to limit matching records, newest first.
	Search(ctx context.Context, filters LogFilters, limit int) ([]domain.LogRecord, error)
}

// LogFilters is the composed filter for LogSink.Search.
type LogFilters struct {
	ServiceID string
	Level     string
	Text      string
}

// IncidentRepository stores incidents.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	Get(ctx context.Context, id string) (*domain.Incident, error)
	Update(ctx context.Context, incident *domain.Incident) error
	List(ctx context.Context) ([]*domain.Incident, error)
}

// RunbookRepository stores action definitions and remediation jobs.
type RunbookRepository interface {
	PutAction(ctx context.Context, action domain.RunbookAction) error
	GetAction(ctx context.Context, id string) (domain.RunbookAction, error)
	ListActions(ctx context.Context) ([]domain.RunbookAction, error)

	CreateJob(ctx context.Context, job *domain.RemediationJob) error
	UpdateJob(ctx context.Context, job *domain.RemediationJob) error
	GetJob(ctx context.Context, id string) (*domain.RemediationJob, error)
	// JobsFor returns every job for (serviceID, actionID), for cooldown
	// evaluation; callers skip jobs whose FinishedAt is nil.
	JobsFor(ctx context.Context, serviceID, actionID string) ([]*domain.RemediationJob, error)
}

// AuditLog records append-only operational audit events, separate from an
// incident's own timeline.
type AuditLog interface {
	Record(ctx context.Context, event string, attrs map[string]any) error
}

// IntegrationBus publishes domain events to external collaborators
// (chatops, paging). Publish must not block the caller on a slow
// subscriber for long — adapters are expected to apply their own timeout.
type IntegrationBus interface {
	Publish(ctx context.Context, topic string, payload map[string]any) error
}

// HealthProbe performs the bounded-timeout HTTP GET the design describes.
type HealthProbe interface {
	Probe(ctx context.Context, url string, timeout time.Duration) domain.HealthResult
}

// ActionDispatcher executes a RunbookAction's side effect. The core does
// not define concrete actions — implementations plug
// in their own dispatcher.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, action domain.RunbookAction, params map[string]any) (output string, err error)
}
