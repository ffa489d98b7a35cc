// Package registry implements the service-registry use-case: Register
// upserts by id and publishes service.registered.
package registry

import (
	"context"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/pkg/apierr"
	"github.com/opsplatform/core/pkg/observe"
)

type Registry struct {
	Repo  ports.ServiceRepository
	Audit ports.AuditLog
	Bus   ports.IntegrationBus
	Hook  observe.Hook
}

func New(repo ports.ServiceRepository, audit ports.AuditLog, bus ports.IntegrationBus, hook observe.Hook) *Registry {
	if hook == nil {
		hook = observe.Noop{}
	}
	return &Registry{Repo: repo, Audit: audit, Bus: bus, Hook: hook}
}

func (r *Registry) Register(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	if svc.ID == "" {
		return nil, apierr.NewValidationError("id", "service id is required")
	}
	if err := r.Repo.Upsert(ctx, &svc); err != nil {
		return nil, apierr.Externalf(err, "registering service %s", svc.ID)
	}
	if r.Audit != nil {
		_ = r.Audit.Record(ctx, "service.registered", map[string]any{"service_id": svc.ID})
	}
	if r.Bus != nil {
		_ = r.Bus.Publish(ctx, "service.registered", map[string]any{"service_id": svc.ID, "name": svc.Name})
	}
	r.Hook.OnEvent(ctx, "service.registered", map[string]any{"service_id": svc.ID})
	return &svc, nil
}

func (r *Registry) Get(ctx context.Context, id string) (*domain.Service, error) {
	svc, err := r.Repo.Get(ctx, id)
	if err != nil {
		return nil, apierr.NotFoundf("service %s", id)
	}
	return svc, nil
}

func (r *Registry) List(ctx context.Context) ([]*domain.Service, error) {
	return r.Repo.List(ctx)
}
