// Package incidents implements incident creation and transition:
// OpenManual/OpenFromSignal create, Transition moves the state
// machine, every mutation appends a timeline event.
package incidents

import (
	"context"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/pkg/apierr"
	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/pkg/observe"
)

type Incidents struct {
	Services   ports.ServiceRepository
	Repo       ports.IncidentRepository
	Audit      ports.AuditLog
	Bus        ports.IntegrationBus
	Clock      common.Clock
	Hook       observe.Hook
	timelineLk *common.KeyedMutex // serializes timeline appends per incident
}

func New(services ports.ServiceRepository, repo ports.IncidentRepository, audit ports.AuditLog, bus ports.IntegrationBus, clock common.Clock, hook observe.Hook) *Incidents {
	if clock == nil {
		clock = common.SystemClock{}
	}
	if hook == nil {
		hook = observe.Noop{}
	}
	return &Incidents{Services: services, Repo: repo, Audit: audit, Bus: bus, Clock: clock, Hook: hook, timelineLk: common.NewKeyedMutex()}
}

func (i *Incidents) OpenManual(ctx context.Context, serviceID, severity, summary, actor string, correlationID, traceID *string) (*domain.Incident, error) {
	if _, err := i.Services.Get(ctx, serviceID); err != nil {
		return nil, apierr.NotFoundf("unknown service %s", serviceID)
	}
	now := i.Clock.Now()
	incident := &domain.Incident{
		ID:            common.NewID(),
		ServiceID:     serviceID,
		Severity:      severity,
		Status:        domain.IncidentOpen,
		Summary:       summary,
		CreatedAt:     now,
		CorrelationID: correlationID,
	}
	incident.AppendTimeline(domain.TimelineEvent{
		Message:       "incident opened",
		Actor:         actor,
		EventType:     "opened",
		Ts:            now,
		CorrelationID: correlationID,
		TraceID:       traceID,
	})
	if err := i.Repo.Create(ctx, incident); err != nil {
		return nil, apierr.Externalf(err, "creating incident for %s", serviceID)
	}
	i.publish(ctx, "incident.opened", incident)
	return incident, nil
}

func (i *Incidents) OpenFromSignal(ctx context.Context, signal domain.Signal, actor string) (*domain.Incident, error) {
	if _, err := i.Services.Get(ctx, signal.ServiceID); err != nil {
		return nil, apierr.NotFoundf("unknown service %s", signal.ServiceID)
	}
	now := i.Clock.Now()
	incident := &domain.Incident{
		ID:            common.NewID(),
		ServiceID:     signal.ServiceID,
		Severity:      signal.Severity,
		Status:        domain.IncidentOpen,
		Summary:       signal.Message,
		Signals:       []domain.Signal{signal},
		CreatedAt:     now,
		CorrelationID: signal.CorrelationID,
	}
	incident.AppendTimeline(domain.TimelineEvent{
		Message:       signal.Message,
		Actor:         actor,
		EventType:     "signal",
		Ts:            now,
		CorrelationID: signal.CorrelationID,
		TraceID:       signal.TraceID,
	})
	if err := i.Repo.Create(ctx, incident); err != nil {
		return nil, apierr.Externalf(err, "creating incident from signal for %s", signal.ServiceID)
	}
	i.publish(ctx, "incident.signal", incident)
	return incident, nil
}

// Transition moves incidentID to status, serialized per incident to
// preserve the append-only timeline ordering guarantee of the design.
func (i *Incidents) Transition(ctx context.Context, incidentID string, to domain.IncidentStatus, actor string, correlationID *string) (*domain.Incident, error) {
	var result *domain.Incident
	var outErr error
	i.timelineLk.With(incidentID, func() {
		incident, err := i.Repo.Get(ctx, incidentID)
		if err != nil {
			outErr = apierr.NotFoundf("incident %s", incidentID)
			return
		}
		incident.Transition(to, actor, i.Clock.Now(), correlationID)
		if err := i.Repo.Update(ctx, incident); err != nil {
			outErr = apierr.Externalf(err, "updating incident %s", incidentID)
			return
		}
		result = incident
	})
	if outErr != nil {
		return nil, outErr
	}
	i.publish(ctx, "incident.status_changed", result)
	return result, nil
}

func (i *Incidents) Get(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := i.Repo.Get(ctx, id)
	if err != nil {
		return nil, apierr.NotFoundf("incident %s", id)
	}
	return incident, nil
}

func (i *Incidents) List(ctx context.Context) ([]*domain.Incident, error) {
	return i.Repo.List(ctx)
}

// AppendTimelineLocked appends event to incidentID's timeline under the
// per-incident lock, used by the runbooks use-case for its own timeline
// writes (cooldown/approval/execution events) so all incident mutations go
// through the same serialization point.
func (i *Incidents) AppendTimelineLocked(ctx context.Context, incidentID string, event domain.TimelineEvent) (*domain.Incident, error) {
	var result *domain.Incident
	var outErr error
	i.timelineLk.With(incidentID, func() {
		incident, err := i.Repo.Get(ctx, incidentID)
		if err != nil {
			outErr = apierr.NotFoundf("incident %s", incidentID)
			return
		}
		incident.AppendTimeline(event)
		if err := i.Repo.Update(ctx, incident); err != nil {
			outErr = apierr.Externalf(err, "updating incident %s", incidentID)
			return
		}
		result = incident
	})
	return result, outErr
}

// TransitionIfMitigating advances incidentID to monitoring only if its
// current status is mitigating, the pinned auto-advance rule of the
// Open Questions. Returns the incident whether or not it advanced.
func (i *Incidents) TransitionIfMitigating(ctx context.Context, incidentID, actor string, correlationID *string) (*domain.Incident, error) {
	var result *domain.Incident
	var outErr error
	i.timelineLk.With(incidentID, func() {
		incident, err := i.Repo.Get(ctx, incidentID)
		if err != nil {
			outErr = apierr.NotFoundf("incident %s", incidentID)
			return
		}
		if incident.Status == domain.IncidentMitigating {
			incident.Transition(domain.IncidentMonitoring, actor, i.Clock.Now(), correlationID)
			if err := i.Repo.Update(ctx, incident); err != nil {
				outErr = apierr.Externalf(err, "updating incident %s", incidentID)
				return
			}
		}
		result = incident
	})
	return result, outErr
}

func (i *Incidents) publish(ctx context.Context, topic string, incident *domain.Incident) {
	if i.Audit != nil {
		_ = i.Audit.Record(ctx, topic, map[string]any{"incident_id": incident.ID})
	}
	if i.Bus != nil {
		_ = i.Bus.Publish(ctx, topic, map[string]any{"incident_id": incident.ID, "service_id": incident.ServiceID})
	}
	i.Hook.OnEvent(ctx, topic, map[string]any{"incident_id": incident.ID})
}
