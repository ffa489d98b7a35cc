// Package runbooks implements the runbook execution critical path:
// resolve service/incident/action, enforce the param whitelist,
// check cooldown (serialized per (service_id, action_id)), gate on
// approval, execute, and advance the incident on success.
package runbooks

import (
	"context"
	"fmt"
	"time"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/incidents"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/pkg/apierr"
	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/pkg/observe"
)

const (
	outputCooldown  = "cooldown_in_effect"
	outputAwaiting  = "awaiting_approval"
)

type Runbooks struct {
	Services   ports.ServiceRepository
	Incidents  *incidents.Incidents
	IncidentRepo ports.IncidentRepository
	Repo       ports.RunbookRepository
	Dispatcher ports.ActionDispatcher
	Audit      ports.AuditLog
	Bus        ports.IntegrationBus
	Clock      common.Clock
	Hook       observe.Hook

	// cooldownLk serializes the evaluate→create-job sequence per
	// (service_id, action_id)
	cooldownLk *common.KeyedMutex
}

func New(
	services ports.ServiceRepository,
	inc *incidents.Incidents,
	incidentRepo ports.IncidentRepository,
	repo ports.RunbookRepository,
	dispatcher ports.ActionDispatcher,
	audit ports.AuditLog,
	bus ports.IntegrationBus,
	clock common.Clock,
	hook observe.Hook,
) *Runbooks {
	if clock == nil {
		clock = common.SystemClock{}
	}
	if hook == nil {
		hook = observe.Noop{}
	}
	return &Runbooks{
		Services: services, Incidents: inc, IncidentRepo: incidentRepo, Repo: repo,
		Dispatcher: dispatcher, Audit: audit, Bus: bus, Clock: clock, Hook: hook,
		cooldownLk: common.NewKeyedMutex(),
	}
}

func cooldownKey(serviceID, actionID string) string {
	return serviceID + "/" + actionID
}

// Execute is the runbook execution critical path.
func (r *Runbooks) Execute(ctx context.Context, serviceID, incidentID, actionID string, params map[string]any, actor string, correlationID *string) (*domain.RemediationJob, error) {
	if _, err := r.Services.Get(ctx, serviceID); err != nil {
		return nil, apierr.NotFoundf("unknown service %s", serviceID)
	}
	if _, err := r.IncidentRepo.Get(ctx, incidentID); err != nil {
		return nil, apierr.NotFoundf("unknown incident %s", incidentID)
	}
	action, err := r.Repo.GetAction(ctx, actionID)
	if err != nil {
		return nil, apierr.NotFoundf("unknown runbook action %s", actionID)
	}

	for key := range params {
		if !action.AllowsParam(key) {
			return nil, apierr.NewValidationError(key, fmt.Sprintf("param %q is not allow-listed for action %s", key, actionID))
		}
	}

	// Cooldown check takes precedence over the approval gate:
	// a cooldown-blocked job never enters the approval queue. The entire
	// evaluate→create sequence is serialized per (service_id, action_id).
	var job *domain.RemediationJob
	var blocked bool
	key := cooldownKey(serviceID, actionID)
	r.cooldownLk.Lock(key)
	func() {
		if action.CooldownSeconds <= 0 {
			return
		}
		prior, jobsErr := r.Repo.JobsFor(ctx, serviceID, actionID)
		if jobsErr != nil {
			return
		}
		now := r.Clock.Now()
		for _, p := range prior {
			if p.FinishedAt == nil {
				continue
			}
			if now.Sub(*p.FinishedAt) < time.Duration(action.CooldownSeconds)*time.Second {
				blocked = true
				job = &domain.RemediationJob{
					ID:            common.NewID(),
					IncidentID:    incidentID,
					ActionID:      actionID,
					ServiceID:     serviceID,
					Params:        params,
					Actor:         actor,
					CorrelationID: correlationID,
					Status:        domain.JobBlocked,
					StartedAt:     now,
					FinishedAt:    &now,
					Output:        strPtr(outputCooldown),
				}
				return
			}
		}
	}()
	if blocked {
		err := r.Repo.CreateJob(ctx, job)
		r.cooldownLk.Unlock(key)
		if err != nil {
			return nil, apierr.Externalf(err, "recording cooldown-blocked job")
		}
		r.recordJobOutcome(ctx, job, "runbook_blocked", "runbook.cooldown_blocked")
		return job, nil
	}

	if action.RequiresApproval {
		now := r.Clock.Now()
		job = &domain.RemediationJob{
			ID: common.NewID(), IncidentID: incidentID, ActionID: actionID, ServiceID: serviceID,
			Params: params, Actor: actor, CorrelationID: correlationID,
			Status: domain.JobBlocked, StartedAt: now, FinishedAt: &now, Output: strPtr(outputAwaiting),
		}
		err := r.Repo.CreateJob(ctx, job)
		r.cooldownLk.Unlock(key)
		if err != nil {
			return nil, apierr.Externalf(err, "recording pending-approval job")
		}
		r.recordJobOutcome(ctx, job, "runbook_pending", "runbook.awaiting_approval")
		return job, nil
	}

	job = &domain.RemediationJob{
		ID: common.NewID(), IncidentID: incidentID, ActionID: actionID, ServiceID: serviceID,
		Params: params, Actor: actor, CorrelationID: correlationID,
		Status: domain.JobRunning, StartedAt: r.Clock.Now(),
	}
	err = r.Repo.CreateJob(ctx, job)
	r.cooldownLk.Unlock(key)
	if err != nil {
		return nil, apierr.Externalf(err, "recording running job")
	}
	return r.runAction(ctx, job, action, actor, correlationID)
}

// Approve proceeds a job awaiting approval through to execution. Only a
// blocked job with output=awaiting_approval is a valid target
func (r *Runbooks) Approve(ctx context.Context, jobID, approver, note string) (*domain.RemediationJob, error) {
	job, err := r.Repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, apierr.NotFoundf("runbook job %s", jobID)
	}
	if job.Status != domain.JobBlocked || job.Output == nil || *job.Output != outputAwaiting {
		return nil, apierr.Conflictf("job %s is not awaiting approval", jobID)
	}

	action, err := r.Repo.GetAction(ctx, job.ActionID)
	if err != nil {
		return nil, apierr.NotFoundf("unknown runbook action %s", job.ActionID)
	}

	job.Status = domain.JobRunning
	job.StartedAt = r.Clock.Now()
	job.FinishedAt = nil
	job.Output = nil
	if err := r.Repo.UpdateJob(ctx, job); err != nil {
		return nil, apierr.Externalf(err, "updating job %s", jobID)
	}

	msg := "runbook approved"
	if note != "" {
		msg = note
	}
	if _, err := r.Incidents.AppendTimelineLocked(ctx, job.IncidentID, domain.TimelineEvent{
		Message: msg, Actor: approver, EventType: "runbook_approved", Ts: r.Clock.Now(), CorrelationID: job.CorrelationID,
	}); err != nil {
		return nil, err
	}
	if r.Bus != nil {
		_ = r.Bus.Publish(ctx, "runbook.approved", map[string]any{"job_id": job.ID})
	}

	return r.runAction(ctx, job, action, approver, job.CorrelationID)
}

func (r *Runbooks) runAction(ctx context.Context, job *domain.RemediationJob, action domain.RunbookAction, actor string, correlationID *string) (*domain.RemediationJob, error) {
	output, err := r.Dispatcher.Dispatch(ctx, action, job.Params)
	now := r.Clock.Now()
	job.FinishedAt = &now
	if err != nil {
		job.Status = domain.JobFailed
		job.Error = strPtr(err.Error())
		if updErr := r.Repo.UpdateJob(ctx, job); updErr != nil {
			return nil, apierr.Externalf(updErr, "updating failed job %s", job.ID)
		}
		if _, tErr := r.Incidents.AppendTimelineLocked(ctx, job.IncidentID, domain.TimelineEvent{
			Message: err.Error(), Actor: actor, EventType: "runbook_failed", Ts: now, CorrelationID: correlationID,
		}); tErr != nil {
			return nil, tErr
		}
		return job, nil
	}

	job.Status = domain.JobCompleted
	job.Output = strPtr(output)
	if err := r.Repo.UpdateJob(ctx, job); err != nil {
		return nil, apierr.Externalf(err, "updating completed job %s", job.ID)
	}

	if _, err := r.Incidents.AppendTimelineLocked(ctx, job.IncidentID, domain.TimelineEvent{
		Message: fmt.Sprintf("executed runbook action %s", job.ActionID), Actor: actor, EventType: "runbook_executed", Ts: now, CorrelationID: correlationID,
	}); err != nil {
		return nil, err
	}
	if r.Bus != nil {
		_ = r.Bus.Publish(ctx, "runbook.executed", map[string]any{"job_id": job.ID, "action_id": job.ActionID})
	}
	r.Hook.OnEvent(ctx, "runbook.executed", map[string]any{"job_id": job.ID})

	// Side-channel auto-advance: only from mitigating, pinned
	// Open Question.
	if _, err := r.Incidents.TransitionIfMitigating(ctx, job.IncidentID, actor, correlationID); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *Runbooks) recordJobOutcome(ctx context.Context, job *domain.RemediationJob, eventType, topic string) {
	_, _ = r.Incidents.AppendTimelineLocked(ctx, job.IncidentID, domain.TimelineEvent{
		Message: *job.Output, Actor: job.Actor, EventType: eventType, Ts: r.Clock.Now(), CorrelationID: job.CorrelationID,
	})
	if r.Bus != nil {
		_ = r.Bus.Publish(ctx, topic, map[string]any{"job_id": job.ID})
	}
	r.Hook.OnEvent(ctx, topic, map[string]any{"job_id": job.ID})
}

func (r *Runbooks) RegisterAction(ctx context.Context, action domain.RunbookAction) error {
	return r.Repo.PutAction(ctx, action)
}

func (r *Runbooks) ListActions(ctx context.Context) ([]domain.RunbookAction, error) {
	return r.Repo.ListActions(ctx)
}

func strPtr(s string) *string { return &s }
