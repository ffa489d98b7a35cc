// Package domain holds OpsController's entities and state machines: the
// incident lifecycle (open/mitigating/monitoring/resolved), runbook job
// terminal-state invariants, and append-only timelines. Every mutation is
// funneled through a domain method that also records the corresponding
// timeline/audit event, per the platform's design note on dataclasses with
// mutation.
package domain

import (
	"fmt"
	"time"
)

// Env classifies the deployment environment a Service runs in.
type Env string

const (
	EnvProd    Env = "prod"
	EnvStaging Env = "staging"
	EnvDev     Env = "dev"
	EnvOther   Env = "other"
)

// Service is a registered, monitorable unit.
type Service struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Env             Env            `json:"env"`
	Owners          []string       `json:"owners"`
	HealthURL       *string        `json:"health_url,omitempty"`
	LoggingEndpoint *string        `json:"logging_endpoint,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	OtelConfig      map[string]any `json:"otel_config,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// SignalType classifies a Signal's origin.
type SignalType string

const (
	SignalLog    SignalType = "log"
	SignalMetric SignalType = "metric"
	SignalHealth SignalType = "health"
	SignalAlert  SignalType = "alert"
)

// Signal is an observation about a Service that may open or inform an Incident.
type Signal struct {
	ServiceID     string         `json:"service_id"`
	Type          SignalType     `json:"type"`
	Severity      string         `json:"severity"`
	Message       string         `json:"message"`
	TraceID       *string        `json:"trace_id,omitempty"`
	CorrelationID *string        `json:"correlation_id,omitempty"`
	Ts            time.Time      `json:"ts"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

// IncidentStatus is one state in the open→mitigating→monitoring→resolved
// lifecycle. Transitions are unconstrained: any state may move to any
// other; only the runbook-success side channel is automatic.
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "open"
	IncidentMitigating IncidentStatus = "mitigating"
	IncidentMonitoring IncidentStatus = "monitoring"
	IncidentResolved   IncidentStatus = "resolved"
)

// TimelineEvent is an immutable, append-only record on an Incident.
type TimelineEvent struct {
	Message       string    `json:"message"`
	Actor         string    `json:"actor"`
	EventType     string    `json:"event_type"`
	Ts            time.Time `json:"ts"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	TraceID       *string   `json:"trace_id,omitempty"`
}

// Incident is OpsController's central aggregate.
type Incident struct {
	ID            string          `json:"id"`
	ServiceID     string          `json:"service_id"`
	Severity      string          `json:"severity"`
	Status        IncidentStatus  `json:"status"`
	Summary       string          `json:"summary"`
	Signals       []Signal        `json:"signals,omitempty"`
	Timeline      []TimelineEvent `json:"timeline"`
	RunbookRefs   []string        `json:"runbook_refs,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CorrelationID *string         `json:"correlation_id,omitempty"`
}

// AppendTimeline appends event and updates UpdatedAt, the funnel every
// incident mutation (transition, runbook execution, approval) goes
// through, keeping the "updated_at == max(timeline.ts)" invariant true by
// construction.
func (i *Incident) AppendTimeline(event TimelineEvent) {
	i.Timeline = append(i.Timeline, event)
	i.UpdatedAt = event.Ts
}

// Transition moves the incident to status, appending a timeline event.
// Transitions are unconstrained: any state may move to any
// other state on an authorized request (the auto-advance side channel for
// runbook success is handled separately by the runbooks use-case, not
// here, since it is conditioned on the *previous* status being
// mitigating — see incidents.TransitionIfMitigating, which the runbooks
// use-case calls after a successful run).
func (i *Incident) Transition(to IncidentStatus, actor string, ts time.Time, correlationID *string) {
	i.Status = to
	i.AppendTimeline(TimelineEvent{
		Message:       fmt.Sprintf("status changed to %s", to),
		Actor:         actor,
		EventType:     "status_changed",
		Ts:            ts,
		CorrelationID: correlationID,
	})
}

// RunbookAction is an allow-listed operation the runbook engine may execute.
type RunbookAction struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	AllowedParams     []string       `json:"allowed_params"`
	CooldownSeconds   int64          `json:"cooldown_seconds"`
	RequiresApproval  bool           `json:"requires_approval"`
	Guardrails        map[string]any `json:"guardrails,omitempty"`
}

// AllowsParam reports whether key is in the action's whitelist.
func (a RunbookAction) AllowsParam(key string) bool {
	for _, p := range a.AllowedParams {
		if p == key {
			return true
		}
	}
	return false
}

// JobStatus is a RemediationJob's lifecycle state. completed/failed/blocked
// are terminal; completed and failed are never revisited, and the one
// blocked job that moves on is one awaiting approval, which
// Runbooks.Approve moves to running.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobBlocked   JobStatus = "blocked"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobBlocked
}

// RemediationJob is one execution (or blocked attempt) of a RunbookAction
// against a Service on behalf of an Incident.
type RemediationJob struct {
	ID            string         `json:"id"`
	IncidentID    string         `json:"incident_id"`
	ActionID      string         `json:"action_id"`
	ServiceID     string         `json:"service_id"`
	Params        map[string]any `json:"params"`
	Actor         string         `json:"actor"`
	CorrelationID *string        `json:"correlation_id,omitempty"`
	Status        JobStatus      `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	Output        *string        `json:"output,omitempty"`
	Error         *string        `json:"error,omitempty"`
}

// LogRecord is one line of ingested service log output.
type LogRecord struct {
	ServiceID     string         `json:"service_id"`
	Env           *string        `json:"env,omitempty"`
	Level         *string        `json:"level,omitempty"`
	Message       string         `json:"message"`
	TraceID       *string        `json:"trace_id,omitempty"`
	CorrelationID *string        `json:"correlation_id,omitempty"`
	ContainerName *string        `json:"container_name,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
	Ts            time.Time      `json:"ts"`
}

// HealthStatus is CheckHealth's result
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthUnknown  HealthStatus = "unknown"
)

// HealthResult carries the health verdict and, for degraded results, detail.
type HealthResult struct {
	Status     HealthStatus `json:"status"`
	HTTPCode   int          `json:"http_code,omitempty"`
	Detail     string       `json:"detail,omitempty"`
	CheckedAt  time.Time    `json:"checked_at"`
}
