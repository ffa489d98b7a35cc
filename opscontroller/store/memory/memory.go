// Package memory implements OpsController's repository ports in-process,
// for tests and PERSISTENCE=memory mode. Each port is a distinct type
// (rather than one Store with every method) because ServiceRepository and
// IncidentRepository both need a method named Get with a different return
// type — Go methods can't be overloaded, so the adapters are split the way
// a real multi-collection document-store client would be.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/pkg/apierr"
)

// ServiceStore implements ports.ServiceRepository.
type ServiceStore struct {
	mu       sync.RWMutex
	services map[string]*domain.Service
}

func NewServiceStore() *ServiceStore {
	return &ServiceStore{services: make(map[string]*domain.Service)}
}

func (s *ServiceStore) Upsert(_ context.Context, svc *domain.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *svc
	s.services[svc.ID] = &cp
	return nil
}

func (s *ServiceStore) Get(_ context.Context, id string) (*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, apierr.NotFoundf("service %s", id)
	}
	cp := *svc
	return &cp, nil
}

func (s *ServiceStore) List(_ context.Context) ([]*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		cp := *svc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LogStore implements ports.LogSink.
type LogStore struct {
	mu   sync.RWMutex
	logs []domain.LogRecord
}

func NewLogStore() *LogStore {
	return &LogStore{}
}

func (s *LogStore) Append(_ context.Context, record domain.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, record)
	return nil
}

func (s *LogStore) Search(_ context.Context, filters ports.LogFilters, limit int) ([]domain.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []domain.LogRecord
	for i := len(s.logs) - 1; i >= 0 && len(matched) < limit; i-- {
		r := s.logs[i]
		if filters.ServiceID != "" && r.ServiceID != filters.ServiceID {
			continue
		}
		if filters.Level != "" && (r.Level == nil || *r.Level != filters.Level) {
			continue
		}
		if filters.Text != "" && !strings.Contains(strings.ToLower(r.Message), strings.ToLower(filters.Text)) {
			continue
		}
		matched = append(matched, r)
	}
	return matched, nil
}

// IncidentStore implements ports.IncidentRepository.
type IncidentStore struct {
	mu        sync.RWMutex
	incidents map[string]*domain.Incident
}

func NewIncidentStore() *IncidentStore {
	return &IncidentStore{incidents: make(map[string]*domain.Incident)}
}

func (s *IncidentStore) Create(_ context.Context, incident *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[incident.ID]; ok {
		return apierr.Conflictf("incident %s already exists", incident.ID)
	}
	cp := *incident
	cp.Timeline = append([]domain.TimelineEvent(nil), incident.Timeline...)
	s.incidents[incident.ID] = &cp
	return nil
}

func (s *IncidentStore) Get(_ context.Context, id string) (*domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, apierr.NotFoundf("incident %s", id)
	}
	cp := *inc
	cp.Timeline = append([]domain.TimelineEvent(nil), inc.Timeline...)
	return &cp, nil
}

func (s *IncidentStore) Update(_ context.Context, incident *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[incident.ID]; !ok {
		return apierr.NotFoundf("incident %s", incident.ID)
	}
	cp := *incident
	cp.Timeline = append([]domain.TimelineEvent(nil), incident.Timeline...)
	s.incidents[incident.ID] = &cp
	return nil
}

func (s *IncidentStore) List(_ context.Context) ([]*domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		cp := *inc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RunbookStore implements ports.RunbookRepository.
type RunbookStore struct {
	mu      sync.RWMutex
	actions map[string]domain.RunbookAction
	jobs    map[string]*domain.RemediationJob
}

func NewRunbookStore() *RunbookStore {
	return &RunbookStore{
		actions: make(map[string]domain.RunbookAction),
		jobs:    make(map[string]*domain.RemediationJob),
	}
}

func (s *RunbookStore) PutAction(_ context.Context, action domain.RunbookAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[action.ID] = action
	return nil
}

func (s *RunbookStore) GetAction(_ context.Context, id string) (domain.RunbookAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actions[id]
	if !ok {
		return domain.RunbookAction{}, apierr.NotFoundf("runbook action %s", id)
	}
	return a, nil
}

func (s *RunbookStore) ListActions(_ context.Context) ([]domain.RunbookAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RunbookAction, 0, len(s.actions))
	for _, a := range s.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RunbookStore) CreateJob(_ context.Context, job *domain.RemediationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *RunbookStore) UpdateJob(_ context.Context, job *domain.RemediationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return apierr.NotFoundf("runbook job %s", job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *RunbookStore) GetJob(_ context.Context, id string) (*domain.RemediationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, apierr.NotFoundf("runbook job %s", id)
	}
	cp := *j
	return &cp, nil
}

func (s *RunbookStore) JobsFor(_ context.Context, serviceID, actionID string) ([]*domain.RemediationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.RemediationJob
	for _, j := range s.jobs {
		if j.ServiceID == serviceID && j.ActionID == actionID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

// AuditLog is an append-only, in-process ports.AuditLog.
type AuditLog struct {
	mu     sync.Mutex
	events []AuditEntry
}

// AuditEntry is one recorded operational audit event.
type AuditEntry struct {
	Event string
	Attrs map[string]any
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Record(_ context.Context, event string, attrs map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, AuditEntry{Event: event, Attrs: attrs})
	return nil
}

func (a *AuditLog) Entries() []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AuditEntry(nil), a.events...)
}
