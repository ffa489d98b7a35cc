package runbooks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/opscontroller/bus"
	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/incidents"
	"github.com/opsplatform/core/opscontroller/runbooks"
	"github.com/opsplatform/core/opscontroller/store/memory"
	"github.com/opsplatform/core/pkg/common"
)

type harness struct {
	services  *memory.ServiceStore
	incRepo   *memory.IncidentStore
	rbRepo    *memory.RunbookStore
	incidents *incidents.Incidents
	runbooks  *runbooks.Runbooks
	clock     *common.FrozenClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	services := memory.NewServiceStore()
	incRepo := memory.NewIncidentStore()
	rbRepo := memory.NewRunbookStore()
	clock := common.NewFrozenClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b := bus.NewInMemoryBus()

	require.NoError(t, services.Upsert(context.Background(), &domain.Service{ID: "svc1", Name: "svc1"}))

	incUC := incidents.New(services, incRepo, nil, b, clock, nil)
	rbUC := runbooks.New(services, incUC, incRepo, rbRepo, runbooks.NoopDispatcher{}, nil, b, clock, nil)

	return &harness{services: services, incRepo: incRepo, rbRepo: rbRepo, incidents: incUC, runbooks: rbUC, clock: clock}
}

func TestExecute_CooldownBlocksSecondRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.rbRepo.PutAction(ctx, domain.RunbookAction{
		ID: "restart", AllowedParams: []string{"reason"}, CooldownSeconds: 300,
	}))
	inc, err := h.incidents.OpenManual(ctx, "svc1", "HIGH", "down", "tester", nil, nil)
	require.NoError(t, err)

	job1, err := h.runbooks.Execute(ctx, "svc1", inc.ID, "restart", map[string]any{"reason": "x"}, "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job1.Status)

	h.clock.Advance(10 * time.Second)
	job2, err := h.runbooks.Execute(ctx, "svc1", inc.ID, "restart", map[string]any{"reason": "x"}, "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.JobBlocked, job2.Status)
	require.NotNil(t, job2.Output)
	assert.Equal(t, "cooldown_in_effect", *job2.Output)
}

func TestExecute_ApprovalGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.rbRepo.PutAction(ctx, domain.RunbookAction{
		ID: "drain", AllowedParams: []string{}, RequiresApproval: true,
	}))
	inc, err := h.incidents.OpenManual(ctx, "svc1", "HIGH", "down", "tester", nil, nil)
	require.NoError(t, err)

	job, err := h.runbooks.Execute(ctx, "svc1", inc.ID, "drain", map[string]any{}, "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.JobBlocked, job.Status)
	require.NotNil(t, job.Output)
	assert.Equal(t, "awaiting_approval", *job.Output)

	approved, err := h.runbooks.Approve(ctx, job.ID, "approver", "")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, approved.Status)

	updatedIncident, err := h.incidents.Get(ctx, inc.ID)
	require.NoError(t, err)
	found := false
	for _, e := range updatedIncident.Timeline {
		if e.EventType == "runbook_approved" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExecute_ParamNotAllowed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rbRepo.PutAction(ctx, domain.RunbookAction{ID: "restart", AllowedParams: []string{"reason"}}))
	inc, err := h.incidents.OpenManual(ctx, "svc1", "HIGH", "down", "tester", nil, nil)
	require.NoError(t, err)

	_, err = h.runbooks.Execute(ctx, "svc1", inc.ID, "restart", map[string]any{"extra": "nope"}, "tester", nil)
	assert.Error(t, err)
}

func TestExecute_AutoAdvanceOnlyFromMitigating(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rbRepo.PutAction(ctx, domain.RunbookAction{ID: "noop", AllowedParams: []string{}}))

	inc, err := h.incidents.OpenManual(ctx, "svc1", "HIGH", "down", "tester", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentOpen, inc.Status)

	_, err = h.runbooks.Execute(ctx, "svc1", inc.ID, "noop", map[string]any{}, "tester", nil)
	require.NoError(t, err)

	stillOpen, err := h.incidents.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentOpen, stillOpen.Status, "auto-advance must not fire from open")

	mitigating, err := h.incidents.Transition(ctx, inc.ID, domain.IncidentMitigating, "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentMitigating, mitigating.Status)

	_, err = h.runbooks.Execute(ctx, "svc1", inc.ID, "noop", map[string]any{}, "tester", nil)
	require.NoError(t, err)

	advanced, err := h.incidents.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentMonitoring, advanced.Status)
}
