package incidents_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/incidents"
	"github.com/opsplatform/core/opscontroller/store/memory"
	"github.com/opsplatform/core/pkg/common"
)

func TestOpenManual_RequiresKnownService(t *testing.T) {
	services := memory.NewServiceStore()
	inc := incidents.New(services, memory.NewIncidentStore(), nil, nil, nil, nil)
	_, err := inc.OpenManual(context.Background(), "ghost", "HIGH", "down", "tester", nil, nil)
	assert.Error(t, err)
}

func TestOpenManual_AppendsTimelineAndTransitionsFreely(t *testing.T) {
	ctx := context.Background()
	services := memory.NewServiceStore()
	require.NoError(t, services.Upsert(ctx, &domain.Service{ID: "svc1", Name: "svc1"}))
	clock := common.NewFrozenClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	uc := incidents.New(services, memory.NewIncidentStore(), nil, nil, clock, nil)

	created, err := uc.OpenManual(ctx, "svc1", "HIGH", "down", "tester", nil, nil)
	require.NoError(t, err)
	require.Len(t, created.Timeline, 1)
	assert.Equal(t, domain.IncidentOpen, created.Status)

	resolved, err := uc.Transition(ctx, created.ID, domain.IncidentResolved, "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentResolved, resolved.Status)
	assert.Len(t, resolved.Timeline, 2)

	reopened, err := uc.Transition(ctx, created.ID, domain.IncidentOpen, "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentOpen, reopened.Status, "transitions are unconstrained")
}

func TestOpenFromSignal_CarriesSignal(t *testing.T) {
	ctx := context.Background()
	services := memory.NewServiceStore()
	require.NoError(t, services.Upsert(ctx, &domain.Service{ID: "svc1", Name: "svc1"}))
	uc := incidents.New(services, memory.NewIncidentStore(), nil, nil, nil, nil)

	signal := domain.Signal{ServiceID: "svc1", Type: domain.SignalAlert, Severity: "CRITICAL", Message: "oom"}
	inc, err := uc.OpenFromSignal(ctx, signal, "alertmanager")
	require.NoError(t, err)
	require.Len(t, inc.Signals, 1)
	assert.Equal(t, "oom", inc.Signals[0].Message)
}

func TestTransitionIfMitigating_OnlyFromMitigating(t *testing.T) {
	ctx := context.Background()
	services := memory.NewServiceStore()
	require.NoError(t, services.Upsert(ctx, &domain.Service{ID: "svc1", Name: "svc1"}))
	uc := incidents.New(services, memory.NewIncidentStore(), nil, nil, nil, nil)

	created, err := uc.OpenManual(ctx, "svc1", "HIGH", "down", "tester", nil, nil)
	require.NoError(t, err)

	untouched, err := uc.TransitionIfMitigating(ctx, created.ID, "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentOpen, untouched.Status)

	_, err = uc.Transition(ctx, created.ID, domain.IncidentMitigating, "tester", nil)
	require.NoError(t, err)

	advanced, err := uc.TransitionIfMitigating(ctx, created.ID, "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentMonitoring, advanced.Status)
}
