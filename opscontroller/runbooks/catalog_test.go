package runbooks_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/opscontroller/bus"
	"github.com/opsplatform/core/opscontroller/incidents"
	"github.com/opsplatform/core/opscontroller/runbooks"
	"github.com/opsplatform/core/opscontroller/store/memory"
	"github.com/opsplatform/core/pkg/common"
)

const catalogYAML = `
actions:
  - id: restart-service
    name: Restart Service
    description: Restarts the deployment
    allowed_params: [reason]
    cooldown_seconds: 300
    requires_approval: false
  - id: scale-down
    name: Scale Down
    description: Scales replicas to zero
    allowed_params: [reason, replicas]
    cooldown_seconds: 900
    requires_approval: true
    guardrails:
      max_replicas: 10
`

func TestLoadActionCatalog(t *testing.T) {
	actions, err := runbooks.LoadActionCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, actions, 2)

	assert.Equal(t, "restart-service", actions[0].ID)
	assert.Equal(t, []string{"reason"}, actions[0].AllowedParams)
	assert.False(t, actions[0].RequiresApproval)

	assert.Equal(t, "scale-down", actions[1].ID)
	assert.True(t, actions[1].RequiresApproval)
	assert.Equal(t, 10, actions[1].Guardrails["max_replicas"])
}

func TestLoadActionCatalogRejectsMissingID(t *testing.T) {
	_, err := runbooks.LoadActionCatalog([]byte("actions:\n  - name: no id\n"))
	assert.Error(t, err)
}

func TestLoadActionCatalogFileRegistersActions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))

	services := memory.NewServiceStore()
	incRepo := memory.NewIncidentStore()
	rbRepo := memory.NewRunbookStore()
	clock := common.NewFrozenClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b := bus.NewInMemoryBus()
	incUC := incidents.New(services, incRepo, nil, b, clock, nil)
	rbUC := runbooks.New(services, incUC, incRepo, rbRepo, runbooks.NoopDispatcher{}, nil, b, clock, nil)

	require.NoError(t, runbooks.LoadActionCatalogFile(context.Background(), rbUC, path))

	actions, err := rbUC.ListActions(context.Background())
	require.NoError(t, err)
	require.Len(t, actions, 2)
}
