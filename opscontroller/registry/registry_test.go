package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/opscontroller/bus"
	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/registry"
	"github.com/opsplatform/core/opscontroller/store/memory"
)

func TestRegister_UpsertAndPublish(t *testing.T) {
	services := memory.NewServiceStore()
	audit := memory.NewAuditLog()
	b := bus.NewInMemoryBus()
	reg := registry.New(services, audit, b, nil)

	ctx := context.Background()
	svc, err := reg.Register(ctx, domain.Service{ID: "svc1", Name: "svc one"})
	require.NoError(t, err)
	assert.Equal(t, "svc1", svc.ID)

	got, err := reg.Get(ctx, "svc1")
	require.NoError(t, err)
	assert.Equal(t, "svc one", got.Name)

	svc.Name = "svc one renamed"
	_, err = reg.Register(ctx, *svc)
	require.NoError(t, err)
	got, err = reg.Get(ctx, "svc1")
	require.NoError(t, err)
	assert.Equal(t, "svc one renamed", got.Name)

	assert.Len(t, audit.Entries(), 2)
	assert.Len(t, b.Events(), 2)
}

func TestRegister_RequiresID(t *testing.T) {
	reg := registry.New(memory.NewServiceStore(), nil, nil, nil)
	_, err := reg.Register(context.Background(), domain.Service{Name: "no id"})
	assert.Error(t, err)
}
