package health_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/health"
	"github.com/opsplatform/core/opscontroller/store/memory"
)

func TestCheckHealth_NoURLIsUnknown(t *testing.T) {
	ctx := context.Background()
	services := memory.NewServiceStore()
	require.NoError(t, services.Upsert(ctx, &domain.Service{ID: "svc1", Name: "svc1"}))
	checker := health.New(services, health.NewHTTPProbe(), time.Second)

	result, err := checker.CheckHealth(ctx, "svc1")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthUnknown, result.Status)
}

func TestCheckHealth_HealthyAndDegraded(t *testing.T) {
	ctx := context.Background()
	healthySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthySrv.Close()
	degradedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer degradedSrv.Close()

	services := memory.NewServiceStore()
	healthyURL := healthySrv.URL
	degradedURL := degradedSrv.URL
	require.NoError(t, services.Upsert(ctx, &domain.Service{ID: "healthy", HealthURL: &healthyURL}))
	require.NoError(t, services.Upsert(ctx, &domain.Service{ID: "degraded", HealthURL: &degradedURL}))

	checker := health.New(services, health.NewHTTPProbe(), time.Second)

	h, err := checker.CheckHealth(ctx, "healthy")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthHealthy, h.Status)

	d, err := checker.CheckHealth(ctx, "degraded")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthDegraded, d.Status)
	assert.Equal(t, http.StatusServiceUnavailable, d.HTTPCode)
}

func TestCheckHealth_UnreachableIsDegraded(t *testing.T) {
	ctx := context.Background()
	services := memory.NewServiceStore()
	url := "http://127.0.0.1:1"
	require.NoError(t, services.Upsert(ctx, &domain.Service{ID: "svc1", HealthURL: &url}))
	checker := health.New(services, health.NewHTTPProbe(), 200*time.Millisecond)

	result, err := checker.CheckHealth(ctx, "svc1")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthDegraded, result.Status)
	assert.NotEmpty(t, result.Detail)
}
