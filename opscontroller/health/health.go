// Package health implements CheckHealth: fetch the service's
// health_url with a bounded timeout, mapping the outcome to
// healthy/degraded/unknown.
package health

import (
	"context"
	"time"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/pkg/apierr"
)

const DefaultTimeout = 2 * time.Second

type Checker struct {
	Services ports.ServiceRepository
	Probe    ports.HealthProbe
	Timeout  time.Duration
}

func New(services ports.ServiceRepository, probe ports.HealthProbe, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{Services: services, Probe: probe, Timeout: timeout}
}

func (c *Checker) CheckHealth(ctx context.Context, serviceID string) (domain.HealthResult, error) {
	svc, err := c.Services.Get(ctx, serviceID)
	if err != nil {
		return domain.HealthResult{}, apierr.NotFoundf("unknown service %s", serviceID)
	}
	if svc.HealthURL == nil || *svc.HealthURL == "" {
		return domain.HealthResult{Status: domain.HealthUnknown, CheckedAt: time.Now().UTC()}, nil
	}
	return c.Probe.Probe(ctx, *svc.HealthURL, c.Timeout), nil
}
