package health

import (
	"context"
	"net/http"
	"time"

	"github.com/opsplatform/core/opscontroller/domain"
)

// HTTPProbe implements ports.HealthProbe with a bounded-timeout GET.
// status<300 → healthy; other HTTP status → degraded with the code;
// transport failure → degraded with the error detail
type HTTPProbe struct {
	Client *http.Client
}

func NewHTTPProbe() *HTTPProbe {
	return &HTTPProbe{Client: &http.Client{}}
}

func (p *HTTPProbe) Probe(ctx context.Context, url string, timeout time.Duration) domain.HealthResult {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	now := time.Now().UTC()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return domain.HealthResult{Status: domain.HealthDegraded, Detail: err.Error(), CheckedAt: now}
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return domain.HealthResult{Status: domain.HealthDegraded, Detail: err.Error(), CheckedAt: now}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		return domain.HealthResult{Status: domain.HealthHealthy, HTTPCode: resp.StatusCode, CheckedAt: now}
	}
	return domain.HealthResult{Status: domain.HealthDegraded, HTTPCode: resp.StatusCode, CheckedAt: now}
}
