// Package logs implements log ingestion and search: IngestLog
// fails with UnknownService if the service isn't registered, otherwise
// writes to the sink and publishes logs.ingested.
package logs

import (
	"context"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/pkg/apierr"
	"github.com/opsplatform/core/pkg/common"
)

type Logs struct {
	Services ports.ServiceRepository
	Sink     ports.LogSink
	Audit    ports.AuditLog
	Bus      ports.IntegrationBus
	Clock    common.Clock
}

func New(services ports.ServiceRepository, sink ports.LogSink, audit ports.AuditLog, bus ports.IntegrationBus, clock common.Clock) *Logs {
	if clock == nil {
		clock = common.SystemClock{}
	}
	return &Logs{Services: services, Sink: sink, Audit: audit, Bus: bus, Clock: clock}
}

func (l *Logs) Ingest(ctx context.Context, record domain.LogRecord) error {
	if _, err := l.Services.Get(ctx, record.ServiceID); err != nil {
		return apierr.NotFoundf("unknown service %s", record.ServiceID)
	}
	if record.Ts.IsZero() {
		record.Ts = l.Clock.Now()
	}
	if err := l.Sink.Append(ctx, record); err != nil {
		return apierr.Externalf(err, "appending log record for %s", record.ServiceID)
	}
	if l.Audit != nil {
		_ = l.Audit.Record(ctx, "logs.ingested", map[string]any{"service_id": record.ServiceID})
	}
	if l.Bus != nil {
		_ = l.Bus.Publish(ctx, "logs.ingested", map[string]any{"service_id": record.ServiceID})
	}
	return nil
}

// Search returns newest-first matches up to limit
func (l *Logs) Search(ctx context.Context, filters ports.LogFilters, limit int) ([]domain.LogRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return l.Sink.Search(ctx, filters, limit)
}
