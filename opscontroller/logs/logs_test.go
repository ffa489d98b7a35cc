package logs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/opscontroller/domain"
	"github.com/opsplatform/core/opscontroller/logs"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/opscontroller/store/memory"
	"github.com/opsplatform/core/pkg/common"
)

func TestIngest_UnknownServiceRejected(t *testing.T) {
	services := memory.NewServiceStore()
	sink := memory.NewLogStore()
	lg := logs.New(services, sink, nil, nil, nil)

	err := lg.Ingest(context.Background(), domain.LogRecord{ServiceID: "ghost", Message: "hi"})
	assert.Error(t, err)
}

func TestIngest_AndSearch(t *testing.T) {
	ctx := context.Background()
	services := memory.NewServiceStore()
	require.NoError(t, services.Upsert(ctx, &domain.Service{ID: "svc1", Name: "svc1"}))
	sink := memory.NewLogStore()
	clock := common.NewFrozenClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	lg := logs.New(services, sink, nil, nil, clock)

	require.NoError(t, lg.Ingest(ctx, domain.LogRecord{ServiceID: "svc1", Message: "boot ok"}))
	require.NoError(t, lg.Ingest(ctx, domain.LogRecord{ServiceID: "svc1", Message: "disk full error"}))

	results, err := lg.Search(ctx, ports.LogFilters{ServiceID: "svc1", Text: "disk"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message, "disk full")
}
