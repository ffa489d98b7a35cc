// Command opscontroller runs the incident and runbook controller service.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/opsplatform/core/opscontroller/api"
	"github.com/opsplatform/core/opscontroller/bus"
	"github.com/opsplatform/core/opscontroller/health"
	"github.com/opsplatform/core/opscontroller/incidents"
	"github.com/opsplatform/core/opscontroller/logs"
	"github.com/opsplatform/core/opscontroller/ports"
	"github.com/opsplatform/core/opscontroller/registry"
	"github.com/opsplatform/core/opscontroller/runbooks"
	memstore "github.com/opsplatform/core/opscontroller/store/memory"
	pgstore "github.com/opsplatform/core/opscontroller/store/postgres"
	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/pkg/dbutil"
	"github.com/opsplatform/core/pkg/observe"
)

func main() {
	_ = godotenv.Load()
	common.SetupLogging("ops-controller", slog.LevelInfo)

	addr := envOr("LISTEN_ADDR", ":8082")
	apiKey := os.Getenv("API_KEY")

	services, logSink, incidentRepo, runbookRepo, auditLog, integrationBus, err := buildStores(context.Background())
	if err != nil {
		slog.Error("failed to build opscontroller stores", "error", err)
		os.Exit(1)
	}

	clock := common.SystemClock{}
	hook := observe.NewSlogHook(slog.Default())

	reg := registry.New(services, auditLog, integrationBus, hook)
	logUseCase := logs.New(services, logSink, auditLog, integrationBus, clock)
	healthChecker := health.New(services, health.NewHTTPProbe(), health.DefaultTimeout)
	incidentUseCase := incidents.New(services, incidentRepo, auditLog, integrationBus, clock, hook)
	runbookUseCase := runbooks.New(services, incidentUseCase, incidentRepo, runbookRepo, runbooks.NoopDispatcher{}, auditLog, integrationBus, clock, hook)

	if catalogFile := os.Getenv("RUNBOOK_CATALOG_FILE"); catalogFile != "" {
		if err := runbooks.LoadActionCatalogFile(context.Background(), runbookUseCase, catalogFile); err != nil {
			slog.Error("failed to load runbook action catalog", "file", catalogFile, "error", err)
			os.Exit(1)
		}
		slog.Info("loaded runbook action catalog", "file", catalogFile)
	}

	server := api.NewServer(reg, logUseCase, healthChecker, incidentUseCase, runbookUseCase, apiKey)
	slog.Info("opscontroller listening", "addr", addr)
	if err := server.Start(addr); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func buildStores(ctx context.Context) (ports.ServiceRepository, ports.LogSink, ports.IncidentRepository, ports.RunbookRepository, ports.AuditLog, ports.IntegrationBus, error) {
	integrationBus := buildBus()

	if os.Getenv("PERSISTENCE") == "durable" {
		cfg, err := dbutil.LoadConfigFromEnv("DOCUMENT_STORE")
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		pool, err := dbutil.Open(ctx, cfg, pgstore.Migrations, pgstore.MigrationsDir)
		if err != nil {
			return nil, nil, nil, nil, nil, nil, err
		}
		return pgstore.NewServiceStore(pool), pgstore.NewLogStore(pool), pgstore.NewIncidentStore(pool),
			pgstore.NewRunbookStore(pool), pgstore.NewAuditLog(pool), integrationBus, nil
	}

	return memstore.NewServiceStore(), memstore.NewLogStore(), memstore.NewIncidentStore(),
		memstore.NewRunbookStore(), memstore.NewAuditLog(), integrationBus, nil
}

func buildBus() ports.IntegrationBus {
	token := os.Getenv("SLACK_BOT_TOKEN")
	channel := os.Getenv("SLACK_CHANNEL")
	if token != "" && channel != "" {
		return bus.NewSlackBus(token, channel)
	}
	return bus.NewInMemoryBus()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
