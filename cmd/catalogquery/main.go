// Command catalogquery runs the CatalogQuery filter-composition service.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/opsplatform/core/catalogquery/api"
	"github.com/opsplatform/core/catalogquery/catalog"
	"github.com/opsplatform/core/catalogquery/store/memory"
	"github.com/opsplatform/core/catalogquery/store/postgres"
	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/pkg/dbutil"
)

func main() {
	_ = godotenv.Load()
	common.SetupLogging("catalog-query", slog.LevelInfo)

	addr := envOr("LISTEN_ADDR", ":8083")
	apiKey := os.Getenv("API_KEY")

	cat, err := buildCatalog(context.Background())
	if err != nil {
		slog.Error("failed to build catalogquery", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(cat, apiKey)
	slog.Info("catalogquery listening", "addr", addr)
	if err := server.Start(addr); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func buildCatalog(ctx context.Context) (*catalog.Catalog, error) {
	clock := common.SystemClock{}

	if os.Getenv("PERSISTENCE") == "durable" {
		cfg, err := dbutil.LoadConfigFromEnv("DOCUMENT_STORE")
		if err != nil {
			return nil, err
		}
		pool, err := dbutil.Open(ctx, cfg, postgres.Migrations, postgres.MigrationsDir)
		if err != nil {
			return nil, err
		}
		store := postgres.New(pool)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return catalog.New(store, clock), nil
	}

	store := memory.New()
	return catalog.New(store, clock), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
