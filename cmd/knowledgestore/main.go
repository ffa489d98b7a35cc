// Command knowledgestore runs the KnowledgeStore ingestion service.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/opsplatform/core/knowledgestore/api"
	"github.com/opsplatform/core/knowledgestore/blob"
	"github.com/opsplatform/core/knowledgestore/ingest"
	"github.com/opsplatform/core/knowledgestore/store/memory"
	"github.com/opsplatform/core/knowledgestore/store/postgres"
	"github.com/opsplatform/core/pkg/common"
	"github.com/opsplatform/core/pkg/dbutil"
	"github.com/opsplatform/core/pkg/observe"
)

func main() {
	_ = godotenv.Load()
	common.SetupLogging("knowledge-store", slog.LevelInfo)

	addr := envOr("LISTEN_ADDR", ":8081")
	apiKey := os.Getenv("API_KEY")

	pipeline, err := buildPipeline(context.Background())
	if err != nil {
		slog.Error("failed to build knowledgestore pipeline", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(pipeline, apiKey)
	slog.Info("knowledgestore listening", "addr", addr)
	if err := server.Start(addr); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func buildPipeline(ctx context.Context) (*ingest.Pipeline, error) {
	var blobStore *blob.FSStore
	if bucket := os.Getenv("BLOB_BUCKET"); bucket != "" {
		blobStore = blob.New(bucket)
	}

	hook := observe.NewSlogHook(slog.Default())

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
		if blobStore != nil {
			return ingest.New(store, store, blobStore, common.SystemClock{}, hook), nil
		}
		return ingest.New(store, store, nil, common.SystemClock{}, hook), nil
	}

	store := memory.New()
	if blobStore != nil {
		return ingest.New(store, store, blobStore, common.SystemClock{}, hook), nil
	}
	return ingest.New(store, store, store, common.SystemClock{}, hook), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
