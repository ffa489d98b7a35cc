package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/knowledgestore/domain"
	"github.com/opsplatform/core/knowledgestore/ingest"
	"github.com/opsplatform/core/knowledgestore/ports"
	"github.com/opsplatform/core/knowledgestore/store/memory"
	"github.com/opsplatform/core/pkg/common"
)

func newPipeline() *ingest.Pipeline {
	store := memory.New()
	clock := common.NewFrozenClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return ingest.New(store, store, store, clock, nil)
}

func TestIngest_DedupSameContent(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()
	req := domain.IngestionRequest{
		ExternalID: "1",
		Source:     domain.Source{ID: "s1", Type: domain.SourceQualityGate},
		Content:    "A",
	}

	run1, err := p.Ingest(ctx, "", []domain.IngestionRequest{req})
	require.NoError(t, err)
	require.Len(t, run1.Results, 1)
	assert.False(t, run1.Results[0].Deduplicated)

	run2, err := p.Ingest(ctx, "", []domain.IngestionRequest{req})
	require.NoError(t, err)
	require.Len(t, run2.Results, 1)
	assert.True(t, run2.Results[0].Deduplicated)
	assert.Equal(t, run1.Results[0].EntryID, run2.Results[0].EntryID)
	assert.Equal(t, run1.Results[0].VersionID, run2.Results[0].VersionID)

	entry, err := p.GetRun(ctx, run2.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, entry.Status)
}

func TestIngest_VersioningOnChange(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()
	base := domain.IngestionRequest{
		ExternalID: "2",
		Source:     domain.Source{ID: "s1", Type: domain.SourceOps},
	}

	first := base
	first.Content = "A"
	_, err := p.Ingest(ctx, "", []domain.IngestionRequest{first})
	require.NoError(t, err)

	second := base
	second.Content = "A patched"
	run, err := p.Ingest(ctx, "", []domain.IngestionRequest{second})
	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.False(t, run.Results[0].Deduplicated)

	entries, err := p.Search(ctx, ports.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Versions, 2)
	assert.NotEqual(t, entries[0].Versions[0].Fingerprint, entries[0].Versions[1].Fingerprint)
}

func TestIngest_IdempotentRunID(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()
	req := domain.IngestionRequest{
		ExternalID: "3",
		Source:     domain.Source{ID: "s1", Type: domain.SourceOther},
		Content:    "hello world",
	}

	run1, err := p.Ingest(ctx, "fixed-run", []domain.IngestionRequest{req})
	require.NoError(t, err)

	run2, err := p.Ingest(ctx, "fixed-run", []domain.IngestionRequest{req})
	require.NoError(t, err)

	assert.Equal(t, run1.Results, run2.Results)
}

func TestReprocess_PureReplay(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()
	req := domain.IngestionRequest{
		ExternalID: "4",
		Source:     domain.Source{ID: "s1", Type: domain.SourceCodeGen},
		Content:    "data",
	}
	run, err := p.Ingest(ctx, "", []domain.IngestionRequest{req})
	require.NoError(t, err)

	replay, err := p.Reprocess(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Results, replay.Results)
	assert.Equal(t, run.RunID, replay.RunID)
}

func TestReprocess_UnknownRun(t *testing.T) {
	p := newPipeline()
	_, err := p.Reprocess(context.Background(), "nope")
	require.Error(t, err)
}

func TestEntry_NoAdjacentDuplicateFingerprint(t *testing.T) {
	entry := &domain.KnowledgeEntry{ID: "e1"}
	v := domain.Version{ID: "v1", Fingerprint: "abc"}
	require.NoError(t, entry.AddVersion(v))
	err := entry.AddVersion(domain.Version{ID: "v2", Fingerprint: "abc"})
	assert.Error(t, err)
}
