package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/pkg/apierr"
	"github.com/opsplatform/core/qualitygate/domain"
)

func TestScanStoreSaveGet(t *testing.T) {
	s := NewScanStore()
	ctx := context.Background()

	id, err := s.Save(ctx, domain.Scan{Repo: "r", Commit: "c"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "r", got.Repo)

	_, err = s.Get(ctx, "missing")
	assert.True(t, apierr.IsNotFound(err))
}

func TestBaselineStoreRoundTrip(t *testing.T) {
	s := NewBaselineStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.Baseline{Repo: "r", Commit: "c", Fingerprints: []string{"fp1"}}))
	got, err := s.GetForRepo(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []string{"fp1"}, got.Fingerprints)

	_, err = s.GetForRepo(ctx, "missing")
	assert.True(t, apierr.IsNotFound(err))
}

func TestWaiverStoreListActiveExcludesExpired(t *testing.T) {
	s := NewWaiverStore()
	ctx := context.Background()

	_, err := s.Save(ctx, domain.Waiver{FindingFingerprint: "fp1", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.Save(ctx, domain.Waiver{FindingFingerprint: "fp2", ExpiresAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fp1", active[0].FindingFingerprint)
}
