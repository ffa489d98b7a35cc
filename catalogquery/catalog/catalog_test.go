package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/catalogquery/domain"
	"github.com/opsplatform/core/catalogquery/ports"
	"github.com/opsplatform/core/catalogquery/store/memory"
	"github.com/opsplatform/core/pkg/common"
)

func frozenClock(t *testing.T) *common.FrozenClock {
	t.Helper()
	at, err := time.Parse(time.RFC3339, "2026-01-01T00:00:00Z")
	require.NoError(t, err)
	return common.NewFrozenClock(at)
}

func seed(t *testing.T, cat *Catalog) {
	t.Helper()
	ctx := context.Background()
	books := []domain.Book{
		{Title: "Refactoring", Authors: []string{"Martin Fowler"}, Genre: "Tech", ISBN: "111"},
		{Title: "Clean Code", Authors: []string{"Robert Martin"}, Genre: "Tech"},
		{Title: "Dune", Authors: []string{"Frank Herbert"}, Genre: "Scifi", ISBN: "222"},
		{Title: "Atomic Habits", Authors: []string{"James Clear"}, Genre: "Self-help", ISBN: "333"},
	}
	for _, b := range books {
		_, err := cat.Create(ctx, b)
		require.NoError(t, err)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	cat := New(memory.New(), frozenClock(t))
	seed(t, cat)

	t.Run("catalog paging by genre and isbn", func(t *testing.T) {
		hasISBN := true
		items, total, err := cat.List(context.Background(), ports.Query{Genre: "Tech", HasISBN: &hasISBN, Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, items, 1)
		assert.Equal(t, "Refactoring", items[0].Title)
	})

	t.Run("q matches across fields", func(t *testing.T) {
		items, total, err := cat.List(context.Background(), ports.Query{Q: "dune", Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "Dune", items[0].Title)
	})

	t.Run("limit clamps to 100", func(t *testing.T) {
		_, total, err := cat.List(context.Background(), ports.Query{Page: 1, Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
	})

	t.Run("pages are disjoint and contiguous", func(t *testing.T) {
		page1, total1, err := cat.List(context.Background(), ports.Query{Page: 1, Limit: 2})
		require.NoError(t, err)
		page2, total2, err := cat.List(context.Background(), ports.Query{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, total1, total2)
		assert.Len(t, page1, 2)
		assert.Len(t, page2, 2)
		assert.NotEqual(t, page1[0].ID, page2[0].ID)
	})
}

func TestCreateStampsFingerprintAndNorm(t *testing.T) {
	cat := New(memory.New(), frozenClock(t))
	book, err := cat.Create(context.Background(), domain.Book{Title: "Dune", Authors: []string{"Frank Herbert"}})
	require.NoError(t, err)
	assert.NotEmpty(t, book.Fingerprint)
	assert.Equal(t, "dune", book.TitleNorm)
	assert.Equal(t, book.ComputeFingerprint(), book.Fingerprint)
}
