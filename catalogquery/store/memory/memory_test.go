package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsplatform/core/catalogquery/domain"
	"github.com/opsplatform/core/catalogquery/ports"
)

// TestListSortsTitlesCaseSensitively pins sort order to raw byte comparison
// (matching the postgres adapter's ORDER BY title ASC), not a
// case-folded comparison: uppercase ASCII sorts before lowercase.
func TestListSortsTitlesCaseSensitively(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, title := range []string{"apple", "Banana", "cherry", "Date"} {
		_, err := s.Save(ctx, domain.Book{ID: title, Title: title})
		require.NoError(t, err)
	}

	books, total, err := s.List(ctx, ports.Query{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	got := make([]string, len(books))
	for i, b := range books {
		got[i] = b.Title
	}
	assert.Equal(t, []string{"Banana", "Date", "apple", "cherry"}, got)
}
