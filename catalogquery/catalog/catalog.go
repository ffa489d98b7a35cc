// Package catalog is CatalogQuery's use-case layer: it validates and
// normalizes a caller's Query before delegating to ports.Repository, per
// the design.
package catalog

import (
	"context"

	"github.com/opsplatform/core/catalogquery/domain"
	"github.com/opsplatform/core/catalogquery/ports"
	"github.com/opsplatform/core/pkg/common"
)

const maxLimit = 100

// Catalog orchestrates CatalogQuery's List and Create operations over a
// pluggable ports.Repository.
type Catalog struct {
	repo  ports.Repository
	clock common.Clock
}

func New(repo ports.Repository, clock common.Clock) *Catalog {
	return &Catalog{repo: repo, clock: clock}
}

// List clamps page/limit to the bounds (page >= 1, limit <= 100)
// and returns the matching page plus the total over the filtered set.
func (c *Catalog) List(ctx context.Context, q ports.Query) ([]domain.Book, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return c.repo.List(ctx, q)
}

// Create stamps a new book's store-only fields and persists it.
func (c *Catalog) Create(ctx context.Context, book domain.Book) (domain.Book, error) {
	if book.ID == "" {
		book.ID = common.NewID()
	}
	book.Stamp(c.clock.Now())
	return c.repo.Save(ctx, book)
}

// Get fetches a single book by id.
func (c *Catalog) Get(ctx context.Context, id string) (domain.Book, error) {
	return c.repo.Get(ctx, id)
}
