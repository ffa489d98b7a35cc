// Package ports declares CatalogQuery's storage capability interface, per
// the "the contract is specified, the physical engine is pluggable"
// design note.
package ports

import (
	"context"

	"github.com/opsplatform/core/catalogquery/domain"
)

// Query composes the conjunctive filter clauses the design defines, plus
// sort-stable pagination.
type Query struct {
	Q        string
	Author   string
	Genre    string
	HasISBN  *bool // nil = no filter
	Page     int
	Limit    int
}

// Repository is CatalogQuery's storage port: a deterministic, paginated
// search over the book collection.
type Repository interface {
	// List returns the page of books matching q, plus the total count of
	// the filtered set (not the page).
	List(ctx context.Context, q Query) ([]domain.Book, int, error)

	// Save upserts a book by id, storing it as given; the caller stamps its
	// store-only fields beforehand (Catalog.Create via domain.Book.Stamp).
	Save(ctx context.Context, book domain.Book) (domain.Book, error)

	// Get fetches a single book by id.
	Get(ctx context.Context, id string) (domain.Book, error)

	// EnsureIndexes idempotently creates the indexes the design names. A
	// no-op for the in-memory adapter.
	EnsureIndexes(ctx context.Context) error
}
