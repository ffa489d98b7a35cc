// Package memory implements CatalogQuery's ports.Repository in-process,
// composing the filter clauses with regexp against an in-memory
// slice rather than a query planner. Grounded on codexathenae's
// infrastructure/repositories.py MongoBooksRepository._build_filters, which
// builds the identical clause set incrementally before handing it to the
// store.
package memory

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"github.com/opsplatform/core/catalogquery/domain"
	"github.com/opsplatform/core/catalogquery/ports"
	"github.com/opsplatform/core/pkg/apierr"
)

// Store implements ports.Repository over a map guarded by a mutex.
type Store struct {
	mu    sync.RWMutex
	books map[string]domain.Book
}

func New() *Store {
	return &Store{books: make(map[string]domain.Book)}
}

func (s *Store) Save(_ context.Context, book domain.Book) (domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[book.ID] = book
	return book, nil
}

func (s *Store) Get(_ context.Context, id string) (domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return domain.Book{}, apierr.NotFoundf("book %s", id)
	}
	return b, nil
}

func (s *Store) EnsureIndexes(context.Context) error { return nil }

func (s *Store) List(_ context.Context, q ports.Query) ([]domain.Book, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var qRe, authorRe, genreRe *regexp.Regexp
	if q.Q != "" {
		qRe = regexp.MustCompile("(?i)" + regexp.QuoteMeta(q.Q))
	}
	if q.Author != "" {
		authorRe = regexp.MustCompile("(?i)" + regexp.QuoteMeta(q.Author))
	}
	if q.Genre != "" {
		genreRe = regexp.MustCompile("(?i)^" + regexp.QuoteMeta(q.Genre) + "$")
	}

	matched := make([]domain.Book, 0, len(s.books))
	for _, b := range s.books {
		if qRe != nil && !matchesAny(qRe, b) {
			continue
		}
		if authorRe != nil && !matchesAuthors(authorRe, b.Authors) {
			continue
		}
		if genreRe != nil && !genreRe.MatchString(b.Genre) {
			continue
		}
		if q.HasISBN != nil && b.HasISBN() != *q.HasISBN {
			continue
		}
		matched = append(matched, b)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Title != matched[j].Title {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	skip := (q.Page - 1) * q.Limit
	if skip < 0 {
		skip = 0
	}
	if skip >= total {
		return []domain.Book{}, total, nil
	}
	end := skip + q.Limit
	if end > total {
		end = total
	}
	return matched[skip:end], total, nil
}

func matchesAny(re *regexp.Regexp, b domain.Book) bool {
	if re.MatchString(b.Title) || re.MatchString(b.Description) || re.MatchString(b.Genre) {
		return true
	}
	return matchesAuthors(re, b.Authors)
}

func matchesAuthors(re *regexp.Regexp, authors []string) bool {
	for _, a := range authors {
		if re.MatchString(a) {
			return true
		}
	}
	return false
}
