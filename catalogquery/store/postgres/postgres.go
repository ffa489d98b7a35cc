// Package postgres implements CatalogQuery's ports.Repository over
// jackc/pgx/v5, composing the filter clauses as SQL predicates.
// Grounded on codexathenae's infrastructure/repositories.py
// (MongoBooksRepository._build_filters/list_books) and ensure_books_indexes,
// translated onto Postgres as the platform's uniform document-store
// engine.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsplatform/core/catalogquery/domain"
	"github.com/opsplatform/core/catalogquery/ports"
	"github.com/opsplatform/core/pkg/apierr"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is passed to pkg/dbutil.Open alongside Migrations.
const MigrationsDir = "migrations"

// Store implements ports.Repository over a pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureIndexes re-asserts the index set idempotently, mirroring
// codexathenae's ensure_books_indexes being callable independently of
// schema migration (e.g. on a store pointed at a pre-existing database).
func (s *Store) EnsureIndexes(ctx context.Context) error {
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_books_isbn ON books (isbn) WHERE isbn IS NOT NULL AND isbn <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_books_fingerprint ON books (fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_books_title_norm ON books (title_norm)`,
		`CREATE INDEX IF NOT EXISTS idx_books_authors ON books USING GIN (authors)`,
		`CREATE INDEX IF NOT EXISTS idx_books_genre ON books (genre)`,
		`CREATE INDEX IF NOT EXISTS idx_books_created_at ON books (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_books_text ON books USING GIN (
			to_tsvector('simple', coalesce(title,'') || ' ' || coalesce(description,'') || ' ' || array_to_string(authors, ' '))
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return apierr.Externalf(err, "ensuring book index")
		}
	}
	return nil
}

func (s *Store) Save(ctx context.Context, book domain.Book) (domain.Book, error) {
	metadata, err := json.Marshal(book.Metadata)
	if err != nil {
		return domain.Book{}, apierr.Externalf(err, "encoding metadata for book %s", book.ID)
	}
	isbn := nullable(book.ISBN)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO books (id, title, authors, isbn, genre, description, image_links, published_date, metadata, fingerprint, title_norm, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, authors = EXCLUDED.authors, isbn = EXCLUDED.isbn,
			genre = EXCLUDED.genre, description = EXCLUDED.description,
			image_links = EXCLUDED.image_links, published_date = EXCLUDED.published_date,
			metadata = EXCLUDED.metadata, fingerprint = EXCLUDED.fingerprint,
			title_norm = EXCLUDED.title_norm, updated_at = EXCLUDED.updated_at`,
		book.ID, book.Title, book.Authors, isbn, nullable(book.Genre), nullable(book.Description),
		nullable(book.ImageLinks), nullable(book.PublishedDate), metadata,
		book.Fingerprint, book.TitleNorm, book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return domain.Book{}, apierr.Externalf(err, "persisting book %s", book.ID)
	}
	return book, nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Book, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, authors, isbn, genre, description, image_links, published_date, metadata, fingerprint, title_norm, created_at, updated_at
		FROM books WHERE id = $1`, id)
	b, err := scanBook(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Book{}, apierr.NotFoundf("book %s", id)
		}
		return domain.Book{}, apierr.Externalf(err, "loading book %s", id)
	}
	return b, nil
}

func (s *Store) List(ctx context.Context, q ports.Query) ([]domain.Book, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Q != "" {
		p := arg("%" + strings.ToLower(q.Q) + "%")
		clauses = append(clauses, fmt.Sprintf(
			"(lower(title) LIKE %s OR lower(description) LIKE %s OR lower(genre) LIKE %s OR EXISTS (SELECT 1 FROM unnest(authors) a WHERE lower(a) LIKE %s))",
			p, p, p, p))
	}
	if q.Author != "" {
		p := arg("%" + strings.ToLower(q.Author) + "%")
		clauses = append(clauses, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(authors) a WHERE lower(a) LIKE %s)", p))
	}
	if q.Genre != "" {
		clauses = append(clauses, "lower(genre) = "+arg(strings.ToLower(q.Genre)))
	}
	if q.HasISBN != nil {
		if *q.HasISBN {
			clauses = append(clauses, "(isbn IS NOT NULL AND isbn <> '')")
		} else {
			clauses = append(clauses, "(isbn IS NULL OR isbn = '')")
		}
	}

	where := strings.Join(clauses, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM books WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, apierr.Externalf(err, "counting books")
	}

	limitArg := arg(q.Limit)
	offsetArg := arg((q.Page - 1) * q.Limit)
	query := fmt.Sprintf(`
		SELECT id, title, authors, isbn, genre, description, image_links, published_date, metadata, fingerprint, title_norm, created_at, updated_at
		FROM books WHERE %s ORDER BY title ASC, id ASC LIMIT %s OFFSET %s`, where, limitArg, offsetArg)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apierr.Externalf(err, "listing books")
	}
	defer rows.Close()

	var out []domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, apierr.Externalf(err, "scanning book row")
		}
		out = append(out, b)
	}
	if out == nil {
		out = []domain.Book{}
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (domain.Book, error) {
	var b domain.Book
	var isbn, genre, description, imageLinks, publishedDate *string
	var metadata []byte
	if err := row.Scan(&b.ID, &b.Title, &b.Authors, &isbn, &genre, &description, &imageLinks, &publishedDate,
		&metadata, &b.Fingerprint, &b.TitleNorm, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return domain.Book{}, err
	}
	b.ISBN = deref(isbn)
	b.Genre = deref(genre)
	b.Description = deref(description)
	b.ImageLinks = deref(imageLinks)
	b.PublishedDate = deref(publishedDate)
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &b.Metadata)
	}
	return b, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
