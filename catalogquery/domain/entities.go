// Package domain holds CatalogQuery's single entity, Book.
// Grounded on codexathenae's domain/entities.py Book model.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Book is a catalog entry. The fields after Metadata are store-only: they
// are computed at write time and never supplied by a caller.
type Book struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Authors      []string       `json:"authors"`
	ISBN         string         `json:"isbn,omitempty"`
	Genre        string         `json:"genre,omitempty"`
	Description  string         `json:"description,omitempty"`
	ImageLinks   string         `json:"image_links,omitempty"`
	PublishedDate string        `json:"published_date,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	Fingerprint string    `json:"_fingerprint,omitempty"`
	TitleNorm   string    `json:"_title_norm,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// normalize lower-cases and trims a string for fingerprint/sort comparisons.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTitle returns b.Title normalized, the value stored as
// _title_norm.
func (b Book) NormalizeTitle() string {
	return normalize(b.Title)
}

// ComputeFingerprint is _fingerprint = SHA256(norm(title)+"|"+norm(authors)),
//
func (b Book) ComputeFingerprint() string {
	authors := make([]string, len(b.Authors))
	for i, a := range b.Authors {
		authors[i] = normalize(a)
	}
	payload := b.NormalizeTitle() + "|" + strings.Join(authors, ",")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// HasISBN reports whether b carries a non-empty ISBN, the predicate
// `has_isbn` filters against.
func (b Book) HasISBN() bool {
	return strings.TrimSpace(b.ISBN) != ""
}

// Stamp fills in the store-only fields ahead of a write. Callers funnel
// every insert/update through this rather than computing the fields ad hoc.
func (b *Book) Stamp(now time.Time) {
	b.Fingerprint = b.ComputeFingerprint()
	b.TitleNorm = b.NormalizeTitle()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}
