// Package domain provides domain models and business logic for the Article Search Service.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Article represents a scholarly record as assembled from one of the
// federated sources or loaded from the local store.
type Article struct {
	// ID is assigned by the store. Records that have not been persisted
	// carry the zero UUID.
	ID uuid.UUID

	// ExternalID is the provider-native identifier: a PMID for PubMed,
	// an arXiv ID, an NCT number for trial registrations, and so on.
	ExternalID string

	// DOI is the digital object identifier, empty when the provider
	// did not report one.
	DOI string

	Title    string
	Abstract string

	// Authors holds display names in citation order.
	Authors []string

	// Journal is the container title: journal name, preprint archive,
	// or registry name for trial records.
	Journal string

	// PublicationYear is a four-digit year string, or empty when the
	// provider reported no usable date. It is never a full date.
	PublicationYear string

	// URL points at the canonical landing page for the record.
	URL string

	// Source identifies which adapter (or the local store) produced
	// this record.
	Source SourceType

	// QualityScore is computed per search request and not persisted.
	QualityScore int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAbstract reports whether the article carries a usable abstract.
func (a *Article) HasAbstract() bool {
	return strings.TrimSpace(a.Abstract) != ""
}

// IdentityKey derives the article's natural identity key, used both for
// in-session deduplication and as the store's upsert key.
//
// Priority order: DOI > normalized title > structural fallback.
// The result is never empty.
func IdentityKey(a *Article) string {
	if doi := strings.TrimSpace(a.DOI); doi != "" {
		return "doi:" + strings.ToLower(doi)
	}

	if norm := NormalizeTitle(a.Title); norm != "" {
		sum := sha256.Sum256([]byte(norm))
		return "title:" + hex.EncodeToString(sum[:])[:12]
	}

	// Title-less records are normally discarded at the adapter; this
	// keeps the key total for anything that slips through.
	sum := sha256.Sum256([]byte(string(a.Source) + "\x00" + a.ExternalID + "\x00" + a.Title + "\x00" + a.PublicationYear))
	return "rec:" + hex.EncodeToString(sum[:])[:12]
}

// NormalizeTitle lowercases a title and strips every non-alphanumeric
// rune, so that punctuation and spacing variants of the same title
// collapse to one form.
func NormalizeTitle(title string) string {
	var sb strings.Builder
	sb.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
