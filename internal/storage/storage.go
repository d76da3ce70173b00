// Package storage defines the presentation store contract shared by the
// memory, file, sqlite, postgres and valkey backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/models"
)

// ErrNotFound is returned when no presentation has the requested filename.
var ErrNotFound = errors.New("presentation not found")

// ErrUnsupportedType is returned when saving a type other than deck or
// markdown.
var ErrUnsupportedType = errors.New("unsupported presentation type")

// Store persists presentations keyed by filename. Save is an upsert with
// last-write-wins semantics.
type Store interface {
	List(ctx context.Context) ([]models.PresentationSummary, error)
	Get(ctx context.Context, filename string) (*models.Presentation, error)
	Save(ctx context.Context, name, filename string, typ models.PresentationType, content []byte) (*models.Presentation, error)
	Delete(ctx context.Context, filename string) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeFilename strips a known extension and every character outside
// [a-zA-Z0-9_-], then appends the extension for typ.
func SanitizeFilename(filename string, typ models.PresentationType) string {
	stem := filename
	if _, ok := models.TypeFromFilename(stem); ok {
		stem = stem[:strings.LastIndex(stem, ".")]
	}
	stem = unsafeChars.ReplaceAllString(stem, "")
	if stem == "" {
		stem = "untitled"
	}
	return stem + typ.Extension()
}

// ValidFilename reports whether filename is already in sanitized form.
func ValidFilename(filename string) bool {
	typ, ok := models.TypeFromFilename(filename)
	return ok && SanitizeFilename(filename, typ) == filename
}

// Key resolves the type and sanitized filename a save request is stored
// under. An empty type is inferred from the filename, then defaults to deck.
func Key(name, filename string, typ models.PresentationType) (string, models.PresentationType, error) {
	if typ == "" {
		if t, ok := models.TypeFromFilename(filename); ok {
			typ = t
		} else {
			typ = models.TypeDeck
		}
	}
	if typ != models.TypeDeck && typ != models.TypeMarkdown {
		return "", "", fmt.Errorf("%w %q", ErrUnsupportedType, typ)
	}
	if filename == "" {
		filename = deck.Slug(name)
	}
	return SanitizeFilename(filename, typ), typ, nil
}

// Prepare validates a save request and builds the record to persist. An
// existing record keeps its id and creation time. Deck content must parse.
func Prepare(existing *models.Presentation, name, filename string, typ models.PresentationType, content []byte, now time.Time) (*models.Presentation, error) {
	filename, typ, err := Key(name, filename, typ)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = strings.TrimSuffix(filename, typ.Extension())
	}
	if typ == models.TypeDeck {
		if err := deck.ValidateJSON(content); err != nil {
			return nil, err
		}
	}

	p := &models.Presentation{
		ID:        uuid.NewString(),
		Name:      name,
		Filename:  filename,
		Type:      typ,
		Content:   append([]byte(nil), content...),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if existing != nil {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}
	return p, nil
}

// SortNewestFirst orders summaries by creation time, newest first, breaking
// ties by filename.
func SortNewestFirst(list []models.PresentationSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].Filename < list[j].Filename
	})
}
