package models

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"
)

// PresentationType distinguishes structured decks from markdown slides.
type PresentationType string

const (
	TypeDeck     PresentationType = "deck"
	TypeMarkdown PresentationType = "markdown"
)

// Extension returns the file extension used for the type.
func (t PresentationType) Extension() string {
	if t == TypeMarkdown {
		return ".md"
	}
	return ".deck"
}

// TypeFromFilename infers the presentation type from a filename extension.
func TypeFromFilename(filename string) (PresentationType, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".deck":
		return TypeDeck, true
	case ".md":
		return TypeMarkdown, true
	}
	return "", false
}

// PresentationSummary is one entry of a store listing.
type PresentationSummary struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Filename  string           `json:"filename"`
	Type      PresentationType `json:"type"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Presentation is a stored presentation including its content. Content holds
// the raw document: deck JSON for TypeDeck, markdown text for TypeMarkdown.
type Presentation struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Filename  string           `json:"filename"`
	Type      PresentationType `json:"type"`
	Content   []byte           `json:"-"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Summary drops the content.
func (p *Presentation) Summary() PresentationSummary {
	return PresentationSummary{
		ID:        p.ID,
		Name:      p.Name,
		Filename:  p.Filename,
		Type:      p.Type,
		CreatedAt: p.CreatedAt,
	}
}

// MarshalJSON emits deck content as a JSON object and markdown as a string.
func (p Presentation) MarshalJSON() ([]byte, error) {
	type alias Presentation
	out := struct {
		alias
		Content json.RawMessage `json:"content"`
	}{alias: alias(p)}

	if p.Type == TypeDeck && json.Valid(p.Content) {
		out.Content = p.Content
	} else {
		raw, err := json.Marshal(string(p.Content))
		if err != nil {
			return nil, err
		}
		out.Content = raw
	}
	return json.Marshal(out)
}
