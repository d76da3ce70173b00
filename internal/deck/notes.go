package deck

import (
	"fmt"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

// Index is the navigation-relevant outline of a presentation: how many
// addressable slides it has and the speaker note at each position.
type Index struct {
	TotalSlides int                `json:"totalSlides"`
	Notes       []models.NoteEntry `json:"notes"`
}

// NotesIndex returns one entry per scene. Decks have no vertical pages, so
// every entry has indexv 0.
func NotesIndex(d *models.Deck) []models.NoteEntry {
	if d == nil {
		return []models.NoteEntry{}
	}
	notes := make([]models.NoteEntry, len(d.Scenes))
	for i, s := range d.Scenes {
		notes[i] = models.NoteEntry{IndexH: i, IndexV: 0, Text: s.Notes}
	}
	return notes
}

// IndexOf derives the index of a stored presentation of either type.
func IndexOf(p *models.Presentation) (Index, error) {
	switch p.Type {
	case models.TypeMarkdown:
		md, err := ParseMarkdown(string(p.Content))
		if err != nil {
			return Index{}, err
		}
		return Index{TotalSlides: md.TotalSlides(), Notes: md.NotesIndex()}, nil
	case models.TypeDeck, "":
		d, err := Parse(p.Content)
		if err != nil {
			return Index{}, err
		}
		return Index{TotalSlides: len(d.Scenes), Notes: NotesIndex(d)}, nil
	}
	return Index{}, fmt.Errorf("unsupported presentation type %q", p.Type)
}

// RenderPresentation renders a stored presentation to slide markup. Content
// that cannot be parsed yields a single error slide.
func RenderPresentation(p *models.Presentation) string {
	return render(p, false)
}

// RenderPreview is RenderPresentation for the builder: deck scenes render
// with nothing staged. Markdown has no staging and renders as usual.
func RenderPreview(p *models.Presentation) string {
	return render(p, true)
}

func render(p *models.Presentation, preview bool) string {
	switch p.Type {
	case models.TypeMarkdown:
		md, err := ParseMarkdown(string(p.Content))
		if err != nil {
			return ErrorHTML(err)
		}
		return md.HTML()
	default:
		d, err := Parse(p.Content)
		if err != nil {
			return ErrorHTML(err)
		}
		if preview {
			return RenderPreviewHTML(d)
		}
		return RenderHTML(d)
	}
}
