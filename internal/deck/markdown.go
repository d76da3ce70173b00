package deck

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

// FrontMatter is the optional YAML header of a markdown presentation.
type FrontMatter struct {
	Title  string         `yaml:"title"`
	Author string         `yaml:"author"`
	Extra  map[string]any `yaml:",inline"`
}

// MarkdownPage is one addressable markdown slide.
type MarkdownPage struct {
	Markdown string
	Notes    string
}

// MarkdownDeck is a parsed markdown presentation. Each horizontal slide holds
// one or more vertical pages.
type MarkdownDeck struct {
	Front  FrontMatter
	Slides [][]MarkdownPage
}

var (
	frontMatterPattern = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n`)
	horizontalPattern  = regexp.MustCompile(`\n---\n`)
	verticalPattern    = regexp.MustCompile(`\n-v-\n`)
	notePattern        = regexp.MustCompile(`(?s)\nNote:(.*)$`)
)

// ParseMarkdown splits markdown into slides. Horizontal slides are separated
// by a "---" line, vertical pages by a "-v-" line, and a trailing "Note:"
// block becomes the page's speaker note.
func ParseMarkdown(content string) (*MarkdownDeck, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	md := &MarkdownDeck{}
	if m := frontMatterPattern.FindStringSubmatchIndex(content); m != nil {
		if err := yaml.Unmarshal([]byte(content[m[2]:m[3]]), &md.Front); err != nil {
			return nil, &ValidationError{Cause: fmt.Errorf("front matter: %w", err)}
		}
		content = content[m[1]:]
	}

	for _, slide := range horizontalPattern.Split(content, -1) {
		var pages []MarkdownPage
		for _, v := range verticalPattern.Split(slide, -1) {
			pages = append(pages, extractNotes(v))
		}
		md.Slides = append(md.Slides, pages)
	}
	return md, nil
}

func extractNotes(page string) MarkdownPage {
	if m := notePattern.FindStringSubmatchIndex(page); m != nil {
		return MarkdownPage{
			Markdown: strings.TrimSpace(page[:m[0]]),
			Notes:    strings.TrimSpace(page[m[2]:m[3]]),
		}
	}
	return MarkdownPage{Markdown: strings.TrimSpace(page)}
}

// TotalSlides counts every addressable page, vertical ones included.
func (m *MarkdownDeck) TotalSlides() int {
	n := 0
	for _, pages := range m.Slides {
		n += len(pages)
	}
	return n
}

// NotesIndex lists one entry per page with its horizontal and vertical index.
func (m *MarkdownDeck) NotesIndex() []models.NoteEntry {
	notes := make([]models.NoteEntry, 0, m.TotalSlides())
	for h, pages := range m.Slides {
		for v, p := range pages {
			notes = append(notes, models.NoteEntry{IndexH: h, IndexV: v, Text: p.Notes})
		}
	}
	return notes
}

// HTML renders each slide as a markdown section. Slides with vertical pages
// nest one section per page.
func (m *MarkdownDeck) HTML() string {
	var buf bytes.Buffer
	for i, pages := range m.Slides {
		if i > 0 {
			buf.WriteString("\n")
		}
		name := "markdown-stack"
		var data any = pages
		if len(pages) == 1 {
			name, data = "markdown-page", pages[0]
		}
		if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
			return ErrorHTML(err)
		}
	}
	return buf.String()
}
