package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

const talk = `---
title: Field Notes
author: Sam
theme: night
---
# Welcome

Note:
Say hello.
---
## Part one
-v-
### Detail
Note: keep it short
---
## The end`

func TestParseMarkdown(t *testing.T) {
	md, err := ParseMarkdown(talk)
	require.NoError(t, err)

	assert.Equal(t, "Field Notes", md.Front.Title)
	assert.Equal(t, "Sam", md.Front.Author)
	assert.Equal(t, "night", md.Front.Extra["theme"])

	require.Len(t, md.Slides, 3)
	assert.Len(t, md.Slides[1], 2)
	assert.Equal(t, "# Welcome", md.Slides[0][0].Markdown)
	assert.Equal(t, "Say hello.", md.Slides[0][0].Notes)
	assert.Equal(t, "keep it short", md.Slides[1][1].Notes)
	assert.Equal(t, 4, md.TotalSlides())
}

func TestMarkdownNotesIndex(t *testing.T) {
	md, err := ParseMarkdown(talk)
	require.NoError(t, err)

	assert.Equal(t, []models.NoteEntry{
		{IndexH: 0, IndexV: 0, Text: "Say hello."},
		{IndexH: 1, IndexV: 0, Text: ""},
		{IndexH: 1, IndexV: 1, Text: "keep it short"},
		{IndexH: 2, IndexV: 0, Text: ""},
	}, md.NotesIndex())
}

func TestMarkdownHTML(t *testing.T) {
	md, err := ParseMarkdown("# <Hi>\r\n---\r\nA\r\n-v-\r\nB")
	require.NoError(t, err)

	html := md.HTML()
	assert.Contains(t, html, "&lt;Hi&gt;")
	assert.Contains(t, html, `<section><section data-markdown>`)
}

func TestMarkdownBadFrontMatter(t *testing.T) {
	_, err := ParseMarkdown("---\ntitle: [unclosed\n---\n# x")
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestIndexOf(t *testing.T) {
	deckJSON := []byte(`{"scenes":[{"notes":"one","beats":[]},{"beats":[]},{"notes":"three","beats":[]}]}`)
	idx, err := IndexOf(&models.Presentation{Type: models.TypeDeck, Content: deckJSON})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.TotalSlides)
	assert.Equal(t, "three", idx.Notes[2].Text)

	idx, err = IndexOf(&models.Presentation{Type: models.TypeMarkdown, Content: []byte(talk)})
	require.NoError(t, err)
	assert.Equal(t, 4, idx.TotalSlides)

	_, err = IndexOf(&models.Presentation{Type: "pdf"})
	assert.Error(t, err)
}
