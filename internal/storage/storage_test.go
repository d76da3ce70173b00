package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		typ  models.PresentationType
		want string
	}{
		{"talk", models.TypeDeck, "talk.deck"},
		{"talk.deck", models.TypeDeck, "talk.deck"},
		{"../../etc/passwd", models.TypeDeck, "etcpasswd.deck"},
		{"My Talk!.md", models.TypeMarkdown, "MyTalk.md"},
		{"???", models.TypeMarkdown, "untitled.md"},
		{"a_b-c", models.TypeMarkdown, "a_b-c.md"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SanitizeFilename(c.in, c.typ), c.in)
	}

	assert.True(t, ValidFilename("talk.deck"))
	assert.False(t, ValidFilename("../talk.deck"))
	assert.False(t, ValidFilename("talk.pdf"))
}

func TestKeyInfersType(t *testing.T) {
	name, typ, err := Key("", "slides.md", "")
	require.NoError(t, err)
	assert.Equal(t, "slides.md", name)
	assert.Equal(t, models.TypeMarkdown, typ)

	name, typ, err = Key("Big Launch", "", "")
	require.NoError(t, err)
	assert.Equal(t, "big-launch.deck", name)
	assert.Equal(t, models.TypeDeck, typ)

	_, _, err = Key("x", "x", "pdf")
	assert.Error(t, err)
}

func TestPrepareKeepsIdentity(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &models.Presentation{ID: "fixed", CreatedAt: created}
	p, err := Prepare(existing, "", "notes.md", "", []byte("# x"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "fixed", p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, "notes", p.Name)
}

func TestSortNewestFirst(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	list := []models.PresentationSummary{
		{Filename: "b.deck", CreatedAt: t0},
		{Filename: "c.deck", CreatedAt: t0.Add(time.Hour)},
		{Filename: "a.deck", CreatedAt: t0},
	}
	SortNewestFirst(list)
	assert.Equal(t, "c.deck", list[0].Filename)
	assert.Equal(t, "a.deck", list[1].Filename)
	assert.Equal(t, "b.deck", list[2].Filename)
}
