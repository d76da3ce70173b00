// Package storagetest holds the behaviour every presentation store must
// share, run against each backend from its own tests.
package storagetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

// SampleDeck is a three-scene deck exercising several block kinds.
func SampleDeck() *models.Deck {
	d := deck.CreateEmpty("Quarterly Review")
	d.Meta.Author = "Ops"
	d.Meta.Created = "2024-05-01"
	d.Scenes[0].Notes = "open strong"
	d.Scenes = append(d.Scenes,
		models.Scene{ID: "numbers", Mood: models.MoodBold, Layout: models.LayoutSplit, Beats: []models.Beat{
			deck.CreateBeat(models.BlockMetric),
			deck.CreateBeat(models.BlockList),
			{Block: "sparkle", Body: models.UnknownBody{Fields: map[string]json.RawMessage{"text": json.RawMessage(`"legacy"`)}}},
		}},
		models.Scene{ID: "close", Beats: []models.Beat{deck.CreateBeat(models.BlockQuote)}, Notes: "thank them"},
	)
	return d
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("Upsert", func(t *testing.T) { testUpsert(t, newStore(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("Markdown", func(t *testing.T) { testMarkdown(t, newStore(t)) })
	t.Run("RejectsMalformedDeck", func(t *testing.T) { testMalformed(t, newStore(t)) })
}

func testRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	d := SampleDeck()
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	saved, err := s.Save(ctx, "Quarterly Review", "review", models.TypeDeck, raw)
	require.NoError(t, err)
	assert.Equal(t, "review.deck", saved.Filename)
	assert.NotEmpty(t, saved.ID)

	got, err := s.Get(ctx, "review.deck")
	require.NoError(t, err)
	assert.Equal(t, models.TypeDeck, got.Type)
	assert.Equal(t, "Quarterly Review", got.Name)

	parsed, err := deck.Parse(got.Content)
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func testUpsert(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first, err := s.Save(ctx, "Talk", "talk.deck", models.TypeDeck, mustJSON(t, deck.CreateEmpty("v1")))
	require.NoError(t, err)

	second, err := s.Save(ctx, "Talk v2", "talk.deck", models.TypeDeck, mustJSON(t, deck.CreateEmpty("v2")))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := s.Get(ctx, "talk.deck")
	require.NoError(t, err)
	assert.Equal(t, "Talk v2", got.Name)
	parsed, err := deck.Parse(got.Content)
	require.NoError(t, err)
	assert.Equal(t, "v2", parsed.Meta.Title)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testList(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, name := range []string{"first", "second", "third"} {
		_, err := s.Save(ctx, name, name, models.TypeDeck, mustJSON(t, deck.CreateEmpty(name)))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third.deck", list[0].Filename)
	assert.Equal(t, "first.deck", list[2].Filename)
	assert.Equal(t, models.TypeDeck, list[0].Type)
}

func testDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, err := s.Save(ctx, "gone", "gone.deck", models.TypeDeck, mustJSON(t, deck.CreateEmpty("gone")))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "gone.deck"))
	_, err = s.Get(ctx, "gone.deck")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "gone.deck"), storage.ErrNotFound)
}

func testMarkdown(t *testing.T, s storage.Store) {
	ctx := context.Background()
	body := "# Hello\n---\n# World\nNote: bye"
	saved, err := s.Save(ctx, "Notes", "notes.md", "", []byte(body))
	require.NoError(t, err)
	assert.Equal(t, models.TypeMarkdown, saved.Type)
	assert.Equal(t, "notes.md", saved.Filename)

	got, err := s.Get(ctx, "notes.md")
	require.NoError(t, err)
	assert.Equal(t, body, string(got.Content))
}

func testMalformed(t *testing.T, s storage.Store) {
	_, err := s.Save(context.Background(), "bad", "bad.deck", models.TypeDeck, []byte(`{"scenes": []}`))
	assert.ErrorIs(t, err, deck.ErrMalformedDocument)

	_, err = s.Get(context.Background(), "bad.deck")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
