package navigation

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

func flatNotes(n int) []models.NoteEntry {
	notes := make([]models.NoteEntry, n)
	for i := range notes {
		notes[i] = models.NoteEntry{IndexH: i}
	}
	return notes
}

func TestThreeSceneScenario(t *testing.T) {
	m := New()
	m.Load("talk.deck", 3, flatNotes(3))

	s := m.State()
	assert.Equal(t, 3, s.TotalSlides)
	assert.Equal(t, 0, s.IndexH)
	assert.Equal(t, "talk.deck", s.PresentationID())

	for range 2 {
		_, err := m.Navigate(Next)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, m.State().IndexH)

	pos, err := m.Navigate(Next)
	require.NoError(t, err)
	assert.Equal(t, models.Position{IndexH: 2}, pos)
}

func TestPrevAtStartStays(t *testing.T) {
	m := New()
	m.Load("a", 4, nil)
	pos, err := m.Navigate(Prev)
	require.NoError(t, err)
	assert.Equal(t, models.Position{}, pos)
}

func TestNoPresentation(t *testing.T) {
	m := New()
	assert.False(t, m.Loaded())
	_, err := m.Navigate(Next)
	assert.ErrorIs(t, err, ErrNoPresentation)
	_, err = m.NavigateTo(1, 0)
	assert.ErrorIs(t, err, ErrNoPresentation)
	assert.Nil(t, m.State().Presentation)
}

func TestLoadResetsPosition(t *testing.T) {
	m := New()
	m.Load("a", 5, nil)
	_, _ = m.NavigateTo(3, 0)
	m.Load("b", 2, nil)
	s := m.State()
	assert.Equal(t, models.Position{}, s.Position())
	assert.Equal(t, "b", s.PresentationID())
	assert.Equal(t, 2, s.TotalSlides)
}

func TestLoadDerivesTotalFromNotes(t *testing.T) {
	m := New()
	m.Load("a", 0, flatNotes(4))
	assert.Equal(t, 4, m.State().TotalSlides)
}

func TestVerticalStacks(t *testing.T) {
	notes := []models.NoteEntry{
		{IndexH: 0, IndexV: 0},
		{IndexH: 1, IndexV: 0},
		{IndexH: 1, IndexV: 1},
		{IndexH: 1, IndexV: 2},
		{IndexH: 2, IndexV: 0},
	}
	m := New()
	m.Load("talk.md", 5, notes)

	steps := []struct {
		dir  Direction
		want models.Position
	}{
		{Down, models.Position{IndexH: 0, IndexV: 0}},
		{Next, models.Position{IndexH: 1, IndexV: 0}},
		{Down, models.Position{IndexH: 1, IndexV: 1}},
		{Next, models.Position{IndexH: 1, IndexV: 2}},
		{Down, models.Position{IndexH: 1, IndexV: 2}},
		{Next, models.Position{IndexH: 2, IndexV: 0}},
		{Prev, models.Position{IndexH: 1, IndexV: 2}},
		{Up, models.Position{IndexH: 1, IndexV: 1}},
		{Up, models.Position{IndexH: 1, IndexV: 0}},
		{Up, models.Position{IndexH: 1, IndexV: 0}},
		{Prev, models.Position{IndexH: 0, IndexV: 0}},
	}
	for i, step := range steps {
		pos, err := m.Navigate(step.dir)
		require.NoError(t, err)
		assert.Equal(t, step.want, pos, "step %d (%s)", i, step.dir)
	}
}

func TestNavigateToClamps(t *testing.T) {
	notes := []models.NoteEntry{{IndexH: 0}, {IndexH: 1}, {IndexH: 1, IndexV: 1}}
	m := New()
	m.Load("a", 3, notes)

	cases := []struct {
		h, v int
		want models.Position
	}{
		{1, 1, models.Position{IndexH: 1, IndexV: 1}},
		{9, 0, models.Position{IndexH: 1, IndexV: 0}},
		{-3, 4, models.Position{IndexH: 0, IndexV: 0}},
		{1, 7, models.Position{IndexH: 1, IndexV: 1}},
	}
	for _, c := range cases {
		pos, err := m.NavigateTo(c.h, c.v)
		require.NoError(t, err)
		assert.Equal(t, c.want, pos)
	}

	assert.NoError(t, m.InRange(1, 1))
	assert.ErrorIs(t, m.InRange(2, 0), ErrOutOfRange)
	assert.ErrorIs(t, m.InRange(0, 1), ErrOutOfRange)
}

func TestUpdateIndexKeepsPosition(t *testing.T) {
	m := New()
	m.Load("a", 5, nil)
	_, _ = m.NavigateTo(3, 0)
	m.UpdateIndex(5, flatNotes(5))
	assert.Equal(t, 3, m.State().IndexH)

	m.UpdateIndex(2, flatNotes(2))
	assert.Equal(t, 1, m.State().IndexH)
}

func TestUpdateIndexKeepsMissingFields(t *testing.T) {
	notes := []models.NoteEntry{
		{IndexH: 0, Text: "open"},
		{IndexH: 1, Text: "deeper"},
		{IndexH: 1, IndexV: 1, Text: "deepest"},
	}
	m := New()
	m.Load("talk.md", 3, notes)

	// A count without notes keeps the notes and their vertical stacks.
	m.UpdateIndex(3, nil)
	assert.Equal(t, notes, m.State().Notes)
	pos, err := m.NavigateTo(1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Position{IndexH: 1, IndexV: 1}, pos)

	// Notes without a count keep the count.
	m.UpdateIndex(0, notes[:2])
	assert.Equal(t, 3, m.State().TotalSlides)
	assert.Len(t, m.State().Notes, 2)
}

func TestIndexIsBounded(t *testing.T) {
	m := New()
	m.Load("huge.deck", 1<<62, []models.NoteEntry{
		{IndexH: 0, Text: "kept"},
		{IndexH: 1 << 40, Text: "far"},
		{IndexH: -1, Text: "negative"},
		{IndexH: 1, IndexV: 1 << 40, Text: "deep"},
	})
	s := m.State()
	assert.Equal(t, MaxSlides, s.TotalSlides)
	assert.Equal(t, []models.NoteEntry{{IndexH: 0, Text: "kept"}}, s.Notes)

	m.UpdateIndex(1<<62, nil)
	assert.Equal(t, MaxSlides, m.State().TotalSlides)

	id := "huge.deck"
	m.Restore(models.NavigationState{Presentation: &id, TotalSlides: 1 << 62, IndexH: 1 << 50})
	assert.Equal(t, MaxSlides, m.State().TotalSlides)
	assert.Equal(t, MaxSlides-1, m.State().IndexH)
}

func TestRestore(t *testing.T) {
	id := "x.deck"
	m := New()
	m.Restore(models.NavigationState{Presentation: &id, IndexH: 2, TotalSlides: 3})
	assert.True(t, m.Loaded())
	pos, err := m.Navigate(Prev)
	require.NoError(t, err)
	assert.Equal(t, 1, pos.IndexH)

	id = "mutated"
	assert.Equal(t, "x.deck", m.State().PresentationID())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("up")
	require.NoError(t, err)
	assert.Equal(t, Up, d)

	_, err = ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrUnknownDirection)
}

// Property: no sequence of moves leaves the loaded presentation.
func TestNavigateStaysInRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	dirs := []Direction{Next, Prev, Up, Down}

	properties.Property("position stays within bounds", prop.ForAll(
		func(total int, moves []int) bool {
			m := New()
			m.Load("p", total, nil)
			for _, d := range moves {
				pos, err := m.Navigate(dirs[d])
				if err != nil || pos.IndexH < 0 || pos.IndexH > total-1 || pos.IndexV != 0 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.IntRange(0, len(dirs)-1)),
	))

	properties.Property("next at the last slide is a no-op", prop.ForAll(
		func(total int) bool {
			m := New()
			m.Load("p", total, nil)
			_, _ = m.NavigateTo(total-1, 0)
			pos, _ := m.Navigate(Next)
			return pos.IndexH == total-1
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
