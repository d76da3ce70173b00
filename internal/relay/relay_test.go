package relay

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-present/internal/deck"
	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/navigation"
	"github.com/Vasu1712/scenyx-present/internal/protocol"
)

func notes(stacks ...int) []models.NoteEntry {
	var out []models.NoteEntry
	for h, depth := range stacks {
		for v := 0; v <= depth; v++ {
			out = append(out, models.NoteEntry{IndexH: h, IndexV: v})
		}
	}
	return out
}

func events(res Result) []string {
	var out []string
	for _, d := range res.Deliveries {
		out = append(out, d.Event)
	}
	return out
}

func loaded(t *testing.T, r *Relay, presenter ConnID, id string, total int) {
	t.Helper()
	res := r.PresentationLoaded(presenter, protocol.LoadedPayload{Presentation: id, TotalSlides: total})
	require.Nil(t, res.Fetch)
	require.Equal(t, []string{protocol.PresentationLoaded, protocol.StateUpdate}, events(res))
}

func TestConnectSendsSnapshot(t *testing.T) {
	r := New(Options{})
	res := r.Connect("a", RoleAudience)

	require.Len(t, res.Deliveries, 1)
	d := res.Deliveries[0]
	assert.Equal(t, ConnID("a"), d.To)
	assert.Equal(t, protocol.StateUpdate, d.Event)
	state := d.Payload.(models.NavigationState)
	assert.Nil(t, state.Presentation)
	assert.Equal(t, 0, state.IndexH)
}

func TestLateJoinerGetsCurrentPosition(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	loaded(t, r, "p", "talk.deck", 3)
	r.SlideChanged("p", protocol.PositionUpdate{IndexH: 2})

	res := r.Connect("late", RoleAudience)
	state := res.Deliveries[0].Payload.(models.NavigationState)
	assert.Equal(t, "talk.deck", state.PresentationID())
	assert.Equal(t, 2, state.IndexH)
	assert.Equal(t, 3, state.TotalSlides)
}

func TestSlideChangedGoesToOthers(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	r.Connect("a", RoleAudience)
	loaded(t, r, "p", "talk.deck", 3)

	res := r.SlideChanged("p", protocol.PositionUpdate{IndexH: 1})
	require.Len(t, res.Deliveries, 1)
	d := res.Deliveries[0]
	assert.Equal(t, ConnID("p"), d.Except)
	assert.Empty(t, d.To)
	assert.Equal(t, protocol.PositionUpdate{IndexH: 1}, d.Payload)
	assert.Equal(t, 1, r.State().IndexH)
}

func TestSlideChangedClampsAndUpdatesIndex(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	loaded(t, r, "p", "talk.deck", 3)

	res := r.SlideChanged("p", protocol.PositionUpdate{IndexH: 9, IndexV: 4})
	assert.Equal(t, 2, res.Deliveries[0].Payload.(protocol.PositionUpdate).IndexH)
	assert.Equal(t, 0, r.State().IndexV)

	r.SlideChanged("p", protocol.PositionUpdate{IndexH: 1, IndexV: 1, TotalSlides: 4, Notes: notes(0, 1, 0)})
	state := r.State()
	assert.Equal(t, 4, state.TotalSlides)
	assert.Equal(t, models.Position{IndexH: 1, IndexV: 1}, state.Position())
}

func TestSlideChangedCountKeepsNotes(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	r.PresentationLoaded("p", protocol.LoadedPayload{Presentation: "talk.md", TotalSlides: 4, Notes: notes(0, 1, 0)})

	r.SlideChanged("p", protocol.PositionUpdate{IndexH: 1, TotalSlides: 4})
	assert.Equal(t, notes(0, 1, 0), r.State().Notes)

	// Vertical stacks survive, so a later sub-slide position is kept verbatim.
	r.SlideChanged("p", protocol.PositionUpdate{IndexH: 1, IndexV: 1})
	assert.Equal(t, models.Position{IndexH: 1, IndexV: 1}, r.State().Position())

	res := r.Connect("late", RoleAudience)
	snapshot := res.Deliveries[0].Payload.(models.NavigationState)
	assert.Len(t, snapshot.Notes, 4)
}

func TestPresenterIndexIsBounded(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	r.Connect("a", RoleAudience)

	var res Result
	require.NotPanics(t, func() {
		res = r.PresentationLoaded("p", protocol.LoadedPayload{Presentation: "x.deck", TotalSlides: 1 << 62})
	})
	require.Nil(t, res.Fetch)
	assert.Equal(t, navigation.MaxSlides, r.State().TotalSlides)

	require.NotPanics(t, func() {
		r.SlideChanged("p", protocol.PositionUpdate{
			IndexH: 3,
			Notes:  []models.NoteEntry{{IndexH: 1 << 40, Text: "far"}, {IndexH: 3, Text: "near"}},
		})
	})
	state := r.State()
	assert.Equal(t, []models.NoteEntry{{IndexH: 3, Text: "near"}}, state.Notes)
	assert.Equal(t, 3, state.IndexH)
}

func TestNonPresenterPositionEventsDropped(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	r.Connect("a", RoleAudience)
	r.Connect("rc", RoleRemote)
	loaded(t, r, "p", "talk.deck", 3)

	for _, from := range []ConnID{"a", "rc"} {
		assert.Empty(t, r.SlideChanged(from, protocol.PositionUpdate{IndexH: 2}).Deliveries)
		assert.Empty(t, r.NavigateTo(from, protocol.PositionUpdate{IndexH: 2}).Deliveries)
		assert.Empty(t, r.PresentationLoaded(from, protocol.LoadedPayload{Presentation: "x", TotalSlides: 1}).Deliveries)
	}
	assert.Equal(t, 0, r.State().IndexH)
	assert.Equal(t, "talk.deck", r.State().PresentationID())
}

func TestNavigateForwardedToPresenter(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	r.Connect("rc", RoleRemote)
	loaded(t, r, "p", "talk.deck", 3)

	res := r.Navigate("rc", protocol.NavigateRequest{Direction: "next"})
	require.Len(t, res.Deliveries, 1)
	assert.Equal(t, ConnID("p"), res.Deliveries[0].To)
	assert.Equal(t, protocol.Navigate, res.Deliveries[0].Event)
	// The relay does not move on a request it only forwards.
	assert.Equal(t, 0, r.State().IndexH)

	assert.Empty(t, r.Navigate("rc", protocol.NavigateRequest{Direction: "sideways"}).Deliveries)

	r.Disconnect("p")
	assert.Empty(t, r.Navigate("rc", protocol.NavigateRequest{Direction: "next"}).Deliveries)
}

func TestRelayNavigates(t *testing.T) {
	r := New(Options{RelayNavigates: true})
	r.Connect("p", RolePresenter)
	r.Connect("rc", RoleRemote)

	assert.Empty(t, r.Navigate("rc", protocol.NavigateRequest{Direction: "next"}).Deliveries)

	loaded(t, r, "p", "talk.deck", 3)
	for i, want := range []int{1, 2, 2} {
		res := r.Navigate("rc", protocol.NavigateRequest{Direction: "next"})
		require.Len(t, res.Deliveries, 1, "step %d", i)
		assert.Equal(t, protocol.NavigateTo, res.Deliveries[0].Event)
		assert.Equal(t, want, res.Deliveries[0].Payload.(protocol.PositionUpdate).IndexH)
	}
}

func TestNavigateToReachesEveryone(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	loaded(t, r, "p", "talk.deck", 5)

	res := r.NavigateTo("p", protocol.PositionUpdate{IndexH: 3})
	require.Len(t, res.Deliveries, 1)
	assert.Empty(t, res.Deliveries[0].To)
	assert.Empty(t, res.Deliveries[0].Except)
	assert.Equal(t, 3, r.State().IndexH)
}

func TestPresentationLoadedResetsPosition(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	loaded(t, r, "p", "a.deck", 5)
	r.SlideChanged("p", protocol.PositionUpdate{IndexH: 4})

	res := r.PresentationLoaded("p", protocol.LoadedPayload{Presentation: "b.md", Notes: notes(0, 2)})
	require.Nil(t, res.Fetch)
	state := r.State()
	assert.Equal(t, "b.md", state.PresentationID())
	assert.Equal(t, models.Position{}, state.Position())
	assert.Equal(t, 4, state.TotalSlides)

	announced := res.Deliveries[0].Payload.(protocol.LoadedPayload)
	assert.Equal(t, 4, announced.TotalSlides)
	assert.Len(t, announced.Notes, 4)
}

func TestPresenterTakeover(t *testing.T) {
	r := New(Options{})
	r.Connect("p1", RolePresenter)
	loaded(t, r, "p1", "talk.deck", 3)

	res := r.Connect("p2", RolePresenter)
	assert.Equal(t, []string{protocol.PresenterRevoked, protocol.StateUpdate}, events(res))
	assert.Equal(t, ConnID("p1"), res.Deliveries[0].To)

	id, ok := r.Presenter()
	assert.True(t, ok)
	assert.Equal(t, ConnID("p2"), id)
	role, _ := r.Role("p1")
	assert.Equal(t, RoleAudience, role)

	assert.Empty(t, r.SlideChanged("p1", protocol.PositionUpdate{IndexH: 2}).Deliveries)
	assert.NotEmpty(t, r.SlideChanged("p2", protocol.PositionUpdate{IndexH: 2}).Deliveries)

	r.Disconnect("p2")
	_, ok = r.Presenter()
	assert.False(t, ok)
}

func TestIndexResolution(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)
	r.Connect("a", RoleAudience)

	res := r.PresentationLoaded("p", protocol.LoadedPayload{Presentation: "talk.md"})
	require.NotNil(t, res.Fetch)
	assert.Empty(t, res.Deliveries)
	assert.Equal(t, "talk.md", res.Fetch.Presentation)

	// Presenter moves before the index arrives; the move waits for the load.
	assert.Empty(t, r.SlideChanged("p", protocol.PositionUpdate{IndexH: 1, IndexV: 1}).Deliveries)
	assert.Empty(t, r.NavigateTo("p", protocol.PositionUpdate{IndexH: 2}).Deliveries)
	// Snapshots are still served while waiting.
	assert.Len(t, r.RequestState("a").Deliveries, 1)

	res = r.Resolved(res.Fetch.Seq, deck.Index{TotalSlides: 4, Notes: notes(0, 1, 0)}, nil)
	assert.Equal(t, []string{
		protocol.PresentationLoaded,
		protocol.StateUpdate,
		protocol.SlideChanged,
		protocol.NavigateTo,
	}, events(res))
	assert.Equal(t, protocol.PositionUpdate{IndexH: 1, IndexV: 1}, res.Deliveries[2].Payload)

	state := r.State()
	assert.Equal(t, "talk.md", state.PresentationID())
	assert.Equal(t, 4, state.TotalSlides)
	assert.Equal(t, models.Position{IndexH: 2}, state.Position())
}

func TestIndexResolutionChained(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)

	first := r.PresentationLoaded("p", protocol.LoadedPayload{Presentation: "a.md"})
	r.PresentationLoaded("p", protocol.LoadedPayload{Presentation: "b.md"})
	r.NavigateTo("p", protocol.PositionUpdate{IndexH: 1})

	res := r.Resolved(first.Fetch.Seq, deck.Index{TotalSlides: 2}, nil)
	require.NotNil(t, res.Fetch)
	assert.Equal(t, "b.md", res.Fetch.Presentation)
	assert.Equal(t, "a.md", r.State().PresentationID())

	res = r.Resolved(res.Fetch.Seq, deck.Index{TotalSlides: 3}, nil)
	assert.Equal(t, []string{protocol.PresentationLoaded, protocol.StateUpdate, protocol.NavigateTo}, events(res))
	assert.Equal(t, "b.md", r.State().PresentationID())
	assert.Equal(t, 1, r.State().IndexH)
}

func TestIndexResolutionFailureAndStaleResults(t *testing.T) {
	r := New(Options{})
	r.Connect("p", RolePresenter)

	seq := r.PresentationLoaded("p", protocol.LoadedPayload{Presentation: "gone.md"}).Fetch.Seq
	assert.Empty(t, r.Resolved(seq+1, deck.Index{TotalSlides: 9}, nil).Deliveries)

	res := r.Resolved(seq, deck.Index{}, errors.New("not found"))
	assert.Equal(t, []string{protocol.PresentationLoaded, protocol.StateUpdate}, events(res))
	assert.Equal(t, "gone.md", r.State().PresentationID())
	assert.Equal(t, 0, r.State().TotalSlides)

	assert.Empty(t, r.Resolved(seq, deck.Index{TotalSlides: 9}, nil).Deliveries)
}

func TestHandleDispatch(t *testing.T) {
	r := New(Options{})
	assert.Empty(t, r.Handle("ghost", protocol.RequestState, nil).Deliveries)

	r.Connect("p", RolePresenter)
	assert.Len(t, r.Handle("p", protocol.RequestState, nil).Deliveries, 1)
	assert.Empty(t, r.Handle("p", protocol.StateUpdate, models.NavigationState{}).Deliveries)
	assert.Empty(t, r.Handle("p", protocol.SlideChanged, "wrong").Deliveries)

	res := r.Handle("p", protocol.PresentationLoaded, protocol.LoadedPayload{Presentation: "x.deck", TotalSlides: 2})
	assert.Len(t, res.Deliveries, 2)
	res = r.Handle("p", protocol.NavigateTo, protocol.PositionUpdate{IndexH: 1})
	assert.Len(t, res.Deliveries, 1)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RolePresenter, ParseRole("presenter"))
	assert.Equal(t, RoleRemote, ParseRole("remote"))
	assert.Equal(t, RoleAudience, ParseRole(""))
	assert.Equal(t, RoleAudience, ParseRole("admin"))
}

func TestPropertyPositionStaysInRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("presenter events never leave the loaded range", prop.ForAll(
		func(total int, targets []int) bool {
			r := New(Options{})
			r.Connect("p", RolePresenter)
			r.PresentationLoaded("p", protocol.LoadedPayload{Presentation: "x.deck", TotalSlides: total})
			for i, h := range targets {
				if i%2 == 0 {
					r.SlideChanged("p", protocol.PositionUpdate{IndexH: h, IndexV: h})
				} else {
					r.NavigateTo("p", protocol.PositionUpdate{IndexH: h, IndexV: -h})
				}
				s := r.State()
				if s.IndexH < 0 || s.IndexH > total-1 || s.IndexV != 0 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.IntRange(-5, 30)),
	))

	properties.TestingRun(t)
}
