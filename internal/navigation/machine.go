// Package navigation holds the authoritative slide position of a session and
// the rules for moving it.
package navigation

import (
	"errors"
	"fmt"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

var (
	// ErrNoPresentation is returned by moves attempted before any load.
	ErrNoPresentation = errors.New("no presentation loaded")
	// ErrOutOfRange reports a position outside the loaded presentation.
	ErrOutOfRange = errors.New("position out of range")
	// ErrUnknownDirection is returned for direction tokens other than
	// next, prev, up and down.
	ErrUnknownDirection = errors.New("unknown direction")
)

// MaxSlides bounds slide counts and note positions taken from the wire.
// Larger counts are capped and notes beyond it are dropped.
const MaxSlides = 10000

// Direction is a relative navigation request.
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a direction token.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Next, Prev, Up, Down:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Machine is the navigation state of one session. It is not safe for
// concurrent use; the owner serializes access.
type Machine struct {
	state models.NavigationState
	// stacks[h] is the highest vertical index under horizontal slide h.
	stacks []int
}

// New returns a machine with no presentation loaded.
func New() *Machine {
	return &Machine{state: models.NavigationState{Notes: []models.NoteEntry{}}}
}

// Loaded reports whether a presentation has been loaded.
func (m *Machine) Loaded() bool { return m.state.Presentation != nil }

// State returns a copy of the current state.
func (m *Machine) State() models.NavigationState { return m.state.Clone() }

// Load switches to a presentation and resets the position to the first
// slide. A zero totalSlides is derived from the notes index.
func (m *Machine) Load(presentation string, totalSlides int, notes []models.NoteEntry) {
	id := presentation
	m.state.Presentation = &id
	m.state.IndexH, m.state.IndexV = 0, 0
	m.setIndex(totalSlides, notes)
}

// UpdateIndex replaces the slide count and notes without moving. A zero
// totalSlides keeps the current count and nil notes keep the current notes.
func (m *Machine) UpdateIndex(totalSlides int, notes []models.NoteEntry) {
	if totalSlides <= 0 {
		totalSlides = m.state.TotalSlides
	}
	if notes == nil {
		notes = m.state.Notes
	}
	m.setIndex(totalSlides, notes)
	m.state.IndexH, m.state.IndexV = m.clamp(m.state.IndexH, m.state.IndexV)
}

// Restore overwrites the whole state, as a snapshot does.
func (m *Machine) Restore(s models.NavigationState) {
	m.state = s.Clone()
	m.state.TotalSlides = min(m.state.TotalSlides, MaxSlides)
	m.state.Notes = boundNotes(m.state.Notes)
	m.stacks = stacksOf(m.state.TotalSlides, m.state.Notes)
	if m.Loaded() {
		m.state.IndexH, m.state.IndexV = m.clamp(m.state.IndexH, m.state.IndexV)
	}
}

func (m *Machine) setIndex(totalSlides int, notes []models.NoteEntry) {
	notes = boundNotes(notes)
	if totalSlides <= 0 {
		totalSlides = len(notes)
	}
	m.state.TotalSlides = min(totalSlides, MaxSlides)
	m.state.Notes = notes
	m.stacks = stacksOf(m.state.TotalSlides, notes)
}

// boundNotes copies the notes whose position lies inside
// [0, MaxSlides) x [0, MaxSlides). It never returns nil.
func boundNotes(notes []models.NoteEntry) []models.NoteEntry {
	out := make([]models.NoteEntry, 0, min(len(notes), MaxSlides))
	for _, n := range notes {
		if n.IndexH < 0 || n.IndexH >= MaxSlides || n.IndexV < 0 || n.IndexV >= MaxSlides {
			continue
		}
		out = append(out, n)
	}
	return out
}

// stacksOf derives the vertical depth of each horizontal slide. Without a
// notes index every slide is a single page.
func stacksOf(totalSlides int, notes []models.NoteEntry) []int {
	if len(notes) == 0 {
		return make([]int, max(totalSlides, 0))
	}
	width := 0
	for _, n := range notes {
		width = max(width, n.IndexH+1)
	}
	stacks := make([]int, width)
	for _, n := range notes {
		if n.IndexH >= 0 && n.IndexV > stacks[n.IndexH] {
			stacks[n.IndexH] = n.IndexV
		}
	}
	return stacks
}

// Navigate moves relative to the current position. Next and prev walk the
// vertical pages of a stack before moving horizontally. Moves past either
// end leave the position unchanged.
func (m *Machine) Navigate(dir Direction) (models.Position, error) {
	if !m.Loaded() {
		return models.Position{}, ErrNoPresentation
	}
	h, v := m.state.IndexH, m.state.IndexV
	switch dir {
	case Next:
		if v < m.depth(h) {
			v++
		} else if h < len(m.stacks)-1 {
			h, v = h+1, 0
		}
	case Prev:
		if v > 0 {
			v--
		} else if h > 0 {
			h--
			v = m.depth(h)
		}
	case Down:
		if v < m.depth(h) {
			v++
		}
	case Up:
		if v > 0 {
			v--
		}
	default:
		return m.state.Position(), fmt.Errorf("%w: %q", ErrUnknownDirection, dir)
	}
	m.state.IndexH, m.state.IndexV = h, v
	return m.state.Position(), nil
}

// NavigateTo jumps to an absolute position, clamping each coordinate into
// the loaded presentation.
func (m *Machine) NavigateTo(indexh, indexv int) (models.Position, error) {
	if !m.Loaded() {
		return models.Position{}, ErrNoPresentation
	}
	m.state.IndexH, m.state.IndexV = m.clamp(indexh, indexv)
	return m.state.Position(), nil
}

// InRange reports ErrOutOfRange when NavigateTo would have to clamp.
func (m *Machine) InRange(indexh, indexv int) error {
	h, v := m.clamp(indexh, indexv)
	if h != indexh || v != indexv {
		return fmt.Errorf("%w: (%d,%d) outside %d slides", ErrOutOfRange, indexh, indexv, len(m.stacks))
	}
	return nil
}

func (m *Machine) clamp(h, v int) (int, int) {
	h = min(max(h, 0), max(len(m.stacks)-1, 0))
	v = min(max(v, 0), m.depth(h))
	return h, v
}

func (m *Machine) depth(h int) int {
	if h < 0 || h >= len(m.stacks) {
		return 0
	}
	return m.stacks[h]
}
