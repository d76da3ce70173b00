package viewer

import (
	"fmt"
	"io"
	"sync"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

// Terminal is a line-oriented Surface: it prints the presentation, the
// current position and its speaker note.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	notes bool
}

// NewTerminal writes to w. With notes set, each position prints its note.
func NewTerminal(w io.Writer, notes bool) *Terminal {
	return &Terminal{w: w, notes: notes}
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

func (t *Terminal) Render(p *models.Presentation) {
	name := p.Name
	if name == "" {
		name = p.Filename
	}
	t.printf("presenting %s (%s)\n", name, p.Filename)
}

func (t *Terminal) Unavailable(presentation string, err error) {
	t.printf("cannot show %s: %v\n", presentation, err)
}

func (t *Terminal) Show(s models.NavigationState) {
	total := "?"
	if s.TotalSlides > 0 {
		total = fmt.Sprint(s.TotalSlides)
	}
	t.printf("slide %d.%d of %s\n", s.IndexH+1, s.IndexV+1, total)
	if !t.notes {
		return
	}
	if note, ok := s.NoteAt(s.Position()); ok && note != "" {
		t.printf("  note: %s\n", note)
	}
}

func (t *Terminal) Connection(connected bool) {
	if connected {
		t.printf("connected\n")
		return
	}
	t.printf("disconnected\n")
}
