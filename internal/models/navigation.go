package models

// NoteEntry is the speaker note of one addressable slide position.
type NoteEntry struct {
	IndexH int    `json:"indexh"`
	IndexV int    `json:"indexv"`
	Text   string `json:"text"`
}

// Position is an absolute slide address.
type Position struct {
	IndexH int `json:"indexh"`
	IndexV int `json:"indexv"`
}

// NavigationState is the authoritative record of what is being shown.
// Presentation is nil until a presentation has been loaded.
type NavigationState struct {
	Presentation *string     `json:"presentation"`
	IndexH       int         `json:"indexh"`
	IndexV       int         `json:"indexv"`
	TotalSlides  int         `json:"totalSlides"`
	Notes        []NoteEntry `json:"notes"`
}

// PresentationID returns the loaded presentation or "" when none is loaded.
func (s NavigationState) PresentationID() string {
	if s.Presentation == nil {
		return ""
	}
	return *s.Presentation
}

// Position returns the current slide address.
func (s NavigationState) Position() Position {
	return Position{IndexH: s.IndexH, IndexV: s.IndexV}
}

// NoteAt returns the note for the given position, if any.
func (s NavigationState) NoteAt(pos Position) (string, bool) {
	for _, n := range s.Notes {
		if n.IndexH == pos.IndexH && n.IndexV == pos.IndexV {
			return n.Text, true
		}
	}
	return "", false
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s NavigationState) Clone() NavigationState {
	out := s
	if s.Presentation != nil {
		id := *s.Presentation
		out.Presentation = &id
	}
	if s.Notes != nil {
		out.Notes = append([]NoteEntry(nil), s.Notes...)
	}
	return out
}
