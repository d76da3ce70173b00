// Package protocol defines the sync channel wire format: a JSON envelope
// naming the event and carrying its payload.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/navigation"
)

// Event names.
const (
	StateUpdate        = "state-update"
	SlideChanged       = "slide-changed"
	Navigate           = "navigate"
	NavigateTo         = "navigate-to"
	PresentationLoaded = "presentation-loaded"
	RequestState       = "request-state"
	PresenterRevoked   = "presenter-revoked"
)

// ErrUnknownEvent is returned when decoding an event name this package does
// not define.
var ErrUnknownEvent = errors.New("unknown event")

// Message is one frame on the wire.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NavigateRequest asks the presenter to move relative to its position.
type NavigateRequest struct {
	Direction navigation.Direction `json:"direction"`
}

// UnmarshalJSON accepts both {"direction":"next"} and a bare "next".
func (n *NavigateRequest) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		n.Direction = navigation.Direction(bare)
		return nil
	}
	type plain NavigateRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = NavigateRequest(p)
	return nil
}

// PositionUpdate is the payload of slide-changed and navigate-to. The
// presenter may attach the slide count and notes index to slide-changed.
type PositionUpdate struct {
	IndexH      int                `json:"indexh"`
	IndexV      int                `json:"indexv"`
	TotalSlides int                `json:"totalSlides,omitempty"`
	Notes       []models.NoteEntry `json:"notes,omitempty"`
}

// Position drops the optional index fields.
func (p PositionUpdate) Position() models.Position {
	return models.Position{IndexH: p.IndexH, IndexV: p.IndexV}
}

// LoadedPayload announces a newly loaded presentation. A zero TotalSlides
// asks the relay to derive the index from the store.
type LoadedPayload struct {
	Presentation string             `json:"presentation"`
	TotalSlides  int                `json:"totalSlides"`
	Notes        []models.NoteEntry `json:"notes"`
}

// RevokedPayload tells a demoted presenter who replaced it.
type RevokedPayload struct {
	Reason string `json:"reason"`
}

// Encode builds a frame for an event and payload.
func Encode(event string, payload any) ([]byte, error) {
	msg := Message{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

// MustEncode is Encode for payloads that always marshal.
func MustEncode(event string, payload any) []byte {
	data, err := Encode(event, payload)
	if err != nil {
		panic(err)
	}
	return data
}

// Decode parses a frame and its payload into the event's payload type:
// models.NavigationState, PositionUpdate, NavigateRequest, LoadedPayload,
// RevokedPayload, or nil for request-state.
func Decode(data []byte) (string, any, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}

	var payload any
	switch msg.Event {
	case StateUpdate:
		payload = &models.NavigationState{}
	case SlideChanged, NavigateTo:
		payload = &PositionUpdate{}
	case Navigate:
		payload = &NavigateRequest{}
	case PresentationLoaded:
		payload = &LoadedPayload{}
	case PresenterRevoked:
		payload = &RevokedPayload{}
	case RequestState:
		return msg.Event, nil, nil
	default:
		return msg.Event, nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}

	if len(msg.Data) == 0 {
		return msg.Event, nil, fmt.Errorf("decode %s: missing data", msg.Event)
	}
	if err := json.Unmarshal(msg.Data, payload); err != nil {
		return msg.Event, nil, fmt.Errorf("decode %s: %w", msg.Event, err)
	}

	switch p := payload.(type) {
	case *models.NavigationState:
		return msg.Event, *p, nil
	case *PositionUpdate:
		return msg.Event, *p, nil
	case *NavigateRequest:
		return msg.Event, *p, nil
	case *LoadedPayload:
		return msg.Event, *p, nil
	case *RevokedPayload:
		return msg.Event, *p, nil
	}
	return msg.Event, payload, nil
}
