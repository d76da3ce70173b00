package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Mood selects the visual theme of a scene.
type Mood string

const (
	MoodCalm      Mood = "calm"
	MoodDramatic  Mood = "dramatic"
	MoodEnergetic Mood = "energetic"
	MoodPlayful   Mood = "playful"
	MoodSomber    Mood = "somber"
	MoodBold      Mood = "bold"
)

// Moods lists every supported mood in builder order.
var Moods = []Mood{MoodCalm, MoodDramatic, MoodEnergetic, MoodPlayful, MoodSomber, MoodBold}

// Valid reports whether m is one of the supported moods.
func (m Mood) Valid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

// Layout selects the spatial arrangement of a scene.
type Layout string

const (
	LayoutCenter Layout = "center"
	LayoutSplit  Layout = "split"
	LayoutLeft   Layout = "left"
	LayoutRight  Layout = "right"
	LayoutGrid   Layout = "grid"
	LayoutFull   Layout = "full"
)

// Layouts lists every supported layout.
var Layouts = []Layout{LayoutCenter, LayoutSplit, LayoutLeft, LayoutRight, LayoutGrid, LayoutFull}

// Valid reports whether l is one of the supported layouts.
func (l Layout) Valid() bool {
	for _, known := range Layouts {
		if l == known {
			return true
		}
	}
	return false
}

// Enter is the entrance animation of a beat.
type Enter string

const (
	EnterFade       Enter = "fade"
	EnterRise       Enter = "rise"
	EnterSlideLeft  Enter = "slide-left"
	EnterSlideRight Enter = "slide-right"
	EnterZoom       Enter = "zoom"
	EnterBlur       Enter = "blur"
	EnterBounce     Enter = "bounce"
	EnterTypewriter Enter = "typewriter"
)

// Enters lists every supported entrance animation.
var Enters = []Enter{EnterFade, EnterRise, EnterSlideLeft, EnterSlideRight, EnterZoom, EnterBlur, EnterBounce, EnterTypewriter}

// Valid reports whether e is one of the supported animations.
func (e Enter) Valid() bool {
	for _, known := range Enters {
		if e == known {
			return true
		}
	}
	return false
}

// BlockKind is the discriminant of a Beat.
type BlockKind string

const (
	BlockTitle      BlockKind = "title"
	BlockSubtitle   BlockKind = "subtitle"
	BlockHeading    BlockKind = "heading"
	BlockText       BlockKind = "text"
	BlockList       BlockKind = "list"
	BlockCode       BlockKind = "code"
	BlockMetric     BlockKind = "metric"
	BlockQuote      BlockKind = "quote"
	BlockImage      BlockKind = "image"
	BlockComparison BlockKind = "comparison"
	BlockEmbed      BlockKind = "embed"
)

// BlockKinds lists the closed set of supported block kinds.
var BlockKinds = []BlockKind{
	BlockTitle, BlockSubtitle, BlockHeading, BlockText, BlockList, BlockCode,
	BlockMetric, BlockQuote, BlockImage, BlockComparison, BlockEmbed,
}

// Known reports whether k is a supported block kind.
func (k BlockKind) Known() bool {
	for _, known := range BlockKinds {
		if k == known {
			return true
		}
	}
	return false
}

// RevealMode controls how list items appear.
type RevealMode string

const (
	RevealAll      RevealMode = "all-at-once"
	RevealOneByOne RevealMode = "one-by-one"
)

// Deck is the root of a .deck document.
type Deck struct {
	Meta   Meta    `json:"meta"`
	Scenes []Scene `json:"scenes"`
}

// Meta is free-form display metadata.
type Meta struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Created string `json:"created"`
	Palette string `json:"palette"`
}

// Scene is one slide of a deck.
type Scene struct {
	ID     string `json:"id"`
	Mood   Mood   `json:"mood"`
	Layout Layout `json:"layout"`
	Beats  []Beat `json:"beats"`
	Notes  string `json:"notes"`
}

// Beat is one content block within a scene. Body carries the kind-specific
// payload; its concrete type is determined by Block.
type Beat struct {
	Block    BlockKind
	Enter    Enter
	Position string
	Delay    float64
	Body     BeatBody
}

// BeatBody is implemented by every kind-specific payload.
type BeatBody interface {
	beatBody()
}

// TextBody backs the title, subtitle, heading and text kinds.
type TextBody struct {
	Text string `json:"text"`
}

// ListBody backs the list kind.
type ListBody struct {
	Items  []string   `json:"items"`
	Reveal RevealMode `json:"reveal,omitempty"`
}

// CodeBody backs the code kind.
type CodeBody struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// MetricBody backs the metric kind.
type MetricBody struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// QuoteBody backs the quote kind.
type QuoteBody struct {
	Text        string `json:"text"`
	Attribution string `json:"attribution,omitempty"`
}

// ImageBody backs the image kind.
type ImageBody struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Side is one half of a comparison.
type Side struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// ComparisonBody backs the comparison kind.
type ComparisonBody struct {
	Left  Side `json:"left"`
	Right Side `json:"right"`
}

// EmbedBody backs the embed kind.
type EmbedBody struct {
	Src string `json:"src"`
}

// UnknownBody keeps the fields of a beat whose kind is not recognised so that
// saving the deck again does not lose them.
type UnknownBody struct {
	Fields map[string]json.RawMessage
}

// Text returns the beat's "text" field, or failing that its "value" field.
// Strings are unquoted and other scalars keep their JSON literal.
func (u UnknownBody) Text() string {
	for _, key := range []string{"text", "value"} {
		raw, ok := u.Fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		switch lit := strings.TrimSpace(string(raw)); {
		case lit == "null", strings.HasPrefix(lit, "{"), strings.HasPrefix(lit, "["):
		default:
			return lit
		}
	}
	return ""
}

func (TextBody) beatBody()       {}
func (ListBody) beatBody()       {}
func (CodeBody) beatBody()       {}
func (MetricBody) beatBody()     {}
func (QuoteBody) beatBody()      {}
func (ImageBody) beatBody()      {}
func (ComparisonBody) beatBody() {}
func (EmbedBody) beatBody()      {}
func (UnknownBody) beatBody()    {}

// beatHeader holds the fields shared by every kind.
type beatHeader struct {
	Block    BlockKind `json:"block"`
	Enter    Enter     `json:"enter,omitempty"`
	Position string    `json:"position,omitempty"`
	Delay    float64   `json:"delay,omitempty"`
}

var headerKeys = []string{"block", "enter", "position", "delay"}

var errUnknownKind = errors.New("unknown block kind")

// MarshalJSON flattens the header and body into a single object, matching
// the on-disk .deck format.
func (b Beat) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage)

	switch body := b.Body.(type) {
	case nil:
	case UnknownBody:
		for k, v := range body.Fields {
			fields[k] = v
		}
	case *UnknownBody:
		for k, v := range body.Fields {
			fields[k] = v
		}
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s beat: %w", b.Block, err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("failed to flatten %s beat: %w", b.Block, err)
		}
	}

	header, err := json.Marshal(beatHeader{Block: b.Block, Enter: b.Enter, Position: b.Position, Delay: b.Delay})
	if err != nil {
		return nil, err
	}
	var headerFields map[string]json.RawMessage
	if err := json.Unmarshal(header, &headerFields); err != nil {
		return nil, err
	}
	for k, v := range headerFields {
		fields[k] = v
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes the header first and then the payload matching the
// block kind. Unknown kinds keep their raw fields.
func (b *Beat) UnmarshalJSON(data []byte) error {
	var header beatHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return err
	}
	b.Block = header.Block
	b.Enter = header.Enter
	b.Position = header.Position
	b.Delay = header.Delay

	var err error
	switch header.Block {
	case BlockTitle, BlockSubtitle, BlockHeading, BlockText:
		var body TextBody
		err = json.Unmarshal(data, &body)
		b.Body = body
	case BlockList:
		var body ListBody
		err = json.Unmarshal(data, &body)
		b.Body = body
	case BlockCode:
		var body CodeBody
		err = json.Unmarshal(data, &body)
		b.Body = body
	case BlockMetric:
		var body MetricBody
		err = json.Unmarshal(data, &body)
		b.Body = body
	case BlockQuote:
		var body QuoteBody
		err = json.Unmarshal(data, &body)
		b.Body = body
	case BlockImage:
		var body ImageBody
		err = json.Unmarshal(data, &body)
		b.Body = body
	case BlockComparison:
		var body ComparisonBody
		err = json.Unmarshal(data, &body)
		b.Body = body
	case BlockEmbed:
		var body EmbedBody
		err = json.Unmarshal(data, &body)
		b.Body = body
	default:
		err = errUnknownKind
	}
	if err == nil {
		return nil
	}

	// A payload that does not fit its kind keeps its raw fields and renders
	// through the fallback path, so one bad beat never fails the deck.
	var fields map[string]json.RawMessage
	if ferr := json.Unmarshal(data, &fields); ferr != nil {
		return fmt.Errorf("invalid %q beat: %w", header.Block, ferr)
	}
	for _, k := range headerKeys {
		delete(fields, k)
	}
	b.Body = UnknownBody{Fields: fields}
	return nil
}
