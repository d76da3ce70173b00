package deck

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

// ErrLastScene is returned when deleting would leave a deck without scenes.
var ErrLastScene = errors.New("a deck must keep at least one scene")

// ErrIndexOutOfRange is returned by builder operations given a bad index.
var ErrIndexOutOfRange = errors.New("index out of range")

// CreateEmpty returns a one-scene deck with a title and a prompt subtitle.
func CreateEmpty(title string) *models.Deck {
	if title == "" {
		title = "Untitled"
	}
	return &models.Deck{
		Meta: models.Meta{
			Title:   title,
			Created: time.Now().Format("2006-01-02"),
			Palette: "default",
		},
		Scenes: []models.Scene{
			{
				ID:     "intro",
				Mood:   models.MoodDramatic,
				Layout: models.LayoutCenter,
				Beats: []models.Beat{
					{Block: models.BlockTitle, Enter: models.EnterFade, Body: models.TextBody{Text: title}},
					{Block: models.BlockSubtitle, Enter: models.EnterRise, Body: models.TextBody{Text: "Click to edit"}},
				},
			},
		},
	}
}

// CreateScene returns a calm, centered scene with a single heading.
func CreateScene() models.Scene {
	return models.Scene{
		ID:     "scene-" + uuid.NewString()[:8],
		Mood:   models.MoodCalm,
		Layout: models.LayoutCenter,
		Beats: []models.Beat{
			{Block: models.BlockHeading, Enter: models.EnterFade, Body: models.TextBody{Text: "New Scene"}},
		},
	}
}

// CreateBeat returns a beat of the given kind with every required field set.
// Unknown kinds yield a text beat.
func CreateBeat(kind models.BlockKind) models.Beat {
	switch kind {
	case models.BlockTitle:
		return models.Beat{Block: kind, Enter: models.EnterFade, Body: models.TextBody{Text: "Title"}}
	case models.BlockSubtitle:
		return models.Beat{Block: kind, Enter: models.EnterRise, Body: models.TextBody{Text: "Subtitle"}}
	case models.BlockHeading:
		return models.Beat{Block: kind, Enter: models.EnterFade, Body: models.TextBody{Text: "Heading"}}
	case models.BlockList:
		return models.Beat{Block: kind, Enter: models.EnterRise, Body: models.ListBody{
			Items:  []string{"Item 1", "Item 2", "Item 3"},
			Reveal: models.RevealOneByOne,
		}}
	case models.BlockCode:
		return models.Beat{Block: kind, Enter: models.EnterFade, Body: models.CodeBody{Language: "go", Code: "// Your code here"}}
	case models.BlockMetric:
		return models.Beat{Block: kind, Enter: models.EnterZoom, Body: models.MetricBody{Value: "99%", Label: "Description"}}
	case models.BlockQuote:
		return models.Beat{Block: kind, Enter: models.EnterFade, Body: models.QuoteBody{Text: "Your quote here", Attribution: "Author"}}
	case models.BlockImage:
		return models.Beat{Block: kind, Enter: models.EnterFade, Body: models.ImageBody{}}
	case models.BlockComparison:
		return models.Beat{Block: kind, Enter: models.EnterFade, Body: models.ComparisonBody{
			Left:  models.Side{Title: "Option A", Text: "Description"},
			Right: models.Side{Title: "Option B", Text: "Description"},
		}}
	case models.BlockEmbed:
		return models.Beat{Block: kind, Enter: models.EnterFade, Body: models.EmbedBody{}}
	}
	return models.Beat{Block: models.BlockText, Enter: models.EnterFade, Body: models.TextBody{Text: "Your text here"}}
}

// AddScene appends a new default scene and returns its index.
func AddScene(d *models.Deck) int {
	d.Scenes = append(d.Scenes, CreateScene())
	return len(d.Scenes) - 1
}

// DeleteScene removes the scene at index, refusing to remove the last one.
func DeleteScene(d *models.Deck, index int) error {
	if index < 0 || index >= len(d.Scenes) {
		return fmt.Errorf("scene %d: %w", index, ErrIndexOutOfRange)
	}
	if len(d.Scenes) <= 1 {
		return ErrLastScene
	}
	d.Scenes = append(d.Scenes[:index], d.Scenes[index+1:]...)
	return nil
}

// AddBeat appends a default beat of the given kind to a scene.
func AddBeat(d *models.Deck, scene int, kind models.BlockKind) error {
	if scene < 0 || scene >= len(d.Scenes) {
		return fmt.Errorf("scene %d: %w", scene, ErrIndexOutOfRange)
	}
	d.Scenes[scene].Beats = append(d.Scenes[scene].Beats, CreateBeat(kind))
	return nil
}

// DeleteBeat removes a beat from a scene.
func DeleteBeat(d *models.Deck, scene, beat int) error {
	beats, err := beatsOf(d, scene, beat)
	if err != nil {
		return err
	}
	d.Scenes[scene].Beats = append(beats[:beat], beats[beat+1:]...)
	return nil
}

// MoveBeat moves a beat by delta positions. Moves past either end are no-ops.
func MoveBeat(d *models.Deck, scene, beat, delta int) error {
	beats, err := beatsOf(d, scene, beat)
	if err != nil {
		return err
	}
	target := beat + delta
	if target < 0 || target >= len(beats) {
		return nil
	}
	moved := beats[beat]
	beats = append(beats[:beat], beats[beat+1:]...)
	beats = append(beats[:target], append([]models.Beat{moved}, beats[target:]...)...)
	d.Scenes[scene].Beats = beats
	return nil
}

// SetBeatField updates one field of a beat by its JSON name. Nested
// comparison fields use dotted names such as "left.title".
func SetBeatField(d *models.Deck, scene, beat int, field, value string) error {
	beats, err := beatsOf(d, scene, beat)
	if err != nil {
		return err
	}
	b := &beats[beat]

	switch field {
	case "enter":
		b.Enter = models.Enter(value)
		return nil
	case "position":
		b.Position = value
		return nil
	}

	switch body := b.Body.(type) {
	case models.TextBody:
		if field == "text" {
			body.Text = value
			b.Body = body
			return nil
		}
	case models.ListBody:
		switch field {
		case "items":
			body.Items = splitLines(value)
			b.Body = body
			return nil
		case "reveal":
			body.Reveal = models.RevealMode(value)
			b.Body = body
			return nil
		}
	case models.CodeBody:
		switch field {
		case "language":
			body.Language = value
		case "code":
			body.Code = value
		default:
			return unknownField(b.Block, field)
		}
		b.Body = body
		return nil
	case models.MetricBody:
		switch field {
		case "value":
			body.Value = value
		case "label":
			body.Label = value
		default:
			return unknownField(b.Block, field)
		}
		b.Body = body
		return nil
	case models.QuoteBody:
		switch field {
		case "text":
			body.Text = value
		case "attribution":
			body.Attribution = value
		default:
			return unknownField(b.Block, field)
		}
		b.Body = body
		return nil
	case models.ImageBody:
		switch field {
		case "src":
			body.Src = value
		case "alt":
			body.Alt = value
		default:
			return unknownField(b.Block, field)
		}
		b.Body = body
		return nil
	case models.ComparisonBody:
		side, key, ok := strings.Cut(field, ".")
		if ok {
			target := &body.Left
			if side == "right" {
				target = &body.Right
			} else if side != "left" {
				return unknownField(b.Block, field)
			}
			switch key {
			case "title":
				target.Title = value
			case "text":
				target.Text = value
			default:
				return unknownField(b.Block, field)
			}
			b.Body = body
			return nil
		}
	case models.EmbedBody:
		if field == "src" {
			body.Src = value
			b.Body = body
			return nil
		}
	}
	return unknownField(b.Block, field)
}

func beatsOf(d *models.Deck, scene, beat int) ([]models.Beat, error) {
	if scene < 0 || scene >= len(d.Scenes) {
		return nil, fmt.Errorf("scene %d: %w", scene, ErrIndexOutOfRange)
	}
	beats := d.Scenes[scene].Beats
	if beat < 0 || beat >= len(beats) {
		return nil, fmt.Errorf("beat %d: %w", beat, ErrIndexOutOfRange)
	}
	return beats, nil
}

func unknownField(kind models.BlockKind, field string) error {
	return fmt.Errorf("%s beat has no field %q", kind, field)
}

func splitLines(value string) []string {
	out := []string{}
	for _, line := range strings.Split(value, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a filename stem from a deck title.
func Slug(title string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return s
}
