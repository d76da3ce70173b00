// Package deck turns .deck documents into ordered, renderable slides and
// provides the authoring helpers used by the builder.
package deck

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

// Slide is the rendered form of one scene.
type Slide struct {
	Index   int
	SceneID string
	Mood    models.Mood
	Layout  models.Layout
	Blocks  []Block
	// Notes is the speaker annex; it is emitted inside an aside that the
	// audience view never shows.
	Notes   string
	Preview bool
}

// Block is the rendered form of one beat.
type Block struct {
	Kind     models.BlockKind
	Enter    models.Enter
	Position string
	Delay    float64
	// Incremental blocks appear on a later advance rather than on scene entry.
	Incremental bool
	// Visible is set in preview mode, where nothing is staged.
	Visible bool
	// Fallback marks a beat rendered as plain text because its kind was not
	// recognised or its payload did not match its kind.
	Fallback bool
	Items    []Item
	Markup   template.HTML
}

// Item is one rendered list entry.
type Item struct {
	Text        string
	Incremental bool
}

// Render produces one slide per scene, in document order.
func Render(d *models.Deck) []Slide {
	if d == nil {
		return nil
	}
	slides := make([]Slide, 0, len(d.Scenes))
	for i, scene := range d.Scenes {
		slides = append(slides, RenderScene(i, scene))
	}
	return slides
}

// RenderScene renders a scene for playback with staged reveals.
func RenderScene(index int, scene models.Scene) Slide {
	return renderScene(index, scene, false)
}

// RenderScenePreview renders a scene with every beat fully visible, as the
// builder's live preview shows it.
func RenderScenePreview(scene models.Scene) Slide {
	return renderScene(0, scene, true)
}

func renderScene(index int, scene models.Scene, preview bool) Slide {
	s := Slide{
		Index:   index,
		SceneID: scene.ID,
		Mood:    MoodOf(scene),
		Layout:  LayoutOf(scene),
		Notes:   scene.Notes,
		Preview: preview,
		Blocks:  make([]Block, 0, len(scene.Beats)),
	}
	for i, beat := range scene.Beats {
		s.Blocks = append(s.Blocks, renderBeat(beat, i, preview))
	}
	return s
}

// MoodOf returns the scene mood, defaulting unknown or empty values to calm.
func MoodOf(scene models.Scene) models.Mood {
	if scene.Mood.Valid() {
		return scene.Mood
	}
	return models.MoodCalm
}

// LayoutOf returns the scene layout, defaulting to center.
func LayoutOf(scene models.Scene) models.Layout {
	if scene.Layout.Valid() {
		return scene.Layout
	}
	return models.LayoutCenter
}

func enterOf(beat models.Beat) models.Enter {
	if beat.Enter.Valid() {
		return beat.Enter
	}
	return models.EnterFade
}

func renderBeat(beat models.Beat, index int, preview bool) Block {
	b := Block{
		Kind:        beat.Block,
		Enter:       enterOf(beat),
		Position:    beat.Position,
		Delay:       beat.Delay,
		Incremental: !preview && index > 0,
		Visible:     preview,
	}

	name, data := innerTemplate(&b, beat, preview)
	markup, err := execute(name, data)
	if err != nil {
		b.Fallback = true
		markup, err = execute("block-text", models.TextBody{Text: plainText(beat)})
		if err != nil {
			markup = template.HTML(template.HTMLEscapeString(plainText(beat)))
		}
	}
	b.Markup = markup
	return b
}

// innerTemplate picks the template for a beat. A payload that does not match
// the declared kind is treated like an unknown kind.
func innerTemplate(b *Block, beat models.Beat, preview bool) (string, any) {
	switch body := beat.Body.(type) {
	case models.TextBody:
		switch beat.Block {
		case models.BlockTitle, models.BlockSubtitle, models.BlockHeading, models.BlockText:
			return "block-" + string(beat.Block), body
		}
	case models.ListBody:
		if beat.Block == models.BlockList {
			b.Items = listItems(body, preview)
			return "block-list", b.Items
		}
	case models.CodeBody:
		if beat.Block == models.BlockCode {
			return "block-code", body
		}
	case models.MetricBody:
		if beat.Block == models.BlockMetric {
			return "block-metric", body
		}
	case models.QuoteBody:
		if beat.Block == models.BlockQuote {
			return "block-quote", body
		}
	case models.ImageBody:
		if beat.Block == models.BlockImage {
			return "block-image", body
		}
	case models.ComparisonBody:
		if beat.Block == models.BlockComparison {
			return "block-comparison", body
		}
	case models.EmbedBody:
		if beat.Block == models.BlockEmbed {
			if preview {
				return "block-embed-preview", body
			}
			return "block-embed", embedData{Src: body.Src, Video: isVideo(body.Src)}
		}
	}
	b.Fallback = true
	return "block-text", models.TextBody{Text: plainText(beat)}
}

// listItems marks every item after the first as incremental for one-by-one
// lists. Preview and all-at-once lists show every item immediately.
func listItems(body models.ListBody, preview bool) []Item {
	items := make([]Item, len(body.Items))
	staged := !preview && body.Reveal == models.RevealOneByOne
	for j, text := range body.Items {
		items[j] = Item{Text: text, Incremental: staged && j > 0}
	}
	return items
}

// plainText extracts whatever text a beat carries for the fallback path.
func plainText(beat models.Beat) string {
	switch body := beat.Body.(type) {
	case models.TextBody:
		return body.Text
	case models.QuoteBody:
		return body.Text
	case models.UnknownBody:
		return body.Text()
	case *models.UnknownBody:
		return body.Text()
	case models.ComparisonBody:
		return body.Left.Text
	case models.MetricBody:
		return body.Value
	}
	return ""
}

type embedData struct {
	Src   string
	Video bool
}

func isVideo(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasSuffix(lower, ".mp4") || strings.HasSuffix(lower, ".webm")
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// HTML renders the slide markup. Playback slides are wrapped in a section;
// preview slides render just the scene container.
func (s Slide) HTML() template.HTML {
	name := "section"
	if s.Preview {
		name = "preview"
	}
	markup, err := execute(name, s)
	if err != nil {
		return template.HTML(`<section><h2>` + template.HTMLEscapeString(err.Error()) + `</h2></section>`)
	}
	return markup
}

// RenderHTML renders a whole deck to section markup.
func RenderHTML(d *models.Deck) string {
	if d == nil || len(d.Scenes) == 0 {
		return emptyDeckHTML
	}
	return joinHTML(Render(d))
}

// RenderPreviewHTML renders every scene unstaged, one preview container per
// scene.
func RenderPreviewHTML(d *models.Deck) string {
	if d == nil || len(d.Scenes) == 0 {
		return emptyDeckHTML
	}
	slides := make([]Slide, len(d.Scenes))
	for i, scene := range d.Scenes {
		slides[i] = RenderScenePreview(scene)
	}
	return joinHTML(slides)
}

func joinHTML(slides []Slide) string {
	var sb strings.Builder
	for i, s := range slides {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(string(s.HTML()))
	}
	return sb.String()
}

const emptyDeckHTML = `<section><h2>Empty presentation</h2></section>`
