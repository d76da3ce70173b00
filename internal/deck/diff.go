package deck

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Vasu1712/scenyx-present/internal/models"
)

// Outline renders a deck as plain text, one line per scene and beat.
func Outline(d *models.Deck) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", d.Meta.Title)
	for i, s := range d.Scenes {
		fmt.Fprintf(&sb, "scene %d %s [%s/%s]\n", i, s.ID, MoodOf(s), LayoutOf(s))
		for _, b := range s.Beats {
			fmt.Fprintf(&sb, "  %s: %s\n", b.Block, beatSummary(b))
		}
		if s.Notes != "" {
			fmt.Fprintf(&sb, "  notes: %s\n", strings.ReplaceAll(s.Notes, "\n", " "))
		}
	}
	return sb.String()
}

func beatSummary(b models.Beat) string {
	switch body := b.Body.(type) {
	case models.ListBody:
		return strings.Join(body.Items, " | ")
	case models.CodeBody:
		return body.Language + " " + strings.ReplaceAll(body.Code, "\n", " ")
	case models.MetricBody:
		return body.Value + " " + body.Label
	case models.ImageBody:
		return body.Src
	case models.EmbedBody:
		return body.Src
	case models.ComparisonBody:
		return body.Left.Title + " vs " + body.Right.Title
	}
	return plainText(b)
}

// Diff returns a unified-style patch between the outlines of two decks, or
// "" when the outlines match.
func Diff(a, b *models.Deck) string {
	before, after := Outline(a), Outline(b)
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.PatchToText(dmp.PatchMake(before, diffs))
}
