// Package deck turns a generation response into a renderable slide deck.
package deck

import (
	"fmt"
	"strings"
)

// DefaultTitle is used when the response carries no usable title.
const DefaultTitle = "Generated Presentation"

// Slide is one resolved slide. Slides are immutable once built.
type Slide struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
}

// Paragraphs splits Content on newlines. Blank lines are kept so the
// renderer can preserve spacing.
func (s Slide) Paragraphs() []string {
	if s.Content == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s.Content, "\r\n", "\n"), "\n")
}

// Deck is an ordered, non-empty list of slides.
type Deck struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Len returns the number of slides.
func (d *Deck) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Slides)
}

// FromPayload resolves a decoded JSON response into a Deck. prompt is the
// content fallback for the single-slide shape. It never fails: every field
// falls through to a default.
func FromPayload(payload map[string]any, prompt string) *Deck {
	d := &Deck{
		Title: firstString(payload, DefaultTitle, "presentationTitle", "title"),
	}

	raw, _ := payload["slides"].([]any)
	if len(raw) == 0 {
		d.Slides = []Slide{{
			ID:              1,
			Title:           firstString(payload, DefaultTitle, "title"),
			Content:         firstString(payload, prompt, "content", "text"),
			BackgroundImage: firstString(payload, "", "backgroundImage"),
		}}
		return d
	}

	d.Slides = make([]Slide, 0, len(raw))
	for i, item := range raw {
		obj, _ := item.(map[string]any)
		d.Slides = append(d.Slides, Slide{
			ID:              i + 1,
			Title:           firstString(obj, fmt.Sprintf("Slide %d", i+1), "title"),
			Content:         firstString(obj, "", "content", "text"),
			BackgroundImage: firstString(obj, "", "backgroundImage", "background"),
		})
	}
	return d
}

// firstString returns the first key in obj holding a non-empty string,
// or def. Non-string values are skipped.
func firstString(obj map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return def
}
