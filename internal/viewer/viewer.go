// Package viewer is the navigation state of an open slide deck.
package viewer

import (
	"fmt"

	"text2ppt/internal/deck"
)

// Viewer tracks the current slide and display mode over an immutable deck.
// A Viewer built from an empty deck is inert: it renders nothing and every
// operation is a no-op. A closed Viewer behaves the same way.
type Viewer struct {
	title      string
	slides     []deck.Slide
	current    int
	fullscreen bool
	closed     bool
}

// New opens a viewer on d at the first slide. d may be nil.
func New(d *deck.Deck) *Viewer {
	v := &Viewer{}
	if d != nil {
		v.title = d.Title
		v.slides = append([]deck.Slide(nil), d.Slides...)
	}
	return v
}

// Active reports whether the viewer has slides and has not been closed.
func (v *Viewer) Active() bool {
	return !v.closed && len(v.slides) > 0
}

// Title returns the deck title.
func (v *Viewer) Title() string { return v.title }

// Len returns the number of slides.
func (v *Viewer) Len() int { return len(v.slides) }

// Slides returns the slide list for thumbnail rendering.
func (v *Viewer) Slides() []deck.Slide { return v.slides }

// Index returns the zero-based current index.
func (v *Viewer) Index() int { return v.current }

// Fullscreen reports the display mode.
func (v *Viewer) Fullscreen() bool { return v.fullscreen }

// Closed reports whether Close has been called.
func (v *Viewer) Closed() bool { return v.closed }

// Current returns the slide on screen.
func (v *Viewer) Current() (deck.Slide, bool) {
	if !v.Active() {
		return deck.Slide{}, false
	}
	return v.slides[v.current], true
}

// Position renders "i of N" (1-based).
func (v *Viewer) Position() string {
	if !v.Active() {
		return ""
	}
	return fmt.Sprintf("%d of %d", v.current+1, len(v.slides))
}

// AtFirst and AtLast drive the dimmed navigation hints. Navigation still
// wraps at both ends.
func (v *Viewer) AtFirst() bool { return v.Active() && v.current == 0 }

func (v *Viewer) AtLast() bool { return v.Active() && v.current == len(v.slides)-1 }

// Next advances, wrapping past the last slide to the first.
func (v *Viewer) Next() {
	if !v.Active() {
		return
	}
	v.current = (v.current + 1) % len(v.slides)
}

// Previous retreats, wrapping before the first slide to the last.
func (v *Viewer) Previous() {
	if !v.Active() {
		return
	}
	v.current = (v.current - 1 + len(v.slides)) % len(v.slides)
}

// GoTo jumps to index i. Out of range is ignored.
func (v *Viewer) GoTo(i int) {
	if !v.Active() || i < 0 || i >= len(v.slides) {
		return
	}
	v.current = i
}

// ToggleFullscreen flips the display mode only.
func (v *Viewer) ToggleFullscreen() {
	if !v.Active() {
		return
	}
	v.fullscreen = !v.fullscreen
}

// Close ends the viewer. Later calls do nothing.
func (v *Viewer) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.fullscreen = false
	v.current = 0
	v.slides = nil
}
