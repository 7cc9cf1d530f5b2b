package tui

import (
	"fmt"
	"strings"

	"text2ppt/internal/deck"
	"text2ppt/internal/logging"
	"text2ppt/internal/viewer"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// OpenDeck shows d in the slide viewer, e.g. a deck loaded from disk.
func (m Model) OpenDeck(d *deck.Deck) Model {
	m.openViewer(d)
	return m
}

func (m *Model) openViewer(d *deck.Deck) {
	m.viewer = viewer.New(d)
	logging.Get(logging.CategoryViewer).Infow("viewer opened", "title", m.viewer.Title(), "slides", m.viewer.Len())
	m.textarea.Blur()
	m.setMode(SlideView)
	if m.ready {
		m.resizeSlides()
	}
}

func (m Model) closeViewer() (Model, tea.Cmd, bool) {
	if m.viewer != nil {
		m.viewer.Close()
	}
	m.viewer = nil
	m.slideVP.SetContent("")
	m.setMode(ComposerView)
	cmd := m.textarea.Focus()
	return m, cmd, true
}

func (m *Model) refreshSlide() {
	if m.viewer == nil {
		return
	}
	slide, ok := m.viewer.Current()
	if !ok {
		m.slideVP.SetContent("")
		return
	}
	m.slideVP.SetContent(m.safeRenderMarkdown(slideMarkdown(slide)))
	m.slideVP.GotoTop()
}

// slideMarkdown renders one slide as markdown: the title as a heading and
// each content line as its own paragraph.
func slideMarkdown(s deck.Slide) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(s.Title)
	sb.WriteString("\n\n")
	for _, p := range s.Paragraphs() {
		if strings.TrimSpace(p) == "" {
			continue
		}
		sb.WriteString(p)
		sb.WriteString("\n\n")
	}
	if s.BackgroundImage != "" {
		fmt.Fprintf(&sb, "_Background: %s_\n", s.BackgroundImage)
	}
	return sb.String()
}

// safeRenderMarkdown renders markdown, falling back to the raw text if
// glamour errors or panics.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryViewer).Warnw("render panic", "panic", r)
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

func (m Model) viewSlides() string {
	v := m.viewer
	if v == nil || !v.Active() {
		return m.styles.Muted.Render("No slides to show.")
	}
	s := m.styles

	card := s.SlideCard.Width(max(m.width-2, 10)).Render(m.slideVP.View())
	if v.Fullscreen() {
		return lipgloss.JoinVertical(lipgloss.Left, card, m.slideNav())
	}

	header := s.Header.Width(m.width).Render(s.SlideTitle.Render(v.Title()) + "  ·  " + v.Position())
	return lipgloss.JoinVertical(lipgloss.Left, header, card, m.thumbnails(), m.slideNav())
}

// thumbnails is the strip of slide numbers and titles under the card.
func (m Model) thumbnails() string {
	v := m.viewer
	s := m.styles
	width := max(m.width, 20)
	perThumb := max(width/max(v.Len(), 1), 12)

	var parts []string
	used := 0
	for i, sl := range v.Slides() {
		label := truncateRunes(fmt.Sprintf("%d %s", i+1, sl.Title), perThumb-2)
		style := s.Thumbnail
		if i == v.Index() {
			style = s.ThumbOn
		}
		cell := style.Render(label)
		used += lipgloss.Width(cell)
		if used > width && i > v.Index() {
			parts = append(parts, s.Muted.Render("…"))
			break
		}
		parts = append(parts, cell)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// slideNav renders the key hints. The arrows dim at the ends, though
// navigation still wraps around.
func (m Model) slideNav() string {
	v := m.viewer
	s := m.styles

	prev, next := s.KeyHint.Render("← prev"), s.KeyHint.Render("next →")
	if v.AtFirst() {
		prev = s.NavOff.Render("← prev")
	}
	if v.AtLast() {
		next = s.NavOff.Render("next →")
	}

	full := "f fullscreen"
	if v.Fullscreen() {
		full = "f exit fullscreen"
	}
	hints := s.KeyHint.Render(fmt.Sprintf("%s · 1-9 jump · x close", full))
	return s.Footer.Render(strings.Join([]string{prev, v.Position(), next, hints}, "  "))
}
