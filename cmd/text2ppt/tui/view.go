package tui

import (
	"strings"

	"text2ppt/cmd/text2ppt/ui"

	"github.com/charmbracelet/lipgloss"
)

func modalWidth(termWidth int) int {
	if termWidth <= 0 {
		return ui.ModalWidth
	}
	return min(ui.ModalWidth, max(termWidth-4, 20))
}

// centered places a block in the middle of the terminal.
func (m Model) centered(block string) string {
	if m.width == 0 || m.height == 0 {
		return block
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, block)
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case SlideView:
		return m.viewSlides()
	case DeliveryView:
		return m.centered(m.viewDelivery())
	case ReferenceView:
		return m.centered(m.viewReference())
	case FilePickerView:
		return m.viewPicker()
	case LoginView:
		return m.centered(m.viewLogin())
	case SignupView:
		return m.centered(m.viewSignup())
	case SidebarView:
		sideWidth, mainWidth := m.layout.SidebarWidths()
		sidebar := m.viewSidebar(sideWidth)
		if m.layout.IsCompact {
			return sidebar
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, m.viewComposer(mainWidth))
	}
	return m.viewComposer(m.width)
}

func (m Model) viewHeader(width int) string {
	s := m.styles
	who := "Guest"
	if id, ok := m.identity(); ok {
		who = id.DisplayName()
	}
	left := "Text2PPT"
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(who)-4, 1)
	return s.Header.Width(width).Render(left + strings.Repeat(" ", gap) + who)
}

func (m Model) viewComposer(width int) string {
	s := m.styles
	var blocks []string

	blocks = append(blocks, m.viewHeader(width))
	if m.showNudge && !m.signedIn() {
		blocks = append(blocks, s.Nudge.Render("🔔 "+MsgSignInNudge+"  (ctrl+l to sign in)"))
	}
	blocks = append(blocks, "", s.Title.Render("What would you like to present?"))

	if chips := m.viewAttachments(); chips != "" {
		blocks = append(blocks, chips)
	}
	blocks = append(blocks, m.textarea.View())

	if m.pending {
		blocks = append(blocks, m.spinner.View()+" "+s.Muted.Render(MsgGenerating))
	}
	if m.status != "" {
		if m.statusErr {
			blocks = append(blocks, s.Error.Render(m.status))
		} else {
			blocks = append(blocks, s.Success.Render(m.status))
		}
	}

	blocks = append(blocks, "", s.RenderDivider(max(width-4, 0)), s.KeyHint.Render(m.composerHints()))
	return s.Content.Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}

func (m Model) composerHints() string {
	if m.focus == focusAttachments {
		return "←/→ select · x remove · tab back to prompt"
	}
	hints := []string{
		"enter generate", "alt+enter newline",
		"ctrl+o document", "ctrl+g image", "ctrl+r reference",
		"ctrl+b history",
	}
	if !m.signedIn() {
		hints = append(hints, "ctrl+l sign in")
	}
	hints = append(hints, "ctrl+c quit")
	return strings.Join(hints, " · ")
}

func (m Model) viewAttachments() string {
	items := m.attachments()
	if len(items) == 0 {
		return ""
	}
	s := m.styles
	chips := make([]string, len(items))
	for i, it := range items {
		style := s.Chip
		if m.focus == focusAttachments && i == m.attachIdx {
			style = s.Selected.Inherit(s.Chip)
		}
		chips[i] = style.Render(it.label)
	}
	return strings.Join(chips, " ")
}

func (m Model) viewDelivery() string {
	s := m.styles
	body := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render(MsgDeliveryTitle),
		s.Body.Render(MsgDeliveryPrompt),
		"",
		s.Badge.Render("y  Send via Email")+"   "+s.Chip.Render("n  Download"),
		"",
		s.KeyHint.Render("esc cancel"),
	)
	return s.Modal.Width(modalWidth(m.width)).Align(lipgloss.Center).Render(body)
}

func (m Model) viewReference() string {
	s := m.styles
	body := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Add Reference Link"),
		m.reference.View(),
		"",
		s.KeyHint.Render("enter add · esc cancel"),
	)
	return s.Modal.Width(modalWidth(m.width)).Render(body)
}

func (m Model) viewPicker() string {
	s := m.styles
	title := "Select an image"
	if m.picking == pickDocument {
		exts := m.deps.Lifecycle.Staging().Limits().DocumentExtensions
		title = "Select a document (" + strings.ToUpper(strings.Join(exts, " ")) + ")"
	}
	var status string
	if m.status != "" && m.statusErr {
		status = s.Error.Render(m.status)
	}
	return s.Content.Render(lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(title),
		s.Muted.Render(m.filepicker.CurrentDirectory),
		m.filepicker.View(),
		status,
		s.KeyHint.Render("enter choose · esc cancel"),
	))
}
