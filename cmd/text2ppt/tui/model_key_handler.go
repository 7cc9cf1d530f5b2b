package tui

import (
	"text2ppt/internal/signup"

	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyMsg processes keyboard input. handled=false means the key
// falls through to the focused component.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	// Global Keybindings
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit, true
	}

	switch m.mode {
	case ComposerView:
		return m.handleComposerKey(msg)
	case ReferenceView:
		return m.handleReferenceKey(msg)
	case FilePickerView:
		return m.handlePickerKey(msg)
	case DeliveryView:
		return m.handleDeliveryKey(msg)
	case SlideView:
		return m.handleSlideKey(msg)
	case SidebarView:
		return m.handleSidebarKey(msg)
	case LoginView:
		return m.handleLoginKey(msg)
	case SignupView:
		if m.signupFlow != nil && m.signupFlow.Step() == signup.StepVerifyingMobile {
			return m.handleOTPKey(msg)
		}
		return m.handleSignupKey(msg)
	}
	return m, nil, false
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+q":
		return m, tea.Quit, true
	case "esc":
		if m.focus == focusAttachments {
			m.focus = focusPrompt
			cmd := m.textarea.Focus()
			return m, cmd, true
		}
		m.showNudge = false
		m.setStatus("", false)
		return m, nil, true
	case "ctrl+b":
		m.setMode(SidebarView)
		return m, m.fetchHistory(), true
	case "ctrl+l":
		return m.openLogin()
	}

	if m.pending {
		// Input is frozen while a request is in flight.
		return m, nil, true
	}

	switch msg.String() {
	case "enter", "ctrl+s":
		return m.submit()
	case "ctrl+o":
		return m.openPicker(pickDocument)
	case "ctrl+g":
		return m.openPicker(pickImage)
	case "ctrl+r":
		m.reference.SetValue(m.deps.Lifecycle.Staging().Snapshot().Reference)
		m.setMode(ReferenceView)
		m.textarea.Blur()
		cmd := m.reference.Focus()
		return m, cmd, true
	case "tab":
		if m.focus == focusPrompt && len(m.attachments()) > 0 {
			m.focus = focusAttachments
			m.attachIdx = min(m.attachIdx, len(m.attachments())-1)
			m.textarea.Blur()
			return m, nil, true
		}
		m.focus = focusPrompt
		cmd := m.textarea.Focus()
		return m, cmd, true
	}

	if m.focus == focusAttachments {
		items := m.attachments()
		switch msg.String() {
		case "left", "h":
			if m.attachIdx > 0 {
				m.attachIdx--
			}
		case "right", "l":
			if m.attachIdx < len(items)-1 {
				m.attachIdx++
			}
		case "x", "delete", "backspace":
			m.removeAttachment(m.attachIdx)
			if n := len(m.attachments()); n == 0 {
				m.focus = focusPrompt
				cmd := m.textarea.Focus()
				return m, cmd, true
			} else if m.attachIdx >= n {
				m.attachIdx = n - 1
			}
		}
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) handleReferenceKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		m.reference.Blur()
		m.setMode(ComposerView)
		cmd := m.textarea.Focus()
		return m, cmd, true
	case "enter":
		m.deps.Lifecycle.Staging().SetReference(m.reference.Value())
		m.reference.Reset()
		m.reference.Blur()
		m.setMode(ComposerView)
		cmd := m.textarea.Focus()
		return m, cmd, true
	}
	return m, nil, false
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "esc" {
		m.setMode(ComposerView)
		cmd := m.textarea.Focus()
		return m, cmd, true
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.setMode(ComposerView)
		batch := tea.Batch(cmd, m.stageFile(m.picking, path), m.textarea.Focus())
		return m, batch, true
	}
	// Dimmed entries still go through the staging rules, which report why.
	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.setMode(ComposerView)
		batch := tea.Batch(cmd, m.stageFile(m.picking, path), m.textarea.Focus())
		return m, batch, true
	}
	return m, cmd, true
}

func (m Model) handleDeliveryKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "y", "e":
		return m.chooseDelivery(true)
	case "n", "d":
		return m.chooseDelivery(false)
	case "esc":
		if err := m.deps.Lifecycle.CancelDeliveryChoice(); err != nil {
			m.setStatus(err.Error(), true)
		}
		m.setMode(ComposerView)
		cmd := m.textarea.Focus()
		return m, cmd, true
	}
	return m, nil, true
}

func (m Model) handleSlideKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	v := m.viewer
	switch key := msg.String(); key {
	case "esc", "q":
		if v.Fullscreen() {
			v.ToggleFullscreen()
			m.resizeSlides()
			return m, nil, true
		}
		return m.closeViewer()
	case "x":
		return m.closeViewer()
	case "f":
		v.ToggleFullscreen()
		m.resizeSlides()
		return m, nil, true
	case "right", "l", "n", " ":
		v.Next()
	case "left", "h", "p":
		v.Previous()
	case "home", "g":
		v.GoTo(0)
	case "end", "G":
		v.GoTo(v.Len() - 1)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		v.GoTo(int(key[0] - '1'))
	default:
		return m, nil, false
	}
	m.refreshSlide()
	return m, nil, true
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Reset()
			m.search.Blur()
			m.refreshList()
			return m, nil, true
		case "enter":
			m.search.Blur()
			m.searching = false
			return m, nil, true
		}
		return m, nil, false
	}

	switch msg.String() {
	case "esc", "ctrl+b":
		m.search.Reset()
		m.refreshList()
		m.setMode(ComposerView)
		cmd := m.textarea.Focus()
		return m, cmd, true
	case "/":
		if !m.signedIn() {
			return m, nil, true
		}
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd, true
	case "r":
		return m, m.fetchHistory(), true
	case "L":
		if !m.signedIn() {
			return m, nil, true
		}
		return m, m.logout(), true
	case "ctrl+l":
		return m.openLogin()
	}
	return m, nil, false
}
