package tui

import (
	"text2ppt/internal/history"
	"text2ppt/internal/logging"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// chatItem adapts a history.Chat to the list component.
type chatItem struct {
	chat  history.Chat
	stamp string
}

func (i chatItem) Title() string       { return i.chat.Title }
func (i chatItem) Description() string { return i.stamp + " · " + i.chat.Preview }
func (i chatItem) FilterValue() string { return i.chat.Title + " " + i.chat.Preview }

// fetchHistory loads the signed-in user's chats. Signed out it is a no-op.
func (m Model) fetchHistory() tea.Cmd {
	id, ok := m.identity()
	if !ok || m.deps.History == nil {
		return nil
	}
	fetcher := m.deps.History
	ctx := m.ctx
	return func() tea.Msg {
		return historyMsg{user: id.Username, chats: fetcher.Fetch(ctx, id.Username)}
	}
}

func (m Model) handleHistory(msg historyMsg) Model {
	id, ok := m.identity()
	if !ok || id.Username != msg.user {
		// stale reply for an identity that is gone
		return m
	}
	m.chats = msg.chats
	m.refreshList()
	logging.Get(logging.CategoryHistory).Debugw("sidebar refreshed", "chats", len(msg.chats))
	return m
}

// visibleChats applies the search query.
func (m Model) visibleChats() []history.Chat {
	return history.Filter(m.chats, m.search.Value())
}

func (m *Model) refreshList() {
	now := m.now()
	chats := m.visibleChats()
	items := make([]list.Item, len(chats))
	for i, c := range chats {
		items[i] = chatItem{chat: c, stamp: history.FormatTimestamp(c.Timestamp, now)}
	}
	m.list.SetItems(items)
}

func (m Model) logout() tea.Cmd {
	sess := m.deps.Session
	ctx := m.ctx
	return func() tea.Msg {
		return logoutMsg{err: sess.Clear(ctx)}
	}
}

func (m Model) handleLogout(msg logoutMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus(msg.err.Error(), true)
		return m, nil
	}
	m.chats = nil
	m.search.Reset()
	m.searching = false
	m.refreshList()
	m.showNudge = true
	m.setMode(ComposerView)
	cmd := m.textarea.Focus()
	return m, cmd
}

func (m Model) viewSidebar(width int) string {
	s := m.styles
	var blocks []string

	blocks = append(blocks, s.Title.Render("Text2PPT"), s.Subtitle.Render("Your presentations made easy"), "")

	id, signedIn := m.identity()
	if signedIn {
		blocks = append(blocks,
			s.Bold.Render(id.DisplayName()),
			s.Muted.Render("@"+id.Username),
			"",
		)
	}

	if m.searching || m.search.Value() != "" {
		blocks = append(blocks, m.search.View(), "")
	}

	switch {
	case !signedIn:
		blocks = append(blocks, s.Subtitle.Render(MsgSignInHistory))
	case len(m.list.Items()) == 0 && m.search.Value() != "":
		blocks = append(blocks, s.Subtitle.Render(MsgNoSearchResult))
	case len(m.list.Items()) == 0:
		blocks = append(blocks, s.Subtitle.Render(MsgNoRecentChats))
	default:
		if m.search.Value() != "" {
			m.list.Title = "Search Results"
		} else {
			m.list.Title = "Chats"
		}
		blocks = append(blocks, m.list.View())
	}

	hints := "/ search · r refresh · esc close"
	if signedIn {
		hints += " · L logout"
	} else {
		hints += " · ctrl+l login"
	}
	blocks = append(blocks, "", s.KeyHint.Render(hints))

	return s.Sidebar.Width(width).Height(max(m.height-1, 1)).Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}
