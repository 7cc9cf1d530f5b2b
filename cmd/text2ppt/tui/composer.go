package tui

import (
	"errors"
	"fmt"

	"text2ppt/internal/attach"
	"text2ppt/internal/generate"
	"text2ppt/internal/logging"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
)

type attachmentKind int

const (
	attachmentDocument attachmentKind = iota
	attachmentImage
	attachmentReference
)

type attachmentItem struct {
	kind  attachmentKind
	index int
	label string
}

// attachments lists the staged items in display order: document, images,
// reference.
func (m Model) attachments() []attachmentItem {
	snap := m.deps.Lifecycle.Staging().Snapshot()
	var items []attachmentItem
	if snap.Document != nil {
		items = append(items, attachmentItem{kind: attachmentDocument, label: "📄 " + snap.Document.Name})
	}
	for i, img := range snap.Images {
		items = append(items, attachmentItem{kind: attachmentImage, index: i, label: "🖼 " + img.Name})
	}
	if snap.Reference != "" {
		items = append(items, attachmentItem{kind: attachmentReference, label: "🔗 " + truncateRunes(snap.Reference, 32)})
	}
	return items
}

func (m Model) removeAttachment(i int) {
	items := m.attachments()
	if i < 0 || i >= len(items) {
		return
	}
	staging := m.deps.Lifecycle.Staging()
	switch it := items[i]; it.kind {
	case attachmentDocument:
		staging.UnstageDocument()
	case attachmentImage:
		staging.UnstageImage(it.index)
	case attachmentReference:
		staging.ClearReference()
	}
}

func (m Model) submit() (Model, tea.Cmd, bool) {
	lc := m.deps.Lifecycle
	lc.SetPrompt(m.textarea.Value())
	if !lc.CanSubmit() {
		m.setStatus(MsgEmptySubmit, true)
		return m, nil, true
	}

	m.pending = true
	m.showNudge = false
	m.setStatus("", false)
	ctx := m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		st, err := lc.Submit(ctx)
		return lifecycleMsg{state: st, err: err}
	}), true
}

func (m Model) chooseDelivery(byEmail bool) (Model, tea.Cmd, bool) {
	lc := m.deps.Lifecycle
	m.setMode(ComposerView)
	m.pending = true
	ctx := m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		st, err := lc.ChooseDelivery(ctx, byEmail)
		return lifecycleMsg{state: st, err: err}
	}), true
}

func (m Model) handleLifecycle(msg lifecycleMsg) (tea.Model, tea.Cmd) {
	m.pending = false
	lc := m.deps.Lifecycle

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, generate.ErrNothingToSubmit):
			m.setStatus(MsgEmptySubmit, true)
		case errors.Is(msg.err, generate.ErrBusy):
			// the call already in flight reports separately
			m.pending = true
		default:
			m.setStatus(msg.err.Error(), true)
		}
		return m, nil
	}

	switch st := msg.state.(type) {
	case generate.AwaitingDeliveryChoice:
		m.textarea.Blur()
		m.setMode(DeliveryView)
		return m, nil

	case generate.Succeeded:
		lc.Acknowledge()
		m.textarea.Reset()
		m.focus = focusPrompt
		m.attachIdx = 0
		switch st.Outcome {
		case generate.OutcomeDeck:
			m.setStatus("", false)
			m.openViewer(st.Deck)
		case generate.OutcomeDownloaded:
			m.setStatus(fmt.Sprintf("%s Saved to %s", st.Message, st.Path), false)
		case generate.OutcomeEmailConfirmed:
			m.setStatus(st.Message, false)
		}
		cmd := tea.Batch(m.textarea.Focus(), m.fetchHistory())
		return m, cmd

	case generate.Failed:
		lc.Acknowledge()
		m.setStatus(st.Message, true)
		cmd := m.textarea.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) openPicker(purpose pickPurpose) (Model, tea.Cmd, bool) {
	fp := filepicker.New()
	fp.CurrentDirectory = m.filepicker.CurrentDirectory
	fp.Height = m.filepicker.Height
	fp.ShowHidden = false
	switch purpose {
	case pickDocument:
		fp.AllowedTypes = m.deps.Lifecycle.Staging().Limits().DocumentExtensions
	case pickImage:
		fp.AllowedTypes = ImageExtensions
	}
	m.filepicker = fp
	m.picking = purpose
	m.textarea.Blur()
	m.setMode(FilePickerView)
	return m, m.filepicker.Init(), true
}

// stageFile inspects path and applies the staging rules off the UI
// goroutine.
func (m Model) stageFile(purpose pickPurpose, path string) tea.Cmd {
	staging := m.deps.Lifecycle.Staging()
	return func() tea.Msg {
		f, err := attach.Inspect(path)
		if err != nil {
			return stagedMsg{purpose: purpose, err: err}
		}
		if purpose == pickDocument {
			err = staging.StageDocument(f)
		} else {
			err = staging.StageImages([]attach.File{f})
		}
		return stagedMsg{purpose: purpose, err: err}
	}
}

func (m Model) handleStaged(msg stagedMsg) (tea.Model, tea.Cmd) {
	if msg.err == nil {
		m.setStatus("", false)
		return m, nil
	}
	logging.Get(logging.CategoryStaging).Infow("file rejected", "error", msg.err)
	var verr *attach.ValidationError
	if errors.As(msg.err, &verr) {
		m.setStatus(verr.Message, true)
	} else {
		m.setStatus(msg.err.Error(), true)
	}
	return m, nil
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
