package tui

import (
	"context"
	"os"
	"time"

	"text2ppt/cmd/text2ppt/ui"
	"text2ppt/internal/history"
	"text2ppt/internal/logging"
	"text2ppt/internal/otp"
	"text2ppt/internal/session"
	"text2ppt/internal/signup"
	"text2ppt/internal/viewer"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Model is the root bubbletea model.
type Model struct {
	deps   Deps
	ctx    context.Context
	styles ui.Styles
	now    func() time.Time

	width  int
	height int
	layout ui.LayoutConfig
	ready  bool

	mode     ViewMode
	prevMode ViewMode

	// Composer
	textarea   textarea.Model
	reference  textinput.Model
	spinner    spinner.Model
	focus      composerFocus
	attachIdx  int
	pending    bool
	status     string
	statusErr  bool
	showNudge  bool
	filepicker filepicker.Model
	picking    pickPurpose

	// Slide viewer
	viewer   *viewer.Viewer
	slideVP  viewport.Model
	renderer *glamour.TermRenderer

	// Sidebar
	list      list.Model
	search    textinput.Model
	searching bool
	chats     []history.Chat

	// Login
	loginInputs []textinput.Model
	loginFocus  int

	// Signup
	signupInputs []textinput.Model
	signupFocus  int
	signupFlow   *signup.Flow
	otpFlow      *otp.Flow
	otpEvents    *otpCollector
	otpCode      textinput.Model
	otpSent      bool

	authErr  string
	authBusy bool
}

// New creates the root model.
func New(deps Deps) Model {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	startDir := deps.StartDir
	if startDir == "" {
		startDir, _ = os.Getwd()
	}

	ta := textarea.New()
	ta.Placeholder = "Ask anything"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(ui.ComposerMinLines)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	ref := textinput.New()
	ref.Placeholder = "Enter reference link or text"
	ref.Prompt = "🔗 "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Styles.Spinner

	fp := filepicker.New()
	fp.CurrentDirectory = startDir
	fp.ShowHidden = false

	search := textinput.New()
	search.Placeholder = "Search your chats..."
	search.Prompt = "/ "

	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "Chats"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	code := textinput.New()
	code.Placeholder = "One-time code"
	code.CharLimit = 8

	m := Model{
		deps:         deps,
		ctx:          ctx,
		styles:       deps.Styles,
		now:          now,
		mode:         ComposerView,
		textarea:     ta,
		reference:    ref,
		spinner:      sp,
		filepicker:   fp,
		list:         l,
		search:       search,
		slideVP:      viewport.New(0, 0),
		loginInputs:  newLoginInputs(),
		signupInputs: newSignupInputs(),
		otpCode:      code,
	}
	m.showNudge = !m.signedIn()
	return m
}

// Mode returns the page that has the keyboard.
func (m Model) Mode() ViewMode { return m.mode }

// Status returns the last status line and whether it is an error.
func (m Model) Status() (string, bool) { return m.status, m.statusErr }

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.fetchHistory())
}

func (m Model) signedIn() bool {
	if m.deps.Session == nil {
		return false
	}
	_, ok := m.deps.Session.Current()
	return ok
}

func (m Model) identity() (session.Identity, bool) {
	if m.deps.Session == nil {
		return session.Identity{}, false
	}
	return m.deps.Session.Current()
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m *Model) setMode(mode ViewMode) {
	if mode != m.mode {
		logging.Get(logging.CategoryUI).Debugw("mode", "from", m.mode.String(), "to", mode.String())
	}
	m.prevMode = m.mode
	m.mode = mode
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		next, cmd, handled := m.handleKeyMsg(msg)
		if handled {
			return next, cmd
		}
		return next.updateFocused(msg)

	case spinner.TickMsg:
		if m.pending || m.authBusy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case lifecycleMsg:
		return m.handleLifecycle(msg)

	case stagedMsg:
		return m.handleStaged(msg)

	case historyMsg:
		return m.handleHistory(msg), nil

	case SessionChangedMsg:
		m.showNudge = !msg.SignedIn
		if !msg.SignedIn {
			m.chats = nil
			m.refreshList()
			if m.mode == DeliveryView {
				// email needs an identity; ask again from the composer
				_ = m.deps.Lifecycle.CancelDeliveryChoice()
				m.setStatus(MsgSignedOutDelivery, false)
				m.setMode(ComposerView)
				cmd := m.textarea.Focus()
				return m, cmd
			}
			return m, nil
		}
		return m, m.fetchHistory()

	case loginMsg:
		return m.handleLogin(msg)

	case logoutMsg:
		return m.handleLogout(msg)

	case signupMsg:
		return m.handleSignup(msg)

	case otpMsg:
		return m.handleOTP(msg)
	}

	if m.mode == FilePickerView {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)
		return m, cmd
	}
	return m, nil
}

// updateFocused forwards an unhandled key to the focused component.
func (m Model) updateFocused(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case ComposerView:
		if m.focus == focusPrompt && !m.pending {
			m.textarea, cmd = m.textarea.Update(msg)
		}
	case ReferenceView:
		m.reference, cmd = m.reference.Update(msg)
	case SlideView:
		m.slideVP, cmd = m.slideVP.Update(msg)
	case SidebarView:
		if m.searching {
			m.search, cmd = m.search.Update(msg)
			m.refreshList()
		} else {
			m.list, cmd = m.list.Update(msg)
		}
	case LoginView:
		m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	case SignupView:
		if m.signupFlow != nil && m.signupFlow.Step() == signup.StepVerifyingMobile {
			m.otpCode, cmd = m.otpCode.Update(msg)
		} else {
			m.signupInputs[m.signupFocus], cmd = m.signupInputs[m.signupFocus].Update(msg)
		}
	}
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.layout = ui.NewLayoutConfig(width, height)
	m.ready = true

	contentWidth := m.layout.ContentWidth()
	m.textarea.SetWidth(contentWidth)
	m.reference.Width = min(contentWidth, ui.ModalWidth) - 4
	m.filepicker.Height = max(height-8, 5)

	sideWidth, _ := m.layout.SidebarWidths()
	m.list.SetSize(sideWidth-2, max(height-6, 3))
	m.search.Width = sideWidth - 4

	m.resizeSlides()
}

func (m *Model) resizeSlides() {
	fullscreen := m.viewer != nil && m.viewer.Fullscreen()
	w := ui.PanelContentWidth(m.width)
	m.slideVP.Width = w
	m.slideVP.Height = m.layout.SlideHeight(fullscreen)
	m.renderer = newRenderer(m.styles.Theme.IsDark, w)
	m.refreshSlide()
}

// newRenderer builds the slide markdown renderer. A nil result falls back
// to plain text.
func newRenderer(dark bool, width int) *glamour.TermRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-2, 20)),
	)
	if err != nil {
		logging.Get(logging.CategoryViewer).Warnw("renderer unavailable", "error", err)
		return nil
	}
	return r
}
