package tui

import (
	"errors"
	"strings"

	"text2ppt/internal/otp"
	"text2ppt/internal/signup"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const msgAccountsUnavailable = "Accounts are not available with this configuration."

var signupFields = []struct {
	field signup.Field
	label string
}{
	{signup.FieldFullName, "Full name"},
	{signup.FieldUsername, "Username"},
	{signup.FieldEmail, "Email"},
	{signup.FieldMobile, "Mobile number"},
	{signup.FieldPassword, "Password"},
	{signup.FieldConfirmPassword, "Confirm password"},
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.CharLimit = 128
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

func newLoginInputs() []textinput.Model {
	return []textinput.Model{
		newInput("Username", false),
		newInput("Password", true),
	}
}

func newSignupInputs() []textinput.Model {
	inputs := make([]textinput.Model, len(signupFields))
	for i, f := range signupFields {
		secret := f.field == signup.FieldPassword || f.field == signup.FieldConfirmPassword
		inputs[i] = newInput(f.label, secret)
	}
	return inputs
}

// focusInput focuses inputs[idx] and blurs the rest.
func focusInput(inputs []textinput.Model, idx int) tea.Cmd {
	var cmd tea.Cmd
	for i := range inputs {
		if i == idx {
			cmd = inputs[i].Focus()
		} else {
			inputs[i].Blur()
		}
	}
	return cmd
}

// cycle moves a focus index by delta, wrapping.
func cycle(idx, delta, n int) int {
	return (idx + delta + n) % n
}

// OpenLogin starts the program on the sign-in page.
func (m Model) OpenLogin() Model {
	m, _, _ = m.openLogin()
	return m
}

// OpenSignup starts the program on the sign-up page.
func (m Model) OpenSignup() Model {
	m, _, _ = m.openSignup()
	return m
}

func (m Model) openLogin() (Model, tea.Cmd, bool) {
	m.loginInputs = newLoginInputs()
	m.loginFocus = 0
	m.authErr = ""
	if m.deps.Auth == nil {
		m.authErr = msgAccountsUnavailable
	}
	m.textarea.Blur()
	m.setMode(LoginView)
	return m, focusInput(m.loginInputs, 0), true
}

func (m Model) openSignup() (Model, tea.Cmd, bool) {
	m.signupInputs = newSignupInputs()
	m.signupFocus = 0
	m.authErr = ""
	m.otpSent = false
	m.otpCode.Reset()
	m.signupFlow = nil
	m.otpFlow = nil
	if m.deps.Registrar == nil {
		m.authErr = msgAccountsUnavailable
	} else {
		m.signupFlow = signup.NewFlow(m.deps.Registrar)
		m.otpEvents = &otpCollector{}
		if m.deps.OTP != nil {
			m.otpFlow = otp.NewFlow(m.deps.OTP, m.otpEvents.add)
		}
	}
	m.setMode(SignupView)
	return m, focusInput(m.signupInputs, 0), true
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if m.authBusy {
		return m, nil, true
	}
	n := len(m.loginInputs)
	switch msg.String() {
	case "esc":
		m.authErr = ""
		m.setMode(ComposerView)
		cmd := m.textarea.Focus()
		return m, cmd, true
	case "ctrl+n":
		return m.openSignup()
	case "tab", "down":
		m.loginFocus = cycle(m.loginFocus, 1, n)
		return m, focusInput(m.loginInputs, m.loginFocus), true
	case "shift+tab", "up":
		m.loginFocus = cycle(m.loginFocus, -1, n)
		return m, focusInput(m.loginInputs, m.loginFocus), true
	case "enter":
		if m.loginFocus < n-1 {
			m.loginFocus++
			return m, focusInput(m.loginInputs, m.loginFocus), true
		}
		return m.submitLogin()
	}
	return m, nil, false
}

func (m Model) submitLogin() (Model, tea.Cmd, bool) {
	if m.deps.Auth == nil {
		m.authErr = msgAccountsUnavailable
		return m, nil, true
	}
	username := strings.TrimSpace(m.loginInputs[0].Value())
	password := m.loginInputs[1].Value()
	if err := signup.ValidateLogin(username, password); err != nil {
		m.authErr = err.Error()
		return m, nil, true
	}

	m.authErr = ""
	m.authBusy = true
	auth, sess, ctx := m.deps.Auth, m.deps.Session, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		id, err := signup.Login(ctx, auth, sess, username, password)
		return loginMsg{id: id, err: err}
	}), true
}

func (m Model) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	if msg.err != nil {
		m.authErr = msg.err.Error()
		return m, nil
	}
	m.authErr = ""
	m.loginInputs = newLoginInputs()
	m.showNudge = false
	m.setStatus("Signed in as "+msg.id.DisplayName(), false)
	m.setMode(ComposerView)
	cmd := tea.Batch(m.textarea.Focus(), m.fetchHistory())
	return m, cmd
}

func (m Model) collectSignupForm() signup.Form {
	v := func(i int) string { return m.signupInputs[i].Value() }
	return signup.Form{
		FullName:        v(0),
		Username:        v(1),
		Email:           v(2),
		Mobile:          v(3),
		Password:        v(4),
		ConfirmPassword: v(5),
	}
}

func (m Model) handleSignupKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if m.authBusy {
		return m, nil, true
	}
	n := len(m.signupInputs)
	switch msg.String() {
	case "esc":
		return m.openLogin()
	case "tab", "down":
		m.signupFocus = cycle(m.signupFocus, 1, n)
		return m, focusInput(m.signupInputs, m.signupFocus), true
	case "shift+tab", "up":
		m.signupFocus = cycle(m.signupFocus, -1, n)
		return m, focusInput(m.signupInputs, m.signupFocus), true
	case "enter":
		if m.signupFocus < n-1 {
			m.signupFocus++
			return m, focusInput(m.signupInputs, m.signupFocus), true
		}
		return m.submitSignup()
	}
	return m, nil, false
}

func (m Model) submitSignup() (Model, tea.Cmd, bool) {
	if m.signupFlow == nil {
		m.authErr = msgAccountsUnavailable
		return m, nil, true
	}
	m.signupFlow.SetForm(m.collectSignupForm())
	m.authErr = ""
	m.authBusy = true
	flow, ctx := m.signupFlow, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return signupMsg{err: flow.Submit(ctx)}
	}), true
}

func (m Model) handleSignup(msg signupMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	switch {
	case msg.err == nil:
		next, cmd, _ := m.openLogin()
		next.setStatus(MsgAccountCreated, false)
		return next, cmd
	case errors.Is(msg.err, signup.ErrNeedsVerification):
		for i := range m.signupInputs {
			m.signupInputs[i].Blur()
		}
		m.otpSent = false
		m.otpCode.Reset()
		cmd := tea.Batch(m.otpCode.Focus(), m.requestOTP())
		return m, cmd
	}
	if fe, ok := signup.AsFieldErrors(msg.err); ok {
		m.authErr = fe[signup.FieldGeneral]
		return m, nil
	}
	m.authErr = msg.err.Error()
	return m, nil
}

func (m *Model) requestOTP() tea.Cmd {
	if m.otpFlow == nil {
		m.authErr = "Mobile verification is unavailable."
		return nil
	}
	m.authBusy = true
	flow, events, ctx := m.otpFlow, m.otpEvents, m.ctx
	mobile := signup.NormalizeMobile(m.signupFlow.Form().Mobile)
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		flow.Submit(ctx, mobile)
		return otpMsg{events: events.drain()}
	})
}

func (m *Model) verifyOTP(code string) tea.Cmd {
	if m.otpFlow == nil {
		return nil
	}
	m.authBusy = true
	flow, events, ctx := m.otpFlow, m.otpEvents, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		flow.Verify(ctx, code)
		return otpMsg{events: events.drain()}
	})
}

func (m Model) handleOTP(msg otpMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	if m.signupFlow == nil {
		return m, nil
	}
	for _, ev := range msg.events {
		m.signupFlow.HandleOTP(ev)
		if ev.Stage == otp.StageSubmitted {
			m.otpSent = true
		}
	}
	if m.signupFlow.MobileVerified() && m.signupFlow.Step() == signup.StepEditing {
		// verified: create the account with the verified number
		m.otpCode.Blur()
		m.authBusy = true
		flow, ctx := m.signupFlow, m.ctx
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			return signupMsg{err: flow.Submit(ctx)}
		})
	}
	return m, nil
}

func (m Model) handleOTPKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if m.authBusy {
		return m, nil, true
	}
	switch msg.String() {
	case "esc":
		m.signupFlow.CancelVerification()
		m.otpCode.Blur()
		return m, focusInput(m.signupInputs, m.signupFocus), true
	case "ctrl+r":
		cmd := m.requestOTP()
		return m, cmd, true
	case "enter":
		if !m.otpSent {
			cmd := m.requestOTP()
			return m, cmd, true
		}
		code := strings.TrimSpace(m.otpCode.Value())
		if code == "" {
			return m, nil, true
		}
		cmd := m.verifyOTP(code)
		return m, cmd, true
	}
	return m, nil, false
}

// inputView renders a form field with its label highlighted while focused.
func (m Model) inputView(in textinput.Model) string {
	if in.Focused() {
		in.PromptStyle = m.styles.Focused
	} else {
		in.PromptStyle = m.styles.Blurred
	}
	return in.View()
}

// authErrView shows a missing account service as a warning rather than
// a failed attempt.
func (m Model) authErrView() string {
	if m.authErr == msgAccountsUnavailable {
		return m.styles.Warning.Render(m.authErr)
	}
	return m.styles.Error.Render(m.authErr)
}

func (m Model) viewLogin() string {
	s := m.styles
	lines := []string{
		s.Title.Render("Sign in"),
		s.Subtitle.Render("Welcome back to Text2PPT"),
		"",
	}
	for _, in := range m.loginInputs {
		lines = append(lines, m.inputView(in))
	}
	lines = append(lines, "")
	if m.authBusy {
		lines = append(lines, m.spinner.View()+" Signing in...")
	}
	if m.authErr != "" {
		lines = append(lines, m.authErrView())
	}
	if m.status != "" && !m.statusErr {
		lines = append(lines, s.Success.Render(m.status))
	}
	lines = append(lines, s.KeyHint.Render("enter sign in · tab next field · ctrl+n create account · esc back"))
	return s.Modal.Width(modalWidth(m.width)).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) viewSignup() string {
	s := m.styles
	var errs signup.FieldErrors
	if m.signupFlow != nil {
		errs = m.signupFlow.Errors()
	}

	lines := []string{s.Title.Render("Create account"), ""}

	if m.signupFlow != nil && m.signupFlow.Step() == signup.StepVerifyingMobile {
		mobile := signup.NormalizeMobile(m.signupFlow.Form().Mobile)
		lines = append(lines, s.Bold.Render("Verify your mobile number"), s.Muted.Render(mobile), "")
		if m.otpSent {
			lines = append(lines, m.otpCode.View())
		}
		lines = append(lines, "")
		if m.authBusy {
			lines = append(lines, m.spinner.View()+" Contacting verification service...")
		}
		if msg := errs[signup.FieldMobile]; msg != "" {
			lines = append(lines, s.Error.Render(msg))
		}
		if m.authErr != "" {
			lines = append(lines, m.authErrView())
		}
		lines = append(lines, s.KeyHint.Render("enter verify · ctrl+r resend code · esc edit form"))
		return s.Modal.Width(modalWidth(m.width)).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	for i, in := range m.signupInputs {
		lines = append(lines, m.inputView(in))
		if msg := errs[signupFields[i].field]; msg != "" {
			lines = append(lines, s.Error.Render("  "+msg))
		}
	}
	if m.signupFlow != nil && m.signupFlow.MobileVerified() {
		lines = append(lines, s.Success.Render("✓ Mobile verified"))
	}
	lines = append(lines, "")
	if m.authBusy {
		lines = append(lines, m.spinner.View()+" Creating account...")
	}
	if m.authErr != "" {
		lines = append(lines, m.authErrView())
	}
	lines = append(lines, s.KeyHint.Render("enter next/submit · tab next field · esc sign in instead"))
	return s.Modal.Width(modalWidth(m.width)).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
