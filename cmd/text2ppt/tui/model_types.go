// Package tui is the interactive text2ppt client: a prompt composer with
// attachment staging, the delivery question, an in-terminal slide viewer,
// the chat history sidebar and the account forms.
package tui

import (
	"context"
	"sync"
	"time"

	"text2ppt/cmd/text2ppt/ui"
	"text2ppt/internal/generate"
	"text2ppt/internal/history"
	"text2ppt/internal/otp"
	"text2ppt/internal/session"
	"text2ppt/internal/signup"
)

// ViewMode selects which page has the keyboard.
type ViewMode int

const (
	ComposerView ViewMode = iota
	ReferenceView
	FilePickerView
	DeliveryView
	SlideView
	SidebarView
	LoginView
	SignupView
)

func (v ViewMode) String() string {
	switch v {
	case ComposerView:
		return "composer"
	case ReferenceView:
		return "reference"
	case FilePickerView:
		return "filepicker"
	case DeliveryView:
		return "delivery"
	case SlideView:
		return "slides"
	case SidebarView:
		return "sidebar"
	case LoginView:
		return "login"
	case SignupView:
		return "signup"
	}
	return "unknown"
}

// composerFocus is the focused region of the composer page.
type composerFocus int

const (
	focusPrompt composerFocus = iota
	focusAttachments
)

// pickPurpose says what the file picker is choosing.
type pickPurpose int

const (
	pickDocument pickPurpose = iota
	pickImage
)

// ImageExtensions are offered by the image picker. The staging rules
// check the sniffed content type, not the extension.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

// Login nudge and sidebar texts.
const (
	MsgSignInNudge    = "Please sign in to maintain your chat history and logs"
	MsgSignInHistory  = "Please sign in to view your chat history"
	MsgNoRecentChats  = "No recent chats"
	MsgNoSearchResult = "No chats found matching your search"
	MsgGenerating     = "Generating your presentation..."
	MsgEmptySubmit    = "Type a prompt or attach a file first."
	MsgAccountCreated = "Account created. Please sign in."
	MsgDeliveryTitle  = "Delivery Options"
	MsgDeliveryPrompt = "Would you like to receive your PPT via email?"

	MsgSignedOutDelivery = "You were signed out. Press enter to generate without email."
)

// Deps are the collaborators the TUI drives. Auth, Registrar and OTP may
// be nil; the matching forms then report that accounts are unavailable.
type Deps struct {
	Lifecycle *generate.Lifecycle
	Session   *session.Session
	History   *history.Fetcher
	Auth      signup.Authenticator
	Registrar signup.Registrar
	OTP       otp.Widget
	Styles    ui.Styles
	StartDir  string
	Now       func() time.Time
	Context   context.Context
}

// SessionChangedMsg is sent when the identity changes outside the TUI,
// e.g. a login from another terminal picked up by the session watcher.
type SessionChangedMsg struct {
	Identity session.Identity
	SignedIn bool
}

// lifecycleMsg carries the state a submit or delivery choice settled in.
type lifecycleMsg struct {
	state generate.State
	err   error
}

type historyMsg struct {
	user  string
	chats []history.Chat
}

type loginMsg struct {
	id  session.Identity
	err error
}

type logoutMsg struct {
	err error
}

type signupMsg struct {
	err error
}

type otpMsg struct {
	events []otp.Event
}

type stagedMsg struct {
	purpose pickPurpose
	err     error
}

// otpCollector buffers widget events between a blocking widget call and
// the Update that consumes them.
type otpCollector struct {
	mu     sync.Mutex
	events []otp.Event
}

func (c *otpCollector) add(ev otp.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *otpCollector) drain() []otp.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}
