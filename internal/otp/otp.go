// Package otp is the boundary to the third-party mobile verification
// widget. Callers only ever see Events; the widget's protocol stays here.
package otp

import (
	"context"
	"strings"
	"sync"

	"text2ppt/internal/logging"
)

// Stage is the widget's progress.
type Stage string

const (
	StageSubmitted Stage = "submitted"
	StageVerified  Stage = "verified"
	StageError     Stage = "error"
)

// Event is one progress report from the widget.
type Event struct {
	Stage  Stage
	Mobile string
	Error  string // set for StageError
}

// Widget performs the verification round trips.
type Widget interface {
	// RequestCode sends a one-time code to mobile.
	RequestCode(ctx context.Context, mobile string) error
	// VerifyCode checks code for mobile.
	VerifyCode(ctx context.Context, mobile, code string) error
}

// Handler receives events.
type Handler func(Event)

// Flow drives a Widget and reports every step through a Handler.
type Flow struct {
	widget  Widget
	onEvent Handler

	mu     sync.Mutex
	mobile string
}

// NewFlow creates a Flow. onEvent runs on the caller's goroutine.
func NewFlow(w Widget, onEvent Handler) *Flow {
	return &Flow{widget: w, onEvent: onEvent}
}

// Submit asks the widget to send a code to mobile.
func (f *Flow) Submit(ctx context.Context, mobile string) {
	mobile = strings.TrimSpace(mobile)
	f.mu.Lock()
	f.mobile = mobile
	f.mu.Unlock()

	f.emit(Event{Stage: StageSubmitted, Mobile: mobile})
	if err := f.widget.RequestCode(ctx, mobile); err != nil {
		f.emit(Event{Stage: StageError, Mobile: mobile, Error: err.Error()})
	}
}

// Verify checks code against the last submitted mobile.
func (f *Flow) Verify(ctx context.Context, code string) {
	f.mu.Lock()
	mobile := f.mobile
	f.mu.Unlock()

	if mobile == "" {
		f.emit(Event{Stage: StageError, Error: "Enter your mobile number first"})
		return
	}
	if err := f.widget.VerifyCode(ctx, mobile, strings.TrimSpace(code)); err != nil {
		f.emit(Event{Stage: StageError, Mobile: mobile, Error: err.Error()})
		return
	}
	f.emit(Event{Stage: StageVerified, Mobile: mobile})
}

func (f *Flow) emit(ev Event) {
	logging.Get(logging.CategorySession).Debugw("otp", "stage", string(ev.Stage))
	if f.onEvent != nil {
		f.onEvent(ev)
	}
}
