// Package generate runs one presentation request from submission to a
// deck, a saved file, or an email confirmation.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"text2ppt/internal/attach"
	"text2ppt/internal/deck"
	"text2ppt/internal/download"
	"text2ppt/internal/logging"
	"text2ppt/internal/service"
)

// User-facing messages.
const (
	MsgEmailSent   = "PPT sent to your email successfully!"
	MsgDownloaded  = "PPT downloaded successfully!"
	MsgGenericFail = "Failed to generate presentation. Please try again."
)

var (
	// ErrNothingToSubmit is returned when there is no prompt and no document.
	ErrNothingToSubmit = errors.New("nothing to submit")
	// ErrBusy is returned while a call is outstanding.
	ErrBusy = errors.New("a generation request is already in flight")
	// ErrInvalidTransition is returned for an operation the current state
	// does not accept.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// Generator is the remote generation call.
type Generator interface {
	Generate(ctx context.Context, req service.GenerateRequest) (*service.Response, error)
}

// Saver writes a downloaded presentation.
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// IdentitySource reports the signed-in username, if any.
type IdentitySource interface {
	Username() (string, bool)
}

// Lifecycle owns the prompt, the staged attachments and the request state.
// All methods are safe for concurrent use; the outstanding-call guard is
// enforced here rather than left to callers.
type Lifecycle struct {
	client   Generator
	saver    Saver
	identity IdentitySource
	staging  *attach.Set
	fileName string

	mu     sync.Mutex
	prompt string
	state  State
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithFileName overrides the download file name.
func WithFileName(name string) Option {
	return func(l *Lifecycle) {
		if name != "" {
			l.fileName = name
		}
	}
}

// New creates an idle Lifecycle. identity may be nil (always anonymous).
func New(client Generator, saver Saver, identity IdentitySource, staging *attach.Set, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		client:   client,
		saver:    saver,
		identity: identity,
		staging:  staging,
		fileName: download.DefaultFileName,
		state:    Idle{},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Staging returns the attachment set submissions draw from.
func (l *Lifecycle) Staging() *attach.Set {
	return l.staging
}

// SetPrompt replaces the prompt text.
func (l *Lifecycle) SetPrompt(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompt = text
}

// Prompt returns the current prompt text.
func (l *Lifecycle) Prompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prompt
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsBusy reports whether a call is outstanding.
func (l *Lifecycle) IsBusy() bool {
	_, busy := l.State().(InFlight)
	return busy
}

// CanSubmit reports whether Submit would start something.
func (l *Lifecycle) CanSubmit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acceptsSubmitLocked() && l.hasInputLocked()
}

func (l *Lifecycle) hasInputLocked() bool {
	return strings.TrimSpace(l.prompt) != "" || l.staging.HasDocument()
}

func (l *Lifecycle) acceptsSubmitLocked() bool {
	switch l.state.(type) {
	case Idle, Succeeded, Failed:
		return true
	}
	return false
}

// Submit starts a generation. With a signed-in identity it stops at
// AwaitingDeliveryChoice; otherwise it performs the call (blocking) with
// email delivery off and returns the terminal state. An unacknowledged
// terminal state is acknowledged implicitly.
func (l *Lifecycle) Submit(ctx context.Context) (State, error) {
	l.mu.Lock()
	switch l.state.(type) {
	case InFlight:
		l.mu.Unlock()
		return nil, ErrBusy
	case AwaitingDeliveryChoice:
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: delivery choice pending", ErrInvalidTransition)
	}
	if !l.hasInputLocked() {
		l.mu.Unlock()
		return l.State(), ErrNothingToSubmit
	}

	if _, ok := l.username(); ok {
		l.state = AwaitingDeliveryChoice{}
		l.mu.Unlock()
		logging.Lifecycle("submit: awaiting delivery choice")
		return AwaitingDeliveryChoice{}, nil
	}

	req := l.beginLocked(false)
	l.mu.Unlock()
	return l.run(ctx, req), nil
}

// ChooseDelivery answers the delivery question and performs the call.
// Email delivery needs an identity; if the user signed out since the
// question was asked the presentation is returned directly.
func (l *Lifecycle) ChooseDelivery(ctx context.Context, byEmail bool) (State, error) {
	l.mu.Lock()
	switch l.state.(type) {
	case InFlight:
		l.mu.Unlock()
		return nil, ErrBusy
	case AwaitingDeliveryChoice:
	default:
		cur := l.state
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: choose delivery from %s", ErrInvalidTransition, cur)
	}
	if _, ok := l.username(); byEmail && !ok {
		logging.Get(logging.CategoryLifecycle).Warnw("email delivery without identity; returning directly")
		byEmail = false
	}
	req := l.beginLocked(byEmail)
	l.mu.Unlock()
	return l.run(ctx, req), nil
}

// CancelDeliveryChoice dismisses the delivery question without a call.
func (l *Lifecycle) CancelDeliveryChoice() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.state.(AwaitingDeliveryChoice); !ok {
		return fmt.Errorf("%w: cancel delivery from %s", ErrInvalidTransition, l.state)
	}
	l.state = Idle{}
	return nil
}

// Acknowledge returns a terminal state to Idle. Other states are left
// alone. A deck already handed to a viewer is unaffected.
func (l *Lifecycle) Acknowledge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if IsTerminal(l.state) {
		l.state = Idle{}
	}
}

type call struct {
	req    service.GenerateRequest
	prompt string
}

// beginLocked moves to InFlight and freezes the request. Caller holds mu.
func (l *Lifecycle) beginLocked(byEmail bool) call {
	snap := l.staging.Snapshot()
	prompt := strings.TrimSpace(l.prompt)
	user, _ := l.username()

	l.state = InFlight{ByEmail: byEmail}
	return call{
		prompt: prompt,
		req: service.GenerateRequest{
			Text:           prompt,
			Reference:      strings.TrimSpace(snap.Reference),
			DeliverByEmail: byEmail,
			Username:       user,
			Document:       snap.Document,
			Images:         snap.Images,
		},
	}
}

func (l *Lifecycle) username() (string, bool) {
	if l.identity == nil {
		return "", false
	}
	return l.identity.Username()
}

// run performs the call and always leaves InFlight.
func (l *Lifecycle) run(ctx context.Context, c call) State {
	logging.Lifecycle("in flight: email=%v doc=%v images=%d", c.req.DeliverByEmail, c.req.Document != nil, len(c.req.Images))
	audit := logging.AuditForUser(c.req.Username)
	audit.GenerateStart(c.req.DeliverByEmail, len(c.req.Images), c.req.Document != nil)
	start := time.Now()

	next := l.interpret(ctx, c)

	elapsed := time.Since(start).Milliseconds()
	switch s := next.(type) {
	case Succeeded:
		audit.GenerateComplete(s.Outcome.String(), elapsed, true, "")
	case Failed:
		audit.GenerateComplete("", elapsed, false, s.Message)
	}

	l.mu.Lock()
	l.state = next
	if _, ok := next.(Succeeded); ok {
		l.staging.Reset()
		l.prompt = ""
	}
	l.mu.Unlock()

	logging.Lifecycle("settled: %s", next)
	return next
}

func (l *Lifecycle) interpret(ctx context.Context, c call) State {
	resp, err := l.client.Generate(ctx, c.req)
	if err != nil {
		var herr *service.HTTPError
		if errors.As(err, &herr) {
			return Failed{Message: herr.Message, Err: err}
		}
		logging.Get(logging.CategoryLifecycle).Warnw("transport failure", "error", err)
		return Failed{Message: MsgGenericFail, Err: err}
	}
	defer resp.Close()

	if c.req.DeliverByEmail {
		msg := MsgEmailSent
		if s, ok := resp.Payload["message"].(string); ok && strings.TrimSpace(s) != "" {
			msg = s
		}
		return Succeeded{Outcome: OutcomeEmailConfirmed, Message: msg}
	}

	if resp.IsJSON() {
		d := deck.FromPayload(resp.Payload, c.prompt)
		return Succeeded{Outcome: OutcomeDeck, Deck: d, Message: d.Title}
	}

	path, err := l.saver.Save(ctx, l.fileName, resp.Body)
	if err != nil {
		return Failed{Message: "Failed to save presentation: " + err.Error(), Err: err}
	}
	return Succeeded{Outcome: OutcomeDownloaded, Path: path, Message: MsgDownloaded}
}
