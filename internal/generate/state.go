package generate

import (
	"text2ppt/internal/deck"
)

// State is the lifecycle's current mode. Exactly one of the concrete
// types below; switch on it with a type switch.
type State interface {
	isState()
	String() string
}

// Idle accepts a new submission.
type Idle struct{}

// AwaitingDeliveryChoice waits for the signed-in user to pick email or
// direct delivery.
type AwaitingDeliveryChoice struct{}

// InFlight has one outstanding call to the service.
type InFlight struct {
	ByEmail bool
}

// Outcome distinguishes the successful terminal states.
type Outcome int

const (
	OutcomeDeck Outcome = iota
	OutcomeDownloaded
	OutcomeEmailConfirmed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDeck:
		return "deck"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeEmailConfirmed:
		return "email_confirmed"
	}
	return "unknown"
}

// Succeeded is a completed generation. Deck is set for OutcomeDeck,
// Path for OutcomeDownloaded.
type Succeeded struct {
	Outcome Outcome
	Deck    *deck.Deck
	Path    string
	Message string
}

// Failed is a generation that did not complete. Message is user-facing.
type Failed struct {
	Message string
	Err     error
}

func (Idle) isState()                   {}
func (AwaitingDeliveryChoice) isState() {}
func (InFlight) isState()               {}
func (Succeeded) isState()              {}
func (Failed) isState()                 {}

func (Idle) String() string                   { return "idle" }
func (AwaitingDeliveryChoice) String() string { return "awaiting_delivery_choice" }
func (InFlight) String() string               { return "in_flight" }
func (s Succeeded) String() string            { return "succeeded(" + s.Outcome.String() + ")" }
func (Failed) String() string                 { return "failed" }

// IsTerminal reports whether s waits for Acknowledge.
func IsTerminal(s State) bool {
	switch s.(type) {
	case Succeeded, Failed:
		return true
	}
	return false
}
