// Package session holds the signed-in identity and keeps it in durable
// storage across runs until logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"text2ppt/internal/logging"
)

// StorageKey is the key the identity is stored under.
const StorageKey = "user"

// ErrNoIdentity is returned when an operation needs a signed-in user.
var ErrNoIdentity = errors.New("not signed in")

// Identity is the cached account record.
type Identity struct {
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
}

// DisplayName prefers the full name.
func (i Identity) DisplayName() string {
	if i.FullName != "" {
		return i.FullName
	}
	return i.Username
}

// KV is the durable storage a Session persists to.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Session holds at most one identity. It is passed explicitly to whatever
// needs it; there is no package-level session.
type Session struct {
	kv KV

	mu        sync.RWMutex
	current   *Identity
	listeners []func(Identity, bool)
}

// New creates an empty session over kv. Call Init to load the stored
// identity.
func New(kv KV) *Session {
	return &Session{kv: kv}
}

// Init loads the identity from storage. An unreadable record is treated
// as signed out.
func (s *Session) Init(ctx context.Context) error {
	id, ok, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = nil
	if ok {
		s.current = &id
	}
	s.mu.Unlock()
	logging.Session("init: signed_in=%v", ok)
	return nil
}

func (s *Session) load(ctx context.Context) (Identity, bool, error) {
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return Identity{}, false, fmt.Errorf("failed to load identity: %w", err)
	}
	if !ok {
		return Identity{}, false, nil
	}
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || strings.TrimSpace(id.Username) == "" {
		logging.Get(logging.CategorySession).Warnw("ignoring unreadable stored identity", "error", err)
		return Identity{}, false, nil
	}
	return id, true, nil
}

// Set signs in id and persists it.
func (s *Session) Set(ctx context.Context, id Identity) error {
	id.Username = strings.TrimSpace(id.Username)
	if id.Username == "" {
		return fmt.Errorf("identity requires a username")
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	if err := s.kv.Put(ctx, StorageKey, string(raw)); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = &id
	s.mu.Unlock()

	logging.Session("signed in as %s", id.Username)
	logging.Audit().Identity(logging.AuditSignIn, id.Username, true)
	s.notify(id, true)
	return nil
}

// Clear signs out and removes the stored record.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	logging.Session("signed out")
	if prev != nil {
		logging.Audit().Identity(logging.AuditSignOut, prev.Username, true)
		s.notify(Identity{}, false)
	}
	return nil
}

// Reload re-reads storage and reports whether the identity changed.
// Listeners are told about changes.
func (s *Session) Reload(ctx context.Context) (bool, error) {
	id, ok, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	var changed bool
	switch {
	case ok && (s.current == nil || *s.current != id):
		s.current = &id
		changed = true
	case !ok && s.current != nil:
		s.current = nil
		changed = true
	}
	s.mu.Unlock()

	if changed {
		logging.Session("reloaded: signed_in=%v", ok)
		s.notify(id, ok)
	}
	return changed, nil
}

// Current returns the identity, if signed in.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}

// Require returns the identity or ErrNoIdentity.
func (s *Session) Require() (Identity, error) {
	id, ok := s.Current()
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

// Username reports the signed-in username.
func (s *Session) Username() (string, bool) {
	id, ok := s.Current()
	return id.Username, ok
}

// OnChange registers fn to be called after every sign-in, sign-out or
// external change. fn runs on the goroutine that made the change.
func (s *Session) OnChange(fn func(id Identity, signedIn bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) notify(id Identity, signedIn bool) {
	s.mu.RLock()
	ls := slices.Clone(s.listeners)
	s.mu.RUnlock()
	for _, fn := range ls {
		fn(id, signedIn)
	}
}
