// Package auth holds the identity boundary. Credential handling (sign-in,
// sign-up, password reset) belongs to the upstream auth provider; this
// subsystem only consumes the resolved identity and reacts to changes.
package auth

import (
	"net/http"
	"strings"
	"sync"
)

// User is the resolved identity of the person driving the UI instance.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Resolver extracts the current identity from an incoming request, or nil
// for anonymous callers.
type Resolver interface {
	FromRequest(r *http.Request) *User
}

// HeaderResolver trusts identity headers set by the fronting auth layer.
type HeaderResolver struct{}

// FromRequest reads X-User-ID and friends. An empty id means anonymous.
func (HeaderResolver) FromRequest(r *http.Request) *User {
	id := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if id == "" {
		return nil
	}
	return &User{
		ID:          id,
		Email:       strings.TrimSpace(r.Header.Get("X-User-Email")),
		DisplayName: strings.TrimSpace(r.Header.Get("X-User-Name")),
	}
}

// Broadcaster fans out identity transitions to interested components, the
// equivalent of an auth state listener in the browser client.
type Broadcaster struct {
	mu        sync.Mutex
	current   *User
	listeners []func(*User)
}

// NewBroadcaster returns a broadcaster with no signed-in user.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a listener invoked on every identity transition.
func (b *Broadcaster) Subscribe(fn func(*User)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Current returns the last observed identity, nil when signed out.
func (b *Broadcaster) Current() *User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Observe records the identity seen on a request and notifies listeners when
// it differs from the previous one. Returns true on a transition.
func (b *Broadcaster) Observe(user *User) bool {
	b.mu.Lock()
	if sameIdentity(b.current, user) {
		b.mu.Unlock()
		return false
	}
	b.current = user
	listeners := make([]func(*User), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(user)
	}
	return true
}

func sameIdentity(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
