// Package recents derives the bounded most-recent-conversations list shown
// in the sidebar. The list is read straight from the store's ordering; the
// post-message refresh is delayed so the denormalized summary write can land
// first (a documented eventual-consistency gap, not a bug).
package recents

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qanoon/legal-assistant/backend/internal/auth"
	"github.com/qanoon/legal-assistant/backend/internal/model/chat"
	"github.com/qanoon/legal-assistant/backend/internal/service/session"
	"github.com/qanoon/legal-assistant/backend/internal/store"
)

// DefaultRefreshDelay trails each appended message before re-reading the list.
const DefaultRefreshDelay = 2 * time.Second

// View holds the recent-sessions list for one UI instance.
type View struct {
	store    store.Store
	limit    int
	delay    time.Duration
	notifier *session.Notifier

	mu       sync.Mutex
	sessions []chat.Session
	loading  bool
	timer    *time.Timer
}

// NewView builds a view reading at most limit sessions. Zero limit and delay
// fall back to the defaults.
func NewView(st store.Store, limit int, delay time.Duration, notifier *session.Notifier) *View {
	if limit <= 0 {
		limit = store.DefaultRecentLimit
	}
	if delay <= 0 {
		delay = DefaultRefreshDelay
	}
	return &View{store: st, limit: limit, delay: delay, notifier: notifier}
}

// Refresh reloads the list for the given user. An empty user id clears it.
// Store failures degrade to an empty list; they never reach the caller.
func (v *View) Refresh(ctx context.Context, userID string) {
	if userID == "" {
		v.set(nil)
		return
	}

	v.setLoading(true)
	sessions := v.store.ListRecentSessions(ctx, userID, v.limit)
	v.setLoading(false)
	v.set(sessions)
}

// RefreshSoon schedules a single delayed refresh, replacing any pending one.
func (v *View) RefreshSoon(userID string) {
	if userID == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.timer != nil {
		v.timer.Stop()
	}
	v.timer = time.AfterFunc(v.delay, func() {
		v.Refresh(context.Background(), userID)
	})
}

// HandleAuthChange reloads on sign-in and clears on sign-out.
func (v *View) HandleAuthChange(user *auth.User) {
	if user == nil {
		v.Stop()
		v.set(nil)
		return
	}
	log.Printf("[recents] loading recent chats for user=%s", user.ID)
	v.Refresh(context.Background(), user.ID)
}

// Sessions returns a copy of the current list, newest first.
func (v *View) Sessions() []chat.Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	sessions := make([]chat.Session, len(v.sessions))
	copy(sessions, v.sessions)
	return sessions
}

// Loading reports whether a refresh is in flight.
func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Stop cancels any pending delayed refresh.
func (v *View) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

func (v *View) set(sessions []chat.Session) {
	v.mu.Lock()
	v.sessions = sessions
	v.mu.Unlock()
	v.broadcast()
}

func (v *View) setLoading(loading bool) {
	v.mu.Lock()
	v.loading = loading
	v.mu.Unlock()
	v.broadcast()
}

func (v *View) broadcast() {
	if v.notifier != nil {
		v.notifier.Broadcast()
	}
}
