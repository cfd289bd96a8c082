// Package store is the document-store façade backing persisted sessions and
// messages. The message insert is the durable fact; the denormalized session
// summary (title, counters, preview) is maintained best-effort alongside it.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/qanoon/legal-assistant/backend/internal/model/chat"
)

// DefaultRecentLimit bounds the recent-sessions list.
const DefaultRecentLimit = 5

var ErrSessionNotFound = errors.New("session not found")

// Error wraps a transport or permission failure from the backing store.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Store persists sessions and their messages.
type Store interface {
	// CreateSession inserts a session with zero messages. An empty title
	// defaults to the language's placeholder.
	CreateSession(ctx context.Context, userID, title string, country chat.Country, language chat.Language) (string, error)

	// AppendMessage inserts a message and then updates the parent session's
	// summary: first user message while the title is still the placeholder
	// rewrites the title; message count, preview, sender and timestamps are
	// refreshed on every append. A summary-update failure is logged and does
	// not roll back the insert.
	AppendMessage(ctx context.Context, sessionID, content string, sender chat.Sender) (string, error)

	// ListRecentSessions returns the user's sessions ordered by last update,
	// newest first, capped at limit. It degrades to an empty list on store
	// failure rather than surfacing an error.
	ListRecentSessions(ctx context.Context, userID string, limit int) []chat.Session

	// ListMessages returns a session's messages in creation order.
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)

	// GetSession fetches one session; the bool reports presence.
	GetSession(ctx context.Context, sessionID string) (chat.Session, bool, error)
}
