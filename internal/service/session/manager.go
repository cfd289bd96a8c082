// Package session owns the local conversation state of one open UI instance:
// the transcript mirror, the active session id, the server-side thread token
// and the typing flag. The document store remains the source of truth for
// persisted sessions; local state is the responsive front of it.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qanoon/legal-assistant/backend/internal/auth"
	"github.com/qanoon/legal-assistant/backend/internal/model/chat"
	"github.com/qanoon/legal-assistant/backend/internal/store"
)

// PersistFailure reports a message whose best-effort store write failed. The
// local transcript keeps the message either way; consumers may retry.
type PersistFailure struct {
	SessionID string
	Message   chat.LocalMessage
	Err       error
}

// State is a point-in-time view of the manager for the UI surface.
type State struct {
	Messages        []chat.LocalMessage `json:"messages"`
	Typing          bool                `json:"isTyping"`
	ActiveSessionID string              `json:"activeChatId,omitempty"`
}

// Manager guards the local session state. At most one session is active at a
// time; anonymous conversations live only in memory.
type Manager struct {
	store    store.Store
	notifier *Notifier

	mu       sync.RWMutex
	messages []chat.LocalMessage
	activeID string
	threadID string
	typing   bool

	pending  sync.WaitGroup
	writes   chan persistJob
	failures chan PersistFailure
}

type persistJob struct {
	ctx       context.Context
	sessionID string
	message   chat.LocalMessage
}

// NewManager wires a manager over the given store. The notifier may be shared
// with other state holders feeding the same UI.
func NewManager(st store.Store, notifier *Notifier) *Manager {
	m := &Manager{
		store:    st,
		notifier: notifier,
		writes:   make(chan persistJob, 64),
		failures: make(chan PersistFailure, 16),
	}
	go m.persistLoop()
	return m
}

// persistLoop applies background writes one at a time so the stored order
// matches the local append order.
func (m *Manager) persistLoop() {
	for job := range m.writes {
		if _, err := m.store.AppendMessage(job.ctx, job.sessionID, job.message.Content, job.message.Sender); err != nil {
			log.Printf("[session] persist failed for session=%s: %v", job.sessionID, err)
			select {
			case m.failures <- PersistFailure{SessionID: job.sessionID, Message: job.message, Err: err}:
			default:
			}
		}
		m.pending.Done()
	}
}

// EnsureActive returns the active session id, creating one lazily for an
// authenticated user about to send the first message of a new conversation.
// Anonymous users never get a persisted session.
func (m *Manager) EnsureActive(ctx context.Context, userID string, country chat.Country, language chat.Language) (string, bool) {
	m.mu.RLock()
	active := m.activeID
	m.mu.RUnlock()
	if active != "" {
		return active, true
	}
	if userID == "" {
		return "", false
	}

	id, err := m.store.CreateSession(ctx, userID, "", country, language)
	if err != nil {
		log.Printf("[session] create failed for user=%s: %v", userID, err)
		return "", false
	}

	m.mu.Lock()
	// A concurrent EnsureActive may have won; keep the first adopted id.
	if m.activeID == "" {
		m.activeID = id
	}
	active = m.activeID
	m.mu.Unlock()

	m.broadcast()
	return active, true
}

// Append adds a message to the local transcript immediately and, when persist
// is set and a session is active, writes it to the store in the background.
// A failed write never retracts the local message.
func (m *Manager) Append(ctx context.Context, message chat.LocalMessage, persist bool) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	m.messages = append(m.messages, message)
	sessionID := m.activeID
	m.mu.Unlock()
	m.broadcast()

	if !persist || sessionID == "" {
		return
	}

	m.pending.Add(1)
	m.writes <- persistJob{
		// The write must outlive the triggering request.
		ctx:       context.WithoutCancel(ctx),
		sessionID: sessionID,
		message:   message,
	}
}

// SwitchTo replaces the local transcript with the persisted messages of the
// given session and makes it active. Switching resets the thread token; the
// remote exchange context does not carry across conversations.
func (m *Manager) SwitchTo(ctx context.Context, sessionID string) error {
	m.mu.RLock()
	already := m.activeID == sessionID
	m.mu.RUnlock()
	if already {
		return nil
	}

	_, ok, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrSessionNotFound
	}

	persisted, err := m.store.ListMessages(ctx, sessionID)
	if err != nil {
		return err
	}

	local := make([]chat.LocalMessage, 0, len(persisted))
	for _, msg := range persisted {
		local = append(local, chat.LocalMessage{
			Content:   msg.Content,
			Sender:    msg.Sender,
			Timestamp: msg.Timestamp,
		})
	}

	m.mu.Lock()
	m.messages = local
	m.activeID = sessionID
	m.threadID = ""
	m.mu.Unlock()

	m.broadcast()
	return nil
}

// StartNew clears the transcript and the active session without creating a
// store document; creation is deferred to the first dispatched message.
func (m *Manager) StartNew() {
	m.mu.Lock()
	m.messages = nil
	m.activeID = ""
	m.threadID = ""
	m.mu.Unlock()
	m.broadcast()
}

// HandleAuthChange reacts to identity transitions. Sign-out drops the active
// session id and thread token; the visible transcript stays until the UI
// starts a new conversation.
func (m *Manager) HandleAuthChange(user *auth.User) {
	if user != nil {
		return
	}
	m.mu.Lock()
	m.activeID = ""
	m.threadID = ""
	m.mu.Unlock()
	m.broadcast()
}

// ThreadID returns the current remote exchange token, empty when none.
func (m *Manager) ThreadID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.threadID
}

// SetThreadID adopts the token returned by the completion endpoint.
func (m *Manager) SetThreadID(id string) {
	m.mu.Lock()
	m.threadID = id
	m.mu.Unlock()
}

// SetTyping flips the busy indicator.
func (m *Manager) SetTyping(typing bool) {
	m.mu.Lock()
	changed := m.typing != typing
	m.typing = typing
	m.mu.Unlock()
	if changed {
		m.broadcast()
	}
}

// Typing reports whether a dispatch is awaiting the assistant.
func (m *Manager) Typing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.typing
}

// ActiveID returns the active session id, empty when none.
func (m *Manager) ActiveID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// Snapshot copies the current state for rendering.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := make([]chat.LocalMessage, len(m.messages))
	copy(messages, m.messages)
	return State{
		Messages:        messages,
		Typing:          m.typing,
		ActiveSessionID: m.activeID,
	}
}

// PersistFailures exposes failed background writes for observation or retry.
func (m *Manager) PersistFailures() <-chan PersistFailure {
	return m.failures
}

// Flush waits for outstanding background persists, for shutdown and tests.
func (m *Manager) Flush() {
	m.pending.Wait()
}

func (m *Manager) broadcast() {
	if m.notifier != nil {
		m.notifier.Broadcast()
	}
}
