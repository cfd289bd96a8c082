package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qanoon/legal-assistant/backend/internal/model/chat"
)

// Memory is an in-process Store used by tests and by deployments without a
// configured database. Behavior mirrors the Mongo implementation, including
// the summary side effects of AppendMessage.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	order    map[string]int64
	seq      int64
}

// NewMemory bootstraps an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		order:    make(map[string]int64),
	}
}

func (m *Memory) CreateSession(_ context.Context, userID, title string, country chat.Country, language chat.Language) (string, error) {
	if title == "" {
		title = chat.PlaceholderTitle(language)
	}

	now := time.Now().UTC()
	session := chat.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Country:   country,
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.messages[session.ID] = make([]chat.Message, 0, 16)
	m.seq++
	m.order[session.ID] = m.seq
	m.mu.Unlock()

	return session.ID, nil
}

func (m *Memory) AppendMessage(_ context.Context, sessionID, content string, sender chat.Sender) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return "", &Error{Op: "append message", Err: ErrSessionNotFound}
	}

	now := time.Now().UTC()
	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Content:   content,
		Sender:    sender,
		Timestamp: now,
		Read:      true,
	}
	m.messages[sessionID] = append(m.messages[sessionID], message)

	if session.Title == chat.PlaceholderTitle(session.Language) && sender == chat.SenderUser {
		session.Title = chat.TitleFromContent(content)
	}
	session.MessageCount++
	session.LastMessage = chat.Preview(content)
	session.LastMessageSender = sender
	session.LastMessageTimestamp = now
	session.UpdatedAt = now
	m.sessions[sessionID] = session
	m.seq++
	m.order[sessionID] = m.seq

	return message.ID, nil
}

func (m *Memory) ListRecentSessions(_ context.Context, userID string, limit int) []chat.Session {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	recent := make([]chat.Session, 0, limit)
	for _, session := range m.sessions {
		if session.UserID == userID {
			recent = append(recent, session)
		}
	}
	// Write order breaks same-instant timestamp ties.
	sort.Slice(recent, func(i, j int) bool {
		if !recent[i].UpdatedAt.Equal(recent[j].UpdatedAt) {
			return recent[i].UpdatedAt.After(recent[j].UpdatedAt)
		}
		return m.order[recent[i].ID] > m.order[recent[j].ID]
	})
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent
}

func (m *Memory) ListMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages, ok := m.messages[sessionID]
	if !ok {
		return nil, &Error{Op: "list messages", Err: ErrSessionNotFound}
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

func (m *Memory) GetSession(_ context.Context, sessionID string) (chat.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	return session, ok, nil
}
