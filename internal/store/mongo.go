package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qanoon/legal-assistant/backend/internal/model/chat"
)

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

// Mongo persists sessions and messages in MongoDB. Messages live in their
// own collection keyed by sessionId; the chats collection carries the
// denormalized summary the recent-chats list is built from.
type Mongo struct {
	chats    *mongo.Collection
	messages *mongo.Collection
}

// NewMongo wraps an open database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		chats:    db.Collection(chatsCollection),
		messages: db.Collection(messagesCollection),
	}
}

// EnsureIndexes creates the indexes the recency query and transcript loads
// depend on. Safe to call on every startup.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}},
	})
	if err != nil {
		return &Error{Op: "ensure chat indexes", Err: err}
	}
	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return &Error{Op: "ensure message indexes", Err: err}
	}
	return nil
}

func (s *Mongo) CreateSession(ctx context.Context, userID, title string, country chat.Country, language chat.Language) (string, error) {
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

	if _, err := s.chats.InsertOne(ctx, session); err != nil {
		return "", &Error{Op: "create session", Err: err}
	}
	return session.ID, nil
}

func (s *Mongo) AppendMessage(ctx context.Context, sessionID, content string, sender chat.Sender) (string, error) {
	now := time.Now().UTC()
	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Content:   content,
		Sender:    sender,
		Timestamp: now,
		Read:      true,
	}

	if _, err := s.messages.InsertOne(ctx, message); err != nil {
		return "", &Error{Op: "append message", Err: err}
	}

	// The message is durable from here on. The summary refresh below is
	// best-effort: failures are logged, never propagated.
	if err := s.updateSummary(ctx, sessionID, content, sender, now); err != nil {
		log.Printf("[store] summary update failed for session=%s: %v", sessionID, err)
	}
	return message.ID, nil
}

func (s *Mongo) updateSummary(ctx context.Context, sessionID, content string, sender chat.Sender, now time.Time) error {
	session, ok, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}

	set := bson.M{
		"lastMessage":          chat.Preview(content),
		"lastMessageSender":    sender,
		"lastMessageTimestamp": now,
		"updatedAt":            now,
	}
	if session.Title == chat.PlaceholderTitle(session.Language) && sender == chat.SenderUser {
		set["title"] = chat.TitleFromContent(content)
	}

	_, err = s.chats.UpdateByID(ctx, sessionID, bson.M{
		"$set": set,
		"$inc": bson.M{"messageCount": 1},
	})
	if err != nil {
		return &Error{Op: "update session summary", Err: err}
	}
	return nil
}

func (s *Mongo) ListRecentSessions(ctx context.Context, userID string, limit int) []chat.Session {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.chats.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		log.Printf("[store] recent sessions query failed for user=%s: %v", userID, err)
		return nil
	}
	defer cursor.Close(ctx)

	var sessions []chat.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		log.Printf("[store] recent sessions decode failed for user=%s: %v", userID, err)
		return nil
	}
	return sessions
}

func (s *Mongo) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, &Error{Op: "list messages", Err: err}
	}
	defer cursor.Close(ctx)

	var messages []chat.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, &Error{Op: "decode messages", Err: err}
	}
	return messages, nil
}

func (s *Mongo) GetSession(ctx context.Context, sessionID string) (chat.Session, bool, error) {
	var session chat.Session
	err := s.chats.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat.Session{}, false, nil
	}
	if err != nil {
		return chat.Session{}, false, &Error{Op: "get session", Err: err}
	}
	return session, true, nil
}
