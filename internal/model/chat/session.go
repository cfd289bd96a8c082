package chat

import "time"

// Country identifies the jurisdiction a conversation is scoped to.
type Country string

const (
	CountryOman  Country = "oman"
	CountrySaudi Country = "saudi"
	CountryUAE   Country = "uae"
)

// Valid reports whether the country is one of the supported jurisdictions.
func (c Country) Valid() bool {
	switch c {
	case CountryOman, CountrySaudi, CountryUAE:
		return true
	}
	return false
}

// Language is the user's preferred conversation language.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageArabic  Language = "arabic"
)

// Valid reports whether the language is supported.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageArabic
}

// Session is one persisted conversation owned by a user.
type Session struct {
	ID                   string    `json:"id" bson:"_id,omitempty"`
	UserID               string    `json:"userId" bson:"userId"`
	Title                string    `json:"title" bson:"title"`
	Country              Country   `json:"country" bson:"country"`
	Language             Language  `json:"language" bson:"language"`
	CreatedAt            time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt" bson:"updatedAt"`
	MessageCount         int       `json:"messageCount" bson:"messageCount"`
	LastMessage          string    `json:"lastMessage,omitempty" bson:"lastMessage,omitempty"`
	LastMessageSender    Sender    `json:"lastMessageSender,omitempty" bson:"lastMessageSender,omitempty"`
	LastMessageTimestamp time.Time `json:"lastMessageTimestamp,omitempty" bson:"lastMessageTimestamp,omitempty"`
}

const (
	// TitleRuneLimit caps session titles derived from the first user message.
	TitleRuneLimit = 50
	// PreviewRuneLimit caps the denormalized last-message preview.
	PreviewRuneLimit = 100
)

// TitleFromContent derives a session title from the first user message,
// ellipsis-suffixed when it exceeds TitleRuneLimit.
func TitleFromContent(content string) string {
	runes := []rune(content)
	if len(runes) <= TitleRuneLimit {
		return content
	}
	return string(runes[:TitleRuneLimit-3]) + "..."
}

// Preview truncates message content for the recent-chats list.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewRuneLimit {
		return content
	}
	return string(runes[:PreviewRuneLimit])
}
