package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// SessionStorageKey is where the widget keeps the current session id.
const SessionStorageKey = "chatSessionId"

// ErrSessionNotFound is returned by stores for unknown session ids.
var ErrSessionNotFound = errors.New("chat session not found")

// Message is one entry of a transcript.
type Message struct {
	Role     Role      `json:"role"`
	Text     string    `json:"text"`
	Category Category  `json:"category,omitempty"`
	At       time.Time `json:"at"`
}

// Session is an append-only transcript; insertion order is display order.
type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// NewSessionID returns a random session token.
func NewSessionID() string {
	return "session_" + uuid.NewString()
}

// NewSession starts an empty transcript.
func NewSession(id string) *Session {
	if id == "" {
		id = NewSessionID()
	}
	return &Session{ID: id}
}

// Append adds messages to the end of the transcript.
func (s *Session) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Snapshot returns a copy that later appends do not affect.
func (s *Session) Snapshot() *Session {
	cp := &Session{ID: s.ID, Messages: make([]Message, len(s.Messages))}
	copy(cp.Messages, s.Messages)
	return cp
}

func userMessage(text string, now time.Time) Message {
	return Message{Role: RoleUser, Text: text, At: now}
}

func botMessage(r Reply, now time.Time) Message {
	return Message{Role: RoleBot, Text: r.Text, Category: r.Category, At: now}
}
