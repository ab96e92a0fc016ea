package model

import (
	"strings"
	"time"
)

// MaxMessageLength is measured in characters (runes), after trimming.
const MaxMessageLength = 500

// Conversation is stored with User1ID < User2ID so each unordered pair has
// exactly one document.
type Conversation struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty"`
	User1ID    string    `json:"user1_id" bson:"user1_id"`
	User2ID    string    `json:"user2_id" bson:"user2_id"`
	MessageSeq int64     `json:"-" bson:"message_seq"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// CanonicalPair orders two account ids the way conversations are stored.
func CanonicalPair(a, b string) (string, string) {
	if strings.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

func (c *Conversation) HasParticipant(accountID string) bool {
	return accountID != "" && (c.User1ID == accountID || c.User2ID == accountID)
}

// Counterpart returns the other participant.
func (c *Conversation) Counterpart(accountID string) string {
	if c.User1ID == accountID {
		return c.User2ID
	}
	return c.User1ID
}

type Message struct {
	ID             string    `json:"id" bson:"_id"`
	ConversationID string    `json:"conversation_id" bson:"conversation_id"`
	SenderID       string    `json:"sender_id" bson:"sender_id"`
	Content        string    `json:"content" bson:"content"`
	IsRead         bool      `json:"is_read" bson:"is_read"`
	Seq            int64     `json:"seq" bson:"seq"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// Before orders messages by creation time, then by per-conversation sequence.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.Seq < other.Seq
}

// ConversationSummary is an inbox row.
type ConversationSummary struct {
	Conversation
	Counterpart  string `json:"counterpart_id"`
	UnreadCount  int    `json:"unread_count"`
	LastActivity string `json:"last_activity"`
}

type StartConversationRequest struct {
	ParticipantID string `json:"participant_id" validate:"required,max=128"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}
