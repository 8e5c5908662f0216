package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is the persistent container for all direct messages between
// one unordered pair of users. At most one conversation exists per pair;
// the unique pair_key index is the arbiter under concurrent first contact.
type Conversation struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PairKey        string             `json:"-" bson:"pair_key"`
	ParticipantIDs []string           `json:"participantIds" bson:"participant_ids"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updated_at"`
	LastMessageAt  time.Time          `json:"lastMessageAt" bson:"last_message_at"`
	LastMessage    *LastMessage       `json:"lastMessage" bson:"last_message"`
}

// LastMessage stores the most recent message preview for sidebars.
type LastMessage struct {
	MessageID string    `json:"messageId" bson:"message_id"`
	SenderID  string    `json:"senderId" bson:"sender_id"`
	Type      string    `json:"type" bson:"type"`
	Preview   string    `json:"preview" bson:"preview"`
	SentAt    time.Time `json:"sentAt" bson:"sent_at"`
}

// ConversationSummary is one sidebar entry: the peer, the latest message
// and how many of the peer's messages the viewer has not yet seen.
type ConversationSummary struct {
	ConversationID string       `json:"conversationId"`
	PeerID         string       `json:"peerId"`
	LastMessage    *LastMessage `json:"lastMessage"`
	UnreadCount    int64        `json:"unreadCount"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// PairKey returns the canonical key for an unordered user pair. Both
// orderings of the same pair map to the same key.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// PeerOf returns the other participant, or "" when userID is not part of
// the conversation.
func (c *Conversation) PeerOf(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
