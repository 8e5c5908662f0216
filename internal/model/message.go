package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message types.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// Message represents a chat message in MongoDB. Exactly one of
// ConversationID and ChannelID is set. Messages are append-only: content,
// sender and timestamp never change after creation, and Seen only ever
// transitions false -> true.
type Message struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	MessageID      string              `json:"messageId" bson:"message_id"`
	ConversationID *primitive.ObjectID `json:"conversationId,omitempty" bson:"conversation_id,omitempty"`
	ChannelID      *primitive.ObjectID `json:"channelId,omitempty" bson:"channel_id,omitempty"`
	SenderID       string              `json:"senderId" bson:"sender_id"`
	RecipientID    string              `json:"recipientId,omitempty" bson:"recipient_id,omitempty"`
	Type           string              `json:"type" bson:"type"`
	Body           string              `json:"body" bson:"body"`
	FileURL        *string             `json:"fileUrl,omitempty" bson:"file_url,omitempty"`
	Seen           bool                `json:"seen" bson:"seen"`
	CreatedAt      time.Time           `json:"createdAt" bson:"created_at"`
}

// Preview returns the sidebar preview text for the message.
func (m *Message) Preview() string {
	if m.Type == MessageTypeFile {
		return "[file]"
	}
	return m.Body
}
