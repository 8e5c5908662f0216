package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel represents a named group chat in MongoDB. The admin is always a
// member; membership is managed by the channel management surface and is
// assumed stable for the duration of a single fan-out.
type Channel struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	AdminID     string             `json:"adminId" bson:"admin_id"`
	MemberIDs   []string           `json:"memberIds" bson:"member_ids"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
	LastMessage *LastMessage       `json:"lastMessage" bson:"last_message"`
}

// HasMember reports whether userID may post to the channel.
func (c *Channel) HasMember(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ChannelSummary is the sidebar entry for a channel.
type ChannelSummary struct {
	ChannelID   string       `json:"channelId"`
	Name        string       `json:"name"`
	LastMessage *LastMessage `json:"lastMessage"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
