package model

// HistoryView is the payload of a history emission: one page of messages
// for a conversation or channel, in persistence order.
type HistoryView struct {
	ConversationID string    `json:"conversationId,omitempty"`
	ChannelID      string    `json:"channelId,omitempty"`
	Messages       []Message `json:"messages"`
	TotalPages     int64     `json:"totalPages,omitempty"`
}
