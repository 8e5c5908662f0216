package event

import "encoding/json"

// Event types - client to server.
const (
	// EventChatLoad - open a direct conversation with a peer
	EventChatLoad = "chat:load"

	// EventChatSend - submit a direct message
	EventChatSend = "chat:send"

	// EventChannelSend - submit a message to a channel
	EventChannelSend = "channel:send"

	// EventChatSidebar - request the current conversation summaries
	EventChatSidebar = "chat:sidebar"

	// EventChatSeen - mark a peer's messages as seen
	EventChatSeen = "chat:seen"
)

// Event types - server to client.
const (
	// EventPresenceState - full online set, sent once after registration
	EventPresenceState = "presence:state"

	// EventPresenceDelta - users that just came online or went offline
	EventPresenceDelta = "presence:delta"

	// EventChatPeer - peer profile with live presence flag
	EventChatPeer = "chat:peer"

	// EventChatHistory - message history of one conversation or channel
	EventChatHistory = "chat:history"

	// EventChatMessage - a persisted message delivered to its recipients
	EventChatMessage = "chat:message"

	// EventChatConversations - sidebar summaries for the receiving user
	EventChatConversations = "chat:conversations"

	// EventChannelSummary - refreshed channel preview after a channel message
	EventChannelSummary = "channel:summary"

	// EventChannelAdded - a channel the user was just made a member of
	EventChannelAdded = "channel:added"

	// EventSubmitFailed - explicit failure acknowledgment for a submit
	EventSubmitFailed = "submit:failed"

	// EventChatError - non-submit operation failure
	EventChatError = "chat:error"
)

// WsEvent is the wire envelope for every websocket frame in both
// directions.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound wraps v into a WsEvent envelope.
func Outbound(name string, v any) (WsEvent, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: name, Payload: payload}, nil
}

// LoadPayload asks for the history and profile of one peer.
type LoadPayload struct {
	PeerID string `json:"peerId"`
}

// SendPayload submits a direct message.
type SendPayload struct {
	RecipientID string `json:"recipientId"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	FileURL     string `json:"fileUrl"`
}

// ChannelSendPayload submits a channel message.
type ChannelSendPayload struct {
	ChannelID string `json:"channelId"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	FileURL   string `json:"fileUrl"`
}

// SeenPayload marks every unseen message authored by PeerID as seen.
type SeenPayload struct {
	PeerID string `json:"peerId"`
}

// PresenceState carries the full online set.
type PresenceState struct {
	Online []string `json:"online"`
}

// PresenceDelta carries membership changes of the online set.
type PresenceDelta struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// ErrorPayload is the body of submit:failed and chat:error events.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
