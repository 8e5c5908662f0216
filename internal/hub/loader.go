package hub

import (
	"context"
	"encoding/json"
	"errors"

	"Chatline/internal/event"
	"Chatline/internal/model"
	apperrors "Chatline/pkg/errors"
)

// HandleLoad answers a conversation-open: the peer's profile with a live
// presence flag, followed by the existing history in persistence order.
// Loading never creates a conversation; that happens on first submit.
func (ch *ChatHandler) HandleLoad(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.LoadPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.PeerID == "" {
		ch.sendError(c, apperrors.ErrInvalidPayload, "peer is required")
		return
	}

	peer, err := ch.hub.users.Get(ctx, payload.PeerID)
	if err != nil {
		ch.sendError(c, err, "unknown peer")
		return
	}

	online, err := ch.hub.presence.IsOnline(ctx, peer.UserID)
	if err != nil {
		online = false
	}

	profile, err := event.Outbound(event.EventChatPeer, model.PeerProfile{
		UserID: peer.UserID,
		Name:   peer.Name,
		Email:  peer.Email,
		Avatar: peer.Avatar,
		Online: online,
	})
	if err == nil {
		c.Send(profile)
	}

	view := model.HistoryView{Messages: []model.Message{}}

	conversation, err := ch.hub.conversations.FindByPair(ctx, c.userID, payload.PeerID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		// no prior contact, history stays empty
	case err != nil:
		ch.sendError(c, err, "could not load history")
		return
	default:
		page, err := ch.hub.messages.History(ctx, conversation.ID.Hex(), 1)
		if err != nil {
			ch.sendError(c, err, "could not load history")
			return
		}
		view.ConversationID = conversation.ID.Hex()
		view.Messages = page.Data
		view.TotalPages = page.TotalPages
	}

	history, err := event.Outbound(event.EventChatHistory, view)
	if err == nil {
		c.Send(history)
	}
}

// HandleSidebar emits the caller's current conversation summaries to the
// requesting connection only.
func (ch *ChatHandler) HandleSidebar(ctx context.Context, c *Client) {
	summaries, err := ch.hub.conversations.Summaries(ctx, c.userID)
	if err != nil {
		ch.sendError(c, err, "could not load conversations")
		return
	}

	ev, err := event.Outbound(event.EventChatConversations, summaries)
	if err != nil {
		return
	}
	c.Send(ev)
}
