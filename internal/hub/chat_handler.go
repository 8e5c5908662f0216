package hub

import (
	"context"

	"go.uber.org/zap"

	"Chatline/internal/event"
	apperrors "Chatline/pkg/errors"
)

// ChatHandler processes the chat domain events: direct and channel
// submits, history loads, sidebar loads and seen reconciliation. Every
// error it detects is converted into exactly one outbound failure event
// to the originating connection; nothing is dropped silently.
type ChatHandler struct {
	hub *Hub
}

func NewChatHandler(h *Hub) *ChatHandler {
	return &ChatHandler{hub: h}
}

// sendSubmitError acknowledges a failed submit to the sender only. Other
// parties never see speculative events for work that did not persist.
func (ch *ChatHandler) sendSubmitError(c *Client, err error, message string) {
	code := apperrors.CodeFromError(err)
	ch.hub.metrics.RecordSubmitFailure(code)
	ch.hub.logger.Debug("submit failed",
		zap.String("user_id", c.userID),
		zap.String("code", code),
		zap.Error(err),
	)

	ev, marshalErr := event.Outbound(event.EventSubmitFailed, event.ErrorPayload{
		Code:    code,
		Message: message,
	})
	if marshalErr != nil {
		return
	}
	c.Send(ev)
}

// sendError reports a failed non-submit operation to the requesting
// connection.
func (ch *ChatHandler) sendError(c *Client, err error, message string) {
	ev, marshalErr := event.Outbound(event.EventChatError, event.ErrorPayload{
		Code:    apperrors.CodeFromError(err),
		Message: message,
	})
	if marshalErr != nil {
		return
	}
	c.Send(ev)
}

// emitSummaries recomputes and publishes the sidebar of each given user
// into their room, so every device converges on the same ordering and
// unread counts.
func (ch *ChatHandler) emitSummaries(ctx context.Context, userIDs ...string) {
	for _, userID := range userIDs {
		summaries, err := ch.hub.conversations.Summaries(ctx, userID)
		if err != nil {
			ch.hub.logger.Warn("failed to build summaries",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}

		ev, err := event.Outbound(event.EventChatConversations, summaries)
		if err != nil {
			continue
		}
		ch.hub.publish(UserRoom(userID), ev)
	}
}
