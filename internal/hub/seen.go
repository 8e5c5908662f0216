package hub

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"Chatline/internal/event"
	apperrors "Chatline/pkg/errors"
)

// HandleSeen marks every message the peer authored in the shared
// conversation as seen, in one batch. The flag is monotonic: a repeat
// call with nothing new to mark changes no message, only re-emits the
// summaries.
func (ch *ChatHandler) HandleSeen(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.SeenPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.PeerID == "" {
		ch.sendError(c, apperrors.ErrInvalidPayload, "peer is required")
		return
	}

	conversation, err := ch.hub.conversations.FindByPair(ctx, c.userID, payload.PeerID)
	if errors.Is(err, apperrors.ErrNotFound) {
		// nothing to reconcile before first contact
		return
	}
	if err != nil {
		ch.sendError(c, err, "could not load conversation")
		return
	}

	modified, err := ch.hub.messages.MarkSeen(ctx, conversation.ID.Hex(), payload.PeerID)
	if err != nil {
		ch.sendError(c, err, "could not update seen state")
		return
	}

	ch.hub.logger.Debug("seen state reconciled",
		zap.String("viewer_id", c.userID),
		zap.String("peer_id", payload.PeerID),
		zap.Int64("modified", modified),
	)

	// both sides get fresh summaries so badges and read receipts agree
	ch.emitSummaries(ctx, c.userID, payload.PeerID)
}
