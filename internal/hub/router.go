package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"Chatline/internal/event"
	"Chatline/internal/model"
	apperrors "Chatline/pkg/errors"
)

// HandleDirectSend routes a direct message: validate, resolve the pair's
// single conversation, persist, then fan out to the sender's and the
// recipient's rooms and refresh both sidebars.
func (ch *ChatHandler) HandleDirectSend(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.SendPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		ch.sendSubmitError(c, apperrors.ErrInvalidPayload, "malformed submit payload")
		return
	}

	if payload.RecipientID == "" || payload.RecipientID == c.userID {
		ch.sendSubmitError(c, apperrors.ErrInvalidPayload, "recipient is required")
		return
	}
	if err := validateContent(payload.Type, payload.Content, payload.FileURL); err != nil {
		ch.sendSubmitError(c, err, err.Error())
		return
	}

	if _, err := ch.hub.users.Get(ctx, payload.RecipientID); err != nil {
		ch.sendSubmitError(c, err, "unknown recipient")
		return
	}

	conversation, err := ch.hub.conversations.FindOrCreate(ctx, c.userID, payload.RecipientID)
	if err != nil {
		ch.sendSubmitError(c, err, "could not resolve conversation")
		return
	}

	msg := &model.Message{
		MessageID:   uuid.New().String(),
		SenderID:    c.userID,
		RecipientID: payload.RecipientID,
		Type:        payload.Type,
		Body:        payload.Content,
		CreatedAt:   time.Now().UTC(),
	}
	if payload.Type == model.MessageTypeFile {
		fileURL := payload.FileURL
		msg.FileURL = &fileURL
	}

	if err := ch.hub.messages.AppendDirect(ctx, conversation, msg); err != nil {
		ch.sendSubmitError(c, err, "message was not delivered")
		return
	}
	ch.hub.metrics.RecordMessageRouted("direct")

	delivered, err := event.Outbound(event.EventChatMessage, msg)
	if err != nil {
		return
	}
	ch.hub.publish(UserRoom(c.userID), delivered)
	ch.hub.publish(UserRoom(payload.RecipientID), delivered)
	ch.hub.metrics.RecordFanout(2)

	ch.emitSummaries(ctx, c.userID, payload.RecipientID)
}

// HandleChannelSend routes a channel message: membership check, persist,
// one fan-out into the channel room, then a refreshed channel preview.
func (ch *ChatHandler) HandleChannelSend(ctx context.Context, ev event.WsEvent, c *Client) {
	var payload event.ChannelSendPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		ch.sendSubmitError(c, apperrors.ErrInvalidPayload, "malformed submit payload")
		return
	}

	if payload.ChannelID == "" {
		ch.sendSubmitError(c, apperrors.ErrInvalidPayload, "channel is required")
		return
	}
	if err := validateContent(payload.Type, payload.Content, payload.FileURL); err != nil {
		ch.sendSubmitError(c, err, err.Error())
		return
	}

	channel, err := ch.hub.channels.Get(ctx, payload.ChannelID)
	if err != nil {
		ch.sendSubmitError(c, err, "unknown channel")
		return
	}
	if !channel.HasMember(c.userID) {
		ch.sendSubmitError(c, apperrors.ErrForbidden, "not a channel member")
		return
	}

	msg := &model.Message{
		MessageID: uuid.New().String(),
		SenderID:  c.userID,
		Type:      payload.Type,
		Body:      payload.Content,
		CreatedAt: time.Now().UTC(),
	}
	if payload.Type == model.MessageTypeFile {
		fileURL := payload.FileURL
		msg.FileURL = &fileURL
	}

	if err := ch.hub.messages.AppendChannel(ctx, channel, msg); err != nil {
		ch.sendSubmitError(c, err, "message was not delivered")
		return
	}
	ch.hub.metrics.RecordMessageRouted("channel")

	delivered, err := event.Outbound(event.EventChatMessage, msg)
	if err != nil {
		return
	}
	room := ChannelRoom(channel.ID.Hex())
	ch.hub.publish(room, delivered)
	ch.hub.metrics.RecordFanout(1)

	summary, err := event.Outbound(event.EventChannelSummary, model.ChannelSummary{
		ChannelID:   channel.ID.Hex(),
		Name:        channel.Name,
		LastMessage: &model.LastMessage{MessageID: msg.MessageID, SenderID: msg.SenderID, Type: msg.Type, Preview: msg.Preview(), SentAt: msg.CreatedAt},
		UpdatedAt:   msg.CreatedAt,
	})
	if err != nil {
		return
	}
	ch.hub.publish(room, summary)
}

// validateContent enforces the payload invariants before anything is
// persisted: text needs content, files need a blob reference.
func validateContent(msgType, content, fileURL string) error {
	switch msgType {
	case model.MessageTypeText:
		if content == "" {
			return fmt.Errorf("%w: text message needs content", apperrors.ErrInvalidPayload)
		}
	case model.MessageTypeFile:
		if fileURL == "" {
			return fmt.Errorf("%w: file message needs a file reference", apperrors.ErrInvalidPayload)
		}
	default:
		return fmt.Errorf("%w: unknown message type %q", apperrors.ErrInvalidPayload, msgType)
	}
	return nil
}
