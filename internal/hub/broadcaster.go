package hub

import (
	"go.uber.org/zap"

	"Chatline/internal/event"
	"Chatline/internal/model"
)

// BroadcastChannelAdded pushes a newly created channel into every
// member's private room and joins their live connections to the channel
// room, so the very next channel message already reaches them. The
// creation itself happened on the management surface; the broadcaster
// only consumes the result.
func (ch *ChatHandler) BroadcastChannelAdded(channel *model.Channel) {
	ev, err := event.Outbound(event.EventChannelAdded, channel)
	if err != nil {
		return
	}

	room := ChannelRoom(channel.ID.Hex())
	for _, memberID := range channel.MemberIDs {
		memberID := memberID
		// on the member's own queue, so the join cannot race their
		// unregistration and re-add a closed connection to the room
		ch.hub.enqueueTask(memberID, inboundSendTimeout, func() {
			ch.hub.joinUserClients(memberID, room)
			ch.hub.publish(UserRoom(memberID), ev)
		})
	}
	ch.hub.metrics.RecordFanout(len(channel.MemberIDs))

	ch.hub.logger.Info("channel broadcast",
		zap.String("channel_id", channel.ID.Hex()),
		zap.Int("members", len(channel.MemberIDs)),
	)
}
