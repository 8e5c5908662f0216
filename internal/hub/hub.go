package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"Chatline/internal/auth"
	"Chatline/internal/event"
	"Chatline/internal/metrics"
	"Chatline/internal/model"
	"Chatline/internal/presence"
	"Chatline/internal/repo"
)

const (
	shardCount   = 64 // tune: 16/64/128 depending on load
	eventTimeout = 15 * time.Second
)

// inboundEvent is one unit of worker queue work: either a client event to
// route or a lifecycle task to run.
type inboundEvent struct {
	event  event.WsEvent
	client *Client
	task   func()
}

type roomBucket struct {
	sync.RWMutex
	rooms map[RoomKey]map[string]*Client
}

// Deps are the collaborators the hub routes through.
type Deps struct {
	Presence       presence.Registry
	Users          repo.UserRepository
	Conversations  repo.ConversationRepository
	Messages       repo.MessageRepository
	Channels       repo.ChannelRepository
	Verifier       auth.Verifier
	Metrics        *metrics.Collector
	Logger         *zap.Logger
	AllowedOrigins []string
}

// Hub is the gateway's fan-out engine: it owns room membership, the
// presence registry handle and the worker queues that process inbound
// events without blocking connection readers.
type Hub struct {
	shards [shardCount]*roomBucket

	// all open connections, for presence broadcasts and the monitor
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// one queue per worker; chat events are keyed by their conversation or
	// channel so persist and fan-out for one stream stay in order, and
	// lifecycle tasks are keyed by user so register/unregister serialize
	queues [workerPoolSize]chan inboundEvent

	presence      presence.Registry
	announcer     presence.Announcer
	users         repo.UserRepository
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	channels      repo.ChannelRepository
	verifier      auth.Verifier
	metrics       *metrics.Collector
	logger        *zap.Logger

	chat *ChatHandler

	allowedOrigins []string

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(d Deps) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		presence:       d.Presence,
		users:          d.Users,
		conversations:  d.Conversations,
		messages:       d.Messages,
		channels:       d.Channels,
		verifier:       d.Verifier,
		metrics:        d.Metrics,
		logger:         d.Logger,
		allowedOrigins: d.AllowedOrigins,
		clients:        make(map[string]*Client),
		ctx:            ctx,
		cancel:         cancel,
	}
	h.chat = NewChatHandler(h)

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &roomBucket{
			rooms: make(map[RoomKey]map[string]*Client),
		}
	}

	// start worker loops, one queue each
	for i := 0; i < workerPoolSize; i++ {
		h.queues[i] = make(chan inboundEvent, 256)
		h.wg.Add(1)
		go func(queue chan inboundEvent) {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in, ok := <-queue:
					if !ok {
						return
					}
					if in.task != nil {
						in.task()
						continue
					}
					h.handleEvent(in.event, in.client)
				}
			}
		}(h.queues[i])
	}

	// a multi-process registry carries presence transitions between
	// gateways; local delivery then happens via the subscription loop
	if a, ok := d.Presence.(presence.Announcer); ok {
		h.announcer = a
		a.Listen(h.ctx, func(added, removed []string) {
			h.deliverPresence(event.PresenceDelta{Added: added, Removed: removed})
		})
	}

	return h
}

// dispatchKey picks the worker queue for an inbound event. Submits and
// seen updates are keyed by their conversation or channel, so every
// mutation of one stream runs on one worker in arrival order. Everything
// else is keyed by the sender.
func dispatchKey(ev event.WsEvent, c *Client) string {
	switch ev.Event {
	case event.EventChatSend:
		var p struct {
			RecipientID string `json:"recipientId"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.RecipientID != "" {
			return model.PairKey(c.userID, p.RecipientID)
		}
	case event.EventChannelSend:
		var p struct {
			ChannelID string `json:"channelId"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.ChannelID != "" {
			return p.ChannelID
		}
	case event.EventChatSeen:
		var p struct {
			PeerID string `json:"peerId"`
		}
		if json.Unmarshal(ev.Payload, &p) == nil && p.PeerID != "" {
			return model.PairKey(c.userID, p.PeerID)
		}
	}
	return c.userID
}

// enqueue hands an inbound event to the worker owning its stream's queue.
// Returns false when the queue stays full past the timeout.
func (h *Hub) enqueue(ev event.WsEvent, c *Client) bool {
	queue := h.queues[shardOf(dispatchKey(ev, c))%workerPoolSize]
	select {
	case queue <- inboundEvent{event: ev, client: c}:
		return true
	case <-time.After(inboundSendTimeout):
		return false
	case <-c.ctx.Done():
		return false
	case <-h.ctx.Done():
		return false
	}
}

// enqueueTask schedules a lifecycle task on the worker queue owned by the
// given key. Tasks sharing a key run in submission order.
func (h *Hub) enqueueTask(key string, timeout time.Duration, task func()) bool {
	queue := h.queues[shardOf(key)%workerPoolSize]
	select {
	case queue <- inboundEvent{task: task}:
		return true
	case <-time.After(timeout):
		return false
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	ctx, cancel := context.WithTimeout(h.ctx, eventTimeout)
	defer cancel()

	switch ev.Event {
	case event.EventChatSend:
		h.chat.HandleDirectSend(ctx, ev, c)
	case event.EventChannelSend:
		h.chat.HandleChannelSend(ctx, ev, c)
	case event.EventChatLoad:
		h.chat.HandleLoad(ctx, ev, c)
	case event.EventChatSidebar:
		h.chat.HandleSidebar(ctx, c)
	case event.EventChatSeen:
		h.chat.HandleSeen(ctx, ev, c)
	default:
		h.logger.Debug("unknown event type", zap.String("event", ev.Event))
	}
}

// addClient performs the post-handshake registration: user room, channel
// rooms, presence join, and the initial presence snapshot. It runs as a
// task on the user's worker queue, so a slow store call here never stalls
// other users' registrations.
func (h *Hub) addClient(c *Client) {
	h.clientsMu.Lock()
	h.clients[c.ID] = c
	h.clientsMu.Unlock()
	h.metrics.ConnOpened()

	h.joinRoom(c, UserRoom(c.userID))

	ctx, cancel := context.WithTimeout(h.ctx, eventTimeout)
	defer cancel()

	channels, err := h.channels.ListForUser(ctx, c.userID)
	if err != nil {
		h.logger.Warn("failed to list channels at registration",
			zap.String("user_id", c.userID),
			zap.Error(err),
		)
	}
	for i := range channels {
		h.joinRoom(c, ChannelRoom(channels[i].ID.Hex()))
	}

	first, err := h.presence.Join(ctx, c.userID)
	if err != nil {
		h.logger.Error("presence join failed",
			zap.String("user_id", c.userID),
			zap.Error(err),
		)
	}
	if first {
		h.metrics.UserOnline()
		h.broadcastPresence(event.PresenceDelta{Added: []string{c.userID}})
	}

	if online, err := h.presence.Snapshot(ctx); err == nil {
		if ev, err := event.Outbound(event.EventPresenceState, event.PresenceState{Online: online}); err == nil {
			c.Send(ev)
		}
	}

	h.logger.Info("client joined",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.userID),
	)
}

// removeClient deregisters exactly once regardless of which side closed
// the connection; later calls for the same client are no-ops. Like
// addClient it runs on the user's worker queue.
func (h *Hub) removeClient(c *Client) {
	h.clientsMu.Lock()
	if _, exists := h.clients[c.ID]; !exists {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	h.clientsMu.Unlock()
	h.metrics.ConnClosed()

	for _, key := range c.trackedRooms() {
		h.leaveRoom(c, key)
	}

	ctx, cancel := context.WithTimeout(h.ctx, eventTimeout)
	defer cancel()

	last, err := h.presence.Leave(ctx, c.userID)
	if err != nil {
		h.logger.Error("presence leave failed",
			zap.String("user_id", c.userID),
			zap.Error(err),
		)
	}
	if last {
		h.metrics.UserOffline()
		h.broadcastPresence(event.PresenceDelta{Removed: []string{c.userID}})
	}

	c.Close()
	h.logger.Info("client left",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.userID),
	)
}

func (h *Hub) joinRoom(c *Client, key RoomKey) {
	b := h.shards[key.shard()]
	b.Lock()
	room, ok := b.rooms[key]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[key] = room
	}
	room[c.ID] = c
	b.Unlock()

	c.trackRoom(key)
}

func (h *Hub) leaveRoom(c *Client, key RoomKey) {
	b := h.shards[key.shard()]
	b.Lock()
	defer b.Unlock()

	if room, ok := b.rooms[key]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(b.rooms, key)
		}
	}
}

// joinUserClients adds every live connection of a user to a room. Must run
// on the user's worker queue so it cannot race that user's unregistration.
func (h *Hub) joinUserClients(userID string, key RoomKey) {
	h.clientsMu.RLock()
	members := make([]*Client, 0)
	for _, c := range h.clients {
		if c.userID == userID {
			members = append(members, c)
		}
	}
	h.clientsMu.RUnlock()

	for _, c := range members {
		h.joinRoom(c, key)
	}
}

// publish delivers one event to every connection currently in the room.
// Each recipient room is addressed once; multi-device users receive one
// copy per connection inside their room.
func (h *Hub) publish(key RoomKey, ev event.WsEvent) {
	b := h.shards[key.shard()]

	b.RLock()
	room, ok := b.rooms[key]
	if !ok || len(room) == 0 {
		b.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	b.RUnlock()

	// deliver without holding the shard lock
	for _, c := range clients {
		c.Send(ev)
	}
}

// broadcastPresence propagates a presence transition. With a multi-process
// registry the delta goes over its bus and comes back through the
// subscription, reaching every gateway's clients exactly once; otherwise
// it is delivered to local clients directly.
func (h *Hub) broadcastPresence(delta event.PresenceDelta) {
	if h.announcer != nil {
		if err := h.announcer.Announce(h.ctx, delta.Added, delta.Removed); err == nil {
			return
		}
		h.logger.Warn("presence announce failed, delivering locally only")
	}
	h.deliverPresence(delta)
}

// deliverPresence sends a presence delta to every local connection.
func (h *Hub) deliverPresence(delta event.PresenceDelta) {
	ev, err := event.Outbound(event.EventPresenceDelta, delta)
	if err != nil {
		return
	}

	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		c.Send(ev)
	}
}

// NotifyChannelAdded pushes a freshly created channel into every member's
// room and joins their live connections to the channel room. Membership
// itself is owned by the channel management surface.
func (h *Hub) NotifyChannelAdded(channel *model.Channel) {
	h.chat.BroadcastChannelAdded(channel)
}

func (h *Hub) Stop() {
	h.cancel()

	for _, shard := range h.shards {
		shard.RLock()
		for _, room := range shard.rooms {
			for _, client := range room {
				client.Close()
			}
		}
		shard.RUnlock()
	}

	// workers drain out through ctx; queues stay open so a racing reader
	// can never hit a closed channel
	h.wg.Wait()
}
