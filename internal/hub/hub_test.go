package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Chatline/internal/event"
	"Chatline/internal/metrics"
	"Chatline/internal/model"
	"Chatline/internal/presence"
	apperrors "Chatline/pkg/errors"
)

// staticVerifier accepts "token-<userID>" credentials.
type staticVerifier struct{}

func (staticVerifier) Verify(_ context.Context, token string) (string, error) {
	userID, ok := strings.CutPrefix(token, "token-")
	if !ok || userID == "" {
		return "", apperrors.ErrUnauthenticated
	}
	return userID, nil
}

func newTestGateway(t *testing.T, store *memStore) (*Hub, *httptest.Server) {
	return newTestGatewayWith(t, store, presence.NewLocalRegistry())
}

func newTestGatewayWith(t *testing.T, store *memStore, registry presence.Registry) (*Hub, *httptest.Server) {
	t.Helper()

	h := NewHub(Deps{
		Presence:       registry,
		Users:          &memUsers{s: store},
		Conversations:  &memConversations{s: store},
		Messages:       &memMessages{s: store},
		Channels:       &memChannels{s: store},
		Verifier:       staticVerifier{},
		Metrics:        metrics.NewCollector(),
		Logger:         zap.NewNop(),
		AllowedOrigins: []string{"*"},
	})

	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(func() {
		server.Close()
		h.Stop()
	})
	return h, server
}

// dialAs opens an authenticated connection and waits for the presence
// snapshot, which marks the registration as complete.
func dialAs(t *testing.T, server *httptest.Server, userID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?token=token-" + userID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	readEvent(t, conn, event.EventPresenceState)
	return conn
}

// readEvent reads frames until one matches the wanted event name,
// skipping everything else.
func readEvent(t *testing.T, conn *websocket.Conn, name string) event.WsEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev event.WsEvent
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", name)
		if ev.Event == name {
			return ev
		}
	}
}

// expectNoEvent asserts that the named event does not arrive within the
// wait window. The connection must not be read from afterwards.
func expectNoEvent(t *testing.T, conn *websocket.Conn, name string, wait time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	for {
		var ev event.WsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		require.NotEqual(t, name, ev.Event)
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, name string, payload any) {
	t.Helper()

	ev, err := event.Outbound(name, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ev))
}

func decodePayload[T any](t *testing.T, ev event.WsEvent) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(ev.Payload, &v))
	return v
}

func TestHandshakeRejectsBadCredentials(t *testing.T) {
	_, server := newTestGateway(t, newMemStore("alice"))

	cases := map[string]string{
		"missing token": "",
		"invalid token": "?token=garbage",
		"unknown user":  "?token=token-ghost",
	}

	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			url := "ws" + strings.TrimPrefix(server.URL, "http") + "/" + query
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			require.Error(t, err)
			require.Nil(t, conn)
			require.NotNil(t, resp)
			defer resp.Body.Close()
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestHandshakeAcceptsAuthorizationHeader(t *testing.T) {
	req := require.New(t)
	_, server := newTestGateway(t, newMemStore("alice"))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{"Authorization": []string{"Bearer token-alice"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	req.NoError(err)
	defer conn.Close()
	resp.Body.Close()

	ev := readEvent(t, conn, event.EventPresenceState)
	state := decodePayload[event.PresenceState](t, ev)
	req.Contains(state.Online, "alice")
}

func TestPresenceDeltas(t *testing.T) {
	req := require.New(t)
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	alice := dialAs(t, server, "alice")

	bob := dialAs(t, server, "bob")

	delta := decodePayload[event.PresenceDelta](t, readEvent(t, alice, event.EventPresenceDelta))
	req.Equal([]string{"bob"}, delta.Added)

	bob.Close()

	delta = decodePayload[event.PresenceDelta](t, readEvent(t, alice, event.EventPresenceDelta))
	req.Equal([]string{"bob"}, delta.Removed)
}

// A second connection of an already-online user must not produce another
// presence delta.
func TestPresenceDeltaOncePerUser(t *testing.T) {
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	bob := dialAs(t, server, "bob")

	dialAs(t, server, "alice")
	delta := decodePayload[event.PresenceDelta](t, readEvent(t, bob, event.EventPresenceDelta))
	require.Equal(t, []string{"alice"}, delta.Added)

	dialAs(t, server, "alice")
	expectNoEvent(t, bob, event.EventPresenceDelta, 300*time.Millisecond)
}

func TestDirectSendFanout(t *testing.T) {
	req := require.New(t)
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	alice := dialAs(t, server, "alice")
	bob := dialAs(t, server, "bob")

	sendEvent(t, alice, event.EventChatSend, event.SendPayload{
		RecipientID: "bob",
		Type:        model.MessageTypeText,
		Content:     "hello bob",
	})

	got := decodePayload[model.Message](t, readEvent(t, bob, event.EventChatMessage))
	req.Equal("alice", got.SenderID)
	req.Equal("bob", got.RecipientID)
	req.Equal("hello bob", got.Body)
	req.NotEmpty(got.MessageID)

	// the sender's own devices receive the same persisted message
	echo := decodePayload[model.Message](t, readEvent(t, alice, event.EventChatMessage))
	req.Equal(got.MessageID, echo.MessageID)

	// both sidebars refresh; bob sees one unread from alice
	summaries := decodePayload[[]model.ConversationSummary](t, readEvent(t, bob, event.EventChatConversations))
	req.Len(summaries, 1)
	req.Equal("alice", summaries[0].PeerID)
	req.Equal(int64(1), summaries[0].UnreadCount)
	req.Equal("hello bob", summaries[0].LastMessage.Preview)

	summaries = decodePayload[[]model.ConversationSummary](t, readEvent(t, alice, event.EventChatConversations))
	req.Len(summaries, 1)
	req.Equal("bob", summaries[0].PeerID)
	req.Equal(int64(0), summaries[0].UnreadCount)
}

func TestDirectSendToAllDevices(t *testing.T) {
	req := require.New(t)
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	alice := dialAs(t, server, "alice")
	bobPhone := dialAs(t, server, "bob")
	bobLaptop := dialAs(t, server, "bob")

	sendEvent(t, alice, event.EventChatSend, event.SendPayload{
		RecipientID: "bob",
		Type:        model.MessageTypeText,
		Content:     "ping",
	})

	phone := decodePayload[model.Message](t, readEvent(t, bobPhone, event.EventChatMessage))
	laptop := decodePayload[model.Message](t, readEvent(t, bobLaptop, event.EventChatMessage))
	req.Equal(phone.MessageID, laptop.MessageID)
}

func TestDirectSendValidation(t *testing.T) {
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	alice := dialAs(t, server, "alice")

	cases := []struct {
		name    string
		payload event.SendPayload
		code    string
	}{
		{"missing recipient", event.SendPayload{Type: model.MessageTypeText, Content: "hi"}, apperrors.CodeInvalidPayload},
		{"self send", event.SendPayload{RecipientID: "alice", Type: model.MessageTypeText, Content: "hi"}, apperrors.CodeInvalidPayload},
		{"empty text", event.SendPayload{RecipientID: "bob", Type: model.MessageTypeText}, apperrors.CodeInvalidPayload},
		{"file without reference", event.SendPayload{RecipientID: "bob", Type: model.MessageTypeFile}, apperrors.CodeInvalidPayload},
		{"unknown type", event.SendPayload{RecipientID: "bob", Type: "sticker", Content: "hi"}, apperrors.CodeInvalidPayload},
		{"unknown recipient", event.SendPayload{RecipientID: "ghost", Type: model.MessageTypeText, Content: "hi"}, apperrors.CodeNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sendEvent(t, alice, event.EventChatSend, tc.payload)
			failure := decodePayload[event.ErrorPayload](t, readEvent(t, alice, event.EventSubmitFailed))
			require.Equal(t, tc.code, failure.Code)
		})
	}
}

// A persistence failure produces exactly one failure acknowledgment to
// the sender and nothing to the recipient.
func TestDirectSendStoreFailure(t *testing.T) {
	req := require.New(t)
	store := newMemStore("alice", "bob")
	_, server := newTestGateway(t, store)

	alice := dialAs(t, server, "alice")
	bob := dialAs(t, server, "bob")

	store.setFailAppends(true)
	sendEvent(t, alice, event.EventChatSend, event.SendPayload{
		RecipientID: "bob",
		Type:        model.MessageTypeText,
		Content:     "lost",
	})

	failure := decodePayload[event.ErrorPayload](t, readEvent(t, alice, event.EventSubmitFailed))
	req.Equal(apperrors.CodeStoreUnavailable, failure.Code)

	expectNoEvent(t, bob, event.EventChatMessage, 300*time.Millisecond)
}

func TestSeenReconciliation(t *testing.T) {
	req := require.New(t)
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	alice := dialAs(t, server, "alice")
	bob := dialAs(t, server, "bob")

	sendEvent(t, alice, event.EventChatSend, event.SendPayload{
		RecipientID: "bob",
		Type:        model.MessageTypeText,
		Content:     "unread",
	})
	summaries := decodePayload[[]model.ConversationSummary](t, readEvent(t, bob, event.EventChatConversations))
	req.Equal(int64(1), summaries[0].UnreadCount)

	sendEvent(t, bob, event.EventChatSeen, event.SeenPayload{PeerID: "alice"})
	summaries = decodePayload[[]model.ConversationSummary](t, readEvent(t, bob, event.EventChatConversations))
	req.Equal(int64(0), summaries[0].UnreadCount)

	// repeating is a no-op that still refreshes summaries
	sendEvent(t, bob, event.EventChatSeen, event.SeenPayload{PeerID: "alice"})
	summaries = decodePayload[[]model.ConversationSummary](t, readEvent(t, bob, event.EventChatConversations))
	req.Equal(int64(0), summaries[0].UnreadCount)
}

// Seen before first contact is a silent no-op.
func TestSeenWithoutConversation(t *testing.T) {
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	bob := dialAs(t, server, "bob")
	sendEvent(t, bob, event.EventChatSeen, event.SeenPayload{PeerID: "alice"})
	expectNoEvent(t, bob, event.EventChatError, 300*time.Millisecond)
}

func TestLoadConversation(t *testing.T) {
	req := require.New(t)
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	alice := dialAs(t, server, "alice")
	bob := dialAs(t, server, "bob")

	sendEvent(t, alice, event.EventChatSend, event.SendPayload{
		RecipientID: "bob",
		Type:        model.MessageTypeText,
		Content:     "first",
	})
	readEvent(t, bob, event.EventChatMessage)

	sendEvent(t, bob, event.EventChatLoad, event.LoadPayload{PeerID: "alice"})

	peer := decodePayload[model.PeerProfile](t, readEvent(t, bob, event.EventChatPeer))
	req.Equal("alice", peer.UserID)
	req.True(peer.Online)

	history := decodePayload[model.HistoryView](t, readEvent(t, bob, event.EventChatHistory))
	req.NotEmpty(history.ConversationID)
	req.Len(history.Messages, 1)
	req.Equal("first", history.Messages[0].Body)
}

// Loading a peer never creates a conversation.
func TestLoadBeforeFirstContact(t *testing.T) {
	req := require.New(t)
	store := newMemStore("alice", "bob")
	_, server := newTestGateway(t, store)

	bob := dialAs(t, server, "bob")
	sendEvent(t, bob, event.EventChatLoad, event.LoadPayload{PeerID: "alice"})

	peer := decodePayload[model.PeerProfile](t, readEvent(t, bob, event.EventChatPeer))
	req.False(peer.Online)

	history := decodePayload[model.HistoryView](t, readEvent(t, bob, event.EventChatHistory))
	req.Empty(history.ConversationID)
	req.Empty(history.Messages)

	store.mu.Lock()
	defer store.mu.Unlock()
	req.Empty(store.conversations)
}

func TestLoadUnknownPeer(t *testing.T) {
	_, server := newTestGateway(t, newMemStore("bob"))

	bob := dialAs(t, server, "bob")
	sendEvent(t, bob, event.EventChatLoad, event.LoadPayload{PeerID: "ghost"})

	failure := decodePayload[event.ErrorPayload](t, readEvent(t, bob, event.EventChatError))
	require.Equal(t, apperrors.CodeNotFound, failure.Code)
}

func TestSidebarRequest(t *testing.T) {
	req := require.New(t)
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	alice := dialAs(t, server, "alice")
	bob := dialAs(t, server, "bob")

	sendEvent(t, alice, event.EventChatSend, event.SendPayload{
		RecipientID: "bob",
		Type:        model.MessageTypeText,
		Content:     "hi",
	})
	readEvent(t, bob, event.EventChatConversations)

	sendEvent(t, bob, event.EventChatSidebar, struct{}{})
	summaries := decodePayload[[]model.ConversationSummary](t, readEvent(t, bob, event.EventChatConversations))
	req.Len(summaries, 1)
	req.Equal("alice", summaries[0].PeerID)
}

func TestChannelSendFanout(t *testing.T) {
	req := require.New(t)
	store := newMemStore("alice", "bob", "carol")
	channel := store.addChannel("general", "alice", []string{"alice", "bob"})
	_, server := newTestGateway(t, store)

	alice := dialAs(t, server, "alice")
	bob := dialAs(t, server, "bob")
	carol := dialAs(t, server, "carol")

	sendEvent(t, alice, event.EventChannelSend, event.ChannelSendPayload{
		ChannelID: channel.ID.Hex(),
		Type:      model.MessageTypeText,
		Content:   "hello channel",
	})

	got := decodePayload[model.Message](t, readEvent(t, bob, event.EventChatMessage))
	req.Equal("alice", got.SenderID)
	req.Empty(got.RecipientID)
	req.Equal("hello channel", got.Body)
	req.NotNil(got.ChannelID)

	echo := decodePayload[model.Message](t, readEvent(t, alice, event.EventChatMessage))
	req.Equal(got.MessageID, echo.MessageID)

	summary := decodePayload[model.ChannelSummary](t, readEvent(t, bob, event.EventChannelSummary))
	req.Equal(channel.ID.Hex(), summary.ChannelID)
	req.Equal("hello channel", summary.LastMessage.Preview)

	// carol is not a member and sees nothing
	expectNoEvent(t, carol, event.EventChatMessage, 300*time.Millisecond)
}

func TestChannelSendRejections(t *testing.T) {
	store := newMemStore("alice", "carol")
	channel := store.addChannel("general", "alice", []string{"alice"})
	_, server := newTestGateway(t, store)

	carol := dialAs(t, server, "carol")

	cases := []struct {
		name    string
		payload event.ChannelSendPayload
		code    string
	}{
		{"not a member", event.ChannelSendPayload{ChannelID: channel.ID.Hex(), Type: model.MessageTypeText, Content: "hi"}, apperrors.CodeForbidden},
		{"unknown channel", event.ChannelSendPayload{ChannelID: "64f0c2e1a7b3d94215f0aa99", Type: model.MessageTypeText, Content: "hi"}, apperrors.CodeNotFound},
		{"missing channel", event.ChannelSendPayload{Type: model.MessageTypeText, Content: "hi"}, apperrors.CodeInvalidPayload},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sendEvent(t, carol, event.EventChannelSend, tc.payload)
			failure := decodePayload[event.ErrorPayload](t, readEvent(t, carol, event.EventSubmitFailed))
			require.Equal(t, tc.code, failure.Code)
		})
	}
}

// A channel created after members connected reaches them through the
// channel-added broadcast, and their connections join the channel room.
func TestChannelAddedBroadcast(t *testing.T) {
	req := require.New(t)
	store := newMemStore("alice", "bob")
	h, server := newTestGateway(t, store)

	alice := dialAs(t, server, "alice")
	bob := dialAs(t, server, "bob")

	channel := store.addChannel("late", "alice", []string{"alice", "bob"})
	h.NotifyChannelAdded(channel)

	added := decodePayload[model.Channel](t, readEvent(t, bob, event.EventChannelAdded))
	req.Equal("late", added.Name)
	readEvent(t, alice, event.EventChannelAdded)

	// both live connections are now members of the channel room
	sendEvent(t, alice, event.EventChannelSend, event.ChannelSendPayload{
		ChannelID: channel.ID.Hex(),
		Type:      model.MessageTypeText,
		Content:   "first post",
	})
	got := decodePayload[model.Message](t, readEvent(t, bob, event.EventChatMessage))
	req.Equal("first post", got.Body)
}

func TestDispatchKey(t *testing.T) {
	req := require.New(t)

	alice := &Client{userID: "alice"}
	bob := &Client{userID: "bob"}

	evFor := func(name string, payload any) event.WsEvent {
		ev, err := event.Outbound(name, payload)
		req.NoError(err)
		return ev
	}

	// both directions of one pair land on the same key
	aliceToBob := dispatchKey(evFor(event.EventChatSend, event.SendPayload{RecipientID: "bob"}), alice)
	bobToAlice := dispatchKey(evFor(event.EventChatSend, event.SendPayload{RecipientID: "alice"}), bob)
	req.Equal(aliceToBob, bobToAlice)
	req.NotEqual(aliceToBob, dispatchKey(evFor(event.EventChatSend, event.SendPayload{RecipientID: "carol"}), alice))

	// seen updates share the conversation's key with its sends
	seen := dispatchKey(evFor(event.EventChatSeen, event.SeenPayload{PeerID: "alice"}), bob)
	req.Equal(aliceToBob, seen)

	// channel submits are keyed by the channel
	channelEv := evFor(event.EventChannelSend, event.ChannelSendPayload{ChannelID: "64f0c2e1a7b3d94215f0aa01"})
	req.Equal("64f0c2e1a7b3d94215f0aa01", dispatchKey(channelEv, alice))
	req.Equal("64f0c2e1a7b3d94215f0aa01", dispatchKey(channelEv, bob))

	// everything else, and malformed payloads, fall back to the sender
	req.Equal("alice", dispatchKey(evFor(event.EventChatSidebar, struct{}{}), alice))
	req.Equal("alice", dispatchKey(event.WsEvent{Event: event.EventChatSend, Payload: []byte("{")}, alice))
}

// Both participants of a conversation must observe its messages in the
// same order, even when both sides submit concurrently.
func TestConversationOrderObservedIdentically(t *testing.T) {
	req := require.New(t)
	_, server := newTestGateway(t, newMemStore("alice", "bob"))

	alice := dialAs(t, server, "alice")
	bob := dialAs(t, server, "bob")

	const perSide = 10
	var wg sync.WaitGroup
	for _, side := range []struct {
		conn *websocket.Conn
		peer string
	}{{alice, "bob"}, {bob, "alice"}} {
		wg.Add(1)
		go func(conn *websocket.Conn, peer string) {
			defer wg.Done()
			for i := 0; i < perSide; i++ {
				ev, err := event.Outbound(event.EventChatSend, event.SendPayload{
					RecipientID: peer,
					Type:        model.MessageTypeText,
					Content:     fmt.Sprintf("to %s #%d", peer, i),
				})
				require.NoError(t, err)
				require.NoError(t, conn.WriteJSON(ev))
			}
		}(side.conn, side.peer)
	}
	wg.Wait()

	collect := func(conn *websocket.Conn) []string {
		ids := make([]string, 0, 2*perSide)
		for len(ids) < 2*perSide {
			msg := decodePayload[model.Message](t, readEvent(t, conn, event.EventChatMessage))
			ids = append(ids, msg.MessageID)
		}
		return ids
	}

	req.Equal(collect(alice), collect(bob))
}

// One user's slow store call at registration must not stall other users'
// registrations.
func TestRegistrationNotBlockedBySlowStore(t *testing.T) {
	store := newMemStore("slow", "alice")
	release := store.gateChannelList("slow")
	_, server := newTestGateway(t, store)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?token=token-slow"
	slowConn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { slowConn.Close() })

	// while slow's registration hangs on the store, alice registers fine
	dialAs(t, server, "alice")

	release()
	readEvent(t, slowConn, event.EventPresenceState)
}

// A channel broadcast racing a member's disconnect must not re-add the
// closed connection to the channel room.
func TestChannelAddedSkipsDisconnected(t *testing.T) {
	req := require.New(t)
	store := newMemStore("alice", "bob")
	h, server := newTestGateway(t, store)

	alice := dialAs(t, server, "alice")
	bob := dialAs(t, server, "bob")

	bob.Close()
	delta := decodePayload[event.PresenceDelta](t, readEvent(t, alice, event.EventPresenceDelta))
	req.Equal([]string{"bob"}, delta.Removed)

	channel := store.addChannel("late", "alice", []string{"alice", "bob"})
	h.NotifyChannelAdded(channel)
	readEvent(t, alice, event.EventChannelAdded)

	room := ChannelRoom(channel.ID.Hex())
	req.Eventually(func() bool {
		b := h.shards[room.shard()]
		b.RLock()
		defer b.RUnlock()
		return len(b.rooms[room]) == 1
	}, 2*time.Second, 20*time.Millisecond, "channel room should hold only alice's connection")
}

// With a multi-process registry, presence transitions reach local clients
// through the announce/listen bus instead of a direct broadcast.
func TestPresenceDeltaThroughAnnouncer(t *testing.T) {
	req := require.New(t)
	bus := &busRegistry{LocalRegistry: presence.NewLocalRegistry()}
	_, server := newTestGatewayWith(t, newMemStore("alice", "bob"), bus)

	alice := dialAs(t, server, "alice")

	dialAs(t, server, "bob")
	delta := decodePayload[event.PresenceDelta](t, readEvent(t, alice, event.EventPresenceDelta))
	req.Equal([]string{"bob"}, delta.Added)

	req.GreaterOrEqual(bus.announceCount(), 1)
}

// busRegistry is a LocalRegistry with an in-process announce/listen bus,
// standing in for the Redis pub/sub channel.
type busRegistry struct {
	*presence.LocalRegistry
	mu        sync.Mutex
	listeners []func(added, removed []string)
	announced int
}

func (b *busRegistry) Announce(_ context.Context, added, removed []string) error {
	b.mu.Lock()
	b.announced++
	listeners := append([]func(added, removed []string){}, b.listeners...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(added, removed)
	}
	return nil
}

func (b *busRegistry) Listen(_ context.Context, fn func(added, removed []string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *busRegistry) announceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.announced
}

func TestUnknownEventIgnored(t *testing.T) {
	_, server := newTestGateway(t, newMemStore("alice"))

	alice := dialAs(t, server, "alice")
	sendEvent(t, alice, "made:up", struct{}{})
	expectNoEvent(t, alice, event.EventChatError, 300*time.Millisecond)
}
