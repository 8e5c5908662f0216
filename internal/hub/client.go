package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"Chatline/internal/event"
)

const workerPoolSize = 16 // number of workers to process inbound events

var (
	// tuning parameters
	writeWait          = 10 * time.Second       // time allowed to write a message to the peer
	pongWait           = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval       = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize     = 64 * 1024              // max inbound message size (64KB)
	sendBufSize        = 256                    // per-connection outbound buffer size
	sendTimeout        = 2 * time.Second        // timeout for enqueuing outbound messages
	registerTimeout    = 5 * time.Second        // timeout for client registration
	unregisterTimeout  = 5 * time.Second        // timeout for client unregistration
	inboundSendTimeout = 500 * time.Millisecond // timeout for sending to an inbound queue
)

// Client is one websocket connection bound to an authenticated user. A
// user with several tabs or devices holds several clients, all members of
// the same user room.
type Client struct {
	ID     string
	userID string
	conn   *websocket.Conn
	hub    *Hub
	egress chan event.WsEvent

	// rooms this client has been joined to, for cleanup on unregister
	rooms   []RoomKey
	roomsMu sync.Mutex

	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool
	closedMu       sync.RWMutex
}

// RegisterClient creates a new client for an already-authenticated user
// and hands it to the hub. Returns nil when the hub cannot accept the
// registration in time.
func RegisterClient(userID string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		ID:         uuid.New().String(),
		userID:     userID,
		conn:       conn,
		hub:        h,
		egress:     make(chan event.WsEvent, sendBufSize),
		cancel:     cancel,
		ctx:        ctx,
		connClosed: make(chan struct{}),
	}

	if !h.enqueueTask(userID, registerTimeout, func() { h.addClient(client) }) {
		h.logger.Warn("client registration timed out", zap.String("user_id", userID))
		cancel()
		conn.Close()
		return nil
	}

	go client.ReadMessages()
	go client.WriteMessages()
	h.logger.Debug("client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", userID),
	)
	return client
}

// UserID returns the identity bound to the connection for its lifetime.
func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) trackRoom(key RoomKey) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	for _, existing := range c.rooms {
		if existing == key {
			return
		}
	}
	c.rooms = append(c.rooms, key)
}

func (c *Client) trackedRooms() []RoomKey {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	keys := make([]RoomKey, len(c.rooms))
	copy(keys, c.rooms)
	return keys
}

func (c *Client) ReadMessages() {
	defer func() {
		c.unregister()
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.WsEvent

			if err := c.conn.ReadJSON(&ev); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.hub.logger.Debug("client disconnected", zap.String("client_id", c.ID))
					return
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.hub.logger.Debug("client timed out", zap.String("client_id", c.ID))
					return
				}

				c.hub.logger.Debug("read error",
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
				return
			}

			// Hand off to the worker queues so a slow store call never
			// blocks the reader.
			if !c.hub.enqueue(ev, c) {
				c.hub.logger.Warn("inbound queue full, dropping client", zap.String("client_id", c.ID))
				c.cancel()
				c.conn.Close()
				return
			}
		}
	}
}

func (c *Client) WriteMessages() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			if err := c.conn.WriteMessage(websocket.CloseMessage, nil); err != nil {
				c.hub.logger.Debug("close write failed", zap.Error(err))
			}
			return
		case ev := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.logger.Debug("write error",
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Debug("ping failed",
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Send enqueues an event for this connection, disconnecting the client
// when its buffer stays full past the send timeout.
func (c *Client) Send(ev event.WsEvent) {
	if c.IsClosed() {
		return
	}

	select {
	case c.egress <- ev:
	case <-time.After(sendTimeout):
		c.hub.logger.Warn("egress full, disconnecting client", zap.String("client_id", c.ID))
		c.unregister()
	case <-c.ctx.Done():
	}
}

// unregister schedules the client's removal on its user's worker queue.
func (c *Client) unregister() {
	if !c.hub.enqueueTask(c.userID, unregisterTimeout, func() { c.hub.removeClient(c) }) {
		c.hub.logger.Warn("client unregistration timed out", zap.String("client_id", c.ID))
	}
}

func (c *Client) Close() {
	c.once.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		// The egress channel stays open; WriteMessages exits through ctx
		// so concurrent senders can never hit a closed channel.
		c.cancel()

		// Wait for WriteMessages to close conn, or force close after timeout
		go func() {
			select {
			case <-c.connClosed:
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
			}
		}()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}
