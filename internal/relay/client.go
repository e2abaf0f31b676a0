package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var ErrClientDisconnected = errors.New("client disconnected")

// Conn is the subset of *websocket.Conn the relay uses. Tests substitute an
// in-memory implementation.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client owns one connection for its lifetime. The read pump is the only
// place inbound frames are consumed; outbound delivery goes through the
// buffered send channel drained by the write pump, so sends from other
// connections' handlers never block on this peer.
type Client struct {
	id       string
	identity Identity
	hub      *Hub
	conn     Conn
	send     chan []byte

	ctx        context.Context
	cancel     context.CancelFunc
	closed     int32 // atomic flag, set once the client is going down
	sendClosed int32 // atomic flag, set once the send channel is closed

	wg sync.WaitGroup
}

func NewClient(hub *Hub, conn Conn, identity Identity) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:       uuid.New().String(),
		identity: identity,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Identity() Identity {
	return c.identity
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels its context.
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
		slog.Debug("Client marked as closed", "clientID", c.id, "identity", c.identity.ID)
	}
}

// closeSendChannel closes the send channel. Only the hub calls this, after the
// session left the registry, so no sender can still be queueing on it.
func (c *Client) closeSendChannel() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

func (c *Client) readPump() {
	c.wg.Add(1)
	defer func() {
		c.wg.Done()
		c.close()

		// Hand the connection to the hub for room eviction and removal
		select {
		case c.hub.unregister <- c:
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout sending unregister request", "clientID", c.id, "identity", c.identity.ID)
		}

		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "identity", c.identity.ID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "identity", c.identity.ID, "error", err)
			}
			break
		}

		msg, err := DecodeInbound(raw)
		if err != nil {
			slog.Debug("Malformed inbound message", "clientID", c.id, "error", err)
			if errors.Is(err, ErrUnknownType) {
				c.Send(NewErrorEvent("Unknown message type"))
			} else {
				c.Send(NewErrorEvent("Invalid JSON format"))
			}
			continue
		}

		select {
		case c.hub.inbound <- &clientMessage{client: c, message: msg}:
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout dispatching message to hub", "clientID", c.id, "identity", c.identity.ID)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	c.wg.Add(1)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		c.wg.Done()
		ticker.Stop()

		// Unblock the read pump so eviction runs even when this side failed
		c.close()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "identity", c.identity.ID, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "identity", c.identity.ID, "error", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// Send queues an event for delivery. A full buffer means the peer stopped
// draining; the client is torn down rather than blocking other members.
func (c *Client) Send(event *Event) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		// Cancel the context rather than close the channel: further sends
		// queued before the eviction lands must fail, not panic. The write
		// pump exits on the cancelled context and its teardown unblocks the
		// read pump, which hands the client to the hub for eviction.
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "identity", c.identity.ID)
		c.close()
		return ErrClientDisconnected
	}
}
