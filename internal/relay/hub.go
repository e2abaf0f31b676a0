package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// EventPublisher receives a copy of every relayed event for downstream
// consumers. Implementations must not block; delivery to room members never
// waits on the publisher.
type EventPublisher interface {
	Publish(eventType string, payload []byte)
}

type clientMessage struct {
	client  *Client
	message *Inbound
}

// Hub drives the relay. All room and session mutations funnel through its run
// loop, one message at a time, so membership updates and the snapshots taken
// for fan-out are serialized. Sends to individual members go through each
// client's own buffered channel and proceed in parallel.
type Hub struct {
	registry  *Registry
	publisher EventPublisher

	unregister chan *Client
	inbound    chan *clientMessage

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub over the given registry. publisher may be nil when no
// event firehose is configured.
func NewHub(registry *Registry, publisher EventPublisher) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		registry:   registry,
		publisher:  publisher,
		unregister: make(chan *Client),
		inbound:    make(chan *clientMessage),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.unregister:
			h.handleDisconnect(client)

		case cm := <-h.inbound:
			h.dispatch(cm.client, cm.message)

		case <-h.ctx.Done():
			slog.Info("Relay hub shutting down")
			h.shutdown()
			return
		}
	}
}

// Stop tears down every connection and ends the run loop.
func (h *Hub) Stop() {
	h.cancel()
}

// Serve admits a resolved identity, sends its welcome message, and starts the
// connection pumps. It fails with ErrDuplicateIdentity when the identity
// already has a live session; the caller closes the connection.
func (h *Hub) Serve(conn Conn, identity Identity) (*Client, error) {
	client := NewClient(h, conn, identity)

	if _, err := h.registry.Admit(client); err != nil {
		return nil, err
	}
	slog.Info("Client admitted", "clientID", client.id, "identity", identity.ID, "guest", identity.IsGuest)

	// Welcome goes to the admitted connection only, queued before the write
	// pump starts draining
	client.Send(NewWelcomeEvent(identity.DisplayName))

	go client.writePump()
	go client.readPump()

	return client, nil
}

func (h *Hub) dispatch(c *Client, msg *Inbound) {
	switch msg.Type {
	case MessageTypeJoinRoom:
		h.handleJoin(c, msg.Room)
	case MessageTypeLeaveRoom:
		h.handleLeave(c, msg.Room)
	case MessageTypeChat:
		h.handleChat(c, msg)
	}
}

func (h *Hub) handleJoin(c *Client, room string) {
	if room == "" {
		return
	}

	members, participants, ok := h.registry.Join(c.id, room)
	if !ok {
		return
	}

	notice := NewJoinedNotice(room, c.identity.DisplayName)
	h.broadcast(members, notice)
	c.Send(NewRoomJoinedEvent(room, participants))
	h.publish(notice)

	slog.Debug("Client joined room", "clientID", c.id, "identity", c.identity.ID, "room", room, "members", len(members))
}

func (h *Hub) handleLeave(c *Client, room string) {
	if room == "" {
		return
	}

	remaining, left := h.registry.Leave(c.id, room)
	if !left {
		return
	}

	// An emptied room is deleted outright; nobody is left to notify
	if len(remaining) > 0 {
		notice := NewLeftNotice(room, c.identity.DisplayName)
		h.broadcast(remaining, notice)
		h.publish(notice)
	}

	slog.Debug("Client left room", "clientID", c.id, "identity", c.identity.ID, "room", room)
}

func (h *Hub) handleChat(c *Client, msg *Inbound) {
	if msg.Room == "" || msg.Content == "" {
		return
	}

	// Non-members are dropped silently, no error reply
	targets, ok := h.registry.ChatTargets(c.id, msg.Room)
	if !ok {
		return
	}

	event := NewChatEvent(msg.Room, msg.Content, c.identity, msg.Timestamp)
	h.broadcast(targets, event)
	h.publish(event)
}

func (h *Hub) handleDisconnect(c *Client) {
	evictions := h.registry.Disconnect(c.id)
	for _, eviction := range evictions {
		notice := NewLeftNotice(eviction.Room, c.identity.DisplayName)
		h.broadcast(eviction.Remaining, notice)
		h.publish(notice)
	}
	c.closeSendChannel()

	slog.Info("Client removed", "clientID", c.id, "identity", c.identity.ID, "evictedRooms", len(evictions))
}

// broadcast queues the event on every member's send channel. A member that
// cannot accept the event is torn down on its own; the remaining deliveries
// are unaffected.
func (h *Hub) broadcast(members []*Client, event *Event) {
	for _, member := range members {
		if err := member.Send(event); err != nil {
			slog.Debug("Dropped delivery to member", "clientID", member.id, "identity", member.identity.ID, "error", err)
		}
	}
}

func (h *Hub) publish(event *Event) {
	if h.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.publisher.Publish(event.Type.String(), data)
}

// shutdown closes every live connection and drains their unregister requests
// so each one still gets its room evictions.
func (h *Hub) shutdown() {
	for _, client := range h.registry.Clients() {
		client.close()
		client.conn.Close()
	}

	deadline := time.After(5 * time.Second)
	for len(h.registry.Clients()) > 0 {
		select {
		case client := <-h.unregister:
			h.handleDisconnect(client)
		case <-deadline:
			slog.Warn("Timed out draining connections at shutdown", "remaining", len(h.registry.Clients()))
			return
		}
	}
}
