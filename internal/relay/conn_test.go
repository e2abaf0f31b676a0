package relay

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockConn implements the Conn interface for testing without a network.
// Frames pushed to inbound come out of ReadMessage; frames the relay writes
// are recorded for assertions.
type mockConn struct {
	mu      sync.Mutex
	inbound chan []byte
	written [][]byte
	closed  bool

	closeOnce sync.Once
	closedCh  chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound:  make(chan []byte, 16),
		closedCh: make(chan struct{}),
	}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.inbound:
		return websocket.TextMessage, data, nil
	case <-m.closedCh:
		return 0, nil, errMockClosed
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errMockClosed
	}
	if messageType == websocket.TextMessage {
		buf := make([]byte, len(data))
		copy(buf, data)
		m.written = append(m.written, buf)
	}
	return nil
}

func (m *mockConn) SetReadLimit(int64)                {}
func (m *mockConn) SetReadDeadline(time.Time) error   { return nil }
func (m *mockConn) SetWriteDeadline(time.Time) error  { return nil }
func (m *mockConn) SetPongHandler(func(string) error) {}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.closedCh)
	})
	return nil
}

// push delivers a raw frame as if the peer had sent it.
func (m *mockConn) push(raw string) {
	m.inbound <- []byte(raw)
}

// events decodes every text frame written so far.
func (m *mockConn) events(t *testing.T) []Event {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]Event, 0, len(m.written))
	for _, data := range m.written {
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("undecodable outbound frame %q: %v", data, err)
		}
		events = append(events, event)
	}
	return events
}

// waitEvents polls until the connection has received at least n events.
func (m *mockConn) waitEvents(t *testing.T, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events := m.events(t)
		if len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	events := m.events(t)
	t.Fatalf("timed out waiting for %d events, got %d: %+v", n, len(events), events)
	return nil
}

var errMockClosed = &websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "mock closed"}

// capturePublisher records published event types.
type capturePublisher struct {
	mu     sync.Mutex
	types  []string
	bodies [][]byte
}

func (p *capturePublisher) Publish(eventType string, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	p.bodies = append(p.bodies, payload)
}

func (p *capturePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

// newTestHub starts a hub and registers cleanup.
func newTestHub(t *testing.T, publisher EventPublisher) (*Hub, *Registry) {
	t.Helper()
	registry := NewRegistry()
	hub := NewHub(registry, publisher)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub, registry
}

// connect admits a new mock connection under the given identity.
func connect(t *testing.T, hub *Hub, identity Identity) (*Client, *mockConn) {
	t.Helper()
	conn := newMockConn()
	client, err := hub.Serve(conn, identity)
	if err != nil {
		t.Fatalf("Serve(%s): %v", identity.ID, err)
	}
	return client, conn
}

// waitCondition polls until check passes.
func waitCondition(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
