package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"chat-relay-service/internal/models"
)

// ErrUnknownType marks inbound frames whose type discriminator is missing or
// not one of the accepted control/chat types.
var ErrUnknownType = errors.New("unknown message type")

// MessageType is the wire discriminator for inbound and outbound messages.
type MessageType string

const (
	// Inbound control/chat messages
	MessageTypeJoinRoom  MessageType = "join_room"
	MessageTypeLeaveRoom MessageType = "leave_room"
	MessageTypeChat      MessageType = "chat_message"

	// Outbound events
	MessageTypeSystem     MessageType = "system"
	MessageTypeRoomJoined MessageType = "room_joined"
	MessageTypeError      MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}

// IsInbound reports whether the type is one a client may send. Anything else
// on the inbound path is treated as malformed.
func (mt MessageType) IsInbound() bool {
	switch mt {
	case MessageTypeJoinRoom, MessageTypeLeaveRoom, MessageTypeChat:
		return true
	default:
		return false
	}
}

// Inbound is a decoded client message.
type Inbound struct {
	Type    MessageType `json:"type"`
	Room    string      `json:"room"`
	Content string      `json:"content"`
	// Timestamp is echoed back verbatim on chat broadcasts; the server never
	// generates or corrects it.
	Timestamp json.RawMessage `json:"timestamp"`
}

// DecodeInbound parses a raw client frame. Undecodable payloads and
// unrecognized or missing type values both fail.
func DecodeInbound(data []byte) (*Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode inbound message: %w", err)
	}
	if !msg.Type.IsInbound() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	return &msg, nil
}

// Event is an outbound message. Fields are populated per type; zero fields
// stay off the wire.
type Event struct {
	Type         MessageType          `json:"type"`
	Room         string               `json:"room,omitempty"`
	Content      string               `json:"content,omitempty"`
	Username     string               `json:"username,omitempty"`
	SenderID     string               `json:"sender_id,omitempty"`
	Timestamp    json.RawMessage      `json:"timestamp,omitempty"`
	Participants []models.Participant `json:"participants,omitempty"`
}

func NewWelcomeEvent(displayName string) *Event {
	return &Event{
		Type:    MessageTypeSystem,
		Content: fmt.Sprintf("Welcome %s! You are now connected.", displayName),
	}
}

func NewJoinedNotice(room, username string) *Event {
	return &Event{
		Type:     MessageTypeSystem,
		Room:     room,
		Username: username,
		Content:  fmt.Sprintf("%s has joined the room", username),
	}
}

func NewLeftNotice(room, username string) *Event {
	return &Event{
		Type:     MessageTypeSystem,
		Room:     room,
		Username: username,
		Content:  fmt.Sprintf("%s has left the room", username),
	}
}

func NewRoomJoinedEvent(room string, participants []models.Participant) *Event {
	return &Event{
		Type:         MessageTypeRoomJoined,
		Room:         room,
		Participants: participants,
	}
}

func NewChatEvent(room, content string, sender Identity, timestamp json.RawMessage) *Event {
	if len(timestamp) == 0 {
		timestamp = json.RawMessage("null")
	}
	return &Event{
		Type:      MessageTypeChat,
		Room:      room,
		Content:   content,
		SenderID:  sender.ID,
		Username:  sender.DisplayName,
		Timestamp: timestamp,
	}
}

func NewErrorEvent(content string) *Event {
	return &Event{
		Type:    MessageTypeError,
		Content: content,
	}
}
