// Package hooks implements the server-side operational event sink
// (servercore.EventSink): user connection lifecycle and room-change events
// fanned out to registered Hook implementations (shell script, webhook,
// structured stdio).
package hooks

import "time"

// EventType identifies the kind of c2w session event that occurred.
type EventType string

const (
	EventUserConnected      EventType = "user_connected"
	EventUserConnectRefused EventType = "user_connect_refused"
	EventUserDisconnected   EventType = "user_disconnected"
	EventRoomJoined         EventType = "room_joined"
	EventRoomLeft           EventType = "room_left"
	EventChatRelayed        EventType = "chat_relayed"
	EventPeerEvicted        EventType = "peer_evicted"
)

// Event is a single occurrence triggering registered hooks.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Address   string                 `json:"address,omitempty"`
	Username  string                 `json:"username,omitempty"`
	Data      map[string]any         `json:"data,omitempty"`
}

// NewEvent creates a new event stamped with now.
func NewEvent(eventType EventType) *Event {
	return &Event{Type: eventType, Timestamp: time.Now().Unix(), Data: make(map[string]any)}
}

func (e *Event) WithAddress(address string) *Event {
	e.Address = address
	return e
}

func (e *Event) WithUsername(username string) *Event {
	e.Username = username
	return e
}

func (e *Event) WithData(key string, value any) *Event {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// String renders a short human-readable form for logging.
func (e *Event) String() string {
	if e.Username != "" {
		return string(e.Type) + ":" + e.Username
	}
	if e.Address != "" {
		return string(e.Type) + ":" + e.Address
	}
	return string(e.Type)
}
