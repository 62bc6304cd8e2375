// Package protocol defines the WebSocket messages exchanged with clients.
package protocol

import "encoding/json"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypePress is sent by a client to press a key
	TypePress MessageType = "press"

	// TypeResult is sent by the server in reply to a press, carrying its id
	TypeResult MessageType = "result"

	// TypeKeyEvent is broadcast to every client after a successful press
	TypeKeyEvent MessageType = "key_event"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PressPayload is the payload for TypePress
type PressPayload struct {
	Key      string `json:"key"`
	Modifier string `json:"modifier,omitempty"`
	Action   string `json:"action,omitempty"`
}

// ResultPayload is the payload for TypeResult
type ResultPayload struct {
	Status   string `json:"status"` // "ok" or "error"
	Category string `json:"category,omitempty"`
	Error    string `json:"error,omitempty"`
}

// KeyEventPayload is the payload for TypeKeyEvent
type KeyEventPayload struct {
	Key      string `json:"key"`
	Code     uint16 `json:"code"`
	Modifier string `json:"modifier,omitempty"`
	Action   string `json:"action"`
	Origin   string `json:"origin"` // "http" or "ws"
}

// NewMessage builds a message with payload encoded as JSON
func NewMessage(t MessageType, id string, payload any) (Message, error) {
	msg := Message{Type: t, ID: id}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Message{}, err
		}
		msg.Payload = raw
	}
	return msg, nil
}
