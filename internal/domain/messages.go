package domain

import (
	"encoding/json"
	"fmt"
)

// Client → server message types.
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
	MessageDraw        = "draw"
	MessageActivity    = "activity"
)

// Server → client message types.
const (
	MessageConfiguration = "configuration"
	MessageUpdate        = "update"
)

// ClientMessage is the envelope of every inbound WebSocket frame.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// QuadrantPayload is the payload of subscribe and unsubscribe messages.
type QuadrantPayload struct {
	QuadrantID *int `json:"quadrant_id"`
}

// DrawPayload is the payload of a draw message. Every field is required.
type DrawPayload struct {
	X     *int `json:"x"`
	Y     *int `json:"y"`
	Color *int `json:"color"`
}

// Event converts the payload into a DrawEvent, failing with
// ErrSerialization when a field is missing.
func (p DrawPayload) Event() (DrawEvent, error) {
	if p.X == nil || p.Y == nil || p.Color == nil {
		return DrawEvent{}, fmt.Errorf("%w: x, y and color are required", ErrSerialization)
	}
	return DrawEvent{X: *p.X, Y: *p.Y, Color: *p.Color}, nil
}

// UpdateMessage is broadcast once per persisted draw. The same bytes are
// used as the broker payload in decoupled mode.
type UpdateMessage struct {
	Type  string `json:"type"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color int    `json:"color"`
}

// ConfigurationMessage is the first message every connection receives.
type ConfigurationMessage struct {
	Type         string     `json:"type"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	QuadrantSize int        `json:"quadrant_size"`
	Quadrants    []Quadrant `json:"quadrants"`
}

// EncodeUpdate serializes the update envelope for a draw event.
func EncodeUpdate(e DrawEvent) ([]byte, error) {
	data, err := json.Marshal(UpdateMessage{Type: MessageUpdate, X: e.X, Y: e.Y, Color: e.Color})
	if err != nil {
		return nil, fmt.Errorf("%w: encode update: %w", ErrSerialization, err)
	}
	return data, nil
}

// DecodeUpdate parses an update envelope received from the broker.
func DecodeUpdate(data []byte) (DrawEvent, error) {
	var msg UpdateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return DrawEvent{}, fmt.Errorf("%w: decode update: %w", ErrSerialization, err)
	}
	if msg.Type != MessageUpdate {
		return DrawEvent{}, fmt.Errorf("%w: unexpected message type %q", ErrSerialization, msg.Type)
	}
	return DrawEvent{X: msg.X, Y: msg.Y, Color: msg.Color}, nil
}

// DecodeClientMessage parses an inbound WebSocket frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if msg.Type == "" {
		return ClientMessage{}, fmt.Errorf("%w: missing message type", ErrSerialization)
	}
	return msg, nil
}

// EncodeConfiguration serializes the configuration message.
func EncodeConfiguration(msg ConfigurationMessage) ([]byte, error) {
	msg.Type = MessageConfiguration
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: encode configuration: %w", ErrSerialization, err)
	}
	return data, nil
}
