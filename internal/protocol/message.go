package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	TypeEvent = "event"

	OpScriptLaunched = "script.launched"
	OpScriptFailed   = "script.failed"
)

// Message is the frame pushed to websocket subscribers.
type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload"`
	Error   *ErrPayload     `json:"error,omitempty"`
}

type ErrPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func MustRaw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func NewEvent(seq uint64, op string, payload any) Message {
	return Message{
		ID:      fmt.Sprintf("evt_%d", seq),
		Type:    TypeEvent,
		Op:      op,
		Payload: MustRaw(payload),
	}
}

// DecodeEvent parses a frame and rejects anything that is not an event.
func DecodeEvent(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type != TypeEvent {
		return Message{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	return msg, nil
}
