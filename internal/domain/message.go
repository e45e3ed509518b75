package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned when a frame is not a JSON envelope
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownEvent is returned for event names outside the protocol
	ErrUnknownEvent = errors.New("unknown event")
)

// Event names the four protocol messages
type Event string

const (
	EventClientReady    Event = "client-ready"                // client -> relay, no payload
	EventGetCanvasState Event = "get-canvas-state"            // relay -> client, no payload
	EventStateToServer  Event = "sending-app-state-to-server" // client -> relay, snapshot
	EventStateToClient  Event = "sending-app-state-to-client" // relay -> client, snapshot
)

// FromClient reports whether clients may send this event to the relay
func (e Event) FromClient() bool {
	return e == EventClientReady || e == EventStateToServer
}

// FromRelay reports whether the relay may send this event to clients
func (e Event) FromRelay() bool {
	return e == EventGetCanvasState || e == EventStateToClient
}

// Frame is the envelope of every WebSocket text message
type Frame struct {
	Type    Event           `json:"type"`
	ID      string          `json:"id,omitempty"` // stamped by the relay
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewSnapshotFrame wraps a snapshot in a frame of the given event
func NewSnapshotFrame(event Event, snap Snapshot) (Frame, error) {
	payload, err := json.Marshal(snap.Normalize())
	if err != nil {
		return Frame{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return Frame{Type: event, Payload: payload}, nil
}

// ParseFrame decodes and checks a raw frame
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !f.Type.FromClient() && !f.Type.FromRelay() {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Type)
	}
	return f, nil
}

// Snapshot decodes the frame payload permissively
func (f Frame) Snapshot() (Snapshot, int) {
	return DecodeSnapshot(f.Payload)
}
