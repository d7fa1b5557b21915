/*
Package protocol defines the wire contract shared by the sync engine, the
websocket transport adapter, and the relay.

Every frame on the wire is an Envelope: a message type plus an opaque JSON
payload. The relay interprets only the control types (track, presence-sync)
and re-broadcasts everything else verbatim, so the engine's own message
payloads never leak into relay code.
*/
package protocol

import (
	"encoding/json"
	"fmt"
)

// Engine message types. Payload shapes are owned by the board package; the
// relay treats these as opaque broadcast traffic.
const (
	// TypeCursorMove carries a throttled pointer position update.
	TypeCursorMove = "cursor-move"

	// TypeDrawLine carries one complete committed stroke.
	TypeDrawLine = "draw-line"

	// TypeReqState asks the current host for the full board state.
	TypeReqState = "req-state"

	// TypeSyncState is the host's full-board answer to a req-state.
	TypeSyncState = "sync-state"
)

// Control message types, interpreted by the transport layer itself.
const (
	// TypeTrack publishes or updates the sender's presence record.
	TypeTrack = "track"

	// TypePresenceSync delivers the room's full presence state to a client.
	TypePresenceSync = "presence-sync"

	// TypeError carries a relay-side error to one client. Engines that do
	// not care simply drop it as an unknown type.
	TypeError = "error"
)

// Envelope is the single frame format used on the wire.
type Envelope struct {
	// Type identifies the message kind (see the Type* constants).
	Type string `json:"type"`

	// Payload is the type-specific body, left raw so intermediaries can
	// forward frames without understanding them.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload and wraps it in an Envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", msgType, err)
	}

	return Envelope{Type: msgType, Payload: raw}, nil
}

// Decode unmarshals the envelope payload into dst.
func (e Envelope) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// PresenceMeta is one tracked participant record. The client chooses JoinedAt
// once at session start and keeps it stable; the relay passes it through
// untouched, so host election sees the same value everywhere.
type PresenceMeta struct {
	// UserID is the session-stable identity of the participant. It is also
	// the authorId on every stroke the participant commits.
	UserID string `json:"userId"`

	// JoinedAt is the join instant in unix milliseconds.
	JoinedAt int64 `json:"joinedAt"`

	// DisplayName is the participant's current visible name.
	DisplayName string `json:"displayName"`
}

// PresenceState is the full presence registry of a room, grouped by user id.
// A group may carry several records for one user; consumers flatten the
// grouping however suits them.
type PresenceState map[string][]PresenceMeta

// ErrorPayload is the body of a TypeError frame.
type ErrorPayload struct {
	// Code is the application error code (see the errs package).
	Code int `json:"code"`

	// Message is a client-friendly description.
	Message string `json:"message"`
}
