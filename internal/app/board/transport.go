package board

import "inkwire/internal/protocol"

// Transport is everything the engine requires from the underlying messaging
// service: room-scoped fire-and-forget broadcast and a presence registry.
// Whether that is a websocket relay or an in-process fake is irrelevant here.
//
// Broadcast delivery is at-most-once with no ordering between frames, and a
// broadcast conventionally does not echo back to its sender. A returned
// error means the frame was dropped locally; the engine logs and moves on,
// it never retries.
type Transport interface {
	// Broadcast sends env to every other room member. Fire and forget.
	Broadcast(env protocol.Envelope) error

	// Track publishes or updates this client's presence record.
	Track(meta protocol.PresenceMeta) error

	// Inbox yields envelopes broadcast by peers. Closed when the transport
	// shuts down.
	Inbox() <-chan protocol.Envelope

	// PresenceEvents yields the room's full presence state after every
	// join, leave, or record update. Closed when the transport shuts down.
	PresenceEvents() <-chan protocol.PresenceState
}
