package board

// Payload shapes for the engine's four message types. The draw-line payload
// is the Stroke itself; these cover the rest.

// CursorMovePayload is the body of a cursor-move broadcast.
type CursorMovePayload struct {
	UserID      string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	DisplayName string  `json:"displayName"`
}

// ReqStatePayload asks whoever the election names as host to publish the
// full board. Sent at most once per session by a joining client.
type ReqStatePayload struct {
	RequesterID string `json:"requesterId"`
}

// SyncStatePayload is the host's answer: its entire replication log. The
// receiver installs it wholesale, replacing anything it had.
type SyncStatePayload struct {
	Strokes []Stroke `json:"strokes"`
}
