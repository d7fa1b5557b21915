package board

import "sync"

// Cursor is the last known pointer position of one peer. Ephemeral: replaced
// on every cursor-move from that peer and dropped when the peer leaves
// presence. Never persisted, never ordered; stale-but-recent is fine.
type Cursor struct {
	UserID      string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	DisplayName string  `json:"displayName"`
}

// cursorTable keeps one last-write-wins Cursor per peer. Writes come from
// the engine loop; the mutex lets a renderer read concurrently.
type cursorTable struct {
	mu    sync.RWMutex
	peers map[string]Cursor
}

func newCursorTable() *cursorTable {
	return &cursorTable{peers: make(map[string]Cursor)}
}

// put replaces the stored cursor for c.UserID.
func (t *cursorTable) put(c Cursor) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.peers[c.UserID] = c
}

// retain drops every cursor whose peer is not in the live set.
func (t *cursorTable) retain(live map[string]struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := range t.peers {
		if _, ok := live[id]; !ok {
			delete(t.peers, id)
		}
	}
}

// all returns a copy of the current table.
func (t *cursorTable) all() []Cursor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Cursor, 0, len(t.peers))
	for _, c := range t.peers {
		out = append(out, c)
	}
	return out
}
