package board

import "sync"

// Log is the replication log: the ordered sequence of committed strokes this
// client knows about. Nothing is ever edited or removed, with one exception:
// Replace swaps the whole sequence during catch-up.
//
// Appends happen only on the engine's run loop; the mutex exists so a
// renderer on another goroutine can take snapshots while the loop mutates.
type Log struct {
	mu      sync.RWMutex
	strokes []Stroke
}

// NewLog returns an empty replication log.
func NewLog() *Log {
	return &Log{}
}

// Append adds one committed stroke to the end of the log. It is called for
// locally committed strokes and for every draw-line received from a peer,
// in arrival order. No deduplication: each stroke id is broadcast at most
// once by its author, and duplicate delivery is a transport failure mode
// the log does not compensate for.
func (l *Log) Append(s Stroke) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.strokes = append(l.strokes, s)
}

// Replace discards the current sequence and installs strokes in its place.
// Only the catch-up exchange calls this; any strokes accumulated locally
// before the sync-state arrived are dropped with the old sequence.
func (l *Log) Replace(strokes []Stroke) {
	next := make([]Stroke, len(strokes))
	for i, s := range strokes {
		next[i] = s.Clone()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.strokes = next
}

// Snapshot returns a copy of the current sequence. Callers may hold or
// mutate the copy freely; it never aliases log-owned memory.
func (l *Log) Snapshot() []Stroke {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Stroke, len(l.strokes))
	for i, s := range l.strokes {
		out[i] = s.Clone()
	}
	return out
}

// Len reports the number of committed strokes.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.strokes)
}
