/*
Package board contains the synchronization engine for a shared drawing
surface: the local drawing state machine, the append-only replication log,
presence-based host election, the late-joiner catch-up exchange, and the
throttled cursor broadcaster.

The engine is transport-agnostic. It consumes a Transport (room-scoped
fire-and-forget broadcast plus a presence registry) and never constructs
one; rendering and widgets live entirely outside this package and observe
the engine through Hooks and the snapshot accessors.
*/
package board

// All clients draw in the same logical canvas space regardless of their
// physical display size.
const (
	CanvasWidth  = 1920.0
	CanvasHeight = 1080.0
)

// BackgroundColor is the board background. The eraser draws with it.
const BackgroundColor = "#ffffff"

// Default pen configuration for a fresh session.
const (
	DefaultPenColor = "#000000"
	DefaultPenWidth = 4.0

	// EraserWidth is deliberately wide; erasing is just painting the
	// background color over earlier strokes.
	EraserWidth = 40.0
)

// Point is one position in logical canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pen (or eraser) path. It grows point by point
// while the pointer is held and becomes immutable the instant it is
// committed; committed strokes are the unit of replication and always
// travel whole in a single draw-line message.
type Stroke struct {
	// ID is unique across all clients with no coordination (128-bit random).
	ID string `json:"id"`

	// AuthorID is the session id of the client that drew the stroke.
	AuthorID string `json:"authorId"`

	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Points []Point `json:"points"`
}

// Clone returns a deep copy, so a committed stroke can be handed out without
// sharing the points slice.
func (s Stroke) Clone() Stroke {
	out := s
	out.Points = make([]Point, len(s.Points))
	copy(out.Points, s.Points)
	return out
}

// IsEraser reports whether the stroke paints the background color.
func (s Stroke) IsEraser() bool {
	return s.Color == BackgroundColor
}
