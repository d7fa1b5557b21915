package board

// Tool is the current pen selection applied to new strokes.
type Tool struct {
	Color string
	Width float64
}

// PenTool returns the default drawing tool.
func PenTool() Tool {
	return Tool{Color: DefaultPenColor, Width: DefaultPenWidth}
}

// EraserTool returns the eraser: background paint with a wide tip. Erasing
// adds a stroke like any other; nothing is ever removed from the log.
func EraserTool() Tool {
	return Tool{Color: BackgroundColor, Width: EraserWidth}
}

type drawPhase int

const (
	phaseIdle drawPhase = iota
	phaseDrawing
)

// penState is the two-state drawing machine. At most one stroke is in
// progress per client; it lives here until the pointer is released (or
// leaves the surface, which counts as a release) and is then handed over
// for commit.
type penState struct {
	phase      drawPhase
	inProgress *Stroke
}

// begin starts a stroke at (x, y). A pointer-down while already drawing is
// ignored; the in-progress slot holds exactly one stroke.
func (p *penState) begin(id, authorID string, tool Tool, x, y float64) bool {
	if p.phase != phaseIdle {
		return false
	}

	p.phase = phaseDrawing
	p.inProgress = &Stroke{
		ID:       id,
		AuthorID: authorID,
		Color:    tool.Color,
		Width:    tool.Width,
		Points:   []Point{{X: x, Y: y}},
	}
	return true
}

// extend appends (x, y) to the in-progress stroke.
func (p *penState) extend(x, y float64) bool {
	if p.phase != phaseDrawing {
		return false
	}

	p.inProgress.Points = append(p.inProgress.Points, Point{X: x, Y: y})
	return true
}

// finish commits the in-progress stroke and clears the slot. The returned
// stroke is complete and immutable from here on: it is appended to the log
// and broadcast whole in a single message, never in parts.
func (p *penState) finish() (Stroke, bool) {
	if p.phase != phaseDrawing {
		return Stroke{}, false
	}

	done := *p.inProgress
	p.phase = phaseIdle
	p.inProgress = nil
	return done, true
}

// drawing reports whether a stroke is in progress.
func (p *penState) drawing() bool {
	return p.phase == phaseDrawing
}
