package board

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestPenStateHoldsOneStrokeAtATime(t *testing.T) {
	var pen penState

	assert.Equal(t, false, pen.drawing())
	assert.Equal(t, true, pen.begin("s-1", "ann", PenTool(), 1, 1))
	assert.Equal(t, true, pen.drawing())

	// A second down while drawing is ignored.
	assert.Equal(t, false, pen.begin("s-2", "ann", PenTool(), 9, 9))

	assert.Equal(t, true, pen.extend(2, 2))
	assert.Equal(t, true, pen.extend(3, 3))

	done, ok := pen.finish()
	assert.Equal(t, true, ok)
	assert.Equal(t, "s-1", done.ID)
	assert.Equal(t, []Point{{1, 1}, {2, 2}, {3, 3}}, done.Points)
	assert.Equal(t, false, pen.drawing())
}

func TestPenStateIdleIgnoresMoveAndRelease(t *testing.T) {
	var pen penState

	assert.Equal(t, false, pen.extend(1, 1))

	_, ok := pen.finish()
	assert.Equal(t, false, ok)
}

func TestPenStateCarriesToolIntoStroke(t *testing.T) {
	var pen penState

	pen.begin("s-1", "ann", Tool{Color: "#ff8800", Width: 7}, 1, 1)
	done, _ := pen.finish()

	assert.Equal(t, "#ff8800", done.Color)
	assert.Equal(t, 7.0, done.Width)
	assert.Equal(t, "ann", done.AuthorID)
}

func TestEraserToolPaintsBackground(t *testing.T) {
	eraser := EraserTool()

	assert.Equal(t, BackgroundColor, eraser.Color)
	assert.Equal(t, EraserWidth, eraser.Width)

	var pen penState
	pen.begin("s-1", "ann", eraser, 1, 1)
	done, _ := pen.finish()
	assert.Equal(t, true, done.IsEraser())
}
