/*
Package export renders a board snapshot to a file.

This file defines the PDF exporter. It replays the replication log in order
onto a landscape A4 page, so eraser strokes cover earlier ink exactly as
they do on screen.
*/
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"inkwire/internal/app/board"
)

// pageMargin is the unprinted border, in millimeters, around the canvas.
const pageMargin = 10.0

// ExportPDF writes the given strokes to a PDF file at path. The logical
// canvas is scaled to fit the page and centered, preserving aspect ratio.
func ExportPDF(path string, strokes []board.Stroke) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	pageW, pageH := pdf.GetPageSize()
	scale, offsetX, offsetY := canvasTransform(pageW, pageH)

	for _, stroke := range strokes {
		r, g, b := parseHexColor(stroke.Color)
		pdf.SetDrawColor(r, g, b)
		pdf.SetFillColor(r, g, b)
		pdf.SetLineWidth(stroke.Width * scale)

		if len(stroke.Points) == 1 {
			// a tap with no movement renders as a dot
			p := stroke.Points[0]
			pdf.Circle(offsetX+p.X*scale, offsetY+p.Y*scale, stroke.Width*scale/2, "F")
			continue
		}

		for i := 1; i < len(stroke.Points); i++ {
			prev := stroke.Points[i-1]
			cur := stroke.Points[i]
			pdf.Line(
				offsetX+prev.X*scale, offsetY+prev.Y*scale,
				offsetX+cur.X*scale, offsetY+cur.Y*scale,
			)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf %s: %w", path, err)
	}
	return nil
}

// canvasTransform maps logical canvas coordinates onto the printable page
// area: one uniform scale factor plus offsets that center the canvas.
func canvasTransform(pageW, pageH float64) (scale, offsetX, offsetY float64) {
	availW := pageW - 2*pageMargin
	availH := pageH - 2*pageMargin

	scale = availW / board.CanvasWidth
	if s := availH / board.CanvasHeight; s < scale {
		scale = s
	}

	offsetX = (pageW - board.CanvasWidth*scale) / 2
	offsetY = (pageH - board.CanvasHeight*scale) / 2
	return scale, offsetX, offsetY
}

// parseHexColor converts a "#rrggbb" string to RGB components. Malformed
// colors fall back to black rather than failing the whole export.
func parseHexColor(hexColor string) (r, g, b int) {
	s := strings.TrimPrefix(hexColor, "#")
	if len(s) != 6 {
		return 0, 0, 0
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0
	}

	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
