package renderer

import (
	"image/color"

	"github.com/thereceipt/cover-engine/internal/geometry"
)

var (
	trimLineColor = color.NRGBA{0, 255, 255, 179}
	safeLineColor = color.NRGBA{255, 0, 0, 128}
)

// drawGuidelines overlays the non-printing trim, fold and safe area lines.
func (p *pass) drawGuidelines() {
	dc := p.dc
	w, h := p.g.CanvasWidth, p.g.CanvasHeight

	dc.SetLineWidth(0.5 * p.zoom)
	dc.SetDash(3*p.zoom, 3*p.zoom)
	defer dc.SetDash()

	dc.SetColor(trimLineColor)
	xs, ys := p.g.FoldLines()
	for _, x := range xs {
		dc.DrawLine(x, 0, x, h)
		dc.Stroke()
	}
	for _, y := range ys {
		dc.DrawLine(0, y, w, y)
		dc.Stroke()
	}

	dc.SetColor(safeLineColor)
	for _, r := range []geometry.Rect{p.g.BackSafe(), p.g.SpineSafe(), p.g.FrontSafe()} {
		dc.DrawRectangle(r.X, r.Y, r.W, r.H)
		dc.Stroke()
	}
}
