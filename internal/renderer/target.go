package renderer

import "image"

const (
	MinScale = 0.2
	MaxScale = 5.0

	// DefaultExportDPI is used when an Export target carries no resolution.
	DefaultExportDPI = 300
)

// Target selects how a cover is rendered. It is either Interactive or Export.
type Target interface {
	target()
}

// Interactive renders at the preview resolution under a view transform.
// Viewport is the device canvas size; when empty, the canvas is sized to the
// scaled cover.
type Interactive struct {
	Scale            float64
	OffsetX, OffsetY float64
	Viewport         image.Point
}

// Export renders a print-ready raster at DPI. Guidelines are never drawn.
type Export struct {
	DPI float64
}

func (Interactive) target() {}
func (Export) target()      {}

// ClampScale limits a zoom factor to the supported range.
func ClampScale(s float64) float64 {
	if !(s > 0) {
		return 1
	}
	return min(max(s, MinScale), MaxScale)
}
