// Package preview holds the zoom and pan state of an interactive cover view.
package preview

import (
	"errors"
	"fmt"
	"image"

	"github.com/thereceipt/cover-engine/internal/renderer"
)

const (
	// WheelSensitivity converts wheel delta to a change in scale.
	WheelSensitivity = 0.001

	// ZoomStep is the change applied by the zoom buttons.
	ZoomStep = 0.1

	// MaxViewportSide bounds each viewport dimension in device pixels.
	MaxViewportSide = 8192
)

// ErrInvalidViewport is returned by SetViewport for an empty or oversized
// viewport.
var ErrInvalidViewport = errors.New("invalid viewport")

// View is the transform from cover coordinates to the viewport:
// device = offset + scale * cover. The zero value is not ready for use;
// start from NewView.
type View struct {
	Scale    float64     `json:"scale"`
	OffsetX  float64     `json:"offsetX"`
	OffsetY  float64     `json:"offsetY"`
	Viewport image.Point `json:"-"`

	panning              bool
	panStartX, panStartY float64
}

// NewView returns an unscaled, unpanned view.
func NewView() View {
	return View{Scale: 1}
}

// SetViewport sets the device canvas size. Each side must be a whole number
// of pixels from 1 to MaxViewportSide.
func (v *View) SetViewport(w, h float64) error {
	if !(w >= 1 && w <= MaxViewportSide && h >= 1 && h <= MaxViewportSide) {
		return fmt.Errorf("%w: %vx%v (each side must be 1 to %d)", ErrInvalidViewport, w, h, MaxViewportSide)
	}
	v.Viewport = image.Pt(int(w), int(h))
	return nil
}

// ZoomAt applies a wheel event at cursor position (x, y) in viewport
// coordinates, keeping the cover point under the cursor fixed.
func (v *View) ZoomAt(x, y, deltaY float64) {
	scale := renderer.ClampScale(v.Scale)
	worldX := (x - v.OffsetX) / scale
	worldY := (y - v.OffsetY) / scale

	next := min(max(scale-deltaY*WheelSensitivity, renderer.MinScale), renderer.MaxScale)
	v.Scale = next
	v.OffsetX = x - worldX*next
	v.OffsetY = y - worldY*next
}

// ZoomIn raises the scale by one step. The offset is unchanged.
func (v *View) ZoomIn() {
	v.Scale = min(renderer.ClampScale(v.Scale)+ZoomStep, renderer.MaxScale)
}

// ZoomOut lowers the scale by one step. The offset is unchanged.
func (v *View) ZoomOut() {
	v.Scale = max(renderer.ClampScale(v.Scale)-ZoomStep, renderer.MinScale)
}

// Reset restores scale 1 and no offset, ending any pan.
func (v *View) Reset() {
	v.Scale = 1
	v.OffsetX, v.OffsetY = 0, 0
	v.panning = false
}

// BeginPan starts a drag at pointer position (x, y).
func (v *View) BeginPan(x, y float64) {
	v.panning = true
	v.panStartX = x - v.OffsetX
	v.panStartY = y - v.OffsetY
}

// PanTo moves the drag to (x, y). It reports false when no drag is active.
func (v *View) PanTo(x, y float64) bool {
	if !v.panning {
		return false
	}
	v.OffsetX = x - v.panStartX
	v.OffsetY = y - v.panStartY
	return true
}

// EndPan finishes a drag.
func (v *View) EndPan() {
	v.panning = false
}

// Panning reports whether a drag is active.
func (v *View) Panning() bool {
	return v.panning
}

// Target returns the render target for the current view.
func (v View) Target() renderer.Interactive {
	return renderer.Interactive{
		Scale:    renderer.ClampScale(v.Scale),
		OffsetX:  v.OffsetX,
		OffsetY:  v.OffsetY,
		Viewport: v.Viewport,
	}
}
