package renderer

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/geometry"
)

// Fill paints a panel background into r, in the context's user space.
type Fill interface {
	Paint(dc *gg.Context, r geometry.Rect)
}

// FlatFill is a single colour.
type FlatFill struct {
	Color color.Color
}

func (f FlatFill) Paint(dc *gg.Context, r geometry.Rect) {
	dc.SetColor(f.Color)
	dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	dc.Fill()
}

// GradientFill is a two-stop linear gradient from the top (vertical) or left
// (horizontal) edge of the rectangle.
type GradientFill struct {
	Gradient coverformat.Gradient
}

func (f GradientFill) Paint(dc *gg.Context, r geometry.Rect) {
	x1, y1 := r.X, r.Bottom()
	if f.Gradient.Direction == coverformat.Horizontal {
		x1, y1 = r.Right(), r.Y
	}
	// gg evaluates gradients in device space
	dx0, dy0 := dc.TransformPoint(r.X, r.Y)
	dx1, dy1 := dc.TransformPoint(x1, y1)

	g := gg.NewLinearGradient(dx0, dy0, dx1, dy1)
	g.AddColorStop(0, f.Gradient.Start)
	g.AddColorStop(1, f.Gradient.End)
	dc.SetFillStyle(g)
	dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	dc.Fill()
}

// ImageFill covers the rectangle with an image, cropping the longer axis
// symmetrically. Zoom is the device pixels per user unit, so the image is
// resampled once at the size it is displayed.
type ImageFill struct {
	Image image.Image
	Zoom  float64
}

func (f ImageFill) Paint(dc *gg.Context, r geometry.Rect) {
	if f.Image == nil || r.W <= 0 || r.H <= 0 {
		return
	}
	zoom := f.Zoom
	if zoom <= 0 {
		zoom = 1
	}

	cropped := imaging.Crop(f.Image, coverRect(f.Image.Bounds(), r.W/r.H))
	w := max(1, int(math.Ceil(r.W*zoom)))
	h := max(1, int(math.Ceil(r.H*zoom)))
	resized := imaging.Resize(cropped, w, h, imaging.Lanczos)

	dc.Push()
	dc.Translate(r.X, r.Y)
	dc.Scale(r.W/float64(w), r.H/float64(h))
	dc.DrawImage(resized, 0, 0)
	dc.Pop()
}

// coverRect returns the centred region of bounds with the target aspect ratio
// (width / height). Only one axis is ever cropped.
func coverRect(bounds image.Rectangle, aspect float64) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w <= 0 || h <= 0 || aspect <= 0 {
		return bounds
	}

	sx, sy, sw, sh := 0.0, 0.0, w, h
	switch imgAspect := w / h; {
	case imgAspect > aspect:
		sw = h * aspect
		sx = (w - sw) / 2
	case imgAspect < aspect:
		sh = w / aspect
		sy = (h - sh) / 2
	}

	x0 := bounds.Min.X + int(math.Round(sx))
	y0 := bounds.Min.Y + int(math.Round(sy))
	return image.Rect(x0, y0, x0+max(1, int(math.Round(sw))), y0+max(1, int(math.Round(sh))))
}

// resolveFill picks the fill for a background. ok is false when the
// background needs an image that is not loaded; the returned fill is then the
// flat placeholder colour.
func resolveFill(bg coverformat.Background, images map[string]image.Image, factor, zoom float64) (Fill, bool) {
	switch bg.Kind {
	case coverformat.BackgroundGradient:
		return GradientFill{Gradient: bg.Gradient}, true
	case coverformat.BackgroundPattern:
		return PatternFill{Pattern: bg.Pattern, Factor: factor, Zoom: zoom}, true
	case coverformat.BackgroundImage:
		if img, found := images[bg.ImageRef]; found && img != nil {
			return ImageFill{Image: img, Zoom: zoom}, true
		}
		return FlatFill{Color: bg.Color}, false
	default:
		return FlatFill{Color: bg.Color}, true
	}
}
