// Package geometry computes the physical and pixel layout of a wraparound
// paperback cover: trim, bleed, spine width and the derived panel rectangles.
package geometry

import (
	"math"
	"strconv"
	"strings"
)

const (
	// MMPerInch converts millimeters to inches.
	MMPerInch = 25.4

	// PreviewPPI is the resolution the interactive preview is laid out at.
	PreviewPPI = 72

	BleedInches            = 0.125
	SafeMarginCoverInches  = 0.25
	SafeMarginSpineInches  = 0.0625
	SpineTextInsetInches   = 0.125
	BarcodeWidthInches     = 2.0
	BarcodeHeightInches    = 1.2
	BarcodeMarginInches    = 0.25
	DefaultTrimWidth       = 6.0
	DefaultTrimHeight      = 9.0
	DefaultPageCount       = 100
	minimumSpineTextLength = 1.0
)

// SupportedTrimSizes lists the trim sizes offered to authors.
var SupportedTrimSizes = []string{"5x8", "5.25x8", "5.5x8.5", "6x9"}

// Rect is an axis-aligned rectangle in device pixels.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the centre point.
func (r Rect) Center() (float64, float64) { return r.X + r.W/2, r.Y + r.H/2 }

// Inset shrinks the rectangle by dx on the left and right and dy on the top
// and bottom.
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Book is the subset of book metadata that drives geometry.
type Book struct {
	PageCount int
	TrimSize  string
	PaperType PaperType
}

// Geometry is the derived layout for one render. All pixel values are at PPI.
type Geometry struct {
	PPI          float64
	TrimWidthIn  float64
	TrimHeightIn float64
	SpineWidthMM float64

	Bleed        float64
	TrimWidth    float64
	TrimHeight   float64
	SpineWidth   float64
	CanvasWidth  float64
	CanvasHeight float64
}

// ParseTrimSize parses "WxH" in inches. ok is false when either side is not
// a positive number.
func ParseTrimSize(s string) (w, h float64, ok bool) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, errW := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errW != nil || errH != nil || !(w > 0) || !(h > 0) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return 0, 0, false
	}
	return w, h, true
}

// TrimOrDefault parses a trim size, falling back to 6x9.
func TrimOrDefault(s string) (w, h float64) {
	if w, h, ok := ParseTrimSize(s); ok {
		return w, h
	}
	return DefaultTrimWidth, DefaultTrimHeight
}

// Compute derives the geometry of a cover at the given resolution.
func Compute(book Book, ppi float64, table SpineTable) Geometry {
	if ppi <= 0 {
		ppi = PreviewPPI
	}
	trimW, trimH := TrimOrDefault(book.TrimSize)
	spineMM := table.SpineWidthMM(book.PageCount, book.PaperType)

	g := Geometry{
		PPI:          ppi,
		TrimWidthIn:  trimW,
		TrimHeightIn: trimH,
		SpineWidthMM: spineMM,
		Bleed:        InchToPx(BleedInches, ppi),
		TrimWidth:    InchToPx(trimW, ppi),
		TrimHeight:   InchToPx(trimH, ppi),
		SpineWidth:   MMToPx(spineMM, ppi),
	}
	g.CanvasWidth = 2*g.TrimWidth + g.SpineWidth + 2*g.Bleed
	g.CanvasHeight = g.TrimHeight + 2*g.Bleed
	return g
}

// InchToPx converts inches to pixels.
func InchToPx(in, ppi float64) float64 { return in * ppi }

// MMToPx converts millimeters to pixels.
func MMToPx(mm, ppi float64) float64 { return mm / MMPerInch * ppi }

// Scale is the ratio of this geometry's resolution to the preview resolution.
func (g Geometry) Scale() float64 { return g.PPI / PreviewPPI }

// Px converts inches to pixels at this geometry's resolution.
func (g Geometry) Px(in float64) float64 { return InchToPx(in, g.PPI) }

// CanvasSize returns the integer canvas dimensions, rounded up.
func (g Geometry) CanvasSize() (int, int) {
	return int(math.Ceil(g.CanvasWidth - 1e-9)), int(math.Ceil(g.CanvasHeight - 1e-9))
}

// SpineWidthInches returns the spine thickness in inches.
func (g Geometry) SpineWidthInches() float64 { return g.SpineWidthMM / MMPerInch }

// BackPanel is the back cover including its outer bleed.
func (g Geometry) BackPanel() Rect {
	return Rect{X: 0, Y: 0, W: g.TrimWidth + g.Bleed, H: g.CanvasHeight}
}

// SpinePanel spans the full canvas height between the two folds.
func (g Geometry) SpinePanel() Rect {
	return Rect{X: g.TrimWidth + g.Bleed, Y: 0, W: g.SpineWidth, H: g.CanvasHeight}
}

// FrontPanel is the front cover including its outer bleed.
func (g Geometry) FrontPanel() Rect {
	return Rect{X: g.TrimWidth + g.Bleed + g.SpineWidth, Y: 0, W: g.TrimWidth + g.Bleed, H: g.CanvasHeight}
}

// BackTrim is the back cover's trim box.
func (g Geometry) BackTrim() Rect {
	return Rect{X: g.Bleed, Y: g.Bleed, W: g.TrimWidth, H: g.TrimHeight}
}

// SpineTrim is the spine's trim box.
func (g Geometry) SpineTrim() Rect {
	p := g.SpinePanel()
	return Rect{X: p.X, Y: g.Bleed, W: p.W, H: g.TrimHeight}
}

// FrontTrim is the front cover's trim box.
func (g Geometry) FrontTrim() Rect {
	p := g.FrontPanel()
	return Rect{X: p.X, Y: g.Bleed, W: g.TrimWidth, H: g.TrimHeight}
}

// BackSafe is the back trim box less the cover safe margin.
func (g Geometry) BackSafe() Rect {
	m := g.Px(SafeMarginCoverInches)
	return g.BackTrim().Inset(m, m)
}

// SpineSafe is the spine trim box less the spine margin across and the cover
// margin along its length.
func (g Geometry) SpineSafe() Rect {
	return g.SpineTrim().Inset(g.Px(SafeMarginSpineInches), g.Px(SafeMarginCoverInches))
}

// FrontSafe is the front trim box less the cover safe margin.
func (g Geometry) FrontSafe() Rect {
	m := g.Px(SafeMarginCoverInches)
	return g.FrontTrim().Inset(m, m)
}

// Barcode is the protected region at the back cover's bottom-right trim
// corner.
func (g Geometry) Barcode() Rect {
	trim := g.BackTrim()
	w := g.Px(BarcodeWidthInches)
	h := g.Px(BarcodeHeightInches)
	m := g.Px(BarcodeMarginInches)
	return Rect{X: trim.Right() - m - w, Y: trim.Bottom() - m - h, W: w, H: h}
}

// SpineTextLength is the usable length along the spine for rotated text.
func (g Geometry) SpineTextLength() float64 {
	length := g.TrimHeight - 2*g.Px(SafeMarginSpineInches) - 2*g.Px(SpineTextInsetInches)
	return math.Max(length, minimumSpineTextLength)
}

// SpineTextThickness is the usable height of rotated text across the spine.
func (g Geometry) SpineTextThickness() float64 {
	return g.SpineWidth - 2*g.Px(SafeMarginSpineInches)
}

// FoldLines returns the x positions of the left trim, both spine folds and the
// right trim, followed by the y positions of the top and bottom trim.
func (g Geometry) FoldLines() (xs [4]float64, ys [2]float64) {
	back := g.BackPanel()
	xs = [4]float64{g.Bleed, back.W, back.W + g.SpineWidth, g.CanvasWidth - g.Bleed}
	ys = [2]float64{g.Bleed, g.CanvasHeight - g.Bleed}
	return xs, ys
}
