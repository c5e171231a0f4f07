package layout

import (
	"math"

	"github.com/thereceipt/cover-engine/internal/geometry"
)

const (
	// SafetyBufferPercent is kept clear above the barcode region.
	SafetyBufferPercent = 10.0

	MinBlurbHeightPercent = 10.0
	MinBlurbOffsetPercent = -50.0
	MaxBlurbOffsetPercent = 100.0
	MaxBlurbHeightPercent = 100.0

	// DefaultBlurbHeightPercent is used when there is no text to measure.
	DefaultBlurbHeightPercent = 30.0

	// LineHeightFactor is the ratio of line height to font size for cover text.
	LineHeightFactor = 1.2
)

// BarcodeConstraints expresses the protected barcode region as percentages of
// the back cover's trim height.
type BarcodeConstraints struct {
	WidthPercent           float64
	HeightPercent          float64
	MarginPercent          float64
	TopBoundaryPercent     float64
	MaxSafeVerticalPercent float64
}

// NewBarcodeConstraints derives the constraints for a trim size in inches.
func NewBarcodeConstraints(trimWidthIn, trimHeightIn float64) BarcodeConstraints {
	c := BarcodeConstraints{
		WidthPercent:  geometry.BarcodeWidthInches / trimWidthIn * 100,
		HeightPercent: geometry.BarcodeHeightInches / trimHeightIn * 100,
		MarginPercent: geometry.BarcodeMarginInches / trimHeightIn * 100,
	}
	c.TopBoundaryPercent = 100 - c.MarginPercent - c.HeightPercent
	c.MaxSafeVerticalPercent = c.TopBoundaryPercent - SafetyBufferPercent
	return c
}

// Box is a blurb box's vertical extent. Height is a percentage of trim height;
// YOffset moves the centre from the middle of the trim (0) towards the bottom
// edge (100) or the top (-100).
type Box struct {
	HeightPercent  float64 `json:"heightPercent"`
	YOffsetPercent float64 `json:"yOffsetPercent"`
}

// CenterPercent is the box centre as a percentage of trim height from the top.
func (b Box) CenterPercent() float64 { return 50 + 50*(b.YOffsetPercent/100) }

// BottomPercent is the box bottom edge as a percentage of trim height.
func (b Box) BottomPercent() float64 { return b.CenterPercent() + b.HeightPercent/2 }

// Safe reports whether b stays above the barcode safety buffer.
func (c BarcodeConstraints) Safe(b Box) bool {
	return b.BottomPercent() <= c.MaxSafeVerticalPercent
}

// Field names a blurb box value the user edited.
type Field string

const (
	FieldHeight  Field = "height"
	FieldYOffset Field = "yOffset"
)

// AutoPlace centres a box of the given height, moving it up only as far as
// the barcode buffer requires. If even the highest position is unsafe the
// height is reduced. ok is false when no box of at least the minimum height
// fits on this trim.
func (c BarcodeConstraints) AutoPlace(heightPercent float64) (Box, bool) {
	b := Box{HeightPercent: clamp(heightPercent, MinBlurbHeightPercent, MaxBlurbHeightPercent)}
	if c.Safe(b) {
		return b, true
	}

	maxOffset := (c.MaxSafeVerticalPercent - b.HeightPercent/2 - 50) * 100 / 50
	b.YOffsetPercent = clamp(math.Floor(maxOffset), MinBlurbOffsetPercent, 0)

	for !c.Safe(b) && b.HeightPercent > MinBlurbHeightPercent {
		b.HeightPercent = math.Max(b.HeightPercent-1, MinBlurbHeightPercent)
	}
	return b, c.Safe(b)
}

// SolveManual corrects a user-entered box. The edited field is searched first,
// downward in whole percentage steps, then the other field. The returned box
// is what the caller should store in place of the proposal.
func (c BarcodeConstraints) SolveManual(proposed Box, edited Field) (Box, bool) {
	b := Box{
		HeightPercent:  clamp(proposed.HeightPercent, MinBlurbHeightPercent, MaxBlurbHeightPercent),
		YOffsetPercent: clamp(proposed.YOffsetPercent, MinBlurbOffsetPercent, MaxBlurbOffsetPercent),
	}
	if c.Safe(b) {
		return b, true
	}

	order := []Field{FieldHeight, FieldYOffset}
	if edited == FieldYOffset {
		order = []Field{FieldYOffset, FieldHeight}
	}
	for _, f := range order {
		if c.lower(&b, f) {
			return b, true
		}
	}
	return b, false
}

// lower steps one field down until b is safe or the field hits its floor.
func (c BarcodeConstraints) lower(b *Box, f Field) bool {
	for !c.Safe(*b) {
		switch f {
		case FieldHeight:
			if b.HeightPercent <= MinBlurbHeightPercent {
				return false
			}
			b.HeightPercent = math.Max(b.HeightPercent-1, MinBlurbHeightPercent)
		case FieldYOffset:
			if b.YOffsetPercent <= MinBlurbOffsetPercent {
				return false
			}
			b.YOffsetPercent = math.Max(b.YOffsetPercent-1, MinBlurbOffsetPercent)
		default:
			return false
		}
	}
	return true
}

// BlurbText describes the text a blurb box must hold.
type BlurbText struct {
	Text          string
	Measurer      Measurer // set to the blurb face at the preview size
	FontSize      float64
	Padding       float64
	MarginPercent float64
}

// AutoHeightPercent measures t inside a box spanning trim width less the
// symmetric margins and returns the box height needed, as a whole percentage
// of trim height, never below the minimum.
func AutoHeightPercent(t BlurbText, trimWidthPx, trimHeightPx float64) float64 {
	if t.Text == "" || t.Measurer == nil || trimHeightPx <= 0 {
		return DefaultBlurbHeightPercent
	}
	boxWidth := trimWidthPx * (1 - 2*t.MarginPercent/100)
	textWidth := boxWidth - 2*t.Padding
	textHeight := Height(t.Text, t.Measurer, textWidth, t.FontSize*LineHeightFactor)
	percent := (textHeight + 2*t.Padding) / trimHeightPx * 100
	return math.Max(MinBlurbHeightPercent, math.Round(percent))
}

// BoxRect converts a box to pixels inside the back cover trim rectangle.
func BoxRect(trim geometry.Rect, marginPercent float64, b Box) geometry.Rect {
	margin := trim.W * marginPercent / 100
	h := trim.H * b.HeightPercent / 100
	centerY := trim.Y + trim.H/2 + (trim.H/2)*(b.YOffsetPercent/100)
	return geometry.Rect{X: trim.X + margin, Y: centerY - h/2, W: trim.W - 2*margin, H: h}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
