package coverformat

import (
	"image/color"

	"github.com/thereceipt/cover-engine/internal/layout"
)

// BackgroundKind tags the variant held by a Background.
type BackgroundKind string

const (
	BackgroundFlat     BackgroundKind = "flat"
	BackgroundGradient BackgroundKind = "gradient"
	BackgroundPattern  BackgroundKind = "pattern"
	BackgroundImage    BackgroundKind = "image"
)

// Direction orients gradients and stripes.
type Direction string

const (
	Vertical   Direction = "vertical"
	Horizontal Direction = "horizontal"
)

// PatternTypes lists the supported back cover patterns.
var PatternTypes = []string{
	"stripes", "dots", "checkerboard", "diagonal", "grid",
	"circles", "triangles", "hexagons", "waves", "diamonds",
}

// Sizing selects how the blurb box height and offset are chosen.
type Sizing string

const (
	SizingAuto   Sizing = "auto"
	SizingManual Sizing = "manual"
)

// Gradient is a two-stop linear gradient across a panel.
type Gradient struct {
	Start, End color.RGBA
	Direction  Direction
}

// Pattern is a repeating back cover pattern. Scale is in preview pixels.
type Pattern struct {
	Type           string
	Color1, Color2 color.RGBA
	Scale          float64
	Direction      Direction
}

// Background is one panel fill. Only the fields for Kind are meaningful;
// Color doubles as the placeholder when an image cannot be loaded.
type Background struct {
	Kind     BackgroundKind
	Color    color.RGBA
	Gradient Gradient
	Pattern  Pattern
	ImageRef string
}

// Font names a family as the user chose it and a size in preview pixels.
type Font struct {
	Family string
	Size   float64
}

// SpineStyle is the resolved spine design.
type SpineStyle struct {
	Background Background
	Font       Font
	Color      color.RGBA
	Text       string // override for the title/author candidate
}

// BackStyle is the resolved back cover design.
type BackStyle struct {
	Background Background
	Text       string
	Font       Font
	TextColor  color.RGBA
	Align      layout.Align
}

// BlurbStyle is the resolved blurb box. Lengths are in preview pixels.
type BlurbStyle struct {
	Enabled       bool
	Fill          color.RGBA
	Opacity       float64
	CornerRadius  float64
	Padding       float64
	MarginPercent float64
	Sizing        Sizing
	Box           layout.Box // stored values, used when Sizing is manual
}

// BarcodeStyle is the optional content of the protected barcode region.
type BarcodeStyle struct {
	ISBN string // normalized EAN-13, or empty
	URL  string // QR payload, used when ISBN is empty
}

// FrontStyle is the resolved front cover design.
type FrontStyle struct {
	ImageRef string
}

// Style is a design record with every default applied, grouped per panel.
// It is built once per render and never modified afterwards.
type Style struct {
	Spine   SpineStyle
	Back    BackStyle
	Blurb   BlurbStyle
	Barcode BarcodeStyle
	Front   FrontStyle
}

// Defaults applied by Resolve.
var (
	DefaultSpineBackground = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	DefaultBackBackground  = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	DefaultGradientStart   = color.RGBA{0xff, 0xff, 0xff, 0xff}
	DefaultGradientEnd     = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	DefaultPatternColor1   = color.RGBA{0xff, 0xff, 0xff, 0xff}
	DefaultPatternColor2   = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	DefaultTextColor       = color.RGBA{0x00, 0x00, 0x00, 0xff}
	DefaultBlurbFill       = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

const (
	DefaultFontFamily    = "Arial"
	DefaultSpineFontSize = 12.0
	DefaultBackFontSize  = 10.0
	DefaultPatternType   = "stripes"
	DefaultPatternScale  = 20.0

	DefaultBlurbOpacity       = 1.0
	DefaultBlurbCornerRadius  = 20.0
	DefaultBlurbPadding       = 15.0
	DefaultBlurbMarginPercent = 10.0
	DefaultBlurbYOffset       = 10.0
)

// Resolve applies defaults to a design record. Invalid values fall back to
// their defaults; Validate reports them at the file boundary instead.
func Resolve(d DesignOptions) Style {
	align, err := layout.ParseAlign(d.BackCoverTextAlign)
	if err != nil {
		align = layout.AlignLeft
	}

	s := Style{
		Spine: SpineStyle{
			Background: resolveSpineBackground(d),
			Font:       Font{Family: stringOr(d.SpineFont, DefaultFontFamily), Size: positiveOr(d.SpineFontSize, DefaultSpineFontSize)},
			Color:      colorOr(d.SpineColor, DefaultTextColor),
			Text:       d.SpineText,
		},
		Back: BackStyle{
			Background: resolveBackBackground(d),
			Text:       d.BackCoverText,
			Font:       Font{Family: stringOr(d.BackCoverFont, DefaultFontFamily), Size: positiveOr(d.BackCoverFontSize, DefaultBackFontSize)},
			TextColor:  colorOr(d.BackCoverTextColor, DefaultTextColor),
			Align:      align,
		},
		Blurb: BlurbStyle{
			Enabled:       d.BackCoverBlurbEnableBox,
			Fill:          colorOr(d.BackCoverBlurbBoxFillColor, DefaultBlurbFill),
			Opacity:       clampOr(d.BackCoverBlurbBoxOpacity, DefaultBlurbOpacity, 0, 1),
			CornerRadius:  clampOr(d.BackCoverBlurbBoxCornerRadius, DefaultBlurbCornerRadius, 0, 500),
			Padding:       clampOr(d.BackCoverBlurbBoxPadding, DefaultBlurbPadding, 0, 500),
			MarginPercent: clampOr(d.BackCoverBlurbBoxLeftMarginPercent, DefaultBlurbMarginPercent, 0, 45),
			Sizing:        SizingAuto,
			Box: layout.Box{
				HeightPercent:  clampOr(d.BackCoverBlurbBoxHeightPercent, layout.DefaultBlurbHeightPercent, 0, 100),
				YOffsetPercent: clampOr(d.BackCoverBlurbBoxYOffsetPercent, DefaultBlurbYOffset, -100, 100),
			},
		},
		Front: FrontStyle{ImageRef: d.FrontCoverImageURL},
	}

	if Sizing(d.BackCoverBlurbBoxSizing) == SizingManual {
		s.Blurb.Sizing = SizingManual
	}

	if isbn, err := NormalizeISBN(d.BackCoverISBN); err == nil {
		s.Barcode.ISBN = isbn
	} else {
		s.Barcode.URL = d.BackCoverBarcodeURL
	}

	return s
}

func resolveSpineBackground(d DesignOptions) Background {
	bg := Background{Kind: BackgroundFlat, Color: colorOr(d.SpineBackgroundColor, DefaultSpineBackground)}
	if d.SpineBackgroundType == string(BackgroundGradient) {
		bg.Kind = BackgroundGradient
		bg.Gradient = Gradient{
			Start:     colorOr(d.SpineGradientStartColor, DefaultGradientStart),
			End:       colorOr(d.SpineGradientEndColor, DefaultGradientEnd),
			Direction: directionOr(d.SpineGradientDirection),
		}
	}
	return bg
}

func resolveBackBackground(d DesignOptions) Background {
	bg := Background{Kind: BackgroundFlat, Color: colorOr(d.BackCoverBackgroundColor, DefaultBackBackground)}
	switch d.BackCoverBackgroundType {
	case "gradient":
		bg.Kind = BackgroundGradient
		bg.Gradient = Gradient{
			Start:     colorOr(d.BackCoverGradientStartColor, DefaultGradientStart),
			End:       colorOr(d.BackCoverGradientEndColor, DefaultGradientEnd),
			Direction: directionOr(d.BackCoverGradientDirection),
		}
	case "pattern":
		bg.Kind = BackgroundPattern
		patternType := d.BackCoverPatternType
		if oneOf("", patternType, PatternTypes...) != nil {
			patternType = DefaultPatternType
		}
		bg.Pattern = Pattern{
			Type:      patternType,
			Color1:    colorOr(d.BackCoverPatternColor1, DefaultPatternColor1),
			Color2:    colorOr(d.BackCoverPatternColor2, DefaultPatternColor2),
			Scale:     positiveOr(d.BackCoverPatternScale, DefaultPatternScale),
			Direction: directionOr(d.BackCoverPatternDirection),
		}
	case "ai":
		// Without a generated image the panel keeps its flat colour
		if d.BackCoverAIImageURL != "" {
			bg.Kind = BackgroundImage
			bg.ImageRef = d.BackCoverAIImageURL
		}
	}
	return bg
}

// ImageRefs lists the images a style draws, for loading ahead of a render.
func (s Style) ImageRefs() []string {
	var refs []string
	if s.Back.Background.Kind == BackgroundImage && s.Back.Background.ImageRef != "" {
		refs = append(refs, s.Back.Background.ImageRef)
	}
	if s.Front.ImageRef != "" {
		refs = append(refs, s.Front.ImageRef)
	}
	return refs
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func positiveOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func clampOr(v *float64, fallback, lo, hi float64) float64 {
	if v == nil {
		return fallback
	}
	return max(lo, min(hi, *v))
}

func directionOr(s string) Direction {
	if Direction(s) == Horizontal {
		return Horizontal
	}
	return Vertical
}
