// Package coverformat defines the types for the .cover project file format
package coverformat

import "github.com/thereceipt/cover-engine/internal/geometry"

// Version is the only project file version this package reads.
const Version = "1.0"

// Project represents the root structure of a .cover file
type Project struct {
	Version     string        `json:"version"`
	Name        string        `json:"name,omitempty"`
	CreatedWith string        `json:"created_with,omitempty"`
	Book        BookMetadata  `json:"bookDetails"`
	Design      DesignOptions `json:"designData"`
}

// BookMetadata describes the printed book the cover wraps
type BookMetadata struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	PageCount int    `json:"pageCount"`
	TrimSize  string `json:"trimSize"`  // "6x9", "5.5x8.5", ...
	PaperType string `json:"paperType"` // "white" or "cream"
}

// Geometry returns the fields that drive cover geometry.
func (b BookMetadata) Geometry() geometry.Book {
	return geometry.Book{
		PageCount: b.PageCount,
		TrimSize:  b.TrimSize,
		PaperType: geometry.PaperType(b.PaperType),
	}
}

// DesignOptions is the flat design record edited by the user. Every field is
// optional; Resolve fills in defaults. Pointer fields distinguish "unset" from
// a meaningful zero.
type DesignOptions struct {
	// Spine
	SpineText               string  `json:"spineText,omitempty"`
	SpineFont               string  `json:"spineFont,omitempty"`
	SpineFontSize           float64 `json:"spineFontSize,omitempty"`
	SpineColor              string  `json:"spineColor,omitempty"`
	SpineBackgroundColor    string  `json:"spineBackgroundColor,omitempty"`
	SpineBackgroundType     string  `json:"spineBackgroundType,omitempty"` // "flat" or "gradient"
	SpineGradientStartColor string  `json:"spineGradientStartColor,omitempty"`
	SpineGradientEndColor   string  `json:"spineGradientEndColor,omitempty"`
	SpineGradientDirection  string  `json:"spineGradientDirection,omitempty"`

	// Back cover background
	BackCoverBackgroundColor    string  `json:"backCoverBackgroundColor,omitempty"`
	BackCoverBackgroundType     string  `json:"backCoverBackgroundType,omitempty"` // "flat", "gradient", "pattern", "ai"
	BackCoverGradientStartColor string  `json:"backCoverGradientStartColor,omitempty"`
	BackCoverGradientEndColor   string  `json:"backCoverGradientEndColor,omitempty"`
	BackCoverGradientDirection  string  `json:"backCoverGradientDirection,omitempty"`
	BackCoverPatternType        string  `json:"backCoverPatternType,omitempty"`
	BackCoverPatternColor1      string  `json:"backCoverPatternColor1,omitempty"`
	BackCoverPatternColor2      string  `json:"backCoverPatternColor2,omitempty"`
	BackCoverPatternScale       float64 `json:"backCoverPatternScale,omitempty"`
	BackCoverPatternDirection   string  `json:"backCoverPatternDirection,omitempty"` // stripes only
	BackCoverAIPrompt           string  `json:"backCoverAIPrompt,omitempty"`
	BackCoverAIImageURL         string  `json:"backCoverAIImageURL,omitempty"`

	// Blurb box
	BackCoverBlurbEnableBox            bool     `json:"backCoverBlurbEnableBox,omitempty"`
	BackCoverBlurbBoxFillColor         string   `json:"backCoverBlurbBoxFillColor,omitempty"`
	BackCoverBlurbBoxOpacity           *float64 `json:"backCoverBlurbBoxOpacity,omitempty"`
	BackCoverBlurbBoxCornerRadius      *float64 `json:"backCoverBlurbBoxCornerRadius,omitempty"`
	BackCoverBlurbBoxPadding           *float64 `json:"backCoverBlurbBoxPadding,omitempty"`
	BackCoverBlurbBoxLeftMarginPercent *float64 `json:"backCoverBlurbBoxLeftMarginPercent,omitempty"`
	BackCoverBlurbBoxHeightPercent     *float64 `json:"backCoverBlurbBoxHeightPercent,omitempty"`
	BackCoverBlurbBoxYOffsetPercent    *float64 `json:"backCoverBlurbBoxYOffsetPercent,omitempty"`
	BackCoverBlurbBoxSizing            string   `json:"backCoverBlurbBoxSizing,omitempty"` // "auto" or "manual"

	// Legacy, migrated to the left margin on parse
	BackCoverBlurbBoxXOffsetPercent *float64 `json:"backCoverBlurbBoxXOffsetPercent,omitempty"`
	BackCoverBlurbBoxWidthPercent   *float64 `json:"backCoverBlurbBoxWidthPercent,omitempty"`

	// Back cover text
	BackCoverText      string  `json:"backCoverText,omitempty"`
	BackCoverFont      string  `json:"backCoverFont,omitempty"`
	BackCoverFontSize  float64 `json:"backCoverFontSize,omitempty"`
	BackCoverTextColor string  `json:"backCoverTextColor,omitempty"`
	BackCoverTextAlign string  `json:"backCoverTextAlign,omitempty"`

	// Barcode region content
	BackCoverISBN       string `json:"backCoverISBN,omitempty"`
	BackCoverBarcodeURL string `json:"backCoverBarcodeURL,omitempty"`

	// Front cover
	FrontCoverImageURL string `json:"frontCoverImageURL,omitempty"`
}

// Float returns a pointer to v, for building DesignOptions in code.
func Float(v float64) *float64 { return &v }
