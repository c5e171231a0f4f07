package coverformat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/boombuler/barcode/ean"

	"github.com/thereceipt/cover-engine/internal/geometry"
)

// Validate validates a Project structure
func Validate(p *Project) error {
	// Validate version
	if p.Version == "" {
		return fmt.Errorf("version is required")
	}
	if p.Version != Version {
		return fmt.Errorf("unsupported version: %s (expected %s)", p.Version, Version)
	}

	if err := ValidateBook(&p.Book); err != nil {
		return fmt.Errorf("bookDetails: %w", err)
	}
	if err := ValidateDesign(&p.Design); err != nil {
		return fmt.Errorf("designData: %w", err)
	}

	return nil
}

// ValidateBook checks book metadata. Empty fields are left to engine defaults.
func ValidateBook(b *BookMetadata) error {
	if b.TrimSize != "" && !slices.Contains(geometry.SupportedTrimSizes, b.TrimSize) {
		return fmt.Errorf("invalid trimSize '%s' (must be %s)", b.TrimSize, strings.Join(geometry.SupportedTrimSizes, ", "))
	}
	if b.PageCount < 0 {
		return fmt.Errorf("pageCount must not be negative (got %d)", b.PageCount)
	}
	if b.PaperType != "" {
		if err := oneOf("paperType", b.PaperType, string(geometry.PaperWhite), string(geometry.PaperCream)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDesign checks every set field of a design record.
func ValidateDesign(d *DesignOptions) error {
	enums := []struct {
		name  string
		value string
		valid []string
	}{
		{"spineBackgroundType", d.SpineBackgroundType, []string{"flat", "gradient"}},
		{"spineGradientDirection", d.SpineGradientDirection, directions},
		{"backCoverBackgroundType", d.BackCoverBackgroundType, []string{"flat", "gradient", "pattern", "ai"}},
		{"backCoverGradientDirection", d.BackCoverGradientDirection, directions},
		{"backCoverPatternType", d.BackCoverPatternType, PatternTypes},
		{"backCoverPatternDirection", d.BackCoverPatternDirection, directions},
		{"backCoverTextAlign", d.BackCoverTextAlign, []string{"left", "center", "right", "justify"}},
		{"backCoverBlurbBoxSizing", d.BackCoverBlurbBoxSizing, []string{string(SizingAuto), string(SizingManual)}},
	}
	for _, e := range enums {
		if e.value == "" {
			continue
		}
		if err := oneOf(e.name, e.value, e.valid...); err != nil {
			return err
		}
	}

	colors := []struct {
		name  string
		value string
	}{
		{"spineColor", d.SpineColor},
		{"spineBackgroundColor", d.SpineBackgroundColor},
		{"spineGradientStartColor", d.SpineGradientStartColor},
		{"spineGradientEndColor", d.SpineGradientEndColor},
		{"backCoverBackgroundColor", d.BackCoverBackgroundColor},
		{"backCoverGradientStartColor", d.BackCoverGradientStartColor},
		{"backCoverGradientEndColor", d.BackCoverGradientEndColor},
		{"backCoverPatternColor1", d.BackCoverPatternColor1},
		{"backCoverPatternColor2", d.BackCoverPatternColor2},
		{"backCoverBlurbBoxFillColor", d.BackCoverBlurbBoxFillColor},
		{"backCoverTextColor", d.BackCoverTextColor},
	}
	for _, c := range colors {
		if c.value == "" {
			continue
		}
		if _, err := ParseColor(c.value); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}

	if d.SpineFontSize < 0 {
		return fmt.Errorf("spineFontSize must not be negative")
	}
	if d.BackCoverFontSize < 0 {
		return fmt.Errorf("backCoverFontSize must not be negative")
	}
	if d.BackCoverPatternScale < 0 {
		return fmt.Errorf("backCoverPatternScale must not be negative")
	}

	ranges := []struct {
		name   string
		value  *float64
		lo, hi float64
	}{
		{"backCoverBlurbBoxOpacity", d.BackCoverBlurbBoxOpacity, 0, 1},
		{"backCoverBlurbBoxCornerRadius", d.BackCoverBlurbBoxCornerRadius, 0, 500},
		{"backCoverBlurbBoxPadding", d.BackCoverBlurbBoxPadding, 0, 500},
		{"backCoverBlurbBoxLeftMarginPercent", d.BackCoverBlurbBoxLeftMarginPercent, 0, 45},
		{"backCoverBlurbBoxHeightPercent", d.BackCoverBlurbBoxHeightPercent, 0, 100},
		{"backCoverBlurbBoxYOffsetPercent", d.BackCoverBlurbBoxYOffsetPercent, -100, 100},
	}
	for _, r := range ranges {
		if r.value == nil {
			continue
		}
		if *r.value < r.lo || *r.value > r.hi {
			return fmt.Errorf("%s out of range: %g (must be between %g and %g)", r.name, *r.value, r.lo, r.hi)
		}
	}

	if d.BackCoverISBN != "" {
		if _, err := NormalizeISBN(d.BackCoverISBN); err != nil {
			return fmt.Errorf("backCoverISBN: %w", err)
		}
	}

	return nil
}

// NormalizeISBN strips separators from an ISBN-13 and checks it encodes as
// EAN-13. Twelve digits are accepted and completed with the check digit.
func NormalizeISBN(s string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, s)
	if len(digits) != 12 && len(digits) != 13 {
		return "", fmt.Errorf("invalid ISBN '%s' (must be 13 digits)", s)
	}
	code, err := ean.Encode(digits)
	if err != nil {
		return "", fmt.Errorf("invalid ISBN '%s': %w", s, err)
	}
	return code.Content(), nil
}

var directions = []string{"vertical", "horizontal"}

func oneOf(name, value string, valid ...string) error {
	if slices.Contains(valid, value) {
		return nil
	}
	return fmt.Errorf("invalid %s '%s' (must be %s)", name, value, strings.Join(valid, ", "))
}
