package geometry

import "fmt"

// PaperType identifies the interior stock, which sets per-page thickness.
type PaperType string

const (
	PaperWhite PaperType = "white"
	PaperCream PaperType = "cream"
)

// SpineTable holds the constants of one spine-width formula. Every value is
// in millimeters.
type SpineTable struct {
	Name       string
	WhitePerMM float64 // per page
	CreamPerMM float64 // per page
	CoverMM    float64
	MinimumMM  float64
}

// KDP is the canonical table: per-page thickness in millimeters plus the
// fixed 0.0102in cover allowance.
var KDP = SpineTable{
	Name:       "kdp",
	WhitePerMM: 0.0572,
	CreamPerMM: 0.0635,
	CoverMM:    0.0102 * MMPerInch,
	MinimumMM:  1,
}

// Legacy is the older inches-per-page table kept for projects that were laid
// out with it.
var Legacy = SpineTable{
	Name:       "legacy",
	WhitePerMM: 0.002252 * MMPerInch,
	CreamPerMM: 0.0025 * MMPerInch,
	CoverMM:    0.0102 * MMPerInch,
	MinimumMM:  1,
}

// LookupTable returns the named spine table. An empty name selects KDP.
func LookupTable(name string) (SpineTable, error) {
	switch name {
	case "", KDP.Name:
		return KDP, nil
	case Legacy.Name:
		return Legacy, nil
	default:
		return SpineTable{}, fmt.Errorf("unknown spine table: %s (must be kdp or legacy)", name)
	}
}

// PerPageMM returns the page thickness for the paper type. Anything other
// than cream is treated as white.
func (t SpineTable) PerPageMM(paper PaperType) float64 {
	if paper == PaperCream {
		return t.CreamPerMM
	}
	return t.WhitePerMM
}

// SpineWidthMM computes the spine thickness for a page count. Non-positive
// page counts fall back to DefaultPageCount.
func (t SpineTable) SpineWidthMM(pageCount int, paper PaperType) float64 {
	if pageCount <= 0 {
		pageCount = DefaultPageCount
	}
	width := float64(pageCount)*t.PerPageMM(paper) + t.CoverMM
	if width < t.MinimumMM {
		return t.MinimumMM
	}
	return width
}
