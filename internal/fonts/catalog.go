package fonts

import (
	"slices"
	"strings"
)

// Weight is a CSS numeric font weight.
type Weight int

const (
	Regular  Weight = 400
	Medium   Weight = 500
	SemiBold Weight = 600
	Bold     Weight = 700
)

// Family describes a font family offered to authors.
type Family struct {
	Name       string
	GoogleName string // Google Fonts query name, empty for system fonts
	Weights    []Weight
	Generic    string // "serif", "sans-serif", "monospace" or "cursive"
}

// System reports whether the family is expected to be installed locally
// rather than downloaded.
func (f Family) System() bool { return f.GoogleName == "" }

// Catalog lists the families the editor offers.
var Catalog = []Family{
	{Name: "Arial", Weights: []Weight{Regular, Bold}, Generic: "sans-serif"},
	{Name: "Verdana", Weights: []Weight{Regular, Bold}, Generic: "sans-serif"},
	{Name: "Times New Roman", Weights: []Weight{Regular, Bold}, Generic: "serif"},
	{Name: "Georgia", Weights: []Weight{Regular, Bold}, Generic: "serif"},
	{Name: "Courier New", Weights: []Weight{Regular, Bold}, Generic: "monospace"},

	{Name: "Crimson Text", GoogleName: "Crimson+Text", Weights: []Weight{Regular, SemiBold, Bold}, Generic: "serif"},
	{Name: "Inter", GoogleName: "Inter", Weights: []Weight{Regular, Medium, SemiBold, Bold}, Generic: "sans-serif"},
	{Name: "Open Sans", GoogleName: "Open+Sans", Weights: []Weight{Regular, SemiBold, Bold}, Generic: "sans-serif"},
	{Name: "Montserrat", GoogleName: "Montserrat", Weights: []Weight{Regular, Medium, SemiBold, Bold}, Generic: "sans-serif"},
	{Name: "Playfair Display", GoogleName: "Playfair+Display", Weights: []Weight{Regular, Bold}, Generic: "serif"},
	{Name: "Lora", GoogleName: "Lora", Weights: []Weight{Regular, Bold}, Generic: "serif"},
	{Name: "Merriweather", GoogleName: "Merriweather", Weights: []Weight{Regular, Bold}, Generic: "serif"},
	{Name: "Roboto Slab", GoogleName: "Roboto+Slab", Weights: []Weight{Regular, Bold}, Generic: "serif"},
	{Name: "Libre Baskerville", GoogleName: "Libre+Baskerville", Weights: []Weight{Regular, Bold}, Generic: "serif"},
	{Name: "PT Serif", GoogleName: "PT+Serif", Weights: []Weight{Regular, Bold}, Generic: "serif"},
	{Name: "Poppins", GoogleName: "Poppins", Weights: []Weight{Regular, Medium, SemiBold, Bold}, Generic: "sans-serif"},
	{Name: "Nunito", GoogleName: "Nunito", Weights: []Weight{Regular, SemiBold, Bold}, Generic: "sans-serif"},
	{Name: "Source Sans 3", GoogleName: "Source+Sans+3", Weights: []Weight{Regular, SemiBold, Bold}, Generic: "sans-serif"},
	{Name: "Oswald", GoogleName: "Oswald", Weights: []Weight{Regular, SemiBold}, Generic: "sans-serif"},
	{Name: "Dancing Script", GoogleName: "Dancing+Script", Weights: []Weight{Regular, Bold}, Generic: "cursive"},
}

// CommonFamilies are preloaded at startup.
var CommonFamilies = []string{
	"Crimson Text", "Inter", "Open Sans", "Playfair Display",
	"Lora", "Merriweather", "Montserrat", "Poppins",
}

// DefaultFamily is used when a family name cannot be matched.
const DefaultFamily = "Arial"

// Lookup returns the catalog entry for an exact family name.
func Lookup(name string) (Family, bool) {
	i := slices.IndexFunc(Catalog, func(f Family) bool { return strings.EqualFold(f.Name, name) })
	if i < 0 {
		return Family{}, false
	}
	return Catalog[i], true
}

// Normalize maps a CSS font-family value such as "Inter, sans-serif" or a
// generated "__Playfair_Display_a1b2c3" class name to a catalog family.
// Unmatched values fall back by generic family, then to DefaultFamily.
func Normalize(css string) string {
	v := strings.ToLower(strings.TrimSpace(css))
	if v == "" {
		return DefaultFamily
	}

	for _, f := range Catalog {
		name := strings.ToLower(f.Name)
		if strings.Contains(v, name) ||
			strings.Contains(v, strings.ReplaceAll(name, " ", "_")) ||
			strings.Contains(v, strings.ReplaceAll(name, " ", "-")) {
			return f.Name
		}
	}

	switch {
	case strings.Contains(v, "sans-serif"):
		return "Arial"
	case strings.Contains(v, "serif"):
		return "Times New Roman"
	case strings.Contains(v, "monospace"):
		return "Courier New"
	}
	return DefaultFamily
}

// NearestWeight picks the closest weight the family offers, preferring the
// heavier of two equally close weights.
func (f Family) NearestWeight(w Weight) Weight {
	if len(f.Weights) == 0 {
		return Regular
	}
	best := f.Weights[0]
	for _, candidate := range f.Weights[1:] {
		d, bd := abs(int(candidate-w)), abs(int(best-w))
		if d < bd || (d == bd && candidate > best) {
			best = candidate
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
