package layout

import "strings"

const (
	// SpineMinFontSize is the smallest size autofit will shrink to, at the
	// preview resolution.
	SpineMinFontSize = 5.0

	// spineNameOffset places title and author a quarter of the trim height
	// either side of the spine centre.
	spineNameOffset = 0.25
)

// SpinePlacement is one string drawn along the rotated spine. Offset is the
// distance from the spine centre along the spine, in pixels; negative values
// are towards the top of the book.
type SpinePlacement struct {
	Text   string
	Offset float64
}

// SpineText returns the string used to size spine text: "Title - Author",
// whichever name is present, or the "Title - Author" placeholder when both
// are missing. A non-empty override wins.
func SpineText(title, author, override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	switch {
	case title != "" && author != "":
		return title + " - " + author
	case title != "":
		return title
	case author != "":
		return author
	default:
		return "Title - Author"
	}
}

// SpinePlacements decides where the spine strings go. With both names present
// they are placed at -25% (title) and +25% (author) of trimHeight; otherwise
// a single string is centred. Nothing is placed when both names are missing
// and there is no override.
func SpinePlacements(title, author, override string, trimHeight float64) []SpinePlacement {
	if o := strings.TrimSpace(override); o != "" {
		return []SpinePlacement{{Text: o}}
	}
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	switch {
	case title != "" && author != "":
		return []SpinePlacement{
			{Text: title, Offset: -spineNameOffset * trimHeight},
			{Text: author, Offset: spineNameOffset * trimHeight},
		}
	case title != "":
		return []SpinePlacement{{Text: title}}
	case author != "":
		return []SpinePlacement{{Text: author}}
	default:
		return nil
	}
}

// SizedMeasure measures text set at size.
type SizedMeasure func(text string, size float64) float64

// SpineFit is the outcome of Autofit.
type SpineFit struct {
	Size      float64
	Width     float64 // measured width of the candidate at Size
	Shrunk    bool    // size was reduced to fit the length
	Floored   bool    // the length search hit the minimum size
	Capped    bool    // size was limited by spine thickness
	Available float64
}

// Autofit picks the largest size no greater than requested at which text fits
// in length, stepping down by step and stopping at floor, then caps the result
// at thickness so the rotated glyphs stay inside the spine.
func Autofit(text string, requested, length, thickness, step, floor float64, measure SizedMeasure) SpineFit {
	if step <= 0 {
		step = 1
	}
	if floor > requested {
		floor = requested
	}
	fit := SpineFit{Size: requested, Available: length}

	if measure(text, requested) > length {
		fit.Shrunk = true
		size := requested
		for size > floor {
			if measure(text, size) <= length {
				break
			}
			size -= step
		}
		if size <= floor {
			size = floor
			fit.Floored = measure(text, floor) > length
		}
		fit.Size = size
	}

	if fit.Size > thickness {
		fit.Size = thickness
		fit.Capped = true
	}
	fit.Width = measure(text, fit.Size)
	return fit
}
