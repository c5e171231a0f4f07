// Package layout holds the resolution-independent typography of a cover:
// paragraph wrapping and alignment, spine autofit, and the blurb box solver.
// Nothing here draws; callers supply a Measurer backed by a real font face.
package layout

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
)

// Measurer reports the advance width and height of a string in the current
// font. *gg.Context satisfies it.
type Measurer interface {
	MeasureString(s string) (w, h float64)
}

// Align is a horizontal alignment mode.
type Align string

const (
	AlignLeft    Align = "left"
	AlignCenter  Align = "center"
	AlignRight   Align = "right"
	AlignJustify Align = "justify"
)

// ParseAlign maps a design value to an Align. Empty means left.
func ParseAlign(s string) (Align, error) {
	switch a := Align(s); a {
	case "":
		return AlignLeft, nil
	case AlignLeft, AlignCenter, AlignRight, AlignJustify:
		return a, nil
	default:
		return "", fmt.Errorf("invalid align '%s' (must be left, center, right, or justify)", s)
	}
}

// Block positions a run of text: the top-left origin, the wrapping width, the
// distance between baselines and the alignment.
type Block struct {
	X, Y       float64
	MaxWidth   float64
	LineHeight float64
	Align      Align
}

// Fragment is one piece of a line drawn at X. Justified lines are split into
// one fragment per word; every other line is a single fragment.
type Fragment struct {
	Text string
	X    float64
}

// Line is one visual line. Y is the top of the line box.
type Line struct {
	Text      string
	Y         float64
	Width     float64
	Fragments []Fragment

	Paragraph int
	Last      bool // last line of its paragraph
	Justified bool
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// Paragraphs splits text on explicit line breaks.
func Paragraphs(text string) []string {
	return lineBreak.Split(text, -1)
}

// Wrap breaks one paragraph into lines no wider than maxWidth. A word that is
// wider than maxWidth on its own occupies a line by itself.
func Wrap(paragraph string, m Measurer, maxWidth float64) []string {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if w, _ := m.MeasureString(candidate); w > maxWidth && current != "" {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

// Layout lays text out in b and yields one Line per visual line, top to
// bottom. Blank paragraphs advance by one line height and yield nothing;
// consecutive paragraphs are separated by an extra half line.
func Layout(text string, m Measurer, b Block) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		paragraphs := Paragraphs(text)
		y := b.Y
		for pi, paragraph := range paragraphs {
			if strings.TrimSpace(paragraph) == "" {
				y += b.LineHeight
				continue
			}

			lines := Wrap(paragraph, m, b.MaxWidth)
			for li, text := range lines {
				line := placeLine(text, m, b, li == len(lines)-1)
				line.Y = y
				line.Paragraph = pi
				if !yield(line) {
					return
				}
				y += b.LineHeight
			}

			if pi < len(paragraphs)-1 {
				y += b.LineHeight / 2
			}
		}
	}
}

// Lines collects Layout into a slice.
func Lines(text string, m Measurer, b Block) []Line {
	var out []Line
	for line := range Layout(text, m, b) {
		out = append(out, line)
	}
	return out
}

// Height returns the vertical extent Layout would use for text, in the same
// units as lineHeight.
func Height(text string, m Measurer, maxWidth, lineHeight float64) float64 {
	paragraphs := Paragraphs(text)
	total := 0.0
	for pi, paragraph := range paragraphs {
		if strings.TrimSpace(paragraph) == "" {
			total++
			continue
		}
		total += float64(len(Wrap(paragraph, m, maxWidth)))
		if pi < len(paragraphs)-1 {
			total += 0.5
		}
	}
	return total * lineHeight
}

func placeLine(text string, m Measurer, b Block, last bool) Line {
	width, _ := m.MeasureString(text)
	line := Line{Text: text, Width: width, Last: last}

	switch b.Align {
	case AlignCenter:
		line.Fragments = []Fragment{{Text: text, X: b.X + (b.MaxWidth-width)/2}}
	case AlignRight:
		line.Fragments = []Fragment{{Text: text, X: b.X + b.MaxWidth - width}}
	case AlignJustify:
		words := strings.Fields(text)
		if last || len(words) < 2 {
			line.Fragments = []Fragment{{Text: text, X: b.X}}
			break
		}
		space, _ := m.MeasureString(" ")
		extra := (b.MaxWidth - width) / float64(len(words)-1)
		x := b.X
		for _, word := range words {
			line.Fragments = append(line.Fragments, Fragment{Text: word, X: x})
			ww, _ := m.MeasureString(word)
			x += ww + space + extra
		}
		line.Justified = true
	default:
		line.Fragments = []Fragment{{Text: text, X: b.X}}
	}
	return line
}
