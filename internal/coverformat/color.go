package coverformat

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses a "#RGB" or "#RRGGBB" hex colour into an opaque RGBA.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(strings.ToLower(s))
	if err != nil || (len(s) != 4 && len(s) != 7) {
		return color.RGBA{}, fmt.Errorf("invalid colour '%s' (must be #RGB or #RRGGBB)", strings.TrimPrefix(s, "#"))
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// WithOpacity returns c with its alpha set to opacity in [0, 1], with the
// colour channels premultiplied as image/color requires.
func WithOpacity(c color.RGBA, opacity float64) color.RGBA {
	opacity = max(0, min(1, opacity))
	a := opacity * 255
	return color.RGBA{
		R: uint8(float64(c.R)*opacity + 0.5),
		G: uint8(float64(c.G)*opacity + 0.5),
		B: uint8(float64(c.B)*opacity + 0.5),
		A: uint8(a + 0.5),
	}
}

// Hex formats c as "#rrggbb", ignoring alpha.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func colorOr(s string, fallback color.RGBA) color.RGBA {
	if s == "" {
		return fallback
	}
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}
