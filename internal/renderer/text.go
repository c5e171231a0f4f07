package renderer

import (
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/thereceipt/cover-engine/internal/fonts"
	"github.com/thereceipt/cover-engine/internal/layout"
)

type faceKey struct {
	family string
	size   float64
}

// faceCache holds the faces of one render. Faces are not safe for
// concurrent use, so they are never shared between renders.
type faceCache struct {
	registry *fonts.Registry
	faces    map[faceKey]font.Face
}

func newFaceCache(r *fonts.Registry) *faceCache {
	return &faceCache{registry: r, faces: make(map[faceKey]font.Face)}
}

func (c *faceCache) get(family string, size float64) font.Face {
	k := faceKey{family, size}
	if f, ok := c.faces[k]; ok {
		return f
	}
	f := c.registry.Face(family, fonts.Regular, size)
	c.faces[k] = f
	return f
}

// measure returns the advance width of text set in family at size.
func (c *faceCache) measure(family string) layout.SizedMeasure {
	return func(text string, size float64) float64 {
		return float64(font.MeasureString(c.get(family, size), text)) / 64
	}
}

// faceMeasurer measures with a face that is not attached to a context.
type faceMeasurer struct {
	face font.Face
}

func (m faceMeasurer) MeasureString(s string) (float64, float64) {
	return float64(font.MeasureString(m.face, s)) / 64, float64(m.face.Metrics().Height) / 64
}

func ascent(f font.Face) float64 {
	return float64(f.Metrics().Ascent) / 64
}

// drawBlock draws text laid out in b, treating each line's Y as the top of
// its line box.
func drawBlock(dc *gg.Context, face font.Face, text string, b layout.Block) {
	dc.SetFontFace(face)
	a := ascent(face)
	for line := range layout.Layout(text, dc, b) {
		for _, frag := range line.Fragments {
			dc.DrawString(frag.Text, frag.X, line.Y+a)
		}
	}
}
