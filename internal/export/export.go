// Package export packages a rendered cover raster as a print file.
package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/thereceipt/cover-engine/internal/geometry"
)

// Format is an export file format.
type Format string

const (
	PNG Format = "png"
	PDF Format = "pdf"
)

// ParseFormat validates a format name. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return PNG, nil
	case PNG, PDF:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format '%s' (must be png or pdf)", s)
	}
}

// Export resolutions accepted from callers. Zero selects the default.
const (
	MinDPI = 1
	MaxDPI = 1200
)

// ErrDPIOutOfRange is returned for an export resolution outside MinDPI..MaxDPI.
var ErrDPIOutOfRange = errors.New("dpi out of range")

// CheckDPI accepts zero or a resolution within MinDPI..MaxDPI.
func CheckDPI(dpi float64) error {
	if dpi == 0 {
		return nil
	}
	if !(dpi >= MinDPI && dpi <= MaxDPI) {
		return fmt.Errorf("%w: %v (must be %d to %d)", ErrDPIOutOfRange, dpi, MinDPI, MaxDPI)
	}
	return nil
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "image/png"
}

// Meta is document information written into PDF exports.
type Meta struct {
	Title   string
	Author  string
	Creator string
}

// Encode writes img in format f. g is the geometry the raster was rendered
// with; it sets the physical size.
func Encode(w io.Writer, f Format, img image.Image, g geometry.Geometry, meta Meta) error {
	switch f {
	case PDF:
		return EncodePDF(w, img, g, meta)
	default:
		return EncodePNG(w, img, g.PPI)
	}
}

// EncodePDF writes a single-page PDF the size of the full cover including
// bleed, with img placed at its native resolution from the top-left corner.
func EncodePDF(w io.Writer, img image.Image, g geometry.Geometry, meta Meta) error {
	if g.PPI <= 0 {
		return fmt.Errorf("geometry has no resolution")
	}
	widthMM := g.CanvasWidth / g.PPI * geometry.MMPerInch
	heightMM := g.CanvasHeight / g.PPI * geometry.MMPerInch
	dpmm := g.PPI / geometry.MMPerInch

	writer := pdf.New(w, widthMM, heightMM, nil)
	writer.SetInfo(meta.Title, "Book cover", "", meta.Author, meta.Creator)

	c := canvas.New(widthMM, heightMM)
	ctx := canvas.NewContext(c)
	// canvas has a bottom-left origin; the raster is rounded up to whole
	// pixels, so any excess falls off the bottom edge
	imgHeightMM := float64(img.Bounds().Dy()) / dpmm
	ctx.DrawImage(0, heightMM-imgHeightMM, img, canvas.DPMM(dpmm))
	c.RenderTo(writer)

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// EncodePNG writes img as PNG with a pHYs chunk recording dpi. A
// non-positive dpi omits the chunk.
func EncodePNG(w io.Writer, img image.Image, dpi float64) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	data := buf.Bytes()

	if dpi > 0 {
		// IHDR is always the first chunk
		const ihdrEnd = 8 + 4 + 4 + 13 + 4
		if len(data) < ihdrEnd {
			return fmt.Errorf("encoded PNG is truncated")
		}
		out := make([]byte, 0, len(data)+21)
		out = append(out, data[:ihdrEnd]...)
		out = append(out, physChunk(dpi)...)
		data = append(out, data[ihdrEnd:]...)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	return nil
}

// physChunk builds a pHYs chunk in pixels per metre.
func physChunk(dpi float64) []byte {
	ppm := uint32(math.Round(dpi / 0.0254))

	chunk := make([]byte, 4+4+9+4)
	binary.BigEndian.PutUint32(chunk[0:], 9)
	copy(chunk[4:], "pHYs")
	binary.BigEndian.PutUint32(chunk[8:], ppm)
	binary.BigEndian.PutUint32(chunk[12:], ppm)
	chunk[16] = 1 // unit: metre
	binary.BigEndian.PutUint32(chunk[17:], crc32.ChecksumIEEE(chunk[4:17]))
	return chunk
}
