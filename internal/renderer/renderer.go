// Package renderer composites a wraparound book cover. The same drawing code
// serves the zoomable preview and the print export; only the resolution and
// the view transform differ.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/fogleman/gg"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/fonts"
	"github.com/thereceipt/cover-engine/internal/geometry"
	"github.com/thereceipt/cover-engine/internal/logging"
)

// Renderer draws covers. It holds no per-render state and is safe for
// concurrent use.
type Renderer struct {
	fonts  *fonts.Registry
	table  geometry.SpineTable
	logger *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFonts sets the font registry. Without it the embedded fonts are used.
func WithFonts(r *fonts.Registry) Option {
	return func(rd *Renderer) { rd.fonts = r }
}

// WithSpineTable selects the spine width table.
func WithSpineTable(t geometry.SpineTable) Option {
	return func(rd *Renderer) { rd.table = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rd *Renderer) { rd.logger = l }
}

// New creates a renderer.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{table: geometry.KDP}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDiscard(r.logger)

	if r.fonts == nil {
		reg, err := fonts.New(fonts.WithLogger(r.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create font registry: %w", err)
		}
		r.fonts = reg
	}
	return r, nil
}

// Geometry derives the cover layout for book at ppi.
func (r *Renderer) Geometry(book coverformat.BookMetadata, ppi float64) geometry.Geometry {
	return geometry.Compute(book.Geometry(), ppi, r.table)
}

// Prepare registers the font families a style uses. Families that cannot be
// loaded are logged and rendered with the fallback face.
func (r *Renderer) Prepare(ctx context.Context, style coverformat.Style) {
	for _, family := range []string{style.Spine.Font.Family, style.Back.Font.Family} {
		if err := r.fonts.EnsureRegistered(ctx, family, fonts.Regular); err != nil {
			r.logger.Warn("font not available, using fallback", "family", family, "error", err)
		}
	}
}

// MaxCanvasPixels bounds the raster a single render allocates, about 1 GiB
// of RGBA.
const MaxCanvasPixels = 1 << 28

const maxCanvasSide = 1 << 16

// ErrCanvasTooLarge is returned when a target would need a canvas above
// MaxCanvasPixels.
var ErrCanvasTooLarge = errors.New("canvas too large")

func checkCanvas(w, h float64) error {
	if !(w <= maxCanvasSide && h <= maxCanvasSide && w*h <= MaxCanvasPixels) {
		return fmt.Errorf("%w: %.0f x %.0f px exceeds %d pixels", ErrCanvasTooLarge, w, h, MaxCanvasPixels)
	}
	return nil
}

// CanvasSize returns the device canvas size Render uses for target, or
// ErrCanvasTooLarge.
func (r *Renderer) CanvasSize(book coverformat.BookMetadata, target Target) (int, int, error) {
	g := r.Geometry(book, geometry.PreviewPPI)
	switch t := target.(type) {
	case Export:
		g = r.Geometry(book, exportDPI(t))
	case Interactive:
		if t.Viewport.X > 0 && t.Viewport.Y > 0 {
			if err := checkCanvas(float64(t.Viewport.X), float64(t.Viewport.Y)); err != nil {
				return 0, 0, err
			}
			return t.Viewport.X, t.Viewport.Y, nil
		}
		s := ClampScale(t.Scale)
		w, h := g.CanvasWidth*s, g.CanvasHeight*s
		if err := checkCanvas(w, h); err != nil {
			return 0, 0, err
		}
		return max(1, int(math.Ceil(w))), max(1, int(math.Ceil(h))), nil
	}
	if err := checkCanvas(g.CanvasWidth, g.CanvasHeight); err != nil {
		return 0, 0, err
	}
	w, h := g.CanvasSize()
	return w, h, nil
}

// Render draws the cover into a new canvas sized for target. The error is
// a cancelled context or ErrCanvasTooLarge; missing images, unknown fonts
// and unsafe layouts degrade to placeholders and corrections.
func (r *Renderer) Render(ctx context.Context, book coverformat.BookMetadata, style coverformat.Style, images map[string]image.Image, target Target, guidelines bool) (*image.RGBA, error) {
	w, h, err := r.CanvasSize(book, target)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := r.RenderTo(ctx, gg.NewContextForRGBA(img), book, style, images, target, guidelines); err != nil {
		return nil, err
	}
	return img, nil
}

// RenderTo draws the cover into dc, which the caller has sized. A cover
// whose full canvas would exceed MaxCanvasPixels is refused with
// ErrCanvasTooLarge.
func (r *Renderer) RenderTo(ctx context.Context, dc *gg.Context, book coverformat.BookMetadata, style coverformat.Style, images map[string]image.Image, target Target, guidelines bool) error {
	p := &pass{
		dc:     dc,
		book:   book,
		style:  style,
		images: images,
		faces:  newFaceCache(r.fonts),
		logger: r.logger,
	}

	dc.SetColor(color.White)
	dc.Clear()

	switch t := target.(type) {
	case Export:
		dpi := exportDPI(t)
		if dpi != t.DPI {
			r.logger.Warn("export DPI not set, using default", "dpi", dpi)
		}
		p.g = r.Geometry(book, dpi)
		p.zoom = 1
	case Interactive:
		p.g = r.Geometry(book, geometry.PreviewPPI)
		p.zoom = ClampScale(t.Scale)
		p.interactive = true
		dc.Translate(t.OffsetX, t.OffsetY)
		dc.Scale(p.zoom, p.zoom)
	default:
		p.g = r.Geometry(book, geometry.PreviewPPI)
		p.zoom = 1
		p.interactive = true
	}
	if err := checkCanvas(p.g.CanvasWidth, p.g.CanvasHeight); err != nil {
		return err
	}
	p.factor = p.g.Scale()

	steps := []func(){p.drawBack, p.drawSpine, p.drawFront}
	if guidelines && p.interactive {
		steps = append(steps, p.drawGuidelines)
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("render cancelled: %w", err)
		}
		step()
	}

	r.logger.Debug("rendered cover",
		"ppi", p.g.PPI,
		"width", p.g.CanvasWidth,
		"height", p.g.CanvasHeight,
		"interactive", p.interactive,
	)
	return nil
}

func exportDPI(t Export) float64 {
	if t.DPI > 0 {
		return t.DPI
	}
	return DefaultExportDPI
}

// pass is the state of one render.
type pass struct {
	dc          *gg.Context
	g           geometry.Geometry
	book        coverformat.BookMetadata
	style       coverformat.Style
	images      map[string]image.Image
	faces       *faceCache
	logger      *slog.Logger
	factor      float64 // dpi/72
	zoom        float64 // device pixels per user unit
	interactive bool
}

// line converts a preview-pixel stroke length to device pixels.
func (p *pass) line(w float64) float64 {
	return w * p.factor * p.zoom
}

// clip restricts drawing to r until the returned function is called. gg
// does not restore the clip mask on Pop, so clips never nest.
func (p *pass) clip(r geometry.Rect) func() {
	p.dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	p.dc.Clip()
	return p.dc.ResetClip
}

// label draws a single centred line in the placeholder colour.
func (p *pass) label(text string, r geometry.Rect) {
	face := p.faces.get(coverformat.DefaultFontFamily, coverformat.DefaultSpineFontSize*p.factor)
	p.dc.SetFontFace(face)
	p.dc.SetColor(placeholderColor)
	cx, cy := r.Center()
	p.dc.DrawStringAnchored(text, cx, cy, 0.5, 0.5)
}

var placeholderColor = color.RGBA{0xaa, 0xaa, 0xaa, 0xff}
