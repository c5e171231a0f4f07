// Package pipeline turns a cover project into preview frames and export
// files: it resolves the style, waits for fonts, loads images, renders, and
// encodes.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/export"
	"github.com/thereceipt/cover-engine/internal/geometry"
	"github.com/thereceipt/cover-engine/internal/imageload"
	"github.com/thereceipt/cover-engine/internal/jobs"
	"github.com/thereceipt/cover-engine/internal/logging"
	"github.com/thereceipt/cover-engine/internal/renderer"
)

// Creator is written into export metadata.
const Creator = "cover-engine"

// Readiness reports when background font loading has finished.
type Readiness interface {
	WaitReady(ctx context.Context, timeout time.Duration) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithResolver sets how image references are loaded. Without it images are
// not loaded and the renderer draws placeholders.
func WithResolver(r imageload.Resolver) Option {
	return func(p *Pipeline) { p.resolver = r }
}

// WithReadiness gates renders on font loading for at most timeout.
func WithReadiness(r Readiness, timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.readiness = r
		p.fontTimeout = timeout
	}
}

// WithDefaultDPI sets the DPI used when a request names none.
func WithDefaultDPI(dpi float64) Option {
	return func(p *Pipeline) { p.defaultDPI = dpi }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock sets the time source used for export filenames.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	renderer    *renderer.Renderer
	resolver    imageload.Resolver
	readiness   Readiness
	fontTimeout time.Duration
	defaultDPI  float64
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a pipeline around r.
func New(r *renderer.Renderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		renderer:   r,
		defaultDPI: renderer.DefaultExportDPI,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDiscard(p.logger)
	return p
}

// Geometry derives the layout of book at ppi.
func (p *Pipeline) Geometry(book coverformat.BookMetadata, ppi float64) geometry.Geometry {
	return p.renderer.Geometry(book, ppi)
}

// Prepared is a project ready to render.
type Prepared struct {
	Book   coverformat.BookMetadata
	Style  coverformat.Style
	Images map[string]image.Image
}

// Prepare resolves the design, registers its fonts and loads its images.
// Font and image problems are logged; the render falls back.
func (p *Pipeline) Prepare(ctx context.Context, project *coverformat.Project) Prepared {
	if p.readiness != nil {
		if err := p.readiness.WaitReady(ctx, p.fontTimeout); err != nil {
			p.logger.Warn("fonts not ready, rendering with what is loaded", "error", err)
		}
	}

	style := coverformat.Resolve(project.Design)
	p.renderer.Prepare(ctx, style)

	var images map[string]image.Image
	if p.resolver != nil {
		images = imageload.LoadAll(ctx, p.resolver, style.ImageRefs(), p.logger)
	}
	return Prepared{Book: project.Book, Style: style, Images: images}
}

// Preview renders the interactive view of a project.
func (p *Pipeline) Preview(ctx context.Context, project *coverformat.Project, target renderer.Interactive, guidelines bool) (*image.RGBA, error) {
	prep := p.Prepare(ctx, project)
	return p.renderer.Render(ctx, prep.Book, prep.Style, prep.Images, target, guidelines)
}

// PreviewPNG renders the interactive view and encodes it as PNG.
func (p *Pipeline) PreviewPNG(ctx context.Context, project *coverformat.Project, target renderer.Interactive, guidelines bool) ([]byte, error) {
	img, err := p.Preview(ctx, project, target, guidelines)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := export.EncodePNG(&buf, img, 0); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Export renders a project at dpi and packages it in format f. A zero dpi
// selects the default; anything outside export.MinDPI..export.MaxDPI is
// refused with export.ErrDPIOutOfRange.
func (p *Pipeline) Export(ctx context.Context, project *coverformat.Project, f export.Format, dpi float64) (jobs.Result, error) {
	if project == nil {
		return jobs.Result{}, errors.New("no project to export")
	}
	if err := export.CheckDPI(dpi); err != nil {
		return jobs.Result{}, err
	}
	if dpi == 0 {
		dpi = p.defaultDPI
	}

	prep := p.Prepare(ctx, project)
	img, err := p.renderer.Render(ctx, prep.Book, prep.Style, prep.Images, renderer.Export{DPI: dpi}, false)
	if err != nil {
		return jobs.Result{}, err
	}

	meta := export.Meta{Title: project.Book.Title, Author: project.Book.Author, Creator: Creator}
	var buf bytes.Buffer
	if err := export.Encode(&buf, f, img, p.Geometry(project.Book, dpi), meta); err != nil {
		return jobs.Result{}, err
	}

	name := export.Filename(project.Book.Title, dpi, f, p.now())
	p.logger.Info("cover exported", "file", name, "format", f, "dpi", dpi, "bytes", buf.Len())
	return jobs.Result{Data: buf.Bytes(), Filename: name}, nil
}

// Process runs an export job. Requests that can never render are marked
// permanent so the queue does not retry them.
func (p *Pipeline) Process(ctx context.Context, req jobs.Request) (jobs.Result, error) {
	result, err := p.Export(ctx, &req.Project, req.Format, req.DPI)
	if errors.Is(err, export.ErrDPIOutOfRange) || errors.Is(err, renderer.ErrCanvasTooLarge) {
		return result, jobs.Permanent(err)
	}
	return result, err
}
