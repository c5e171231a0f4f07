package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thereceipt/cover-engine/internal/config"
	"github.com/thereceipt/cover-engine/internal/fonts"
	"github.com/thereceipt/cover-engine/internal/imageload"
	"github.com/thereceipt/cover-engine/internal/renderer"
)

// BuildOptions selects the parts of a configured pipeline that differ
// between binaries.
type BuildOptions struct {
	// AllowFiles lets image references name local paths.
	AllowFiles bool
	// BaseDir resolves relative image paths.
	BaseDir string
	// Download fetches catalog fonts that are not on disk.
	Download bool
	// Preload starts loading the common families in the background.
	Preload bool
}

// Build wires a font registry, renderer and image resolver from cfg.
func Build(ctx context.Context, cfg config.Config, opts BuildOptions, logger *slog.Logger) (*Pipeline, error) {
	store, err := fonts.NewStore(cfg.FontCatalog)
	if err != nil {
		return nil, err
	}

	fontOpts := []fonts.Option{
		fonts.WithLogger(logger),
		fonts.WithDir(cfg.FontDir),
		fonts.WithStore(store),
	}
	if opts.Download {
		fontOpts = append(fontOpts, fonts.WithFetcher(fonts.NewGoogleFetcher()))
	}
	registry, err := fonts.New(fontOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create font registry: %w", err)
	}
	if opts.Preload {
		registry.Preload(ctx, fonts.CommonFamilies)
	}

	r, err := renderer.New(
		renderer.WithFonts(registry),
		renderer.WithSpineTable(cfg.Table()),
		renderer.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	resolver := imageload.NewResolver(cfg.MaxImageBytes, opts.AllowFiles)
	resolver.MaxPixels = cfg.MaxImagePixels
	resolver.BaseDir = opts.BaseDir

	return New(r,
		WithResolver(resolver),
		WithReadiness(registry, cfg.FontTimeout),
		WithDefaultDPI(cfg.DefaultDPI),
		WithLogger(logger),
	), nil
}
