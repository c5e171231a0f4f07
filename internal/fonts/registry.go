// Package fonts resolves design font families to faces. Families come from a
// local font directory, downloaded Google Fonts, installed system fonts, and
// finally the embedded Go fonts, so a face is always available.
package fonts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/thereceipt/cover-engine/internal/logging"
)

var (
	// ErrUnavailable is returned when no source can supply a family.
	ErrUnavailable = errors.New("font unavailable")

	// ErrNotReady is returned by WaitReady when preloading outlives the wait.
	ErrNotReady = errors.New("fonts not ready")
)

// DefaultReadyTimeout bounds how long a render waits for preloading.
const DefaultReadyTimeout = 10 * time.Second

// systemFontPaths lists installed files tried for the system families.
var systemFontPaths = map[string]map[Weight][]string{
	"Arial": {
		Regular: {
			"/System/Library/Fonts/Supplemental/Arial.ttf",
			"/usr/share/fonts/truetype/msttcorefonts/Arial.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"C:\\Windows\\Fonts\\arial.ttf",
		},
		Bold: {
			"/System/Library/Fonts/Supplemental/Arial Bold.ttf",
			"/usr/share/fonts/truetype/msttcorefonts/Arial_Bold.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
			"C:\\Windows\\Fonts\\arialbd.ttf",
		},
	},
	"Verdana": {
		Regular: {
			"/System/Library/Fonts/Supplemental/Verdana.ttf",
			"/usr/share/fonts/truetype/msttcorefonts/Verdana.ttf",
			"C:\\Windows\\Fonts\\verdana.ttf",
		},
	},
	"Times New Roman": {
		Regular: {
			"/System/Library/Fonts/Supplemental/Times New Roman.ttf",
			"/usr/share/fonts/truetype/msttcorefonts/Times_New_Roman.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSerif-Regular.ttf",
			"C:\\Windows\\Fonts\\times.ttf",
		},
		Bold: {
			"/System/Library/Fonts/Supplemental/Times New Roman Bold.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSerif-Bold.ttf",
			"C:\\Windows\\Fonts\\timesbd.ttf",
		},
	},
	"Georgia": {
		Regular: {
			"/System/Library/Fonts/Supplemental/Georgia.ttf",
			"/usr/share/fonts/truetype/msttcorefonts/Georgia.ttf",
			"C:\\Windows\\Fonts\\georgia.ttf",
		},
	},
	"Courier New": {
		Regular: {
			"/System/Library/Fonts/Supplemental/Courier New.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationMono-Regular.ttf",
			"C:\\Windows\\Fonts\\cour.ttf",
		},
	},
}

type key struct {
	family string
	weight Weight
}

// parsedFont holds either a TrueType font or, for CFF outlines that the
// freetype parser rejects, an OpenType one.
type parsedFont struct {
	tt *truetype.Font
	ot *opentype.Font
}

func parseFont(data []byte) (*parsedFont, error) {
	if f, err := truetype.Parse(data); err == nil {
		return &parsedFont{tt: f}, nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &parsedFont{ot: f}, nil
}

// face creates a new face. Faces keep a glyph cache and are not safe for
// concurrent use, so each render asks for its own. Hinting is off so that
// advances scale linearly with size.
func (p *parsedFont) face(size float64) (font.Face, error) {
	if p.tt != nil {
		return truetype.NewFace(p.tt, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone}), nil
	}
	face, err := opentype.NewFace(p.ot, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("create font face at %.1fpx: %w", size, err)
	}
	return face, nil
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = logging.OrDiscard(l) }
}

// WithDir sets the directory searched for, and receiving, font files.
func WithDir(dir string) Option {
	return func(r *Registry) { r.dir = dir }
}

// WithStore records registered files in a persistent catalog.
func WithStore(s *Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithFetcher enables downloading catalog families that are not on disk.
func WithFetcher(f Fetcher) Option {
	return func(r *Registry) { r.fetcher = f }
}

// Registry maps (family, weight) to parsed fonts. It is safe for concurrent
// use and is the only state shared between renders.
type Registry struct {
	mu    sync.RWMutex
	fonts map[key]*parsedFont

	dir     string
	store   *Store
	fetcher Fetcher
	logger  *slog.Logger

	regular *parsedFont
	bold    *parsedFont

	preloading atomic.Bool
	preload    sync.Once
	ready      chan struct{}
}

// New creates a registry with the embedded Go fonts as its fallback.
func New(opts ...Option) (*Registry, error) {
	r := &Registry{
		fonts:  make(map[key]*parsedFont),
		logger: logging.Discard(),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	if r.regular, err = parseFont(goregular.TTF); err != nil {
		return nil, fmt.Errorf("embedded regular font: %w", err)
	}
	if r.bold, err = parseFont(gobold.TTF); err != nil {
		return nil, fmt.Errorf("embedded bold font: %w", err)
	}
	if r.store == nil {
		r.store, _ = NewStore("")
	}
	return r, nil
}

// Register parses font data and makes it available as family at weight.
func (r *Registry) Register(family string, weight Weight, data []byte) error {
	p, err := parseFont(data)
	if err != nil {
		return fmt.Errorf("register %s %d: %w", family, weight, err)
	}

	r.mu.Lock()
	r.fonts[key{family, weight}] = p
	r.mu.Unlock()

	r.logger.Debug("registered font", "family", family, "weight", int(weight))
	return nil
}

// RegisterFile registers a font file from disk.
func (r *Registry) RegisterFile(family string, weight Weight, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read font file: %w", err)
	}
	return r.Register(family, weight, data)
}

// Registered reports whether an exact (family, weight) pair is loaded.
func (r *Registry) Registered(family string, weight Weight) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fonts[key{family, weight}]
	return ok
}

// EnsureRegistered makes a family available at the catalog weight nearest
// to weight. It is idempotent: a registered pair returns immediately.
// Sources are tried in order: the persistent catalog, the font directory,
// installed system fonts, then the fetcher.
func (r *Registry) EnsureRegistered(ctx context.Context, family string, weight Weight) error {
	family = Normalize(family)
	if f, ok := Lookup(family); ok {
		weight = f.NearestWeight(weight)
	}
	if r.Registered(family, weight) {
		return nil
	}

	if e, ok := r.store.Get(family, weight); ok {
		if err := r.RegisterFile(family, weight, e.Path); err == nil {
			return nil
		}
		r.logger.Warn("catalogued font file unusable", "family", family, "weight", int(weight), "path", e.Path)
		r.store.Remove(family, weight)
	}

	if r.dir != "" {
		path := filepath.Join(r.dir, FileName(family, weight))
		if _, err := os.Stat(path); err == nil {
			if err := r.RegisterFile(family, weight, path); err == nil {
				r.record(Entry{Family: family, Weight: weight, Path: path, Source: "dir"})
				return nil
			}
		}
	}

	for _, path := range systemFontPaths[family][weight] {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := r.RegisterFile(family, weight, path); err == nil {
			r.record(Entry{Family: family, Weight: weight, Path: path, Source: "system"})
			return nil
		}
	}

	f, ok := Lookup(family)
	if !ok || f.System() || r.fetcher == nil {
		return fmt.Errorf("%w: %s %d", ErrUnavailable, family, weight)
	}

	data, err := r.fetcher.Fetch(ctx, f, weight)
	if err != nil {
		return fmt.Errorf("fetch %s %d: %w", family, weight, err)
	}
	if err := r.Register(family, weight, data); err != nil {
		return err
	}

	if r.dir != "" {
		path := filepath.Join(r.dir, FileName(family, weight))
		if err := os.MkdirAll(r.dir, 0755); err == nil {
			if err := os.WriteFile(path, data, 0644); err == nil {
				r.record(Entry{Family: family, Weight: weight, Path: path, Source: "download"})
			}
		}
	}
	r.logger.Info("downloaded font", "family", family, "weight", int(weight))
	return nil
}

func (r *Registry) record(e Entry) {
	if err := r.store.Put(e); err != nil {
		r.logger.Warn("failed to save font catalog", "error", err)
	}
}

// Face returns a new face for a CSS family value at size. It never fails:
// an unknown family or weight falls back to another weight of the family,
// then to the embedded Go fonts.
func (r *Registry) Face(family string, weight Weight, size float64) font.Face {
	name := Normalize(family)

	if p := r.lookup(name, weight); p != nil {
		if face, err := p.face(size); err == nil {
			return face
		}
	}

	r.logger.Debug("using fallback font", "family", family, "weight", int(weight))
	fallback := r.regular
	if weight >= SemiBold {
		fallback = r.bold
	}
	// The embedded fonts are TrueType, which cannot fail here
	face, _ := fallback.face(size)
	return face
}

func (r *Registry) lookup(family string, weight Weight) *parsedFont {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.fonts[key{family, weight}]; ok {
		return p
	}
	if f, ok := Lookup(family); ok {
		if p, ok := r.fonts[key{family, f.NearestWeight(weight)}]; ok {
			return p
		}
	}
	var best *parsedFont
	bestDist := -1
	for k, p := range r.fonts {
		if k.family != family {
			continue
		}
		if d := abs(int(k.weight - weight)); bestDist < 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// LoadDir registers every .ttf and .otf file in dir. File names follow
// FileName: "Playfair-Display-700.ttf" registers Playfair Display at 700; a
// name without a weight suffix registers at 400.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read font directory: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		family, weight := parseFileName(e.Name())
		path := filepath.Join(dir, e.Name())
		if err := r.RegisterFile(family, weight, path); err != nil {
			r.logger.Warn("skipping font file", "path", path, "error", err)
			continue
		}
		r.record(Entry{Family: family, Weight: weight, Path: path, Source: "dir"})
		loaded++
	}
	return loaded, nil
}

// FileName is the on-disk name of a family and weight.
func FileName(family string, weight Weight) string {
	return fmt.Sprintf("%s-%d.ttf", strings.Join(strings.Fields(family), "-"), weight)
}

func parseFileName(name string) (string, Weight) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "-")
	weight := Regular
	if n := len(parts); n > 1 {
		if w, err := strconv.Atoi(parts[n-1]); err == nil && w >= 100 && w <= 900 {
			weight = Weight(w)
			parts = parts[:n-1]
		}
	}
	return strings.Join(parts, " "), weight
}

// Preload registers families at regular weight in the background. Only the
// first call starts loading; failures are logged and leave the fallback in
// place.
func (r *Registry) Preload(ctx context.Context, families []string) {
	r.preload.Do(func() {
		r.preloading.Store(true)
		go func() {
			defer close(r.ready)
			for _, family := range families {
				if err := r.EnsureRegistered(ctx, family, Regular); err != nil {
					r.logger.Warn("font preload failed", "family", family, "error", err)
				}
				if ctx.Err() != nil {
					return
				}
			}
			r.logger.Info("font preload complete", "families", len(families))
		}()
	})
}

// Ready reports whether preloading has finished or was never started.
func (r *Registry) Ready() bool {
	if !r.preloading.Load() {
		return true
	}
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until preloading finishes, ctx is done, or timeout
// elapses. Callers that get ErrNotReady render with whatever is registered.
func (r *Registry) WaitReady(ctx context.Context, timeout time.Duration) error {
	if !r.preloading.Load() {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrNotReady
	}
}
