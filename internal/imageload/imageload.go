// Package imageload resolves the image references in a design (http(s) URLs,
// data: URLs and file paths) to decoded images ahead of a render.
package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/thereceipt/cover-engine/internal/logging"
)

var (
	// ErrUnsupportedRef is returned for references the resolver will not load.
	ErrUnsupportedRef = errors.New("unsupported image reference")

	// ErrTooLarge is returned when an image exceeds the size limit.
	ErrTooLarge = errors.New("image exceeds size limit")
)

const (
	// DefaultMaxBytes caps the encoded size of a single image.
	DefaultMaxBytes = 25 << 20

	// DefaultMaxPixels caps the decoded dimensions of a single image.
	DefaultMaxPixels = 64 << 20
)

// Resolver loads one image reference.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (image.Image, error)
}

// DefaultResolver loads http(s) and data: URLs and, when AllowFiles is set,
// local paths. JPEG orientation tags are applied on decode.
type DefaultResolver struct {
	Client     *http.Client
	MaxBytes   int64
	MaxPixels  int64
	AllowFiles bool
	BaseDir    string // relative paths are resolved against it
}

// NewResolver returns a resolver with a bounded HTTP client.
func NewResolver(maxBytes int64, allowFiles bool) *DefaultResolver {
	return &DefaultResolver{
		Client:     &http.Client{Timeout: 30 * time.Second},
		MaxBytes:   maxBytes,
		AllowFiles: allowFiles,
	}
}

// Resolve fetches and decodes ref.
func (d *DefaultResolver) Resolve(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedRef)
	case strings.HasPrefix(ref, "data:"):
		data, err := decodeDataURL(ref)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > d.maxBytes() {
			return nil, ErrTooLarge
		}
		return d.decode(data)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return d.fetch(ctx, ref)
	case strings.Contains(ref, "://"), strings.HasPrefix(ref, "blob:"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRef, schemeOf(ref))
	default:
		if !d.AllowFiles {
			return nil, fmt.Errorf("%w: local files are disabled", ErrUnsupportedRef)
		}
		return d.open(ref)
	}
}

func (d *DefaultResolver) maxBytes() int64 {
	if d.MaxBytes > 0 {
		return d.MaxBytes
	}
	return DefaultMaxBytes
}

func (d *DefaultResolver) maxPixels() int64 {
	if d.MaxPixels > 0 {
		return d.MaxPixels
	}
	return DefaultMaxPixels
}

func (d *DefaultResolver) fetch(ctx context.Context, ref string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: %s", resp.Status)
	}
	if resp.ContentLength > d.maxBytes() {
		return nil, ErrTooLarge
	}
	return d.readLimited(resp.Body)
}

func (d *DefaultResolver) open(ref string) (image.Image, error) {
	path := ref
	if d.BaseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(d.BaseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return d.readLimited(f)
}

func (d *DefaultResolver) readLimited(r io.Reader) (image.Image, error) {
	limit := d.maxBytes()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return d.decode(data)
}

// decode reads the header first so an image that declares huge dimensions
// is refused before its pixels are allocated.
func (d *DefaultResolver) decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if limit := d.maxPixels(); int64(cfg.Width)*int64(cfg.Height) > limit {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, limit)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// decodeDataURL returns the payload of a data: URL.
func decodeDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URL", ErrUnsupportedRef)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 image data: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid image data: %w", err)
	}
	return []byte(data), nil
}

func schemeOf(ref string) string {
	if i := strings.Index(ref, ":"); i > 0 {
		return ref[:i]
	}
	return ref
}

// LoadAll resolves refs concurrently. References that fail are logged and
// left out of the result; the renderer draws placeholders for them.
func LoadAll(ctx context.Context, r Resolver, refs []string, logger *slog.Logger) map[string]image.Image {
	logger = logging.OrDiscard(logger)
	images := make(map[string]image.Image, len(refs))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true

		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := r.Resolve(ctx, ref)
			if err != nil {
				logger.Warn("image unavailable, using placeholder", "ref", truncate(ref, 80), "error", err)
				return
			}
			mu.Lock()
			images[ref] = img
			mu.Unlock()
		}()
	}
	wg.Wait()

	return images
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
