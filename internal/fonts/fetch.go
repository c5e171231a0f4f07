package fonts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// Fetcher downloads font data for a catalog family.
type Fetcher interface {
	Fetch(ctx context.Context, f Family, weight Weight) ([]byte, error)
}

const googleFontsCSS = "https://fonts.googleapis.com/css2"

// maxFontBytes caps a single downloaded font file.
const maxFontBytes = 10 << 20

var ttfURL = regexp.MustCompile(`url\((https?://[^)]+\.ttf)\)`)

// GoogleFetcher downloads TTF files through the Google Fonts CSS API.
type GoogleFetcher struct {
	Client  *http.Client
	BaseURL string // defaults to the public CSS API
}

// NewGoogleFetcher returns a fetcher with a bounded HTTP client.
func NewGoogleFetcher() *GoogleFetcher {
	return &GoogleFetcher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: googleFontsCSS,
	}
}

// Fetch resolves the stylesheet for family at weight and downloads the TTF
// it references.
func (g *GoogleFetcher) Fetch(ctx context.Context, f Family, weight Weight) ([]byte, error) {
	if f.GoogleName == "" {
		return nil, fmt.Errorf("%s is not a downloadable family", f.Name)
	}

	base := g.BaseURL
	if base == "" {
		base = googleFontsCSS
	}
	cssURL := fmt.Sprintf("%s?family=%s:wght@%d&display=swap", base, f.GoogleName, weight)
	css, err := g.get(ctx, cssURL)
	if err != nil {
		return nil, fmt.Errorf("font stylesheet: %w", err)
	}

	m := ttfURL.FindSubmatch(css)
	if m == nil {
		return nil, fmt.Errorf("no TTF source for %s %d", f.Name, weight)
	}

	data, err := g.get(ctx, string(m[1]))
	if err != nil {
		return nil, fmt.Errorf("font file: %w", err)
	}
	return data, nil
}

func (g *GoogleFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// Without a browser user agent the CSS API serves TTF rather than WOFF2
	req.Header.Set("User-Agent", "cover-engine")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFontBytes))
}
