package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/thereceipt/cover-engine/internal/geometry"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 0x40, 0xff})
		}
	}
	return img
}

// readPhys returns the pixels-per-metre values of the first pHYs chunk.
func readPhys(t *testing.T, data []byte) (uint32, uint32, bool) {
	t.Helper()
	for off := 8; off+8 <= len(data); {
		n := int(binary.BigEndian.Uint32(data[off:]))
		typ := string(data[off+4 : off+8])
		if typ == "pHYs" {
			body := data[off+8 : off+8+n]
			return binary.BigEndian.Uint32(body[0:]), binary.BigEndian.Uint32(body[4:]), body[8] == 1
		}
		off += 12 + n
	}
	return 0, 0, false
}

func TestEncodePNG_WritesDPI(t *testing.T) {
	img := testImage(16, 8)

	var buf bytes.Buffer
	if err := EncodePNG(&buf, img, 300); err != nil {
		t.Fatalf("EncodePNG() error: %v", err)
	}

	x, y, metre := readPhys(t, buf.Bytes())
	if !metre || x != 11811 || y != 11811 {
		t.Errorf("pHYs = %d x %d (metre=%v), want 11811 x 11811", x, y, metre)
	}

	// The chunk must not disturb decoding
	decoded, err := png.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
	if r, g, _, _ := decoded.At(5, 3).RGBA(); r>>8 != 5 || g>>8 != 3 {
		t.Errorf("pixel (5, 3) = %d, %d", r>>8, g>>8)
	}
}

func TestEncodePNG_NoDPI(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, testImage(4, 4), 0); err != nil {
		t.Fatalf("EncodePNG() error: %v", err)
	}
	if _, _, ok := readPhys(t, buf.Bytes()); ok {
		t.Error("Expected no pHYs chunk without a DPI")
	}
}

func TestEncodePDF(t *testing.T) {
	book := geometry.Book{PageCount: 200, TrimSize: "6x9", PaperType: geometry.PaperWhite}
	g := geometry.Compute(book, 72, geometry.KDP)
	w, h := g.CanvasSize()

	var buf bytes.Buffer
	if err := EncodePDF(&buf, testImage(w, h), g, Meta{Title: "Dune", Author: "Frank Herbert"}); err != nil {
		t.Fatalf("EncodePDF() error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:8])
	}
}

func TestEncodePDF_PageSize(t *testing.T) {
	// (2W + spine + 0.25in) x (H + 0.25in)
	book := geometry.Book{PageCount: 200, TrimSize: "6x9", PaperType: geometry.PaperWhite}
	g := geometry.Compute(book, 300, geometry.KDP)

	wantW := (12 + g.SpineWidthInches() + 0.25) * 72
	wantH := (9 + 0.25) * 72
	if got := g.CanvasWidth / g.PPI * 72; math.Abs(got-wantW) > 1e-9 {
		t.Errorf("page width = %vpt, want %vpt", got, wantW)
	}
	if got := g.CanvasHeight / g.PPI * 72; math.Abs(got-wantH) > 1e-9 {
		t.Errorf("page height = %vpt, want %vpt", got, wantH)
	}
}

func TestEncodePDF_RequiresResolution(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePDF(&buf, testImage(1, 1), geometry.Geometry{}, Meta{}); err == nil {
		t.Error("Expected error for a geometry without resolution")
	}
}

func TestEncode_Dispatch(t *testing.T) {
	g := geometry.Compute(geometry.Book{}, 72, geometry.KDP)
	w, h := g.CanvasSize()
	img := testImage(w, h)

	tests := []struct {
		format Format
		prefix string
	}{
		{PNG, "\x89PNG"},
		{PDF, "%PDF-"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := Encode(&buf, tt.format, img, g, Meta{}); err != nil {
			t.Fatalf("Encode(%s) error: %v", tt.format, err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte(tt.prefix)) {
			t.Errorf("Encode(%s) wrote the wrong format", tt.format)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", PNG, false},
		{"png", PNG, false},
		{"pdf", PDF, false},
		{"jpeg", "", true},
		{"PDF", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if PDF.ContentType() != "application/pdf" || PNG.ContentType() != "image/png" {
		t.Error("unexpected content types")
	}
}

func TestCheckDPI(t *testing.T) {
	tests := []struct {
		dpi     float64
		wantErr bool
	}{
		{0, false},
		{1, false},
		{72, false},
		{300, false},
		{1200, false},
		{0.5, true},
		{-300, true},
		{1201, true},
		{5000, true},
		{1e7, true},
		{math.NaN(), true},
		{math.Inf(1), true},
	}
	for _, tt := range tests {
		err := CheckDPI(tt.dpi)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckDPI(%v) error = %v, wantErr %v", tt.dpi, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrDPIOutOfRange) {
			t.Errorf("CheckDPI(%v) = %v, want ErrDPIOutOfRange", tt.dpi, err)
		}
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	tests := []struct {
		title  string
		dpi    float64
		format Format
		want   string
	}{
		{"My Book: Part 2", 300, PNG, "my_book__part_2_300dpi_2024-03-09.png"},
		{"Dune", 600, PDF, "dune_600dpi_2024-03-09.pdf"},
		{"", 300, PNG, "cover_300dpi_2024-03-09.png"},
		{"Café", 150, PDF, "caf__150dpi_2024-03-09.pdf"},
		{"!!!", 300, PNG, "____300dpi_2024-03-09.png"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title, tt.dpi, tt.format, now); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
