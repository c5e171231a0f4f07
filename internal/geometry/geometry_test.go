package geometry

import (
	"math"
	"testing"
)

func TestSpineWidthMM_KDPWhite200(t *testing.T) {
	got := KDP.SpineWidthMM(200, PaperWhite)
	want := 11.69908 // 200 x 0.0572 + 0.0102in (0.25908mm)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected spine width %.5fmm, got %.10f", want, got)
	}
}

func TestSpineWidthMM_Tables(t *testing.T) {
	tests := []struct {
		name  string
		table SpineTable
		pages int
		paper PaperType
		want  float64
	}{
		{"kdp cream", KDP, 300, PaperCream, 300*0.0635 + 0.25908},
		{"kdp unknown paper is white", KDP, 120, PaperType("glossy"), 120*0.0572 + 0.25908},
		{"kdp non-positive pages default", KDP, 0, PaperWhite, 100*0.0572 + 0.25908},
		{"legacy white", Legacy, 200, PaperWhite, (200*0.002252 + 0.0102) * 25.4},
		{"legacy cream", Legacy, 150, PaperCream, (150*0.0025 + 0.0102) * 25.4},
		{"legacy floor", Legacy, 1, PaperWhite, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.table.SpineWidthMM(tt.pages, tt.paper)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SpineWidthMM() = %.10f, want %.10f", got, tt.want)
			}
		})
	}
}

func TestLookupTable(t *testing.T) {
	for _, name := range []string{"", "kdp", "legacy"} {
		if _, err := LookupTable(name); err != nil {
			t.Errorf("Expected table %q to resolve, got error: %v", name, err)
		}
	}
	if _, err := LookupTable("metric"); err == nil {
		t.Error("Expected error for unknown spine table")
	}
}

func TestParseTrimSize(t *testing.T) {
	tests := []struct {
		in     string
		w, h   float64
		wantOK bool
	}{
		{"6x9", 6, 9, true},
		{"5.5x8.5", 5.5, 8.5, true},
		{" 5.25 X 8 ", 5.25, 8, true},
		{"", 0, 0, false},
		{"6", 0, 0, false},
		{"6x", 0, 0, false},
		{"0x9", 0, 0, false},
		{"-6x9", 0, 0, false},
		{"axb", 0, 0, false},
		{"6x9x2", 0, 0, false},
	}

	for _, tt := range tests {
		w, h, ok := ParseTrimSize(tt.in)
		if ok != tt.wantOK || w != tt.w || h != tt.h {
			t.Errorf("ParseTrimSize(%q) = (%v, %v, %v), want (%v, %v, %v)", tt.in, w, h, ok, tt.w, tt.h, tt.wantOK)
		}
	}
}

func TestCompute_InvalidTrimFallsBack(t *testing.T) {
	g := Compute(Book{PageCount: 200, TrimSize: "banana", PaperType: PaperWhite}, PreviewPPI, KDP)
	if g.TrimWidthIn != 6 || g.TrimHeightIn != 9 {
		t.Errorf("Expected 6x9 fallback, got %vx%v", g.TrimWidthIn, g.TrimHeightIn)
	}
}

func TestCompute_CanvasExtent(t *testing.T) {
	g := Compute(Book{PageCount: 200, TrimSize: "6x9", PaperType: PaperWhite}, PreviewPPI, KDP)

	spinePx := 11.69908 / 25.4 * 72
	wantW := 6*72*2 + spinePx + 2*9
	wantH := 9*72 + 2*9.0
	if math.Abs(g.CanvasWidth-wantW) > 1e-9 {
		t.Errorf("CanvasWidth = %v, want %v", g.CanvasWidth, wantW)
	}
	if math.Abs(g.CanvasHeight-wantH) > 1e-9 {
		t.Errorf("CanvasHeight = %v, want %v", g.CanvasHeight, wantH)
	}

	w, h := g.CanvasSize()
	if w != int(math.Ceil(wantW)) || h != 666 {
		t.Errorf("CanvasSize() = %dx%d, want %dx666", w, h, int(math.Ceil(wantW)))
	}

	// Panels tile the canvas without gaps.
	back, spine, front := g.BackPanel(), g.SpinePanel(), g.FrontPanel()
	if back.Right() != spine.X || math.Abs(spine.Right()-front.X) > 1e-9 {
		t.Errorf("Panels do not abut: back ends %v, spine %v..%v, front starts %v", back.Right(), spine.X, spine.Right(), front.X)
	}
	if math.Abs(front.Right()-g.CanvasWidth) > 1e-9 {
		t.Errorf("Front panel ends at %v, want canvas width %v", front.Right(), g.CanvasWidth)
	}
}

func TestCompute_ExportScalesPreview(t *testing.T) {
	dpis := []float64{150, 300, 600}
	for _, trim := range SupportedTrimSizes {
		for _, paper := range []PaperType{PaperWhite, PaperCream} {
			for _, pages := range []int{24, 100, 333, 828} {
				book := Book{PageCount: pages, TrimSize: trim, PaperType: paper}
				preview := Compute(book, PreviewPPI, KDP)
				for _, dpi := range dpis {
					export := Compute(book, dpi, KDP)
					k := dpi / PreviewPPI

					if math.Abs(export.CanvasWidth-preview.CanvasWidth*k) > 1e-6 {
						t.Errorf("%s/%s/%d@%v: width %v, want %v", trim, paper, pages, dpi, export.CanvasWidth, preview.CanvasWidth*k)
					}
					if math.Abs(export.CanvasHeight-preview.CanvasHeight*k) > 1e-6 {
						t.Errorf("%s/%s/%d@%v: height %v, want %v", trim, paper, pages, dpi, export.CanvasHeight, preview.CanvasHeight*k)
					}

					w, h := export.CanvasSize()
					if math.Abs(float64(w)-preview.CanvasWidth*k) >= 1 || math.Abs(float64(h)-preview.CanvasHeight*k) >= 1 {
						t.Errorf("%s/%s/%d@%v: canvas %dx%d not within rounding of %vx%v", trim, paper, pages, dpi, w, h, preview.CanvasWidth*k, preview.CanvasHeight*k)
					}
				}
			}
		}
	}
}

func TestBarcodeRegion(t *testing.T) {
	g := Compute(Book{PageCount: 100, TrimSize: "6x9"}, PreviewPPI, KDP)
	r := g.Barcode()

	want := Rect{X: 9 + 6*72 - 18 - 144, Y: 9 + 9*72 - 18 - 86.4, W: 144, H: 86.4}
	if math.Abs(r.X-want.X) > 1e-9 || math.Abs(r.Y-want.Y) > 1e-9 || r.W != want.W || math.Abs(r.H-want.H) > 1e-9 {
		t.Errorf("Barcode() = %+v, want %+v", r, want)
	}
}

func TestSpineTextBox(t *testing.T) {
	g := Compute(Book{PageCount: 100, TrimSize: "6x9", PaperType: PaperWhite}, PreviewPPI, KDP)

	if got, want := g.SpineTextLength(), 9*72-2*4.5-2*9.0; got != want {
		t.Errorf("SpineTextLength() = %v, want %v", got, want)
	}
	if got, want := g.SpineTextThickness(), g.SpineWidth-9; math.Abs(got-want) > 1e-9 {
		t.Errorf("SpineTextThickness() = %v, want %v", got, want)
	}
}
