package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/thereceipt/cover-engine/internal/geometry"
	"github.com/thereceipt/cover-engine/internal/jobs"
	"github.com/thereceipt/cover-engine/internal/layout"
)

func TestGeometry_ShowsCanvas(t *testing.T) {
	g := geometry.Compute(geometry.Book{PageCount: 200, TrimSize: "6x9", PaperType: geometry.PaperWhite}, 300, geometry.KDP)
	w, h := g.CanvasSize()
	out := Geometry(g)

	for _, want := range []string{"300 ppi", "6 x 9 in", "11.699 mm"} {
		if !strings.Contains(out, want) {
			t.Errorf("Geometry() missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, fmt.Sprintf("%d x %d px", w, h)) {
		t.Errorf("Geometry() missing canvas size %dx%d:\n%s", w, h, out)
	}
}

func TestBlurb(t *testing.T) {
	c := layout.NewBarcodeConstraints(6, 9)
	b, ok := c.AutoPlace(30)
	out := Blurb(b, ok, c)
	if !strings.Contains(out, "clear of barcode") {
		t.Errorf("Blurb() = %s", out)
	}
	if out := Blurb(b, false, c); !strings.Contains(out, "no safe placement") {
		t.Errorf("Blurb(unsafe) = %s", out)
	}
}

func TestJob(t *testing.T) {
	out := Job(&jobs.Job{ID: "abc", Title: "Dune", Status: jobs.StatusFailed, Retries: 3, Error: "boom"})
	for _, want := range []string{"abc", "Dune", "failed", "boom", "Retries"} {
		if !strings.Contains(out, want) {
			t.Errorf("Job() missing %q:\n%s", want, out)
		}
	}
}

func TestJobs_Empty(t *testing.T) {
	if out := Jobs(nil); !strings.Contains(out, "No export jobs") {
		t.Errorf("Jobs(nil) = %q", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"a long cover title", 10, "a long ..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
