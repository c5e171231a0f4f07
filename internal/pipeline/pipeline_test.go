package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/export"
	"github.com/thereceipt/cover-engine/internal/jobs"
	"github.com/thereceipt/cover-engine/internal/renderer"
)

type mapResolver map[string]image.Image

func (m mapResolver) Resolve(ctx context.Context, ref string) (image.Image, error) {
	if img, ok := m[ref]; ok {
		return img, nil
	}
	return nil, errors.New("not found")
}

type slowFonts struct{ waited bool }

func (s *slowFonts) WaitReady(ctx context.Context, timeout time.Duration) error {
	s.waited = true
	return errors.New("fonts not ready")
}

func testProject() *coverformat.Project {
	return &coverformat.Project{
		Version: coverformat.Version,
		Book: coverformat.BookMetadata{
			Title:     "Dune",
			Author:    "Frank Herbert",
			PageCount: 200,
			TrimSize:  "6x9",
			PaperType: "white",
		},
		Design: coverformat.DesignOptions{
			FrontCoverImageURL: "front.png",
		},
	}
}

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 40, 60))
	for y := range 60 {
		for x := range 40 {
			img.Set(x, y, c)
		}
	}
	return img
}

func newPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	r, err := renderer.New()
	if err != nil {
		t.Fatalf("renderer.New() error: %v", err)
	}
	clock := func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return New(r, append([]Option{WithClock(clock)}, opts...)...)
}

func TestExport_PNG(t *testing.T) {
	p := newPipeline(t, WithResolver(mapResolver{"front.png": solid(color.RGBA{200, 0, 0, 255})}))

	res, err := p.Export(context.Background(), testProject(), export.PNG, 72)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if res.Filename != "dune_72dpi_2025-01-02.png" {
		t.Errorf("Filename = %q", res.Filename)
	}

	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	w, h := p.Geometry(testProject().Book, 72).CanvasSize()
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Errorf("size = %v, want %dx%d", img.Bounds(), w, h)
	}

	// The front image is drawn in the front panel
	front := p.Geometry(testProject().Book, 72).FrontTrim()
	cx, cy := front.Center()
	if r, g, _, _ := img.At(int(cx), int(cy)).RGBA(); r>>8 < 150 || g>>8 > 50 {
		t.Errorf("front centre = %v, want the red image", img.At(int(cx), int(cy)))
	}
}

func TestExport_DefaultDPI(t *testing.T) {
	p := newPipeline(t, WithDefaultDPI(50))
	res, err := p.Export(context.Background(), testProject(), export.PDF, 0)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if res.Filename != "dune_50dpi_2025-01-02.pdf" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if !bytes.HasPrefix(res.Data, []byte("%PDF-")) {
		t.Error("Expected a PDF")
	}
}

func TestExport_NilProject(t *testing.T) {
	p := newPipeline(t)
	if _, err := p.Export(context.Background(), nil, export.PNG, 72); err == nil {
		t.Error("Expected error for a nil project")
	}
}

func TestProcess_ImplementsJobs(t *testing.T) {
	var _ jobs.Processor = (*Pipeline)(nil)

	p := newPipeline(t)
	res, err := p.Process(context.Background(), jobs.Request{Project: *testProject(), Format: export.PNG, DPI: 36})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(res.Data) == 0 {
		t.Error("Process() returned no data")
	}
}

func TestPrepare_FontsNotReadyStillRenders(t *testing.T) {
	fonts := &slowFonts{}
	p := newPipeline(t, WithReadiness(fonts, time.Millisecond))

	img, err := p.Preview(context.Background(), testProject(), renderer.Interactive{Scale: 0.5}, true)
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	if !fonts.waited {
		t.Error("Expected the readiness gate to be consulted")
	}
	g := p.Geometry(testProject().Book, 72)
	if want := int(math.Ceil(g.CanvasWidth * 0.5)); img.Bounds().Dx() != want {
		t.Errorf("preview width = %d, want %d", img.Bounds().Dx(), want)
	}
}

func TestPreviewPNG_Viewport(t *testing.T) {
	p := newPipeline(t)
	data, err := p.PreviewPNG(context.Background(), testProject(), renderer.Interactive{Scale: 1, Viewport: image.Pt(320, 200)}, false)
	if err != nil {
		t.Fatalf("PreviewPNG() error: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.DecodeConfig() error: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 200 {
		t.Errorf("preview = %dx%d, want 320x200", cfg.Width, cfg.Height)
	}
}

func TestExport_RejectsOutOfRangeDPI(t *testing.T) {
	p := newPipeline(t)
	for _, dpi := range []float64{-1, 5000, 1e7, 1e12, math.Inf(1)} {
		if _, err := p.Export(context.Background(), testProject(), export.PNG, dpi); !errors.Is(err, export.ErrDPIOutOfRange) {
			t.Errorf("Export(dpi=%v) error = %v, want ErrDPIOutOfRange", dpi, err)
		}
	}
}

func TestProcess_OversizedRequestFailsWithoutRetry(t *testing.T) {
	p := newPipeline(t)
	_, err := p.Process(context.Background(), jobs.Request{Project: *testProject(), Format: export.PNG, DPI: 1e7})
	if !jobs.IsPermanent(err) || !errors.Is(err, export.ErrDPIOutOfRange) {
		t.Fatalf("Process() error = %v, want a permanent ErrDPIOutOfRange", err)
	}

	q := jobs.NewQueue(p, jobs.WithInterval(time.Millisecond), jobs.WithRetryDelay(time.Millisecond))
	defer q.Stop()
	bad := q.Enqueue(jobs.Request{Project: *testProject(), Format: export.PNG, DPI: 1e7})
	good := q.Enqueue(jobs.Request{Project: *testProject(), Format: export.PNG, DPI: 36})

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.GetJob(good)
		if err != nil {
			t.Fatalf("GetJob() error: %v", err)
		}
		if job.Status == jobs.StatusCompleted || job.Status == jobs.StatusFailed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	badJob, _ := q.GetJob(bad)
	if badJob.Status != jobs.StatusFailed || badJob.Retries != 1 {
		t.Errorf("oversized job = %+v, want failed after one attempt", badJob)
	}
	if goodJob, _ := q.GetJob(good); goodJob.Status != jobs.StatusCompleted {
		t.Errorf("following job = %+v, want completed", goodJob)
	}
}

func TestExport_Cancelled(t *testing.T) {
	p := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Export(ctx, testProject(), export.PNG, 72); !errors.Is(err, context.Canceled) {
		t.Errorf("Export() error = %v, want context.Canceled", err)
	}
}
