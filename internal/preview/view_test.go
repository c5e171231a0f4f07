package preview

import (
	"errors"
	"image"
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestZoomAt_KeepsCursorPointFixed(t *testing.T) {
	v := NewView()
	v.OffsetX, v.OffsetY = 40, 20

	const cx, cy = 300.0, 200.0
	worldX := (cx - v.OffsetX) / v.Scale
	worldY := (cy - v.OffsetY) / v.Scale

	v.ZoomAt(cx, cy, -500) // zoom in by 0.5
	if !near(v.Scale, 1.5) {
		t.Fatalf("Scale = %v, want 1.5", v.Scale)
	}
	if gotX, gotY := v.OffsetX+worldX*v.Scale, v.OffsetY+worldY*v.Scale; !near(gotX, cx) || !near(gotY, cy) {
		t.Errorf("cursor point moved to (%v, %v), want (%v, %v)", gotX, gotY, cx, cy)
	}
}

func TestZoomAt_Clamps(t *testing.T) {
	tests := []struct {
		name   string
		deltaY float64
		want   float64
	}{
		{"far in", -100000, 5},
		{"far out", 100000, 0.2},
		{"small out", 100, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewView()
			v.ZoomAt(0, 0, tt.deltaY)
			if !near(v.Scale, tt.want) {
				t.Errorf("Scale = %v, want %v", v.Scale, tt.want)
			}
		})
	}
}

func TestZoomButtons(t *testing.T) {
	v := NewView()
	v.OffsetX = 12

	v.ZoomIn()
	if !near(v.Scale, 1.1) || v.OffsetX != 12 {
		t.Errorf("after ZoomIn: %+v", v)
	}

	v.Scale = 0.25
	v.ZoomOut()
	if !near(v.Scale, 0.2) {
		t.Errorf("ZoomOut below minimum = %v, want 0.2", v.Scale)
	}

	v.Scale = 4.95
	v.ZoomIn()
	if !near(v.Scale, 5) {
		t.Errorf("ZoomIn above maximum = %v, want 5", v.Scale)
	}
}

func TestPan(t *testing.T) {
	v := NewView()
	if v.PanTo(10, 10) {
		t.Fatal("PanTo without BeginPan should be ignored")
	}

	v.OffsetX, v.OffsetY = 5, 5
	v.BeginPan(100, 100)
	if !v.PanTo(130, 90) {
		t.Fatal("PanTo during a drag returned false")
	}
	if v.OffsetX != 35 || v.OffsetY != -5 {
		t.Errorf("offset = (%v, %v), want (35, -5)", v.OffsetX, v.OffsetY)
	}

	v.EndPan()
	if v.Panning() || v.PanTo(0, 0) {
		t.Error("Expected the drag to have ended")
	}
}

func TestReset(t *testing.T) {
	v := NewView()
	v.ZoomAt(50, 50, -300)
	v.BeginPan(0, 0)
	v.Reset()

	if v.Scale != 1 || v.OffsetX != 0 || v.OffsetY != 0 || v.Panning() {
		t.Errorf("after Reset: %+v", v)
	}
}

func TestTarget_ClampsScale(t *testing.T) {
	v := View{Scale: 12, OffsetX: 3}
	target := v.Target()
	if target.Scale != 5 || target.OffsetX != 3 {
		t.Errorf("Target() = %+v", target)
	}
}

func TestSetViewport(t *testing.T) {
	tests := []struct {
		w, h    float64
		wantErr bool
	}{
		{800, 600, false},
		{1, 1, false},
		{MaxViewportSide, MaxViewportSide, false},
		{0, 600, true},
		{800, -1, true},
		{MaxViewportSide + 1, 600, true},
		{1e12, 1e12, true},
		{math.NaN(), 600, true},
	}
	for _, tt := range tests {
		v := NewView()
		err := v.SetViewport(tt.w, tt.h)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetViewport(%v, %v) error = %v, wantErr %v", tt.w, tt.h, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !errors.Is(err, ErrInvalidViewport) {
				t.Errorf("SetViewport(%v, %v) = %v, want ErrInvalidViewport", tt.w, tt.h, err)
			}
			if v.Viewport != (image.Point{}) {
				t.Errorf("Viewport changed to %v on error", v.Viewport)
			}
			continue
		}
		if v.Target().Viewport != image.Pt(int(tt.w), int(tt.h)) {
			t.Errorf("Target().Viewport = %v", v.Target().Viewport)
		}
	}
}
