package layout

import (
	"math"
	"testing"

	"github.com/thereceipt/cover-engine/internal/geometry"
)

func TestNewBarcodeConstraints_6x9(t *testing.T) {
	c := NewBarcodeConstraints(6, 9)

	wantTop := 100 - 0.25/9*100 - 1.2/9*100
	if math.Abs(c.TopBoundaryPercent-wantTop) > 1e-9 {
		t.Errorf("TopBoundaryPercent = %v, want %v", c.TopBoundaryPercent, wantTop)
	}
	if math.Abs(c.MaxSafeVerticalPercent-(wantTop-10)) > 1e-9 {
		t.Errorf("MaxSafeVerticalPercent = %v, want %v", c.MaxSafeVerticalPercent, wantTop-10)
	}
}

func TestAutoPlace_CentredWhenSafe(t *testing.T) {
	c := NewBarcodeConstraints(6, 9)
	b, ok := c.AutoPlace(30)
	if !ok || b.YOffsetPercent != 0 || b.HeightPercent != 30 {
		t.Errorf("AutoPlace(30) = %+v, %v; want centred 30%%", b, ok)
	}
}

func TestAutoPlace_MovesUp(t *testing.T) {
	c := NewBarcodeConstraints(6, 9)
	b, ok := c.AutoPlace(60)
	if !ok {
		t.Fatal("Expected a safe placement")
	}
	if b.YOffsetPercent >= 0 {
		t.Errorf("Expected the box to move up, got offset %v", b.YOffsetPercent)
	}
	if b.YOffsetPercent != math.Trunc(b.YOffsetPercent) {
		t.Errorf("Expected a whole-number offset, got %v", b.YOffsetPercent)
	}
}

func TestBlurbBoxStaysClearOfBarcode(t *testing.T) {
	for _, trim := range geometry.SupportedTrimSizes {
		w, h, _ := geometry.ParseTrimSize(trim)
		c := NewBarcodeConstraints(w, h)

		for height := 0.0; height <= 110; height += 0.5 {
			if b, ok := c.AutoPlace(height); ok && !c.Safe(b) {
				t.Errorf("%s: AutoPlace(%v) = %+v is unsafe", trim, height, b)
			} else if !ok {
				t.Errorf("%s: AutoPlace(%v) found no placement", trim, height)
			}

			for offset := -60.0; offset <= 110; offset += 3.5 {
				for _, edited := range []Field{FieldHeight, FieldYOffset} {
					b, ok := c.SolveManual(Box{HeightPercent: height, YOffsetPercent: offset}, edited)
					if !ok {
						t.Errorf("%s: SolveManual(%v, %v, %s) found no placement", trim, height, offset, edited)
						continue
					}
					if b.CenterPercent()+b.HeightPercent/2 > c.MaxSafeVerticalPercent {
						t.Errorf("%s: SolveManual(%v, %v, %s) = %+v breaks the barcode buffer", trim, height, offset, edited, b)
					}
				}
			}
		}
	}
}

func TestSolveManual_KeepsSafeInput(t *testing.T) {
	c := NewBarcodeConstraints(6, 9)
	in := Box{HeightPercent: 25, YOffsetPercent: -10}
	if b, ok := c.SolveManual(in, FieldHeight); !ok || b != in {
		t.Errorf("SolveManual() = %+v, %v; want input unchanged", b, ok)
	}
}

func TestSolveManual_SearchOrder(t *testing.T) {
	c := NewBarcodeConstraints(6, 9)
	in := Box{HeightPercent: 40, YOffsetPercent: 30}

	byHeight, _ := c.SolveManual(in, FieldHeight)
	if byHeight.YOffsetPercent != 30 || byHeight.HeightPercent >= 40 {
		t.Errorf("height-first solve = %+v, want only height reduced", byHeight)
	}

	byOffset, _ := c.SolveManual(in, FieldYOffset)
	if byOffset.HeightPercent != 40 || byOffset.YOffsetPercent >= 30 {
		t.Errorf("offset-first solve = %+v, want only offset reduced", byOffset)
	}
}

func TestSolveManual_ImpossibleTrim(t *testing.T) {
	// A 2in tall trim leaves no room above a 1.2in barcode.
	c := NewBarcodeConstraints(4, 2)
	if _, ok := c.SolveManual(Box{HeightPercent: 30, YOffsetPercent: 10}, FieldHeight); ok {
		t.Error("Expected no safe placement on a 2in trim")
	}
}

func TestAutoHeightPercent(t *testing.T) {
	m := monoMeasurer{advance: 5}
	bt := BlurbText{Text: "one two three", Measurer: m, FontSize: 10, Padding: 15, MarginPercent: 10}

	// One line: 12px text + 30px padding = 42px of 648px = 6.5% -> floor 10.
	if got := AutoHeightPercent(bt, 432, 648); got != 10 {
		t.Errorf("AutoHeightPercent() = %v, want 10", got)
	}

	bt.Text = blurb
	got := AutoHeightPercent(bt, 432, 648)
	textWidth := 432*0.8 - 30
	want := math.Round((Height(blurb, m, textWidth, 12) + 30) / 648 * 100)
	if got != math.Max(10, want) {
		t.Errorf("AutoHeightPercent() = %v, want %v", got, want)
	}

	bt.Text = ""
	if got := AutoHeightPercent(bt, 432, 648); got != DefaultBlurbHeightPercent {
		t.Errorf("AutoHeightPercent(empty) = %v, want %v", got, DefaultBlurbHeightPercent)
	}
}

func TestBoxRect(t *testing.T) {
	trim := geometry.Rect{X: 9, Y: 9, W: 432, H: 648}
	r := BoxRect(trim, 10, Box{HeightPercent: 30, YOffsetPercent: 10})

	want := geometry.Rect{X: 9 + 43.2, W: 432 - 86.4, H: 194.4}
	centerY := 9 + 324 + 324*0.1
	want.Y = centerY - want.H/2
	for _, d := range []float64{r.X - want.X, r.Y - want.Y, r.W - want.W, r.H - want.H} {
		if math.Abs(d) > 1e-9 {
			t.Fatalf("BoxRect() = %+v, want %+v", r, want)
		}
	}
}
