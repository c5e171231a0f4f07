package renderer

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/geometry"
)

// PatternFill draws one of the repeating back cover patterns over a base of
// Color1. Pattern.Scale is in preview pixels and is multiplied by Factor
// (dpi/72 for export, 1 for preview). Zoom converts user units to device
// pixels for stroke widths, which gg does not transform.
type PatternFill struct {
	Pattern coverformat.Pattern
	Factor  float64
	Zoom    float64
}

func (f PatternFill) Paint(dc *gg.Context, r geometry.Rect) {
	FlatFill{Color: f.Pattern.Color1}.Paint(dc, r)

	factor, zoom := f.Factor, f.Zoom
	if factor <= 0 {
		factor = 1
	}
	if zoom <= 0 {
		zoom = 1
	}
	scale := f.Pattern.Scale
	if scale <= 0 {
		scale = coverformat.DefaultPatternScale
	}
	p := patternPainter{dc: dc, r: r, size: scale * factor, factor: factor, zoom: zoom, pattern: f.Pattern}

	switch f.Pattern.Type {
	case "dots":
		p.dots()
	case "checkerboard":
		p.checkerboard()
	case "diagonal":
		p.diagonal()
	case "grid":
		p.grid()
	case "circles":
		p.circles()
	case "triangles":
		p.triangles()
	case "hexagons":
		p.hexagons()
	case "waves":
		p.waves()
	case "diamonds":
		p.diamonds()
	default:
		p.stripes()
	}
}

type patternPainter struct {
	dc      *gg.Context
	r       geometry.Rect
	size    float64 // pattern scale in user units
	factor  float64
	zoom    float64
	pattern coverformat.Pattern
}

func (p patternPainter) stroke(width float64) {
	p.dc.SetColor(p.pattern.Color2)
	p.dc.SetLineWidth(width * p.zoom)
	p.dc.Stroke()
}

func (p patternPainter) fill() {
	p.dc.SetColor(p.pattern.Color2)
	p.dc.Fill()
}

func (p patternPainter) stripes() {
	x, y, w, h := p.r.X, p.r.Y, p.r.W, p.r.H
	vertical := p.pattern.Direction != coverformat.Horizontal
	limit := h
	if vertical {
		limit = w
	}

	for i := 0; float64(i)*p.size < limit; i++ {
		if i%2 == 0 {
			p.dc.SetColor(p.pattern.Color1)
		} else {
			p.dc.SetColor(p.pattern.Color2)
		}
		offset := float64(i) * p.size
		if vertical {
			p.dc.DrawRectangle(x+offset, y, p.size, h)
		} else {
			p.dc.DrawRectangle(x, y+offset, w, p.size)
		}
		p.dc.Fill()
	}
}

func (p patternPainter) dots() {
	radius := p.size / 2
	step := p.size * 1.5
	for row := 0; ; row++ {
		cy := radius + float64(row)*step
		if cy >= p.r.H {
			break
		}
		for col := 0; ; col++ {
			cx := radius + float64(col)*step
			if cx >= p.r.W {
				break
			}
			p.dc.DrawCircle(p.r.X+cx, p.r.Y+cy, radius)
		}
	}
	p.fill()
}

// checkerboard fills the odd cells; the even cells are the Color1 base.
func (p patternPainter) checkerboard() {
	for row := 0; float64(row)*p.size < p.r.H; row++ {
		for col := 0; float64(col)*p.size < p.r.W; col++ {
			if (row+col)%2 == 0 {
				continue
			}
			p.dc.DrawRectangle(p.r.X+float64(col)*p.size, p.r.Y+float64(row)*p.size, p.size, p.size)
		}
	}
	p.fill()
}

func (p patternPainter) diagonal() {
	x, y, w, h := p.r.X, p.r.Y, p.r.W, p.r.H
	for i := 0; ; i++ {
		d := -h + float64(i)*p.size
		if d >= w+h {
			break
		}
		p.dc.MoveTo(x+d, y)
		p.dc.LineTo(x+d+h, y+h)
	}
	p.stroke(p.size / 4)
}

func (p patternPainter) grid() {
	x, y, w, h := p.r.X, p.r.Y, p.r.W, p.r.H
	for i := 0; float64(i)*p.size <= w; i++ {
		gx := x + float64(i)*p.size
		p.dc.MoveTo(gx, y)
		p.dc.LineTo(gx, y+h)
	}
	for i := 0; float64(i)*p.size <= h; i++ {
		gy := y + float64(i)*p.size
		p.dc.MoveTo(x, gy)
		p.dc.LineTo(x+w, gy)
	}
	p.stroke(p.factor)
}

func (p patternPainter) circles() {
	radius := p.size / 3
	for row := 1; float64(row)*p.size < p.r.H; row++ {
		for col := 1; float64(col)*p.size < p.r.W; col++ {
			p.dc.DrawCircle(p.r.X+float64(col)*p.size, p.r.Y+float64(row)*p.size, radius)
		}
	}
	p.fill()
}

func (p patternPainter) triangles() {
	side := p.size
	height := side * 0.866
	for row := 0; float64(row)*height < p.r.H; row++ {
		ty := p.r.Y + float64(row)*height
		offset := 0.0
		if row%2 == 1 {
			offset = side / 2
		}
		for col := 0; float64(col)*side < p.r.W; col++ {
			tx := p.r.X + float64(col)*side + offset
			p.dc.MoveTo(tx, ty)
			p.dc.LineTo(tx+side/2, ty+height)
			p.dc.LineTo(tx-side/2, ty+height)
			p.dc.ClosePath()
		}
	}
	p.fill()
}

func (p patternPainter) hexagons() {
	size := p.size
	hexHeight := size * 0.866
	hexWidth := size * 1.5
	rowStep := hexHeight * 1.5
	for row := 0; float64(row)*rowStep < p.r.H+hexHeight; row++ {
		offset := 0.0
		if row%2 == 1 {
			offset = hexWidth / 2
		}
		cy := p.r.Y + float64(row)*rowStep + hexHeight/2
		for col := 0; float64(col)*hexWidth < p.r.W+hexWidth; col++ {
			cx := p.r.X + float64(col)*hexWidth + offset
			for i := range 6 {
				angle := float64(i) * math.Pi / 3
				vx := cx + size/2*math.Cos(angle)
				vy := cy + size/2*math.Sin(angle)
				if i == 0 {
					p.dc.MoveTo(vx, vy)
				} else {
					p.dc.LineTo(vx, vy)
				}
			}
			p.dc.ClosePath()
		}
	}
	p.fill()
}

func (p patternPainter) waves() {
	amplitude := p.size / 4
	wavelength := 2 * p.size
	for row := 0; ; row++ {
		wy := p.size + float64(row)*p.size*2
		if wy >= p.r.H {
			break
		}
		p.dc.MoveTo(p.r.X, p.r.Y+wy)
		for wx := 0.0; wx <= p.r.W; wx += 5 {
			p.dc.LineTo(p.r.X+wx, p.r.Y+wy+math.Sin(wx/wavelength*2*math.Pi)*amplitude)
		}
		p.stroke(p.size / 6)
	}
}

func (p patternPainter) diamonds() {
	size := p.size
	half := size / 2
	for row := 0; float64(row)*size < p.r.H; row++ {
		offset := 0.0
		if row%2 == 1 {
			offset = half
		}
		cy := p.r.Y + float64(row)*size + half
		for col := 0; float64(col)*size < p.r.W; col++ {
			cx := p.r.X + float64(col)*size + offset + half
			p.dc.MoveTo(cx, cy-half)
			p.dc.LineTo(cx+half, cy)
			p.dc.LineTo(cx, cy+half)
			p.dc.LineTo(cx-half, cy)
			p.dc.ClosePath()
		}
	}
	p.fill()
}
