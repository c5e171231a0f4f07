package renderer

import (
	"github.com/fogleman/gg"

	"github.com/thereceipt/cover-engine/internal/geometry"
	"github.com/thereceipt/cover-engine/internal/layout"
)

func (p *pass) drawSpine() {
	panel := p.g.SpinePanel()
	fill, _ := resolveFill(p.style.Spine.Background, p.images, p.factor, p.zoom)
	fill.Paint(p.dc, panel)

	spine := p.style.Spine
	trim := p.g.SpineTrim()
	placements := layout.SpinePlacements(p.book.Title, p.book.Author, spine.Text, trim.H)
	if len(placements) == 0 {
		return
	}

	fit := fitSpine(p.g, p.faces, spine.Font.Family, spine.Font.Size,
		layout.SpineText(p.book.Title, p.book.Author, spine.Text))
	if fit.Size < 1 {
		p.logger.Info("spine too thin for text, skipping", "spine_mm", p.g.SpineWidthMM, "size", fit.Size)
		return
	}
	if fit.Floored {
		p.logger.Debug("spine text overflows at minimum size", "width", fit.Width, "available", fit.Available)
	}

	reset := p.clip(trim)
	defer reset()

	cx, cy := trim.Center()
	p.dc.Push()
	p.dc.RotateAbout(gg.Radians(90), cx, cy)
	p.dc.SetFontFace(p.faces.get(spine.Font.Family, fit.Size))
	p.dc.SetColor(spine.Color)
	for _, pl := range placements {
		p.dc.DrawStringAnchored(pl.Text, cx+pl.Offset, cy, 0.5, 0.5)
	}
	p.dc.Pop()
}

// fitSpine sizes the spine candidate text for g. The requested size, step
// and floor are in preview pixels and scale with the resolution.
func fitSpine(g geometry.Geometry, faces *faceCache, family string, requested float64, text string) layout.SpineFit {
	factor := g.Scale()
	return layout.Autofit(text,
		requested*factor,
		g.SpineTextLength(),
		g.SpineTextThickness(),
		factor,
		layout.SpineMinFontSize*factor,
		faces.measure(family),
	)
}
