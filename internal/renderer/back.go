package renderer

import (
	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/geometry"
	"github.com/thereceipt/cover-engine/internal/layout"
)

// freeTextPaddingInches insets back text from the trim when there is no box.
const freeTextPaddingInches = 0.5

func (p *pass) drawBack() {
	panel := p.g.BackPanel()
	bg := p.style.Back.Background

	fill, ok := resolveFill(bg, p.images, p.factor, p.zoom)
	reset := p.clip(panel)
	fill.Paint(p.dc, panel)
	reset()
	if !ok {
		p.logger.Warn("back cover image not loaded, using flat colour", "ref", bg.ImageRef)
		p.label("Back Cover Image", p.g.BackTrim())
	}

	p.drawBarcodeRegion()

	if p.style.Blurb.Enabled {
		if box, ok := p.blurbBox(); ok {
			p.drawBlurbBox(box)
			return
		}
		p.logger.Warn("no blurb box fits above the barcode, drawing text without a box",
			"trim", p.book.TrimSize)
	}
	p.drawFreeText()
}

// blurbBox chooses the blurb box. Percentages are solved at the preview
// resolution so the result does not depend on the target.
func (p *pass) blurbBox() (layout.Box, bool) {
	blurb := p.style.Blurb
	c := layout.NewBarcodeConstraints(p.g.TrimWidthIn, p.g.TrimHeightIn)

	if blurb.Sizing == coverformat.SizingManual {
		return c.SolveManual(blurb.Box, layout.FieldHeight)
	}

	height := layout.DefaultBlurbHeightPercent
	if text := p.style.Back.Text; text != "" {
		font := p.style.Back.Font
		height = layout.AutoHeightPercent(layout.BlurbText{
			Text:          text,
			Measurer:      faceMeasurer{face: p.faces.get(font.Family, font.Size)},
			FontSize:      font.Size,
			Padding:       blurb.Padding,
			MarginPercent: blurb.MarginPercent,
		}, p.g.TrimWidthIn*geometry.PreviewPPI, p.g.TrimHeightIn*geometry.PreviewPPI)
	}
	return c.AutoPlace(height)
}

func (p *pass) drawBlurbBox(box layout.Box) {
	blurb := p.style.Blurb
	r := layout.BoxRect(p.g.BackTrim(), blurb.MarginPercent, box)

	radius := min(blurb.CornerRadius*p.factor, r.W/2, r.H/2)
	p.dc.SetColor(coverformat.WithOpacity(blurb.Fill, blurb.Opacity))
	p.dc.DrawRoundedRectangle(r.X, r.Y, r.W, r.H, radius)
	p.dc.Fill()

	if p.style.Back.Text == "" {
		return
	}
	padding := blurb.Padding * p.factor
	reset := p.clip(r)
	p.drawBackText(geometry.Rect{X: r.X + padding, Y: r.Y + padding, W: r.W - 2*padding})
	reset()
}

func (p *pass) drawFreeText() {
	if p.style.Back.Text == "" {
		return
	}
	trim := p.g.BackTrim()
	pad := p.g.Px(freeTextPaddingInches)
	p.drawBackText(geometry.Rect{X: trim.X + pad, Y: trim.Y + pad, W: trim.W - 2*pad})
}

// drawBackText lays the back text out from the top-left of area across its
// width. Height is unbounded.
func (p *pass) drawBackText(area geometry.Rect) {
	back := p.style.Back
	size := back.Font.Size * p.factor
	p.dc.SetColor(back.TextColor)
	drawBlock(p.dc, p.faces.get(back.Font.Family, size), back.Text, layout.Block{
		X:          area.X,
		Y:          area.Y,
		MaxWidth:   area.W,
		LineHeight: size * layout.LineHeightFactor,
		Align:      back.Align,
	})
}
