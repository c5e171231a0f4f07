package renderer

import "image/color"

// FrontPlaceholder is drawn in the front trim when there is no cover image.
const FrontPlaceholder = "Front Cover Area"

func (p *pass) drawFront() {
	panel := p.g.FrontPanel()
	FlatFill{Color: color.White}.Paint(p.dc, panel)

	ref := p.style.Front.ImageRef
	img, ok := p.images[ref]
	if ref == "" || !ok || img == nil {
		if ref != "" {
			p.logger.Warn("front cover image not loaded, using placeholder", "ref", ref)
		}
		p.label(FrontPlaceholder, p.g.FrontTrim())
		return
	}

	reset := p.clip(panel)
	ImageFill{Image: img, Zoom: p.zoom}.Paint(p.dc, panel)
	reset()
}
