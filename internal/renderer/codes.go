package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/ean"
	"github.com/fogleman/gg"
	"github.com/skip2/go-qrcode"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/geometry"
)

var (
	barcodeOutline = color.RGBA{100, 100, 100, 204}

	// barcodePaddingInches keeps code content off the dashed outline.
	barcodePaddingInches = 0.1
)

// drawBarcodeRegion blanks the protected region and draws its outline, then
// the ISBN barcode or QR code when the design carries one.
func (p *pass) drawBarcodeRegion() {
	r := p.g.Barcode()
	p.dc.SetColor(color.White)
	p.dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	p.dc.Fill()

	p.dc.SetColor(barcodeOutline)
	p.dc.SetLineWidth(p.line(1))
	p.dc.SetDash(p.line(2), p.line(2))
	p.dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	p.dc.Stroke()
	p.dc.SetDash()

	inner := r.Inset(p.g.Px(barcodePaddingInches), p.g.Px(barcodePaddingInches))
	img, err := p.barcodeImage(p.style.Barcode, inner)
	if err != nil {
		p.logger.Warn("barcode content skipped", "error", err)
		return
	}
	if img != nil {
		placeCentred(p.dc, img, inner)
	}
}

// barcodeImage encodes the barcode content at the device size of r.
func (p *pass) barcodeImage(b coverformat.BarcodeStyle, r geometry.Rect) (image.Image, error) {
	w := int(math.Floor(r.W * p.zoom))
	h := int(math.Floor(r.H * p.zoom))
	if w <= 0 || h <= 0 {
		return nil, nil
	}

	switch {
	case b.ISBN != "":
		code, err := ean.Encode(b.ISBN)
		if err != nil {
			return nil, fmt.Errorf("failed to encode ISBN: %w", err)
		}
		scaled, err := barcode.Scale(code, w, h)
		if err != nil {
			return nil, fmt.Errorf("ISBN barcode does not fit: %w", err)
		}
		return scaled, nil
	case b.URL != "":
		qr, err := qrcode.New(b.URL, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("failed to encode QR code: %w", err)
		}
		return qr.Image(min(w, h)), nil
	default:
		return nil, nil
	}
}

// placeCentred draws a device-sized image centred in r.
func placeCentred(dc *gg.Context, img image.Image, r geometry.Rect) {
	cx, cy := r.Center()
	dx, dy := dc.TransformPoint(cx, cy)

	dc.Push()
	dc.Identity()
	dc.DrawImageAnchored(img, int(math.Round(dx)), int(math.Round(dy)), 0.5, 0.5)
	dc.Pop()
}
