package render

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/rook-computer/msgboard/internal/render/layout"
)

const partGap = 2

type part struct {
	text string
	rgb  uint32
	img  image.Image
}

// message is the Message implementation shared by the renderers.
type message struct {
	font  *face
	mask  uint32
	parts []part
}

func newMessage(f Font, fonts *fontSet, mask uint32) *message {
	fc, ok := f.(*face)
	if !ok || fc == nil {
		fc = fonts.find("")
	}
	return &message{font: fc, mask: mask}
}

func (m *message) AddText(text string, rgb uint32) {
	m.parts = append(m.parts, part{text: text, rgb: rgb})
}

func (m *message) AddImage(r io.Reader) error {
	img, err := bmp.Decode(r)
	if err != nil {
		return err
	}
	m.parts = append(m.parts, part{img: applyMask(img, m.mask)})
	return nil
}

func (m *message) Clear() { m.parts = nil }

// Text returns the concatenated text runs.
func (m *message) Text() string {
	var b strings.Builder
	for _, p := range m.parts {
		if p.img == nil {
			b.WriteString(p.text)
		}
	}
	return b.String()
}

func (m *message) Images() int {
	n := 0
	for _, p := range m.parts {
		if p.img != nil {
			n++
		}
	}
	return n
}

// applyMask copies img, making pixels of the mask color transparent.
func applyMask(img image.Image, mask uint32) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	mr, mg, mb := uint8(mask>>16), uint8(mask>>8), uint8(mask)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R == mr && c.G == mg && c.B == mb {
				c.A = 0
			}
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return out
}

// compose draws the message into a strip of the given height. Images taller
// than the strip are scaled down; everything is centered vertically.
func (m *message) compose(height int) *image.RGBA {
	type placed struct {
		p     part
		width int
		img   image.Image
	}
	items := make([]placed, 0, len(m.parts))
	total := 0
	for _, p := range m.parts {
		pl := placed{p: p}
		if p.img != nil {
			pl.img = fitHeight(p.img, height)
			pl.width = pl.img.Bounds().Dx()
		} else {
			pl.width = font.MeasureString(m.font.face, p.text).Ceil()
		}
		if total > 0 {
			total += partGap
		}
		total += pl.width
		items = append(items, pl)
	}
	if total == 0 {
		total = 1
	}

	strip := image.NewRGBA(image.Rect(0, 0, total, height))
	metrics := m.font.face.Metrics()
	ascent, descent := metrics.Ascent.Ceil(), metrics.Descent.Ceil()
	baseline := (height + ascent - descent) / 2

	x := 0
	for i, pl := range items {
		if i > 0 {
			x += partGap
		}
		column := image.Rect(x, 0, x+pl.width, height)
		if pl.img != nil {
			ib := pl.img.Bounds()
			dst := layout.CenterVertical(column, ib.Dx(), ib.Dy())
			draw.Draw(strip, dst, pl.img, ib.Min, draw.Over)
		} else {
			d := &font.Drawer{
				Dst:  strip,
				Src:  image.NewUniform(RGB(pl.p.rgb)),
				Face: m.font.face,
				Dot:  fixed.P(x, baseline),
			}
			d.DrawString(pl.p.text)
		}
		x += pl.width
	}
	return strip
}

func fitHeight(img image.Image, height int) image.Image {
	b := img.Bounds()
	if b.Dy() <= height || b.Dy() == 0 {
		return img
	}
	w := b.Dx() * height / b.Dy()
	if w < 1 {
		w = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, height))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
