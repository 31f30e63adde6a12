package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// op is one deferred paint instruction, in CSS pixels
type op interface {
	paint(dst *image.RGBA, scale float64)
}

func scaledRect(x, y, w, h, scale float64) image.Rectangle {
	return image.Rect(
		int(math.Round(x*scale)), int(math.Round(y*scale)),
		int(math.Round((x+w)*scale)), int(math.Round((y+h)*scale)),
	)
}

func fill(dst *image.RGBA, r image.Rectangle, c color.NRGBA) {
	if c.A == 0 || r.Empty() {
		return
	}
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

type boxOp struct {
	x, y, w, h float64
	style      boxPaint
	border     edges
}

func (o *boxOp) paint(dst *image.RGBA, scale float64) {
	fill(dst, scaledRect(o.x, o.y, o.w, o.h, scale), o.style.background)

	b, c := o.border, o.style.borderColors
	if b.top > 0 {
		fill(dst, scaledRect(o.x, o.y, o.w, b.top, scale), c[0])
	}
	if b.right > 0 {
		fill(dst, scaledRect(o.x+o.w-b.right, o.y, b.right, o.h, scale), c[1])
	}
	if b.bottom > 0 {
		fill(dst, scaledRect(o.x, o.y+o.h-b.bottom, o.w, b.bottom, scale), c[2])
	}
	if b.left > 0 {
		fill(dst, scaledRect(o.x, o.y, b.left, o.h, scale), c[3])
	}
}

type textOp struct {
	x, baseline float64
	text        string
	face        font.Face
	color       color.NRGBA
}

func (o *textOp) paint(dst *image.RGBA, scale float64) {
	if o.color.A == 0 {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(o.color),
		Face: o.face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(o.x * scale * 64), Y: fixed.Int26_6(o.baseline * scale * 64)},
	}
	d.DrawString(o.text)
}

type imageOp struct {
	x, y, w, h float64
	img        image.Image
}

func (o *imageOp) paint(dst *image.RGBA, scale float64) {
	r := scaledRect(o.x, o.y, o.w, o.h, scale)
	if r.Empty() {
		return
	}
	scaled := imaging.Resize(o.img, r.Dx(), r.Dy(), imaging.Lanczos)
	draw.Draw(dst, r, scaled, scaled.Bounds().Min, draw.Over)
}
