package raster

import (
	"errors"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// fallbackFace draws every rune src has no glyph for with the fallback face.
// Metrics come from the primary face so line boxes do not change.
type fallbackFace struct {
	font.Face
	src      *opentype.Font
	buf      sfnt.Buffer
	fallback font.Face
}

func (f *fallbackFace) pick(r rune) font.Face {
	if hasGlyph(f.src, &f.buf, r) {
		return f.Face
	}
	return f.fallback
}

func (f *fallbackFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	return f.pick(r).Glyph(dot, r)
}

func (f *fallbackFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	return f.pick(r).GlyphBounds(r)
}

func (f *fallbackFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) {
	return f.pick(r).GlyphAdvance(r)
}

func (f *fallbackFace) Kern(r0, r1 rune) fixed.Int26_6 {
	a, b := f.pick(r0), f.pick(r1)
	if a != b {
		return 0
	}
	return a.Kern(r0, r1)
}

func (f *fallbackFace) Close() error {
	return errors.Join(f.Face.Close(), f.fallback.Close())
}

// hasGlyph reports whether src maps r to a real glyph
func hasGlyph(src *opentype.Font, buf *sfnt.Buffer, r rune) bool {
	idx, err := src.GlyphIndex(buf, r)
	return err == nil && idx != 0
}
