// Package raster paints a visual tree onto a bitmap. It understands a small
// block/flex/grid/table subset of CSS layout and, like canvas based page
// capture, only legacy color syntax: any modern color function in a painted
// property fails the whole capture.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"unicode"

	"invoicegen/internal/visual"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

const (
	DefaultScale       = 2.0
	DefaultWindowWidth = 800
)

var (
	// ErrTaintedCanvas is returned for images whose pixels cannot be read back
	ErrTaintedCanvas = errors.New("tainted canvas: only embedded data: images can be captured")
	ErrNoElement     = errors.New("no element to capture")
	ErrEmptyCanvas   = errors.New("element has no size")
)

// UnsupportedColorError reports a painted value the rasterizer cannot parse
type UnsupportedColorError struct {
	Property string
	Value    string
}

func (e *UnsupportedColorError) Error() string {
	return fmt.Sprintf("attempting to parse an unsupported color function in %s: %q", e.Property, e.Value)
}

// Options tune a capture. Zero values take the defaults.
type Options struct {
	Scale        float64
	Background   color.Color
	WindowWidth  int
	WindowHeight int
	Ignore       func(visual.Element) bool
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Background == nil {
		o.Background = color.White
	}
	if o.WindowWidth <= 0 {
		o.WindowWidth = DefaultWindowWidth
	}
	return o
}

// Rasterizer captures an element into a bitmap
type Rasterizer interface {
	Rasterize(ctx context.Context, root visual.Element, opts Options) (*image.RGBA, error)
}

// CanvasRasterizer lays out and paints with the Go fonts. Runes the Go
// fonts lack are drawn with the fallback font when one is configured and as
// missing-glyph boxes otherwise.
type CanvasRasterizer struct {
	regular  *opentype.Font
	bold     *opentype.Font
	fallback *opentype.Font
}

var _ Rasterizer = (*CanvasRasterizer)(nil)

// CanvasOption configures a CanvasRasterizer
type CanvasOption func(*CanvasRasterizer) error

// WithFallbackFont parses a TrueType or OpenType font used for glyphs the Go fonts lack
func WithFallbackFont(data []byte) CanvasOption {
	return func(r *CanvasRasterizer) error {
		f, err := opentype.Parse(data)
		if err != nil {
			return fmt.Errorf("failed to load fallback font: %w", err)
		}
		r.fallback = f
		return nil
	}
}

func NewCanvasRasterizer(opts ...CanvasOption) (*CanvasRasterizer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load bold font: %w", err)
	}
	r := &CanvasRasterizer{regular: regular, bold: bold}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MissingGlyphs lists, once each, the runes of s that no configured font can draw
func (r *CanvasRasterizer) MissingGlyphs(s string) []rune {
	var (
		buf     sfnt.Buffer
		missing []rune
		seen    = map[rune]bool{}
	)
	for _, c := range s {
		if unicode.IsSpace(c) || seen[c] {
			continue
		}
		seen[c] = true
		if hasGlyph(r.regular, &buf, c) || (r.fallback != nil && hasGlyph(r.fallback, &buf, c)) {
			continue
		}
		missing = append(missing, c)
	}
	return missing
}

// Rasterize lays root out at the window width and paints it at opts.Scale
func (r *CanvasRasterizer) Rasterize(ctx context.Context, root visual.Element, opts Options) (*image.RGBA, error) {
	if root == nil || root.IsText() {
		return nil, ErrNoElement
	}
	opts = opts.withDefaults()

	l := newLayout(ctx, opts, newFaceCache(r.regular, r.bold, r.fallback, opts.Scale))
	w, h, err := l.block(root, 0, 0, float64(opts.WindowWidth), 0)
	if err != nil {
		return nil, err
	}

	cw, ch := int(math.Ceil(w*opts.Scale)), int(math.Ceil(h*opts.Scale))
	if cw <= 0 || ch <= 0 {
		return nil, ErrEmptyCanvas
	}

	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	for _, op := range l.ops {
		if op != nil {
			op.paint(dst, opts.Scale)
		}
	}
	return dst, nil
}
