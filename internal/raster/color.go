package raster

import (
	"image/color"
	"strings"

	"invoicegen/internal/visual"

	"github.com/mazznoer/csscolorparser"
)

var modernColorTokens = []string{"oklch(", "oklab(", "lab(", "lch(", "color(", "color-mix(", "hwb(", "var("}

var legacyPrefixes = []string{"#", "rgb(", "rgba(", "hsl(", "hsla("}

// parseColor accepts hex, rgb(a), hsl(a) and named colors only
func parseColor(prop, v string) (color.NRGBA, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	if s == "" || s == "transparent" || s == "none" {
		return color.NRGBA{}, nil
	}
	if !isLegacy(s) {
		return color.NRGBA{}, &UnsupportedColorError{Property: prop, Value: v}
	}
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.NRGBA{}, &UnsupportedColorError{Property: prop, Value: v}
	}
	r, g, b, a := c.RGBA255()
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

func isLegacy(s string) bool {
	for _, p := range legacyPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// checkModern fails on composite paint values that embed modern color syntax
func checkModern(prop, v string) error {
	lower := strings.ToLower(v)
	for _, tok := range modernColorTokens {
		if strings.Contains(lower, tok) {
			return &UnsupportedColorError{Property: prop, Value: v}
		}
	}
	return nil
}

var sides = [4]string{"top", "right", "bottom", "left"}

// boxPaint is everything a box paints besides its content
type boxPaint struct {
	background   color.NRGBA
	borderColors [4]color.NRGBA
}

func resolveBoxPaint(el visual.Element) (boxPaint, error) {
	var bp boxPaint
	var err error

	if bp.background, err = parseColor("background-color", visual.Computed(el, "background-color")); err != nil {
		return bp, err
	}
	for i, side := range sides {
		prop := "border-" + side + "-color"
		if bp.borderColors[i], err = parseColor(prop, visual.Computed(el, prop)); err != nil {
			return bp, err
		}
	}
	for _, prop := range []string{"background-image", "box-shadow", "text-shadow"} {
		if err := checkModern(prop, rawOrComputed(el, prop)); err != nil {
			return bp, err
		}
	}
	return bp, nil
}

// rawOrComputed prefers the inline text so unresolved var() references are seen
func rawOrComputed(el visual.Element, prop string) string {
	if v, ok := el.Style().Get(prop); ok {
		return v
	}
	return visual.Computed(el, prop)
}
