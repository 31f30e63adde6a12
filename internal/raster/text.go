package raster

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
	"unicode"

	"invoicegen/internal/visual"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

const rootFontSize = 16.0

type faceKey struct {
	bold bool
	size float64
}

// faceCache is per capture: opentype faces are not safe for concurrent use
type faceCache struct {
	regular, bold, fallback *opentype.Font
	scale                   float64
	faces                   map[faceKey]font.Face
}

func newFaceCache(regular, bold, fallback *opentype.Font, scale float64) *faceCache {
	return &faceCache{regular: regular, bold: bold, fallback: fallback, scale: scale, faces: make(map[faceKey]font.Face)}
}

// face returns a face for a CSS pixel size, already multiplied by the capture scale
func (c *faceCache) face(bold bool, sizePx float64) (font.Face, error) {
	key := faceKey{bold: bold, size: math.Round(sizePx*c.scale*2) / 2}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	src := c.regular
	if bold {
		src = c.bold
	}
	faceOpts := &opentype.FaceOptions{Size: key.size, DPI: 72, Hinting: font.HintingNone}
	f, err := opentype.NewFace(src, faceOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	if c.fallback != nil {
		fb, err := opentype.NewFace(c.fallback, faceOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to create fallback font face: %w", err)
		}
		f = &fallbackFace{Face: f, src: src, fallback: fb}
	}
	c.faces[key] = f
	return f, nil
}

// textStyle is the resolved inline style of a run of text
type textStyle struct {
	face       font.Face
	color      color.NRGBA
	lineHeight float64
	ascent     float64
	descent    float64
	upper      bool
	preLine    bool
}

func (l *layout) textStyle(el visual.Element) (*textStyle, error) {
	if ts, ok := l.styles[el]; ok {
		return ts, nil
	}
	fs := fontSize(el)
	face, err := l.faces.face(isBold(el), fs)
	if err != nil {
		return nil, err
	}
	col, err := parseColor("color", visual.Computed(el, "color"))
	if err != nil {
		return nil, err
	}
	if err := checkModern("text-shadow", rawOrComputed(el, "text-shadow")); err != nil {
		return nil, err
	}
	m := face.Metrics()
	ws := strings.ToLower(visual.Computed(el, "white-space"))
	ts := &textStyle{
		face:       face,
		color:      col,
		lineHeight: lineHeight(el, fs),
		ascent:     float64(m.Ascent) / 64 / l.opts.Scale,
		descent:    float64(m.Descent) / 64 / l.opts.Scale,
		upper:      strings.EqualFold(visual.Computed(el, "text-transform"), "uppercase"),
		preLine:    ws == "pre-line" || ws == "pre-wrap" || ws == "pre",
	}
	l.styles[el] = ts
	return ts, nil
}

func (l *layout) measure(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64 / l.opts.Scale
}

func fontSize(el visual.Element) float64 {
	v := visual.Computed(el, "font-size")
	if px := length(v, rootFontSize, 0, 0); px > 0 {
		return px
	}
	return rootFontSize
}

func isBold(el visual.Element) bool {
	v := strings.ToLower(visual.Computed(el, "font-weight"))
	if v == "bold" || v == "bolder" {
		return true
	}
	n, err := strconv.Atoi(v)
	return err == nil && n >= 600
}

func lineHeight(el visual.Element, fs float64) float64 {
	v := strings.TrimSpace(strings.ToLower(visual.Computed(el, "line-height")))
	switch {
	case v == "" || v == "normal":
		return fs * 1.5
	case strings.HasSuffix(v, "px"), strings.HasSuffix(v, "rem"), strings.HasSuffix(v, "em"), strings.HasSuffix(v, "%"):
		return length(v, fs, fs, 0)
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n * fs
	}
	return fs * 1.5
}

// segment is a piece of text with the element that styles it
type segment struct {
	text string
	el   visual.Element
}

func collectSegments(items []visual.Element, skip func(visual.Element) bool) []segment {
	var out []segment
	for _, it := range items {
		if it.IsText() {
			out = append(out, segment{text: it.Text(), el: it.Parent()})
			continue
		}
		if skip(it) {
			continue
		}
		if it.Tag() == "br" {
			out = append(out, segment{text: "\n", el: it})
			continue
		}
		out = append(out, collectSegments(it.Children(), skip)...)
	}
	return out
}

type word struct {
	text   string
	width  float64
	space  float64
	spaced bool
	brk    bool
	style  *textStyle
}

func (l *layout) words(segs []segment) ([]word, error) {
	var out []word
	trailingSpace := false
	for _, seg := range segs {
		ts, err := l.textStyle(seg.el)
		if err != nil {
			return nil, err
		}
		text := seg.text
		if ts.upper {
			text = strings.ToUpper(text)
		}
		space := l.measure(ts.face, " ")

		lines := []string{text}
		if ts.preLine || seg.el.Tag() == "br" {
			lines = strings.Split(text, "\n")
		}
		for li, line := range lines {
			if li > 0 {
				out = append(out, word{brk: true, style: ts})
				trailingSpace = false
			}
			leading := line != "" && unicode.IsSpace(rune(line[0]))
			for fi, f := range strings.Fields(line) {
				out = append(out, word{
					text:   f,
					width:  l.measure(ts.face, f),
					space:  space,
					spaced: fi > 0 || leading || trailingSpace,
					style:  ts,
				})
				trailingSpace = false
			}
			if line != "" && unicode.IsSpace(rune(line[len(line)-1])) {
				trailingSpace = true
			}
		}
	}
	return out, nil
}

type placed struct {
	word
	x float64
}

type line struct {
	words []placed
	width float64
	style *textStyle
}

func breakLines(words []word, width float64) []line {
	var (
		lines []line
		cur   line
	)
	for _, w := range words {
		if w.brk {
			if cur.style == nil {
				cur.style = w.style
			}
			lines = append(lines, cur)
			cur = line{}
			continue
		}
		add := w.width
		gap := 0.0
		if len(cur.words) > 0 && w.spaced {
			gap = w.space
		}
		if len(cur.words) > 0 && cur.width+gap+add > width {
			lines = append(lines, cur)
			cur = line{}
			gap = 0
		}
		cur.words = append(cur.words, placed{word: w, x: cur.width + gap})
		cur.width += gap + add
		if cur.style == nil {
			cur.style = w.style
		}
	}
	if len(cur.words) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

// inline lays out a run of inline content inside container and returns its height
func (l *layout) inline(container visual.Element, items []visual.Element, x, y, width float64) (float64, error) {
	words, err := l.words(collectSegments(items, l.skip))
	if err != nil {
		return 0, err
	}
	if len(words) == 0 {
		return 0, nil
	}
	align := strings.ToLower(visual.Computed(container, "text-align"))

	cy := y
	for _, ln := range breakLines(words, width) {
		lh, asc, desc := ln.style.lineHeight, ln.style.ascent, ln.style.descent
		for _, w := range ln.words {
			lh = math.Max(lh, w.style.lineHeight)
			asc = math.Max(asc, w.style.ascent)
			desc = math.Max(desc, w.style.descent)
		}
		offset := 0.0
		switch align {
		case "right", "end":
			offset = width - ln.width
		case "center":
			offset = (width - ln.width) / 2
		}
		baseline := cy + (lh-(asc+desc))/2 + asc
		for _, w := range ln.words {
			l.push(&textOp{x: x + offset + w.x, baseline: baseline, text: w.text, face: w.style.face, color: w.style.color})
		}
		cy += lh
	}
	return cy - y, nil
}

// textWidth is the unwrapped width of a run of inline content
func (l *layout) textWidth(items []visual.Element) (float64, error) {
	words, err := l.words(collectSegments(items, l.skip))
	if err != nil {
		return 0, err
	}
	widest := 0.0
	for _, ln := range breakLines(words, math.Inf(1)) {
		widest = math.Max(widest, ln.width)
	}
	return widest, nil
}
