package raster

import (
	"context"
	"image"
	"math"
	"strconv"
	"strings"

	"invoicegen/internal/visual"
)

type layout struct {
	ctx    context.Context
	opts   Options
	faces  *faceCache
	styles map[visual.Element]*textStyle
	images map[string]image.Image
	ops    []op
}

func newLayout(ctx context.Context, opts Options, faces *faceCache) *layout {
	return &layout{
		ctx:    ctx,
		opts:   opts,
		faces:  faces,
		styles: make(map[visual.Element]*textStyle),
		images: make(map[string]image.Image),
	}
}

func (l *layout) push(o op) int {
	l.ops = append(l.ops, o)
	return len(l.ops) - 1
}

func (l *layout) skip(el visual.Element) bool {
	if el.IsText() {
		return false
	}
	if l.opts.Ignore != nil && l.opts.Ignore(el) {
		return true
	}
	return display(el) == "none" || strings.EqualFold(visual.Computed(el, "visibility"), "hidden")
}

type edges struct {
	top, right, bottom, left float64
}

func (e edges) horizontal() float64 { return e.left + e.right }
func (e edges) vertical() float64   { return e.top + e.bottom }

// block lays out el as a block box at (x, y). forcedW, when non-zero, is
// the border-box width imposed by a flex/grid/table parent. It returns the
// margin-box size.
func (l *layout) block(el visual.Element, x, y, avail, forcedW float64) (float64, float64, error) {
	if err := l.ctx.Err(); err != nil {
		return 0, 0, err
	}
	if l.skip(el) {
		return 0, 0, nil
	}
	if el.Tag() == "img" {
		return l.image(el, x, y, avail)
	}

	paint, err := resolveBoxPaint(el)
	if err != nil {
		return 0, 0, err
	}
	fs := fontSize(el)
	m := l.boxEdges(el, "margin", fs, avail)
	p := l.boxEdges(el, "padding", fs, avail)
	b := borderWidths(el, fs)

	w := forcedW
	if w == 0 {
		if dw, ok := l.declaredLength(el, "width", fs, avail); ok {
			w = dw
		} else {
			w = avail - m.horizontal()
		}
	}
	w = math.Max(w, b.horizontal()+p.horizontal())

	bx, by := x+m.left, y+m.top
	idx := l.push(nil)

	ch, err := l.content(el, bx+b.left+p.left, by+b.top+p.top, w-b.horizontal()-p.horizontal())
	if err != nil {
		return 0, 0, err
	}
	h := b.vertical() + p.vertical() + ch
	if dh, ok := l.declaredLength(el, "height", fs, 0); ok {
		h = dh
	}
	if mh, ok := l.declaredLength(el, "min-height", fs, 0); ok && mh > h {
		h = mh
	}

	l.ops[idx] = &boxOp{x: bx, y: by, w: w, h: h, style: paint, border: b}
	return m.horizontal() + w, m.vertical() + h, nil
}

func (l *layout) content(el visual.Element, x, y, w float64) (float64, error) {
	switch display(el) {
	case "flex", "inline-flex":
		if strings.HasPrefix(strings.ToLower(visual.Computed(el, "flex-direction")), "column") {
			return l.column(el, x, y, w)
		}
		return l.flex(el, x, y, w)
	case "grid", "inline-grid":
		return l.grid(el, x, y, w)
	case "table":
		return l.table(el, x, y, w)
	}
	return l.flow(el, x, y, w)
}

func isInline(el visual.Element) bool {
	if el.IsText() {
		return true
	}
	return el.Tag() != "img" && display(el) == "inline"
}

// flow stacks block children and wraps runs of inline children into lines
func (l *layout) flow(el visual.Element, x, y, w float64) (float64, error) {
	align := strings.ToLower(visual.Computed(el, "text-align"))
	cy := y
	var run []visual.Element

	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		h, err := l.inline(el, run, x, cy, w)
		cy += h
		run = nil
		return err
	}

	for _, c := range el.Children() {
		if l.skip(c) {
			continue
		}
		if isInline(c) {
			run = append(run, c)
			continue
		}
		if err := flush(); err != nil {
			return 0, err
		}

		var (
			h   float64
			err error
		)
		if c.Tag() == "img" || display(c) == "inline-block" {
			iw, werr := l.maxContent(c, w)
			if werr != nil {
				return 0, werr
			}
			iw = math.Min(iw, w)
			ox := x
			switch align {
			case "right", "end":
				ox = x + w - iw
			case "center":
				ox = x + (w-iw)/2
			}
			_, h, err = l.block(c, ox, cy, iw, l.borderBoxOf(c, iw))
		} else {
			_, h, err = l.block(c, x, cy, w, 0)
		}
		if err != nil {
			return 0, err
		}
		cy += h
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return cy - y, nil
}

// borderBoxOf converts a margin-box width into the border-box width block expects
func (l *layout) borderBoxOf(el visual.Element, outer float64) float64 {
	if el.IsText() || el.Tag() == "img" {
		return outer
	}
	m := l.boxEdges(el, "margin", fontSize(el), outer)
	return math.Max(outer-m.horizontal(), 0)
}

// column lays flex items top to bottom with the gap between them
func (l *layout) column(el visual.Element, x, y, w float64) (float64, error) {
	gap := l.gap(el, "row-gap")
	cy := y
	first := true
	for _, c := range el.Children() {
		if l.skip(c) {
			continue
		}
		if !first {
			cy += gap
		}
		first = false
		var (
			h   float64
			err error
		)
		if c.IsText() {
			h, err = l.inline(el, []visual.Element{c}, x, cy, w)
		} else {
			_, h, err = l.block(c, x, cy, w, 0)
		}
		if err != nil {
			return 0, err
		}
		cy += h
	}
	return cy - y, nil
}

// flex lays items out in one row sized to their content, then distributes
// the free space according to justify-content
func (l *layout) flex(el visual.Element, x, y, w float64) (float64, error) {
	var items []visual.Element
	for _, c := range el.Children() {
		if !l.skip(c) {
			items = append(items, c)
		}
	}
	if len(items) == 0 {
		return 0, nil
	}

	gap := l.gap(el, "column-gap")
	widths := make([]float64, len(items))
	sum := 0.0
	for i, it := range items {
		iw, err := l.maxContent(it, w)
		if err != nil {
			return 0, err
		}
		widths[i] = iw
		sum += iw
	}
	gaps := gap * float64(len(items)-1)
	if sum+gaps > w && sum > 0 {
		shrink := math.Max(w-gaps, 0) / sum
		for i := range widths {
			widths[i] *= shrink
		}
		sum = math.Max(w-gaps, 0)
	}
	free := math.Max(w-sum-gaps, 0)

	start, between := x, gap
	switch strings.ToLower(visual.Computed(el, "justify-content")) {
	case "space-between":
		if len(items) > 1 {
			between = gap + free/float64(len(items)-1)
		}
	case "space-around":
		around := free / float64(len(items))
		start += around / 2
		between = gap + around
	case "flex-end", "end", "right":
		start += free
	case "center":
		start += free / 2
	}

	cx, maxH := start, 0.0
	for i, it := range items {
		var (
			h   float64
			err error
		)
		if it.IsText() {
			h, err = l.inline(el, []visual.Element{it}, cx, y, widths[i])
		} else {
			_, h, err = l.block(it, cx, y, widths[i], l.borderBoxOf(it, widths[i]))
		}
		if err != nil {
			return 0, err
		}
		maxH = math.Max(maxH, h)
		cx += widths[i] + between
	}
	return maxH, nil
}

// grid places items row-major into equal-width tracks
func (l *layout) grid(el visual.Element, x, y, w float64) (float64, error) {
	cols := trackCount(visual.Computed(el, "grid-template-columns"))
	colGap := l.gap(el, "column-gap")
	rowGap := l.gap(el, "row-gap")
	colW := math.Max((w-colGap*float64(cols-1))/float64(cols), 0)

	cy, rowH, col := y, 0.0, 0
	placed := 0
	for _, c := range el.Children() {
		if l.skip(c) {
			continue
		}
		if col == cols {
			cy += rowH + rowGap
			rowH, col = 0, 0
		}
		cx := x + float64(col)*(colW+colGap)
		var (
			h   float64
			err error
		)
		if c.IsText() {
			h, err = l.inline(el, []visual.Element{c}, cx, cy, colW)
		} else {
			_, h, err = l.block(c, cx, cy, colW, l.borderBoxOf(c, colW))
		}
		if err != nil {
			return 0, err
		}
		rowH = math.Max(rowH, h)
		col++
		placed++
	}
	if placed == 0 {
		return 0, nil
	}
	return cy + rowH - y, nil
}

func trackCount(v string) int {
	v = strings.TrimSpace(strings.ToLower(v))
	if strings.HasPrefix(v, "repeat(") {
		inner := strings.TrimPrefix(v, "repeat(")
		if n, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(inner, ",", 2)[0])); err == nil && n > 0 {
			return n
		}
	}
	if n := len(visual.SplitValues(v)); n > 0 && v != "none" {
		return n
	}
	return 1
}

// table lays out rows of cells; the first column takes 40% of the width
// when there are several
func (l *layout) table(el visual.Element, x, y, w float64) (float64, error) {
	rows := tableRows(el)
	cols := 0
	for _, tr := range rows {
		cols = max(cols, len(cells(tr)))
	}
	if cols == 0 {
		return 0, nil
	}
	widths := columnWidths(cols, w)

	cy := y
	for _, tr := range rows {
		if l.skip(tr) {
			continue
		}
		if err := l.ctx.Err(); err != nil {
			return 0, err
		}
		paint, err := resolveBoxPaint(tr)
		if err != nil {
			return 0, err
		}
		b := borderWidths(tr, fontSize(tr))
		idx := l.push(nil)

		cx, rowH := x, 0.0
		for i, td := range cells(tr) {
			if l.skip(td) {
				cx += widths[i]
				continue
			}
			_, h, err := l.block(td, cx, cy+b.top, widths[i], widths[i])
			if err != nil {
				return 0, err
			}
			rowH = math.Max(rowH, h)
			cx += widths[i]
		}
		rowH += b.vertical()
		l.ops[idx] = &boxOp{x: x, y: cy, w: w, h: rowH, style: paint, border: b}
		cy += rowH
	}
	return cy - y, nil
}

func tableRows(table visual.Element) []visual.Element {
	var rows []visual.Element
	for _, c := range table.Children() {
		if c.IsText() {
			continue
		}
		switch c.Tag() {
		case "tr":
			rows = append(rows, c)
		case "thead", "tbody", "tfoot":
			for _, r := range c.Children() {
				if !r.IsText() && r.Tag() == "tr" {
					rows = append(rows, r)
				}
			}
		}
	}
	return rows
}

func cells(tr visual.Element) []visual.Element {
	var out []visual.Element
	for _, c := range tr.Children() {
		if !c.IsText() && (c.Tag() == "td" || c.Tag() == "th") {
			out = append(out, c)
		}
	}
	return out
}

func columnWidths(cols int, w float64) []float64 {
	widths := make([]float64, cols)
	if cols == 1 {
		widths[0] = w
		return widths
	}
	widths[0] = w * 0.4
	rest := (w - widths[0]) / float64(cols-1)
	for i := 1; i < cols; i++ {
		widths[i] = rest
	}
	return widths
}

// maxContent is the margin-box width el wants when nothing wraps, capped at avail
func (l *layout) maxContent(el visual.Element, avail float64) (float64, error) {
	if el.IsText() {
		return l.textWidth([]visual.Element{el})
	}
	if l.skip(el) {
		return 0, nil
	}
	fs := fontSize(el)
	if el.Tag() == "img" {
		w, _, err := l.imageSize(el, avail)
		return w + l.boxEdges(el, "margin", fs, avail).horizontal(), err
	}

	m := l.boxEdges(el, "margin", fs, avail)
	if dw, ok := l.declaredLength(el, "width", fs, avail); ok {
		return dw + m.horizontal(), nil
	}
	p := l.boxEdges(el, "padding", fs, avail)
	b := borderWidths(el, fs)

	inner := 0.0
	children := el.Children()
	switch display(el) {
	case "flex", "inline-flex":
		n := 0
		for _, c := range children {
			if l.skip(c) {
				continue
			}
			cw, err := l.maxContent(c, avail)
			if err != nil {
				return 0, err
			}
			inner += cw
			n++
		}
		if n > 1 {
			inner += l.gap(el, "column-gap") * float64(n-1)
		}
	default:
		var run []visual.Element
		flush := func() error {
			if len(run) == 0 {
				return nil
			}
			tw, err := l.textWidth(run)
			inner = math.Max(inner, tw)
			run = nil
			return err
		}
		for _, c := range children {
			if l.skip(c) {
				continue
			}
			if isInline(c) {
				run = append(run, c)
				continue
			}
			if err := flush(); err != nil {
				return 0, err
			}
			cw, err := l.maxContent(c, avail)
			if err != nil {
				return 0, err
			}
			inner = math.Max(inner, cw)
		}
		if err := flush(); err != nil {
			return 0, err
		}
	}
	return math.Min(inner+p.horizontal()+b.horizontal()+m.horizontal(), avail), nil
}

func display(el visual.Element) string {
	return strings.ToLower(strings.TrimSpace(visual.Computed(el, "display")))
}

func (l *layout) gap(el visual.Element, axis string) float64 {
	fs := fontSize(el)
	if v, ok := el.Style().Get(axis); ok {
		return l.length(v, fs, 0)
	}
	if v, ok := el.Style().Get("gap"); ok {
		parts := visual.SplitValues(v)
		if len(parts) == 2 && axis == "column-gap" {
			return l.length(parts[1], fs, 0)
		}
		if len(parts) > 0 {
			return l.length(parts[0], fs, 0)
		}
	}
	return 0
}

func (l *layout) declaredLength(el visual.Element, prop string, fs, avail float64) (float64, bool) {
	v := strings.TrimSpace(visual.Computed(el, prop))
	if v == "" || strings.EqualFold(v, "auto") || strings.EqualFold(v, "none") {
		return 0, false
	}
	if strings.HasSuffix(v, "%") && avail == 0 {
		return 0, false
	}
	if !visual.IsLength(v) {
		return 0, false
	}
	return l.length(v, fs, avail), true
}

// boxEdges resolves a margin/padding shorthand plus its per-side longhands
func (l *layout) boxEdges(el visual.Element, prop string, fs, avail float64) edges {
	var vals [4]float64
	if v := visual.Computed(el, prop); v != "" {
		parts := visual.SplitValues(v)
		for i := range vals {
			vals[i] = l.length(boxValue(parts, i), fs, avail)
		}
	}
	for i, side := range sides {
		if v, ok := el.Style().Get(prop + "-" + side); ok {
			vals[i] = l.length(v, fs, avail)
		}
	}
	return edges{top: vals[0], right: vals[1], bottom: vals[2], left: vals[3]}
}

// boxValue picks side i (top, right, bottom, left) out of a 1-4 value shorthand
func boxValue(parts []string, i int) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[i%2]
	case 3:
		if i == 3 {
			return parts[1]
		}
		return parts[i]
	}
	return parts[i]
}

var borderStyles = map[string]bool{
	"solid": true, "dashed": true, "dotted": true, "double": true,
	"groove": true, "ridge": true, "inset": true, "outset": true,
}

// borderWidths resolves each side's width; a side without a visible style is 0
func borderWidths(el visual.Element, fs float64) edges {
	st := el.Style()
	var vals [4]float64
	if v, ok := st.Get("border"); ok {
		w := shorthandWidth(v, fs)
		vals = [4]float64{w, w, w, w}
	}
	if v, ok := st.Get("border-width"); ok {
		parts := visual.SplitValues(v)
		for i := range vals {
			vals[i] = length(boxValue(parts, i), fs, 0, 0)
		}
	}
	for i, side := range sides {
		if v, ok := st.Get("border-" + side); ok {
			vals[i] = shorthandWidth(v, fs)
		}
		if v, ok := st.Get("border-" + side + "-width"); ok {
			vals[i] = length(v, fs, 0, 0)
		}
	}
	return edges{top: vals[0], right: vals[1], bottom: vals[2], left: vals[3]}
}

func shorthandWidth(v string, fs float64) float64 {
	width, styled := 3.0, false
	for _, part := range visual.SplitValues(v) {
		lower := strings.ToLower(part)
		switch {
		case lower == "none" || lower == "hidden":
			return 0
		case borderStyles[lower]:
			styled = true
		case lower == "thin":
			width = 1
		case lower == "medium":
			width = 3
		case lower == "thick":
			width = 5
		case visual.IsLength(lower):
			width = length(lower, fs, 0, 0)
		}
	}
	if !styled {
		return 0
	}
	return width
}

func (l *layout) length(v string, fs, avail float64) float64 {
	return length(v, fs, avail, float64(l.opts.WindowHeight))
}

// length converts px, rem, em, %, vh and unitless numbers into CSS pixels
func length(v string, fs, avail, viewportH float64) float64 {
	v = strings.ToLower(strings.TrimSpace(v))
	unit := func(suffix string) (float64, bool) {
		if !strings.HasSuffix(v, suffix) {
			return 0, false
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(v, suffix), 64)
		return n, err == nil
	}
	if n, ok := unit("px"); ok {
		return n
	}
	if n, ok := unit("rem"); ok {
		return n * rootFontSize
	}
	if n, ok := unit("em"); ok {
		return n * fs
	}
	if n, ok := unit("%"); ok {
		return avail * n / 100
	}
	if n, ok := unit("vh"); ok {
		return viewportH * n / 100
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return 0
}
