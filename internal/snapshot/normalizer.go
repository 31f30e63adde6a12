// Package snapshot rewrites a detached copy of the rendered invoice so that
// every paint value is something a legacy rasterizer can draw: colors become
// rgb()/rgba(), gradients, shadows and filters built on modern color syntax
// are dropped, and transparent backgrounds are made white.
package snapshot

import (
	"strings"

	"invoicegen/internal/visual"
)

// PaintColorProps are the color-bearing properties pinned on every node
var PaintColorProps = []string{
	"color",
	"background-color",
	"border-top-color",
	"border-right-color",
	"border-bottom-color",
	"border-left-color",
	"outline-color",
	"text-decoration-color",
	"caret-color",
	"column-rule-color",
	"fill",
	"stroke",
}

var paintImageProps = []string{"background-image", "box-shadow", "text-shadow"}

var filterProps = []string{"filter", "backdrop-filter"}

// DefaultThemeVars are the design-system variables removed from every node
var DefaultThemeVars = []string{
	"--background", "--foreground", "--border", "--card", "--card-foreground",
	"--popover", "--popover-foreground", "--primary", "--primary-foreground",
	"--secondary", "--secondary-foreground", "--muted", "--muted-foreground",
	"--accent", "--accent-foreground", "--destructive", "--destructive-foreground",
	"--ring", "--radius", "--input", "--tw-gradient-from", "--tw-gradient-to",
	"--tw-gradient-stops", "--tw-ring-color", "--tw-shadow-color", "--tw-shadow",
}

const gradientVarPrefix = "--tw-gradient"

// Report counts what a normalization pass changed
type Report struct {
	Nodes             int `json:"nodes"`
	ColorsRewritten   int `json:"colorsRewritten"`
	PaintStripped     int `json:"paintStripped"`
	FiltersStripped   int `json:"filtersStripped"`
	BackgroundsForced int `json:"backgroundsForced"`
	Unresolved        int `json:"unresolved"`
}

// Normalizer rewrites inline styles in place. It must only be given a
// detached copy: the live preview is never touched.
type Normalizer struct {
	themeVars []string
}

type Option func(*Normalizer)

// WithThemeVars replaces the list of custom properties stripped from each node
func WithThemeVars(vars ...string) Option {
	return func(n *Normalizer) {
		n.themeVars = vars
	}
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{themeVars: DefaultThemeVars}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize walks root depth-first and returns what it changed
func (n *Normalizer) Normalize(root visual.Element) Report {
	var r Report
	if root != nil {
		n.visit(root, &r)
	}
	return r
}

func (n *Normalizer) visit(el visual.Element, r *Report) {
	if el.IsText() {
		return
	}
	st := el.Style()
	r.Nodes++

	for _, prop := range PaintColorProps {
		v := visual.Computed(el, prop)
		if IsTransparent(v) || isPaintKeyword(v) {
			continue
		}
		if IsLegacy(v) {
			st.Set(prop, v, true)
			continue
		}
		legacy, err := ToLegacy(v)
		if err != nil {
			st.Set(prop, fallbackColor(el, prop), true)
			r.Unresolved++
			continue
		}
		st.Set(prop, legacy, true)
		r.ColorsRewritten++
	}

	for _, prop := range paintImageProps {
		raw, _ := st.Get(prop)
		v := visual.Computed(el, prop)
		if strings.EqualFold(v, "none") && raw == "" {
			continue
		}
		if HasModernToken(v) || HasModernToken(raw) {
			st.Set(prop, "none", true)
			r.PaintStripped++
		}
	}

	for _, prop := range filterProps {
		if v := visual.Computed(el, prop); v != "" && !strings.EqualFold(v, "none") {
			st.Set(prop, "none", true)
			r.FiltersStripped++
		}
	}

	if IsTransparent(visual.Computed(el, "background-color")) {
		st.Set("background-color", "#ffffff", true)
		r.BackgroundsForced++
	}

	for _, child := range el.Children() {
		n.visit(child, r)
	}

	// descendants resolve var() through this node, so variables go last
	for _, name := range n.themeVars {
		st.Remove(name)
		if strings.HasPrefix(name, gradientVarPrefix) {
			st.Set(name, "initial", true)
		}
	}
}

// Clean lists nodes that still carry paint a legacy rasterizer rejects.
// An empty result means the tree is safe to rasterize.
func Clean(root visual.Element) []string {
	var dirty []string
	visual.Walk(root, func(el visual.Element) {
		if el.IsText() {
			return
		}
		for _, prop := range paintImageProps {
			if HasModernToken(visual.Computed(el, prop)) {
				dirty = append(dirty, describe(el)+" "+prop)
			}
		}
		for _, prop := range PaintColorProps {
			v := visual.Computed(el, prop)
			if IsTransparent(v) || isPaintKeyword(v) || IsLegacy(v) {
				continue
			}
			dirty = append(dirty, describe(el)+" "+prop)
		}
	})
	return dirty
}

func describe(el visual.Element) string {
	if id := el.ID(); id != "" {
		return el.Tag() + "#" + id
	}
	return el.Tag()
}
