package snapshot

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"invoicegen/internal/visual"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"
)

// modernTokens mark paint values a legacy rasterizer cannot interpret
var modernTokens = []string{"gradient", "oklch(", "oklab(", "lab(", "lch(", "color(", "color-mix(", "hwb(", "var("}

// IsLegacy reports whether v is already an rgb()/rgba()/hex color
func IsLegacy(v string) bool {
	lower := strings.ToLower(strings.TrimSpace(v))
	return strings.HasPrefix(lower, "rgb(") || strings.HasPrefix(lower, "rgba(") || strings.HasPrefix(lower, "#")
}

// IsTransparent reports whether v paints nothing
func IsTransparent(v string) bool {
	lower := strings.ToLower(strings.Join(strings.Fields(v), ""))
	return lower == "" || lower == "transparent" || lower == "rgba(0,0,0,0)"
}

// HasModernToken reports whether a paint value uses syntax a legacy rasterizer rejects
func HasModernToken(v string) bool {
	lower := strings.ToLower(v)
	for _, tok := range modernTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func isPaintKeyword(v string) bool {
	lower := strings.ToLower(strings.TrimSpace(v))
	return lower == "none" || lower == "auto" || strings.HasPrefix(lower, "url(") || strings.HasPrefix(lower, "context-")
}

// ToLegacy resolves any CSS color into rgb()/rgba() form
func ToLegacy(v string) (string, error) {
	v = strings.TrimSpace(v)
	lower := strings.ToLower(v)

	switch {
	case strings.HasPrefix(lower, "oklch("):
		args, alpha, err := colorArgs(v)
		if err != nil || len(args) != 3 {
			return "", fmt.Errorf("invalid oklch color %q", v)
		}
		l := component(args[0], 1)
		c := component(args[1], 0.4)
		h := hue(args[2])
		col := colorful.OkLch(l, c, h).Clamped()
		return formatRGB(col.R, col.G, col.B, alpha), nil

	case strings.HasPrefix(lower, "oklab("):
		args, alpha, err := colorArgs(v)
		if err != nil || len(args) != 3 {
			return "", fmt.Errorf("invalid oklab color %q", v)
		}
		col := colorful.OkLab(component(args[0], 1), component(args[1], 0.4), component(args[2], 0.4)).Clamped()
		return formatRGB(col.R, col.G, col.B, alpha), nil

	case strings.HasPrefix(lower, "color("):
		// color(<space> r g b [/ a]); wide-gamut spaces are flattened onto sRGB
		args, alpha, err := colorArgs(v)
		if err != nil || len(args) != 4 {
			return "", fmt.Errorf("invalid color() value %q", v)
		}
		return formatRGB(component(args[1], 1), component(args[2], 1), component(args[3], 1), alpha), nil
	}

	c, err := csscolorparser.Parse(v)
	if err != nil {
		return "", fmt.Errorf("unresolvable color %q: %w", v, err)
	}
	return formatRGB(c.R, c.G, c.B, c.A), nil
}

// colorArgs splits "fn(a b c / alpha)" into its channel arguments and alpha
func colorArgs(v string) ([]string, float64, error) {
	open := strings.IndexByte(v, '(')
	end := strings.LastIndexByte(v, ')')
	if open < 0 || end < open {
		return nil, 0, fmt.Errorf("malformed color function %q", v)
	}
	inner := strings.ReplaceAll(v[open+1:end], ",", " ")
	alpha := 1.0
	if chans, a, ok := strings.Cut(inner, "/"); ok {
		inner = chans
		alpha = clamp01(component(strings.TrimSpace(a), 1))
	}
	return strings.Fields(inner), alpha, nil
}

// component parses a number or percentage; percentages scale to pctScale
func component(s string, pctScale float64) float64 {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "none") {
		return 0
	}
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0
		}
		return f / 100 * pctScale
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func hue(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasSuffix(s, "deg"):
		return component(strings.TrimSuffix(s, "deg"), 1)
	case strings.HasSuffix(s, "grad"):
		return component(strings.TrimSuffix(s, "grad"), 1) * 0.9
	case strings.HasSuffix(s, "rad"):
		return component(strings.TrimSuffix(s, "rad"), 1) * 180 / math.Pi
	case strings.HasSuffix(s, "turn"):
		return component(strings.TrimSuffix(s, "turn"), 1) * 360
	}
	return component(s, 1)
}

func formatRGB(r, g, b, a float64) string {
	r8, g8, b8 := to255(r), to255(g), to255(b)
	if a >= 1 {
		return fmt.Sprintf("rgb(%d, %d, %d)", r8, g8, b8)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r8, g8, b8, strconv.FormatFloat(math.Round(clamp01(a)*1000)/1000, 'f', -1, 64))
}

func to255(v float64) int {
	return int(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// fallbackColor is written when a value cannot be resolved: foreground
// colors fall back to the parent's (already legacy) color, everything else
// stops painting.
func fallbackColor(el visual.Element, prop string) string {
	if prop == "color" || prop == "fill" {
		if parent := el.Parent(); parent != nil {
			if v := visual.Computed(parent, "color"); IsLegacy(v) {
				return v
			}
		}
		return "rgb(0, 0, 0)"
	}
	return "transparent"
}
