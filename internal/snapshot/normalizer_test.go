package snapshot

import (
	"strings"
	"testing"

	"invoicegen/internal/visual"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const themed = `<div id="invoice-preview" style="--primary: oklch(0.55 0.2 260); --tw-gradient-from: oklch(0.7 0.1 200); --radius: 8px; color: oklch(0.2 0.01 250)">
	<header id="band" style="background: linear-gradient(to right, var(--tw-gradient-from), #fff); box-shadow: 0 1px 2px var(--primary)">
		<h1 id="title" style="color: var(--primary); border-bottom: 2px solid var(--primary)">INVOICE</h1>
	</header>
	<p id="plain" style="filter: blur(2px); text-shadow: 1px 1px oklab(0.5 0.1 0.1)">hello</p>
	<p id="legacy" style="color: #123456; background-color: rgb(250, 250, 250)">ok</p>
</div>`

func parse(t *testing.T, src string) *visual.Node {
	t.Helper()
	n, err := visual.ParseElement(strings.NewReader(src))
	require.NoError(t, err)
	return n
}

func TestNormalizeProducesLegacyOnlyTree(t *testing.T) {
	root := parse(t, themed)
	require.NotEmpty(t, Clean(root))

	report := NewNormalizer().Normalize(root)

	assert.Empty(t, Clean(root))
	assert.Equal(t, 5, report.Nodes)
	assert.Positive(t, report.ColorsRewritten)
	assert.Equal(t, 0, report.Unresolved)
	assert.Equal(t, 1, report.FiltersStripped)

	title := root.FindByID("title")
	color, _ := title.Style().Get("color")
	assert.True(t, IsLegacy(color), color)
	assert.True(t, title.Style().Important("color"))

	band := root.FindByID("band")
	bg, _ := band.Style().Get("background-image")
	assert.Equal(t, "none", bg)
	shadow, _ := band.Style().Get("box-shadow")
	assert.Equal(t, "none", shadow)

	plain := root.FindByID("plain")
	f, _ := plain.Style().Get("filter")
	assert.Equal(t, "none", f)
	ts, _ := plain.Style().Get("text-shadow")
	assert.Equal(t, "none", ts)
}

func TestNormalizeLeavesLegacyValuesUnchanged(t *testing.T) {
	root := parse(t, themed)
	NewNormalizer().Normalize(root)

	legacy := root.FindByID("legacy")
	c, _ := legacy.Style().Get("color")
	assert.Equal(t, "#123456", c)
	bg, _ := legacy.Style().Get("background-color")
	assert.Equal(t, "rgb(250, 250, 250)", bg)
	assert.True(t, legacy.Style().Important("background-color"))
}

func TestNormalizeForcesWhiteBackgrounds(t *testing.T) {
	root := parse(t, `<div><span>x</span></div>`)
	report := NewNormalizer().Normalize(root)

	assert.Equal(t, 2, report.BackgroundsForced)
	v, _ := root.Style().Get("background-color")
	assert.Equal(t, "#ffffff", v)
	assert.True(t, root.Style().Important("background-color"))
}

func TestNormalizeStripsThemeVariables(t *testing.T) {
	root := parse(t, themed)
	NewNormalizer().Normalize(root)

	_, ok := root.Style().Get("--primary")
	assert.False(t, ok)
	_, ok = root.Style().Get("--radius")
	assert.False(t, ok)

	v, ok := root.Style().Get("--tw-gradient-from")
	require.True(t, ok)
	assert.Equal(t, "initial", v)
	assert.True(t, root.Style().Important("--tw-gradient-from"))
}

func TestNormalizeUnresolvableColorFallsBack(t *testing.T) {
	root := parse(t, `<div style="color: rgb(10, 20, 30)"><p id="p" style="color: not-a-color; border-color: lab(what)">x</p></div>`)
	report := NewNormalizer().Normalize(root)

	assert.Positive(t, report.Unresolved)
	p := root.FindByID("p")
	c, _ := p.Style().Get("color")
	assert.Equal(t, "rgb(10, 20, 30)", c)
	b, _ := p.Style().Get("border-top-color")
	assert.Equal(t, "transparent", b)
	assert.Empty(t, Clean(root))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	root := parse(t, themed)
	n := NewNormalizer()
	n.Normalize(root)
	first := visual.OuterHTML(root)

	report := n.Normalize(root)
	assert.Equal(t, first, visual.OuterHTML(root))
	assert.Equal(t, 0, report.ColorsRewritten)
	assert.Equal(t, 0, report.BackgroundsForced)
}

func TestWithThemeVars(t *testing.T) {
	root := parse(t, `<div style="--brand: red; --keep: blue"></div>`)
	NewNormalizer(WithThemeVars("--brand")).Normalize(root)

	_, ok := root.Style().Get("--brand")
	assert.False(t, ok)
	_, ok = root.Style().Get("--keep")
	assert.True(t, ok)
}

func TestToLegacy(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"oklch(1 0 0)", "rgb(255, 255, 255)"},
		{"oklch(0 0 0)", "rgb(0, 0, 0)"},
		{"oklch(100% 0 0 / 50%)", "rgba(255, 255, 255, 0.5)"},
		{"oklab(0 0 0)", "rgb(0, 0, 0)"},
		{"color(srgb 1 0 0)", "rgb(255, 0, 0)"},
		{"red", "rgb(255, 0, 0)"},
		{"hsl(120, 100%, 50%)", "rgb(0, 255, 0)"},
		{"#00f", "rgb(0, 0, 255)"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ToLegacy(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ToLegacy("definitely-not-a-color")
	assert.Error(t, err)
}

func TestColorPredicates(t *testing.T) {
	assert.True(t, IsLegacy(" RGB(1, 2, 3)"))
	assert.True(t, IsLegacy("#fff"))
	assert.False(t, IsLegacy("oklch(0.5 0.1 10)"))

	assert.True(t, IsTransparent("rgba(0, 0, 0, 0)"))
	assert.True(t, IsTransparent("transparent"))
	assert.False(t, IsTransparent("rgba(0, 0, 0, 0.5)"))

	assert.True(t, HasModernToken("linear-gradient(red, blue)"))
	assert.True(t, HasModernToken("0 0 2px var(--x)"))
	assert.False(t, HasModernToken("0 0 2px rgb(0, 0, 0)"))
}
