package render

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"invoicegen/internal/model"
	"invoicegen/internal/repository"
	"invoicegen/internal/store"
	"invoicegen/internal/visual"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() model.InvoiceDocument {
	return model.InvoiceDocument{
		InvoiceNumber: "INV-2026-0042",
		IssueDate:     "2026-03-14",
		DueDate:       "2026-04-13",
		Business: model.BusinessInfo{
			Name:    "Acme Studio",
			Address: "1 Main St\nSpringfield",
			Email:   "billing@acme.test",
			Phone:   "555-0100",
		},
		Client: model.ClientInfo{Name: "Globex <Corp>", Email: "ap@globex.test"},
		LineItems: []model.LineItem{
			{ID: "a", Description: "Design", Quantity: 2, UnitPrice: 50, TaxPercent: 10, Total: 110},
			{ID: "b", Description: "Hosting", Quantity: 1, UnitPrice: 20, TaxPercent: 0, Total: 20},
		},
		Currency:        model.Currencies[0],
		DiscountPercent: 0,
	}
}

func TestRegistryRendersEveryVariant(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	doc := sampleDocument()

	for _, tpl := range model.Templates {
		t.Run(string(tpl.ID), func(t *testing.T) {
			root, err := reg.RenderTree(tpl.ID, doc)
			require.NoError(t, err)
			assert.Equal(t, PreviewID, root.ID())

			text := root.TextContent()
			for _, want := range []string{
				"INVOICE", "INV-2026-0042", "3/14/2026", "4/13/2026",
				"Acme Studio", "Globex <Corp>", "Design", "Hosting",
				"$50.00", "$110.00", "$20.00", "10%",
				"$120.00", "$10.00", "$130.00",
			} {
				assert.Contains(t, text, want)
			}
			assert.NotContains(t, text, "Discount")
			assert.NotContains(t, text, "Notes")

			rows := root.FindAll(func(n *visual.Node) bool { return n.Tag() == "tr" })
			assert.Len(t, rows, 3, "header row plus one per line item")
		})
	}
}

func TestRenderDiscountAndNotes(t *testing.T) {
	reg := MustRegistry()
	doc := sampleDocument()
	doc.DiscountPercent = 50
	doc.Notes = "Thanks!\nPay within 30 days"

	root, err := reg.RenderTree(model.TemplateMinimal, doc)
	require.NoError(t, err)

	text := root.TextContent()
	assert.Contains(t, text, "Discount (50%)")
	assert.Contains(t, text, "-$65.00")
	assert.Contains(t, text, "$65.00")
	assert.Contains(t, text, "Pay within 30 days")
}

func TestRenderEscapesUserText(t *testing.T) {
	doc := sampleDocument()
	doc.Notes = `<script>alert(1)</script>`

	out, err := MustRegistry().Render(model.TemplateClassic, doc)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderLogo(t *testing.T) {
	reg := MustRegistry()
	doc := sampleDocument()

	doc.Business.Logo = "data:image/png;base64,iVBORw0KGgo="
	root, err := reg.RenderTree(model.TemplateModern, doc)
	require.NoError(t, err)
	imgs := root.FindAll(func(n *visual.Node) bool { return n.Tag() == "img" })
	require.Len(t, imgs, 1)
	assert.Equal(t, doc.Business.Logo, imgs[0].Attr("src"))

	doc.Business.Logo = "javascript:alert(1)"
	root, err = reg.RenderTree(model.TemplateModern, doc)
	require.NoError(t, err)
	assert.Empty(t, root.FindAll(func(n *visual.Node) bool { return n.Tag() == "img" }))
}

func TestUnknownTemplateFallsBackToMinimal(t *testing.T) {
	reg := MustRegistry()
	doc := sampleDocument()

	want, err := reg.Render(model.TemplateMinimal, doc)
	require.NoError(t, err)
	got, err := reg.Render("neon", doc)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	viaVariant, err := reg.Variant(model.TemplateMinimal).Render(doc)
	require.NoError(t, err)
	assert.Equal(t, want, viaVariant)
}

func TestTemplatesUseThemeVariables(t *testing.T) {
	out, err := MustRegistry().Render(model.TemplateGradient, sampleDocument())
	require.NoError(t, err)
	assert.Contains(t, out, "oklch(")
	assert.Contains(t, out, "--tw-gradient-from")
	assert.Contains(t, out, "var(--primary)")
}

func TestDisplayDate(t *testing.T) {
	assert.Equal(t, "1/5/2026", displayDate("2026-01-05"))
	assert.Equal(t, "Invalid Date", displayDate(""))
	assert.Equal(t, "Invalid Date", displayDate("14/03/2026"))
}

func TestLivePreviewFollowsStore(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx := context.Background()
	now := func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	s := store.New(ctx, repository.NewMemoryKVRepository(), logger, store.WithClock(now))

	preview, err := NewLivePreview(MustRegistry(), s, logger)
	require.NoError(t, err)
	defer preview.Close()

	first := preview.Document().GetElementByID(PreviewID)
	require.NotNil(t, first)
	assert.Equal(t, uint64(1), preview.Version())

	notes := "Initech"
	require.NoError(t, s.Merge(ctx, store.InvoicePatch{Notes: &notes}))

	second := preview.Document().GetElementByID(PreviewID)
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Contains(t, second.TextContent(), "Initech")
	assert.Len(t, preview.Document().BodyChildren(), 1)

	require.NoError(t, s.SelectTemplate(ctx, model.TemplateClassic))
	assert.Equal(t, uint64(3), preview.Version())

	var page bytes.Buffer
	require.NoError(t, preview.WritePage(&page))
	html := page.String()
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, `id="invoice-preview"`)
	assert.Contains(t, html, "@media print")
	assert.Contains(t, html, `aria-current="page">Classic`)
	assert.NotContains(t, html, "window.print()")

	page.Reset()
	require.NoError(t, preview.WritePrintPage(&page))
	assert.Contains(t, page.String(), "window.print()")
}

// slowSource delivers events whose notes match slow only after a delay
type slowSource struct {
	*store.Store
	slow  string
	delay time.Duration
}

func (s slowSource) Subscribe(fn func(store.Event)) func() {
	return s.Store.Subscribe(func(evt store.Event) {
		if evt.Document.Notes == s.slow {
			time.Sleep(s.delay)
		}
		fn(evt)
	})
}

func TestLivePreviewIgnoresStaleEvents(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx := context.Background()
	s := store.New(ctx, repository.NewMemoryKVRepository(), logger)

	preview, err := NewLivePreview(MustRegistry(), slowSource{Store: s, slow: "AAAA", delay: 100 * time.Millisecond}, logger)
	require.NoError(t, err)
	defer preview.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Merge(ctx, store.InvoicePatch{Notes: ptr("AAAA")}))
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Merge(ctx, store.InvoicePatch{Notes: ptr("BBBB")}))
	wg.Wait()

	assert.Equal(t, "BBBB", s.Get().Notes)
	mounted := preview.Document().GetElementByID(PreviewID)
	require.NotNil(t, mounted)
	assert.Contains(t, mounted.TextContent(), "BBBB")
	assert.NotContains(t, mounted.TextContent(), "AAAA")
	assert.Len(t, preview.Document().BodyChildren(), 1)
}

func TestLivePreviewRefreshKeepsNewestState(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx := context.Background()
	s := store.New(ctx, repository.NewMemoryKVRepository(), logger)

	preview, err := NewLivePreview(MustRegistry(), s, logger)
	require.NoError(t, err)
	defer preview.Close()

	require.NoError(t, s.Merge(ctx, store.InvoicePatch{Notes: ptr("current")}))
	stale := store.Event{Seq: 0, Document: sampleDocument(), Template: model.TemplateModern}
	preview.onChange(stale)
	assert.Contains(t, preview.Document().GetElementByID(PreviewID).TextContent(), "current")

	version := preview.Version()
	require.NoError(t, preview.Refresh())
	assert.Equal(t, version+1, preview.Version())
	assert.Contains(t, preview.Document().GetElementByID(PreviewID).TextContent(), "current")
}

func ptr[T any](v T) *T { return &v }
