// Package render turns an invoice document into the HTML of one of the
// template variants. All variants share one view model and differ only in
// markup and inline styles.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"invoicegen/internal/calc"
	"invoicegen/internal/model"
	"invoicegen/internal/visual"

	"github.com/shopspring/decimal"
)

// PreviewID is the id of the root element every variant renders
const PreviewID = "invoice-preview"

//go:embed templates/*.html
var templateFS embed.FS

// Renderer renders one template variant
type Renderer interface {
	Render(doc model.InvoiceDocument) (string, error)
}

// View is the data every template executes against
type View struct {
	model.InvoiceDocument
	Totals      calc.Totals
	Logo        template.URL
	HasDiscount bool
}

// NewView derives the display values for doc
func NewView(doc model.InvoiceDocument) View {
	return View{
		InvoiceDocument: doc,
		Totals:          calc.Summarize(doc.LineItems, doc.DiscountPercent),
		Logo:            logoURL(doc.Business.Logo),
		HasDiscount:     doc.DiscountPercent > 0,
	}
}

var funcs = template.FuncMap{
	"money": money,
	"date":  displayDate,
	"num":   calc.FormatNumber,
	"even":  func(i int) bool { return i%2 == 0 },
}

// Registry holds the parsed variants and renders the selected one
type Registry struct {
	tmpl *template.Template
}

func NewRegistry() (*Registry, error) {
	tmpl, err := template.New("invoice").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice templates: %w", err)
	}
	for _, t := range model.Templates {
		if tmpl.Lookup(string(t.ID)) == nil {
			return nil, fmt.Errorf("template %q is not defined", t.ID)
		}
	}
	return &Registry{tmpl: tmpl}, nil
}

// MustRegistry is NewRegistry for embedded templates that are known to parse
func MustRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// RenderTo writes the fragment for template t. Unknown identifiers use the default template.
func (r *Registry) RenderTo(w io.Writer, t model.TemplateType, doc model.InvoiceDocument) error {
	if !t.IsValid() {
		t = model.DefaultTemplate
	}
	if err := r.tmpl.ExecuteTemplate(w, string(t), NewView(doc)); err != nil {
		return fmt.Errorf("failed to render %s template: %w", t, err)
	}
	return nil
}

// Render returns the fragment for template t
func (r *Registry) Render(t model.TemplateType, doc model.InvoiceDocument) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(&buf, t, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTree renders template t and parses the result into a visual tree
func (r *Registry) RenderTree(t model.TemplateType, doc model.InvoiceDocument) (*visual.Node, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(&buf, t, doc); err != nil {
		return nil, err
	}
	root, err := visual.ParseElement(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build preview tree: %w", err)
	}
	return root, nil
}

// Variant binds the registry to a single template
func (r *Registry) Variant(t model.TemplateType) Renderer {
	return variant{reg: r, t: t}
}

type variant struct {
	reg *Registry
	t   model.TemplateType
}

func (v variant) Render(doc model.InvoiceDocument) (string, error) {
	return v.reg.Render(v.t, doc)
}

// Page describes the standalone HTML page around a mounted preview
type Page struct {
	Selected      model.TemplateType
	InvoiceNumber string
	Preview       *visual.Node
	// AutoPrint opens the print dialog once the page has loaded
	AutoPrint bool
}

type pageData struct {
	InvoiceNumber string
	Templates     []model.Template
	Selected      model.TemplateType
	Preview       template.HTML
	AutoPrint     bool
}

// RenderPage wraps an already rendered preview element in a printable page
func (r *Registry) RenderPage(w io.Writer, page Page) error {
	data := pageData{
		InvoiceNumber: page.InvoiceNumber,
		Templates:     model.Templates,
		Selected:      page.Selected,
		// the tree came out of our own templates and is re-escaped on serialization
		Preview:   template.HTML(visual.OuterHTML(page.Preview)),
		AutoPrint: page.AutoPrint,
	}
	if err := r.tmpl.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

func money(amount any, symbol string) string {
	switch v := amount.(type) {
	case decimal.Decimal:
		return calc.FormatMoney(v, symbol)
	case float64:
		return calc.FormatFloat(v, symbol)
	case int:
		return calc.FormatFloat(float64(v), symbol)
	}
	return symbol + fmt.Sprint(amount)
}

// displayDate formats an ISO date the way en-US locales show it (M/D/YYYY)
func displayDate(iso string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(iso))
	if err != nil {
		return "Invalid Date"
	}
	return t.Format("1/2/2006")
}

// logoURL admits embedded images and plain web URLs; anything else is dropped
func logoURL(logo string) template.URL {
	lower := strings.ToLower(strings.TrimSpace(logo))
	if strings.HasPrefix(lower, "data:image/") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
		return template.URL(strings.TrimSpace(logo))
	}
	return ""
}
