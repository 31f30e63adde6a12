package model

// TemplateType identifies one of the visual invoice templates
type TemplateType string

const (
	TemplateMinimal   TemplateType = "minimal"
	TemplateCorporate TemplateType = "corporate"
	TemplateClassic   TemplateType = "classic"
	TemplateModern    TemplateType = "modern"
	TemplateGradient  TemplateType = "gradient"
)

// DefaultTemplate is selected at startup and after a reset
const DefaultTemplate = TemplateMinimal

// Template describes a selectable template variant
type Template struct {
	ID          TemplateType `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
}

// Templates is the fixed set of template variants, in display order
var Templates = []Template{
	{ID: TemplateMinimal, Name: "Minimal", Description: "Clean and simple design"},
	{ID: TemplateCorporate, Name: "Corporate", Description: "Professional business style"},
	{ID: TemplateClassic, Name: "Classic", Description: "Traditional invoice layout"},
	{ID: TemplateModern, Name: "Modern", Description: "Contemporary and bold"},
	{ID: TemplateGradient, Name: "Gradient", Description: "Colorful gradient theme"},
}

// IsValid reports whether t is one of the enumerated templates
func (t TemplateType) IsValid() bool {
	for _, tpl := range Templates {
		if tpl.ID == t {
			return true
		}
	}
	return false
}

// Currency is a display label only; no conversion is ever performed
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Currencies is the fixed set of selectable currencies. The first entry is the default.
var Currencies = []Currency{
	{Code: "USD", Symbol: "$", Name: "US Dollar"},
	{Code: "EUR", Symbol: "€", Name: "Euro"},
	{Code: "GBP", Symbol: "£", Name: "British Pound"},
	{Code: "PKR", Symbol: "₨", Name: "Pakistani Rupee"},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee"},
	{Code: "AED", Symbol: "د.إ", Name: "UAE Dirham"},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen"},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar"},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar"},
}

// CurrencyByCode looks up an enumerated currency
func CurrencyByCode(code string) (Currency, bool) {
	for _, c := range Currencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// BusinessInfo is the issuing party. Logo is an inline data URI.
type BusinessInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Logo    string `json:"logo,omitempty"`
}

// ClientInfo is the billed party
type ClientInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// LineItem is one billable row. Total is derived from the other numeric fields.
type LineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TaxPercent  float64 `json:"tax"`
	Total       float64 `json:"total"`
}

// InvoiceDocument is the single editable invoice.
// JSON keys follow the persisted snapshot format.
type InvoiceDocument struct {
	InvoiceNumber   string       `json:"invoiceNumber"`
	IssueDate       string       `json:"date"`    // YYYY-MM-DD
	DueDate         string       `json:"dueDate"` // YYYY-MM-DD, not validated against IssueDate
	Business        BusinessInfo `json:"business"`
	Client          ClientInfo   `json:"client"`
	LineItems       []LineItem   `json:"lineItems"`
	Currency        Currency     `json:"currency"`
	DiscountPercent float64      `json:"discount"`
	Notes           string       `json:"notes"`
	Signature       string       `json:"signature,omitempty"`
}

// Clone returns a copy that shares no slices with d
func (d InvoiceDocument) Clone() InvoiceDocument {
	out := d
	if d.LineItems != nil {
		out.LineItems = make([]LineItem, len(d.LineItems))
		copy(out.LineItems, d.LineItems)
	}
	return out
}
