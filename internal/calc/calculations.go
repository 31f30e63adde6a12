// Package calc holds the invoice arithmetic. Every function is pure; inputs
// are taken as given (negative quantities or out-of-range tax rates are not
// errors).
package calc

import (
	"math"
	"strconv"

	"invoicegen/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals bundles the derived amounts every template renders
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// LineTotal returns quantity * unitPrice * (1 + taxPercent/100)
func LineTotal(quantity, unitPrice, taxPercent float64) decimal.Decimal {
	net := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice))
	return net.Add(percentOf(net, taxPercent))
}

// Subtotal is the pre-tax sum of quantity * unitPrice
func Subtotal(items []model.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(net(item))
	}
	return sum
}

// TotalTax sums each item's tax on its own net amount
func TotalTax(items []model.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(percentOf(net(item), item.TaxPercent))
	}
	return sum
}

// DiscountAmount is the discount taken off (subtotal + tax)
func DiscountAmount(items []model.LineItem, discountPercent float64) decimal.Decimal {
	return percentOf(Subtotal(items).Add(TotalTax(items)), discountPercent)
}

// GrandTotal applies the invoice discount once to (subtotal + tax)
func GrandTotal(items []model.LineItem, discountPercent float64) decimal.Decimal {
	gross := Subtotal(items).Add(TotalTax(items))
	return gross.Sub(percentOf(gross, discountPercent))
}

// Summarize computes all derived totals in one pass over the items
func Summarize(items []model.LineItem, discountPercent float64) Totals {
	subtotal := Subtotal(items)
	tax := TotalTax(items)
	gross := subtotal.Add(tax)
	discount := percentOf(gross, discountPercent)
	return Totals{
		Subtotal:       subtotal,
		TotalTax:       tax,
		DiscountAmount: discount,
		GrandTotal:     gross.Sub(discount),
	}
}

// CachedTotal is LineTotal as the float64 stored on a LineItem. Totals beyond
// the float64 range are stored as 0 so the document stays encodable.
func CachedTotal(quantity, unitPrice, taxPercent float64) float64 {
	v := LineTotal(quantity, unitPrice, taxPercent).InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// RecomputeTotals refreshes the cached Total of every item in place
func RecomputeTotals(items []model.LineItem) {
	for i := range items {
		items[i].Total = CachedTotal(items[i].Quantity, items[i].UnitPrice, items[i].TaxPercent)
	}
}

// FormatMoney renders symbol + amount fixed to two decimals, without grouping
func FormatMoney(amount decimal.Decimal, symbol string) string {
	return symbol + amount.StringFixed(2)
}

// FormatFloat is FormatMoney for cached float values such as LineItem.Total
func FormatFloat(amount float64, symbol string) string {
	return FormatMoney(decimal.NewFromFloat(amount), symbol)
}

// FormatNumber prints quantities and percentages in their shortest form
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func net(item model.LineItem) decimal.Decimal {
	return decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.UnitPrice))
}

func percentOf(amount decimal.Decimal, percent float64) decimal.Decimal {
	if percent == 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromFloat(percent)).Div(hundred)
}
