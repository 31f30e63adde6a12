package store

import (
	"fmt"
	"math/rand"
	"time"

	"invoicegen/internal/model"

	"github.com/google/uuid"
)

const (
	isoDate        = "2006-01-02"
	defaultDueDays = 30
)

// GenerateInvoiceNumber returns INV-<year>-<4 random digits>. Uniqueness is not enforced.
func GenerateInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%d-%04d", now.Year(), rand.Intn(10000))
}

// NewLineItem returns the row appended by "add item": quantity 1, everything else zero
func NewLineItem() model.LineItem {
	return model.LineItem{
		ID:       uuid.NewString(),
		Quantity: 1,
	}
}

func blankLineItem() model.LineItem {
	return model.LineItem{ID: uuid.NewString()}
}

// NewDefaultDocument builds the document shown on first start and after a reset
func NewDefaultDocument(now time.Time) model.InvoiceDocument {
	return model.InvoiceDocument{
		InvoiceNumber: GenerateInvoiceNumber(now),
		IssueDate:     now.Format(isoDate),
		DueDate:       now.AddDate(0, 0, defaultDueDays).Format(isoDate),
		LineItems:     []model.LineItem{blankLineItem()},
		Currency:      model.Currencies[0],
	}
}
