package export

import (
	"context"
	"fmt"
	"time"

	"invoicegen/internal/calc"
	"invoicegen/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Invoice"

// DocumentSource yields the current invoice
type DocumentSource interface {
	Get() model.InvoiceDocument
}

// SpreadsheetExporter writes the line items and totals as an xlsx workbook
type SpreadsheetExporter struct {
	source     DocumentSource
	downloader Downloader
	logger     *logrus.Logger
	now        func() time.Time
}

func NewSpreadsheetExporter(source DocumentSource, downloader Downloader, logger *logrus.Logger) *SpreadsheetExporter {
	return &SpreadsheetExporter{source: source, downloader: downloader, logger: logger, now: time.Now}
}

func (e *SpreadsheetExporter) Export(ctx context.Context) (Result, error) {
	start := e.now()
	doc := e.source.Get()

	data, err := BuildWorkbook(doc)
	if err != nil {
		return Result{}, err
	}

	name := fmt.Sprintf("invoice-%d.xlsx", start.UnixMilli())
	location, err := e.downloader.Download(ctx, name, data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to save %s: %w", name, err)
	}

	e.logger.WithFields(logrus.Fields{"file": name, "items": len(doc.LineItems)}).Info("Spreadsheet saved")
	return Result{
		FileName: name,
		Location: location,
		Size:     len(data),
		Duration: e.now().Sub(start),
		Data:     data,
	}, nil
}

// BuildWorkbook lays the invoice out on a single sheet
func BuildWorkbook(doc model.InvoiceDocument) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	w := &sheetWriter{f: f, next: 1}
	w.row("Invoice", doc.InvoiceNumber)
	w.row("Issue Date", doc.IssueDate)
	w.row("Due Date", doc.DueDate)
	w.row("From", doc.Business.Name)
	w.row("Bill To", doc.Client.Name)
	w.row("Currency", doc.Currency.Code)
	w.skip()

	header := w.next
	w.row("Description", "Quantity", "Unit Price", "Tax %", "Total")
	firstItem := w.next
	for _, item := range doc.LineItems {
		w.row(item.Description, item.Quantity, item.UnitPrice, item.TaxPercent,
			calc.LineTotal(item.Quantity, item.UnitPrice, item.TaxPercent).Round(2).InexactFloat64())
	}
	lastItem := w.next - 1
	w.skip()

	totals := calc.Summarize(doc.LineItems, doc.DiscountPercent)
	firstTotal := w.next
	w.row("", "", "", "Subtotal", totals.Subtotal.Round(2).InexactFloat64())
	w.row("", "", "", "Tax", totals.TotalTax.Round(2).InexactFloat64())
	if doc.DiscountPercent > 0 {
		w.row("", "", "", fmt.Sprintf("Discount (%s%%)", calc.FormatNumber(doc.DiscountPercent)), -totals.DiscountAmount.Round(2).InexactFloat64())
	}
	w.row("", "", "", "Total", totals.GrandTotal.Round(2).InexactFloat64())
	lastTotal := w.next - 1

	if doc.Notes != "" {
		w.skip()
		w.row("Notes", doc.Notes)
	}
	if w.err != nil {
		return nil, w.err
	}

	if err := w.style("A1", fmt.Sprintf("A%d", header-2), bold); err != nil {
		return nil, err
	}
	if err := w.style(fmt.Sprintf("A%d", header), fmt.Sprintf("E%d", header), bold); err != nil {
		return nil, err
	}
	if lastItem >= firstItem {
		if err := w.style(fmt.Sprintf("C%d", firstItem), fmt.Sprintf("C%d", lastItem), amount); err != nil {
			return nil, err
		}
		if err := w.style(fmt.Sprintf("E%d", firstItem), fmt.Sprintf("E%d", lastItem), amount); err != nil {
			return nil, err
		}
	}
	if err := w.style(fmt.Sprintf("D%d", firstTotal), fmt.Sprintf("D%d", lastTotal), bold); err != nil {
		return nil, err
	}
	if err := w.style(fmt.Sprintf("E%d", firstTotal), fmt.Sprintf("E%d", lastTotal), amount); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "A", "A", 40); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter appends rows and keeps the first error
type sheetWriter struct {
	f    *excelize.File
	next int
	err  error
}

func (w *sheetWriter) row(values ...any) {
	if w.err == nil {
		cell, err := excelize.CoordinatesToCellName(1, w.next)
		if err == nil {
			err = w.f.SetSheetRow(sheetName, cell, &values)
		}
		if err != nil {
			w.err = fmt.Errorf("failed to write row %d: %w", w.next, err)
		}
	}
	w.next++
}

func (w *sheetWriter) skip() {
	w.next++
}

func (w *sheetWriter) style(from, to string, id int) error {
	if err := w.f.SetCellStyle(sheetName, from, to, id); err != nil {
		return fmt.Errorf("failed to style %s:%s: %w", from, to, err)
	}
	return nil
}
