package service

import (
	"bytes"
	"context"
	"fmt"

	"invoicegen/internal/export"
	"invoicegen/internal/notify"
	"invoicegen/internal/render"
)

// Exporter is one way of turning the current invoice into a file
type Exporter interface {
	Export(ctx context.Context) (export.Result, error)
}

type ExportService interface {
	ExportPDF(ctx context.Context) (export.Result, error)
	ExportSpreadsheet(ctx context.Context) (export.Result, error)
	PreviewPage(ctx context.Context) ([]byte, error)
	PrintPage(ctx context.Context) []byte
	Notifications(ctx context.Context) []notify.Notification
	DismissNotification(ctx context.Context, id string) bool
}

type exportService struct {
	pdf         Exporter
	spreadsheet Exporter
	preview     *render.LivePreview
	printer     *export.Printer
	notices     *notify.Center
}

func NewExportService(pdf, spreadsheet Exporter, preview *render.LivePreview, printer *export.Printer, notices *notify.Center) ExportService {
	return &exportService{
		pdf:         pdf,
		spreadsheet: spreadsheet,
		preview:     preview,
		printer:     printer,
		notices:     notices,
	}
}

func (s *exportService) ExportPDF(ctx context.Context) (export.Result, error) {
	return s.pdf.Export(ctx)
}

func (s *exportService) ExportSpreadsheet(ctx context.Context) (export.Result, error) {
	res, err := s.spreadsheet.Export(ctx)
	if err != nil {
		s.notices.Push(notify.LevelError, "Spreadsheet Export Error: "+err.Error())
		return export.Result{}, err
	}
	return res, nil
}

func (s *exportService) PreviewPage(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.preview.WritePage(&buf); err != nil {
		return nil, fmt.Errorf("failed to render preview: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *exportService) PrintPage(ctx context.Context) []byte {
	return s.printer.Print(ctx)
}

func (s *exportService) Notifications(ctx context.Context) []notify.Notification {
	return s.notices.List()
}

func (s *exportService) DismissNotification(ctx context.Context, id string) bool {
	return s.notices.Dismiss(id)
}
