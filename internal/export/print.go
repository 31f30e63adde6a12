package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// PageWriter writes the live preview page with the print trigger attached
type PageWriter interface {
	WritePrintPage(w io.Writer) error
}

const unavailablePage = `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Print</title></head>` +
	`<body><p>The invoice could not be prepared for printing. Please try again.</p></body></html>`

// Printer serves the live preview for the browser's print dialog. The page
// is not cloned or normalized; print rules in the page hide the chrome.
type Printer struct {
	pages  PageWriter
	logger *logrus.Logger
}

func NewPrinter(pages PageWriter, logger *logrus.Logger) *Printer {
	return &Printer{pages: pages, logger: logger}
}

// Print returns the printable page. It never fails: rendering problems and
// panics are logged and a short fallback page is returned instead.
func (p *Printer) Print(ctx context.Context) (page []byte) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("panic", fmt.Sprint(r)).Error("Print preview panicked")
			page = []byte(unavailablePage)
		}
	}()

	if err := ctx.Err(); err != nil {
		p.logger.WithError(err).Warn("Print request canceled")
		return []byte(unavailablePage)
	}

	var buf bytes.Buffer
	if err := p.pages.WritePrintPage(&buf); err != nil {
		p.logger.WithError(err).Error("Failed to prepare print preview")
		return []byte(unavailablePage)
	}
	return buf.Bytes()
}
