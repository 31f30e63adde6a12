package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"invoicegen/internal/model"

	"github.com/gabriel-vasile/mimetype"
)

// DataURI inlines data as a base64 data URI with its detected media type
func DataURI(data []byte) string {
	mime := mimetype.Detect(data)
	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// SetLogo reads an uploaded image and embeds it into business.logo.
// Only the media type is detected; size and type are not validated.
func (s *Store) SetLogo(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read logo: %w", err)
	}
	logo := DataURI(data)
	return s.mutate(ctx, EventInvoiceUpdated, func(doc *model.InvoiceDocument) error {
		doc.Business.Logo = logo
		return nil
	})
}

// ClearLogo removes the business logo
func (s *Store) ClearLogo(ctx context.Context) error {
	return s.mutate(ctx, EventInvoiceUpdated, func(doc *model.InvoiceDocument) error {
		doc.Business.Logo = ""
		return nil
	})
}
