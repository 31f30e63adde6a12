package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"invoicegen/internal/calc"
	"invoicegen/internal/model"
	"invoicegen/internal/store"
)

// ErrValidation marks a request the caller must correct
var ErrValidation = errors.New("validation failed")

// --- DTOs ---

type InvoiceResponse struct {
	Document model.InvoiceDocument `json:"document"`
	Totals   calc.Totals           `json:"totals"`
	Template model.TemplateType    `json:"template"`
}

// UpdateInvoiceRequest is a shallow patch. A currency may be given by code
// alone; symbol and name are filled from the enumerated set.
type UpdateInvoiceRequest struct {
	store.InvoicePatch
	CurrencyCode *string `json:"currencyCode"`
}

type UpdateLineItemRequest = store.LineItemPatch

type TemplatesResponse struct {
	Templates []model.Template   `json:"templates"`
	Selected  model.TemplateType `json:"selected"`
}

type SelectTemplateRequest struct {
	Template model.TemplateType `json:"template" binding:"required"`
}

// --- Service ---

type InvoiceService interface {
	GetInvoice(ctx context.Context) InvoiceResponse
	UpdateInvoice(ctx context.Context, req UpdateInvoiceRequest) (InvoiceResponse, error)
	ResetInvoice(ctx context.Context) (InvoiceResponse, error)
	AddLineItem(ctx context.Context) (model.LineItem, error)
	UpdateLineItem(ctx context.Context, id string, req UpdateLineItemRequest) (model.LineItem, error)
	RemoveLineItem(ctx context.Context, id string) error
	SetLogo(ctx context.Context, r io.Reader) (InvoiceResponse, error)
	ClearLogo(ctx context.Context) (InvoiceResponse, error)
	ListTemplates(ctx context.Context) TemplatesResponse
	SelectTemplate(ctx context.Context, t model.TemplateType) (TemplatesResponse, error)
	ListCurrencies(ctx context.Context) []model.Currency
}

type invoiceService struct {
	store *store.Store
}

func NewInvoiceService(s *store.Store) InvoiceService {
	return &invoiceService{store: s}
}

func (s *invoiceService) GetInvoice(ctx context.Context) InvoiceResponse {
	return s.snapshot()
}

func (s *invoiceService) snapshot() InvoiceResponse {
	doc := s.store.Get()
	return InvoiceResponse{
		Document: doc,
		Totals:   calc.Summarize(doc.LineItems, doc.DiscountPercent),
		Template: s.store.Template(),
	}
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, req UpdateInvoiceRequest) (InvoiceResponse, error) {
	patch := req.InvoicePatch

	code := ""
	switch {
	case req.CurrencyCode != nil:
		code = *req.CurrencyCode
	case patch.Currency != nil:
		code = patch.Currency.Code
	}
	if req.CurrencyCode != nil || patch.Currency != nil {
		currency, ok := model.CurrencyByCode(strings.ToUpper(strings.TrimSpace(code)))
		if !ok {
			return InvoiceResponse{}, fmt.Errorf("%w: unsupported currency %q", ErrValidation, code)
		}
		patch.Currency = &currency
	}
	if patch.LineItems != nil && len(patch.LineItems) == 0 {
		return InvoiceResponse{}, fmt.Errorf("%w: %s", ErrValidation, store.ErrEmptyLineItems)
	}

	if err := s.store.Merge(ctx, patch); err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to update invoice: %w", err)
	}
	return s.snapshot(), nil
}

func (s *invoiceService) ResetInvoice(ctx context.Context) (InvoiceResponse, error) {
	if err := s.store.Reset(ctx); err != nil {
		return InvoiceResponse{}, err
	}
	return s.snapshot(), nil
}

func (s *invoiceService) AddLineItem(ctx context.Context) (model.LineItem, error) {
	item, err := s.store.AddLineItem(ctx)
	if err != nil {
		return model.LineItem{}, fmt.Errorf("failed to add line item: %w", err)
	}
	return item, nil
}

func (s *invoiceService) UpdateLineItem(ctx context.Context, id string, req UpdateLineItemRequest) (model.LineItem, error) {
	return s.store.UpdateLineItem(ctx, id, req)
}

func (s *invoiceService) RemoveLineItem(ctx context.Context, id string) error {
	err := s.store.RemoveLineItem(ctx, id)
	if errors.Is(err, store.ErrLastLineItem) {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return err
}

func (s *invoiceService) SetLogo(ctx context.Context, r io.Reader) (InvoiceResponse, error) {
	if err := s.store.SetLogo(ctx, r); err != nil {
		return InvoiceResponse{}, err
	}
	return s.snapshot(), nil
}

func (s *invoiceService) ClearLogo(ctx context.Context) (InvoiceResponse, error) {
	if err := s.store.ClearLogo(ctx); err != nil {
		return InvoiceResponse{}, err
	}
	return s.snapshot(), nil
}

func (s *invoiceService) ListTemplates(ctx context.Context) TemplatesResponse {
	return TemplatesResponse{Templates: model.Templates, Selected: s.store.Template()}
}

func (s *invoiceService) SelectTemplate(ctx context.Context, t model.TemplateType) (TemplatesResponse, error) {
	err := s.store.SelectTemplate(ctx, t)
	if errors.Is(err, store.ErrUnknownTemplate) {
		return TemplatesResponse{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if err != nil {
		return TemplatesResponse{}, err
	}
	return s.ListTemplates(ctx), nil
}

func (s *invoiceService) ListCurrencies(ctx context.Context) []model.Currency {
	return model.Currencies
}
