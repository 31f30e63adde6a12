// Package store holds the single editable invoice document and the selected
// template, keeps both synchronized with a persistent key-value collaborator,
// and notifies subscribers after every change.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"invoicegen/internal/calc"
	"invoicegen/internal/model"
	"invoicegen/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownTemplate  = errors.New("unknown template")
	ErrLineItemNotFound = errors.New("line item not found")
	ErrLastLineItem     = errors.New("cannot remove the last line item")
	ErrEmptyLineItems   = errors.New("an invoice needs at least one line item")
)

// EventKind names what changed
type EventKind string

const (
	EventInvoiceUpdated   EventKind = "invoice.updated"
	EventInvoiceReset     EventKind = "invoice.reset"
	EventTemplateSelected EventKind = "template.selected"
)

// Event carries a snapshot of the state after a change. Seq increases with
// every change; subscribers may receive events out of order and use it to
// discard stale snapshots.
type Event struct {
	Kind     EventKind             `json:"kind"`
	Seq      uint64                `json:"seq"`
	Document model.InvoiceDocument `json:"document"`
	Template model.TemplateType    `json:"template"`
}

// InvoicePatch is a shallow partial update. Every non-nil field replaces the
// current value wholesale; nested records must be passed complete.
type InvoicePatch struct {
	InvoiceNumber   *string             `json:"invoiceNumber"`
	IssueDate       *string             `json:"date"`
	DueDate         *string             `json:"dueDate"`
	Business        *model.BusinessInfo `json:"business"`
	Client          *model.ClientInfo   `json:"client"`
	LineItems       []model.LineItem    `json:"lineItems"` // nil leaves items untouched
	Currency        *model.Currency     `json:"currency"`
	DiscountPercent *float64            `json:"discount"`
	Notes           *string             `json:"notes"`
	Signature       *string             `json:"signature"`
}

// LineItemPatch edits one row in place
type LineItemPatch struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice"`
	TaxPercent  *float64 `json:"tax"`
}

// Option customizes a Store
type Option func(*Store)

// WithClock overrides time.Now, used for dates and invoice numbers
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is safe for concurrent use. Writes are serialized and last-write-wins.
type Store struct {
	kv     repository.KVRepository
	logger *logrus.Logger
	now    func() time.Time

	mu       sync.RWMutex
	doc      model.InvoiceDocument
	template model.TemplateType
	seq      uint64

	subMu     sync.RWMutex
	listeners map[int]func(Event)
	nextSub   int
}

// New creates a store from defaults and hydrates it once from kv.
// A corrupt persisted snapshot is logged and ignored.
func New(ctx context.Context, kv repository.KVRepository, logger *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		logger:    logger,
		now:       time.Now,
		template:  model.DefaultTemplate,
		listeners: make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.doc = NewDefaultDocument(s.now())
	s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	raw, found, err := s.kv.Get(ctx, model.KeyInvoiceData)
	switch {
	case err != nil:
		s.logger.WithError(err).Warn("failed to read persisted invoice, using defaults")
	case found:
		var doc model.InvoiceDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			s.logger.WithError(err).Warn("persisted invoice state is corrupt, using defaults")
			break
		}
		if len(doc.LineItems) == 0 {
			doc.LineItems = []model.LineItem{blankLineItem()}
		}
		calc.RecomputeTotals(doc.LineItems)
		s.doc = doc
	}

	tpl, found, err := s.kv.Get(ctx, model.KeySelectedTemplate)
	switch {
	case err != nil:
		s.logger.WithError(err).Warn("failed to read persisted template selection")
	case found && model.TemplateType(tpl).IsValid():
		s.template = model.TemplateType(tpl)
	case found:
		s.logger.WithField("template", tpl).Warn("ignoring unknown persisted template")
	}
}

// Get returns a copy of the current document
func (s *Store) Get() model.InvoiceDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Template returns the selected template identifier
func (s *Store) Template() model.TemplateType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.template
}

// Snapshot returns the current document and template stamped with the
// sequence of the last change
func (s *Store) Snapshot() Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Event{Seq: s.seq, Document: s.doc.Clone(), Template: s.template}
}

// Merge applies patch shallowly and persists the result
func (s *Store) Merge(ctx context.Context, patch InvoicePatch) error {
	if patch.LineItems != nil && len(patch.LineItems) == 0 {
		return ErrEmptyLineItems
	}
	return s.mutate(ctx, EventInvoiceUpdated, func(doc *model.InvoiceDocument) error {
		applyPatch(doc, patch)
		return nil
	})
}

func applyPatch(doc *model.InvoiceDocument, p InvoicePatch) {
	if p.InvoiceNumber != nil {
		doc.InvoiceNumber = *p.InvoiceNumber
	}
	if p.IssueDate != nil {
		doc.IssueDate = *p.IssueDate
	}
	if p.DueDate != nil {
		doc.DueDate = *p.DueDate
	}
	if p.Business != nil {
		doc.Business = *p.Business
	}
	if p.Client != nil {
		doc.Client = *p.Client
	}
	if p.LineItems != nil {
		items := make([]model.LineItem, len(p.LineItems))
		copy(items, p.LineItems)
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = uuid.NewString()
			}
		}
		calc.RecomputeTotals(items)
		doc.LineItems = items
	}
	if p.Currency != nil {
		doc.Currency = *p.Currency
	}
	if p.DiscountPercent != nil {
		doc.DiscountPercent = *p.DiscountPercent
	}
	if p.Notes != nil {
		doc.Notes = *p.Notes
	}
	if p.Signature != nil {
		doc.Signature = *p.Signature
	}
}

// Reset replaces the document with fresh defaults, restores the default
// template and clears both persisted keys
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.doc = NewDefaultDocument(s.now())
	s.template = model.DefaultTemplate
	err := s.kv.Delete(ctx, model.KeyInvoiceData, model.KeySelectedTemplate)
	evt := s.eventLocked(EventInvoiceReset)
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Error("failed to clear persisted invoice")
		err = fmt.Errorf("failed to clear persisted invoice: %w", err)
	}
	s.publish(evt)
	return err
}

// SelectTemplate switches the template and persists the selection
func (s *Store) SelectTemplate(ctx context.Context, t model.TemplateType) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, t)
	}

	s.mu.Lock()
	s.template = t
	err := s.kv.Set(ctx, model.KeySelectedTemplate, string(t))
	if err != nil {
		s.logger.WithError(err).WithField("template", t).Error("failed to persist template selection")
		err = fmt.Errorf("failed to persist template selection: %w", err)
	}
	err = errors.Join(err, s.persistLocked(ctx))
	evt := s.eventLocked(EventTemplateSelected)
	s.mu.Unlock()

	s.publish(evt)
	return err
}

// AddLineItem appends a new row and returns it
func (s *Store) AddLineItem(ctx context.Context) (model.LineItem, error) {
	item := NewLineItem()
	err := s.mutate(ctx, EventInvoiceUpdated, func(doc *model.InvoiceDocument) error {
		doc.LineItems = append(doc.LineItems, item)
		calc.RecomputeTotals(doc.LineItems[len(doc.LineItems)-1:])
		return nil
	})
	return item, err
}

// UpdateLineItem edits the row with the given id in place and recomputes its total
func (s *Store) UpdateLineItem(ctx context.Context, id string, patch LineItemPatch) (model.LineItem, error) {
	var updated model.LineItem
	err := s.mutate(ctx, EventInvoiceUpdated, func(doc *model.InvoiceDocument) error {
		idx := indexOf(doc.LineItems, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrLineItemNotFound, id)
		}
		item := doc.LineItems[idx]
		if patch.Description != nil {
			item.Description = *patch.Description
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.UnitPrice != nil {
			item.UnitPrice = *patch.UnitPrice
		}
		if patch.TaxPercent != nil {
			item.TaxPercent = *patch.TaxPercent
		}
		item.Total = calc.CachedTotal(item.Quantity, item.UnitPrice, item.TaxPercent)
		doc.LineItems[idx] = item
		updated = item
		return nil
	})
	return updated, err
}

// RemoveLineItem deletes a row; the last remaining row cannot be removed
func (s *Store) RemoveLineItem(ctx context.Context, id string) error {
	return s.mutate(ctx, EventInvoiceUpdated, func(doc *model.InvoiceDocument) error {
		idx := indexOf(doc.LineItems, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrLineItemNotFound, id)
		}
		if len(doc.LineItems) <= 1 {
			return ErrLastLineItem
		}
		doc.LineItems = append(doc.LineItems[:idx], doc.LineItems[idx+1:]...)
		return nil
	})
}

// Subscribe registers fn to receive every change. The returned func unregisters it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.listeners, id)
		s.subMu.Unlock()
	}
}

// mutate runs fn on a copy of the document. On success the copy becomes the
// current state and is persisted; a persist failure is returned but the
// in-memory state is kept.
func (s *Store) mutate(ctx context.Context, kind EventKind, fn func(doc *model.InvoiceDocument) error) error {
	s.mu.Lock()
	next := s.doc.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.doc = next
	persistErr := s.persistLocked(ctx)
	evt := s.eventLocked(kind)
	s.mu.Unlock()

	s.publish(evt)
	return persistErr
}

// eventLocked stamps the current state with the next sequence number
func (s *Store) eventLocked(kind EventKind) Event {
	s.seq++
	return Event{Kind: kind, Seq: s.seq, Document: s.doc.Clone(), Template: s.template}
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("failed to encode invoice: %w", err)
	}
	if err := s.kv.Set(ctx, model.KeyInvoiceData, string(data)); err != nil {
		s.logger.WithError(err).Error("failed to persist invoice")
		return fmt.Errorf("failed to persist invoice: %w", err)
	}
	return nil
}

func (s *Store) publish(evt Event) {
	s.subMu.RLock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}

func indexOf(items []model.LineItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
