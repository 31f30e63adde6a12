package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"invoicegen/internal/model"
	"invoicegen/internal/repository"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKVRepository is a mock implementation of repository.KVRepository
type MockKVRepository struct {
	mock.Mock
}

var _ repository.KVRepository = (*MockKVRepository)(nil)

func (m *MockKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKVRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKVRepository) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, kv repository.KVRepository) (*Store, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	return New(context.Background(), kv, logger, WithClock(func() time.Time { return fixedNow })), hook
}

func ptr[T any](v T) *T { return &v }

func TestNewStoreDefaults(t *testing.T) {
	s, _ := newTestStore(t, repository.NewMemoryKVRepository())

	doc := s.Get()
	assert.Regexp(t, regexp.MustCompile(`^INV-2026-\d{4}$`), doc.InvoiceNumber)
	assert.Equal(t, "2026-03-14", doc.IssueDate)
	assert.Equal(t, "2026-04-13", doc.DueDate)
	require.Len(t, doc.LineItems, 1)
	assert.NotEmpty(t, doc.LineItems[0].ID)
	assert.Equal(t, model.Currencies[0], doc.Currency)
	assert.Equal(t, model.TemplateMinimal, s.Template())
}

func TestMergeReplacesFieldsWholesaleAndPersists(t *testing.T) {
	kv := repository.NewMemoryKVRepository()
	s, _ := newTestStore(t, kv)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, InvoicePatch{
		Business: &model.BusinessInfo{Name: "Acme", Email: "billing@acme.test"},
	}))
	require.NoError(t, s.Merge(ctx, InvoicePatch{
		Business: &model.BusinessInfo{Name: "Acme Ltd"},
		Notes:    ptr("Thanks!"),
	}))

	doc := s.Get()
	assert.Equal(t, "Acme Ltd", doc.Business.Name)
	assert.Empty(t, doc.Business.Email, "nested records are replaced, not deep-merged")
	assert.Equal(t, "Thanks!", doc.Notes)

	raw, found, err := kv.Get(ctx, model.KeyInvoiceData)
	require.NoError(t, err)
	require.True(t, found)
	var persisted model.InvoiceDocument
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, doc, persisted)
}

func TestMergeRecomputesLineTotals(t *testing.T) {
	s, _ := newTestStore(t, repository.NewMemoryKVRepository())

	require.NoError(t, s.Merge(context.Background(), InvoicePatch{
		LineItems: []model.LineItem{
			{Description: "Design", Quantity: 2, UnitPrice: 50, TaxPercent: 10, Total: 1},
			{ID: "keep", Description: "Hosting", Quantity: 1, UnitPrice: 200},
		},
	}))

	items := s.Get().LineItems
	require.Len(t, items, 2)
	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, 110.0, items[0].Total)
	assert.Equal(t, "keep", items[1].ID)
	assert.Equal(t, 200.0, items[1].Total)
}

func TestMergeRejectsEmptyLineItems(t *testing.T) {
	s, _ := newTestStore(t, repository.NewMemoryKVRepository())

	err := s.Merge(context.Background(), InvoicePatch{LineItems: []model.LineItem{}})
	assert.ErrorIs(t, err, ErrEmptyLineItems)
	assert.Len(t, s.Get().LineItems, 1)
}

func TestDueDateBeforeIssueDateIsAccepted(t *testing.T) {
	s, _ := newTestStore(t, repository.NewMemoryKVRepository())

	require.NoError(t, s.Merge(context.Background(), InvoicePatch{
		IssueDate: ptr("2026-05-01"),
		DueDate:   ptr("2026-04-01"),
	}))
	assert.Equal(t, "2026-04-01", s.Get().DueDate)
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	s, _ := newTestStore(t, repository.NewMemoryKVRepository())

	doc := s.Get()
	doc.LineItems[0].Description = "mutated"

	assert.Empty(t, s.Get().LineItems[0].Description)
}

func TestPersistenceRoundTrip(t *testing.T) {
	kv := repository.NewMemoryKVRepository()
	s, _ := newTestStore(t, kv)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, InvoicePatch{
		InvoiceNumber:   ptr("INV-2026-0042"),
		Business:        &model.BusinessInfo{Name: "Acme", Address: "1 Main St\nSpringfield", Logo: "data:image/png;base64,AAAA"},
		Client:          &model.ClientInfo{Name: "Globex", Phone: "+1 555 0100"},
		LineItems:       []model.LineItem{{Description: "Consulting", Quantity: 3.5, UnitPrice: 120, TaxPercent: 8.25}},
		Currency:        &model.Currencies[1],
		DiscountPercent: ptr(5.0),
		Notes:           ptr("Net 30"),
	}))
	require.NoError(t, s.SelectTemplate(ctx, model.TemplateGradient))

	rehydrated, _ := newTestStore(t, kv)

	assert.Equal(t, s.Get(), rehydrated.Get())
	assert.Equal(t, model.TemplateGradient, rehydrated.Template())
}

func TestCorruptPersistedStateFallsBackToDefaults(t *testing.T) {
	kv := repository.NewMemoryKVRepository()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, model.KeyInvoiceData, "{broken"))
	require.NoError(t, kv.Set(ctx, model.KeySelectedTemplate, "holographic"))

	s, hook := newTestStore(t, kv)

	doc := s.Get()
	assert.Equal(t, "2026-03-14", doc.IssueDate)
	assert.Len(t, doc.LineItems, 1)
	assert.Equal(t, model.TemplateMinimal, s.Template())

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestResetRestoresDefaultsAndClearsPersistedState(t *testing.T) {
	kv := repository.NewMemoryKVRepository()
	s, _ := newTestStore(t, kv)
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, InvoicePatch{
		LineItems:       []model.LineItem{{Quantity: 1, UnitPrice: 1}, {Quantity: 2, UnitPrice: 2}},
		Currency:        &model.Currencies[3],
		DiscountPercent: ptr(15.0),
		Notes:           ptr("old"),
	}))
	require.NoError(t, s.SelectTemplate(ctx, model.TemplateModern))

	require.NoError(t, s.Reset(ctx))

	doc := s.Get()
	require.Len(t, doc.LineItems, 1)
	item := doc.LineItems[0]
	assert.NotEmpty(t, item.ID)
	assert.Empty(t, item.Description)
	assert.Zero(t, item.Quantity)
	assert.Zero(t, item.UnitPrice)
	assert.Zero(t, item.TaxPercent)
	assert.Zero(t, item.Total)
	assert.Equal(t, model.Currencies[0], doc.Currency)
	assert.Zero(t, doc.DiscountPercent)
	assert.Empty(t, doc.Notes)
	assert.Equal(t, model.TemplateMinimal, s.Template())

	issue, err := time.Parse("2006-01-02", doc.IssueDate)
	require.NoError(t, err)
	due, err := time.Parse("2006-01-02", doc.DueDate)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, due.Sub(issue))

	assert.Equal(t, 0, kv.Len())
}

func TestSelectTemplate(t *testing.T) {
	kv := repository.NewMemoryKVRepository()
	s, _ := newTestStore(t, kv)
	ctx := context.Background()

	require.NoError(t, s.SelectTemplate(ctx, model.TemplateCorporate))
	assert.Equal(t, model.TemplateCorporate, s.Template())

	val, _, _ := kv.Get(ctx, model.KeySelectedTemplate)
	assert.Equal(t, "corporate", val)

	err := s.SelectTemplate(ctx, "holographic")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.Equal(t, model.TemplateCorporate, s.Template())
}

func TestLineItemOperations(t *testing.T) {
	s, _ := newTestStore(t, repository.NewMemoryKVRepository())
	ctx := context.Background()
	first := s.Get().LineItems[0].ID

	added, err := s.AddLineItem(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, added.Quantity)
	assert.Len(t, s.Get().LineItems, 2)

	updated, err := s.UpdateLineItem(ctx, added.ID, LineItemPatch{
		Quantity:   ptr(2.0),
		UnitPrice:  ptr(50.0),
		TaxPercent: ptr(10.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 110.0, updated.Total)

	updated, err = s.UpdateLineItem(ctx, added.ID, LineItemPatch{TaxPercent: ptr(0.0)})
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.Total, "total never left stale")
	assert.Equal(t, updated, s.Get().LineItems[1], "display order preserved")

	_, err = s.UpdateLineItem(ctx, "missing", LineItemPatch{})
	assert.ErrorIs(t, err, ErrLineItemNotFound)

	require.NoError(t, s.RemoveLineItem(ctx, first))
	assert.ErrorIs(t, s.RemoveLineItem(ctx, added.ID), ErrLastLineItem)
	assert.ErrorIs(t, s.RemoveLineItem(ctx, "missing"), ErrLineItemNotFound)
	assert.Len(t, s.Get().LineItems, 1)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s, _ := newTestStore(t, repository.NewMemoryKVRepository())
	ctx := context.Background()

	var events []Event
	unsubscribe := s.Subscribe(func(e Event) { events = append(events, e) })

	require.NoError(t, s.Merge(ctx, InvoicePatch{Notes: ptr("hello")}))
	require.NoError(t, s.SelectTemplate(ctx, model.TemplateClassic))
	require.NoError(t, s.Reset(ctx))

	require.Len(t, events, 3)
	assert.Equal(t, EventInvoiceUpdated, events[0].Kind)
	assert.Equal(t, "hello", events[0].Document.Notes)
	assert.Equal(t, EventTemplateSelected, events[1].Kind)
	assert.Equal(t, model.TemplateClassic, events[1].Template)
	assert.Equal(t, EventInvoiceReset, events[2].Kind)

	unsubscribe()
	require.NoError(t, s.Merge(ctx, InvoicePatch{Notes: ptr("again")}))
	assert.Len(t, events, 3)
}

func TestPersistFailureKeepsInMemoryState(t *testing.T) {
	kv := new(MockKVRepository)
	kv.On("Get", mock.Anything, mock.Anything).Return("", false, nil)
	kv.On("Set", mock.Anything, model.KeyInvoiceData, mock.Anything).Return(errors.New("disk full"))

	s, hook := newTestStore(t, kv)

	err := s.Merge(context.Background(), InvoicePatch{Notes: ptr("draft")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, "draft", s.Get().Notes)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	kv.AssertExpectations(t)
}

func TestSetLogoEmbedsDataURI(t *testing.T) {
	s, _ := newTestStore(t, repository.NewMemoryKVRepository())
	ctx := context.Background()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	require.NoError(t, s.SetLogo(ctx, bytes.NewReader(png)))

	logo := s.Get().Business.Logo
	assert.True(t, strings.HasPrefix(logo, "data:image/png;base64,"), logo)

	require.NoError(t, s.ClearLogo(ctx))
	assert.Empty(t, s.Get().Business.Logo)
}

func TestEventsCarryIncreasingSequence(t *testing.T) {
	s, _ := newTestStore(t, repository.NewMemoryKVRepository())
	ctx := context.Background()
	assert.Equal(t, uint64(0), s.Snapshot().Seq)

	var seqs []uint64
	s.Subscribe(func(e Event) { seqs = append(seqs, e.Seq) })

	require.NoError(t, s.Merge(ctx, InvoicePatch{Notes: ptr("one")}))
	require.NoError(t, s.SelectTemplate(ctx, model.TemplateModern))
	_, err := s.AddLineItem(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))
	assert.ErrorIs(t, s.RemoveLineItem(ctx, "missing"), ErrLineItemNotFound)

	assert.Equal(t, []uint64{1, 2, 3, 4}, seqs)
	snap := s.Snapshot()
	assert.Equal(t, uint64(4), snap.Seq)
	assert.Equal(t, s.Get(), snap.Document)
	assert.Equal(t, model.TemplateMinimal, snap.Template)
}

func TestSelectTemplatePersistsDocument(t *testing.T) {
	kv := repository.NewMemoryKVRepository()
	s, _ := newTestStore(t, kv)
	ctx := context.Background()

	require.NoError(t, s.SelectTemplate(ctx, model.TemplateGradient))

	raw, found, err := kv.Get(ctx, model.KeyInvoiceData)
	require.NoError(t, err)
	require.True(t, found)
	var doc model.InvoiceDocument
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, s.Get(), doc)
}

func TestCorruptStorageFileRecoversOnNextWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "invoice.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	logger, _ := logtest.NewNullLogger()
	kv, err := repository.NewFileKVRepository(path, logger)
	require.NoError(t, err)
	s := New(ctx, kv, logger, WithClock(func() time.Time { return fixedNow }))

	require.NoError(t, s.Merge(ctx, InvoicePatch{Notes: ptr("first")}))
	require.NoError(t, s.Reset(ctx))
	require.NoError(t, s.Merge(ctx, InvoicePatch{Notes: ptr("second")}))

	reloaded := New(ctx, kv, logger)
	assert.Equal(t, "second", reloaded.Get().Notes)
}

func TestOutOfRangeTotalStaysPersistable(t *testing.T) {
	kv := repository.NewMemoryKVRepository()
	s, _ := newTestStore(t, kv)
	ctx := context.Background()
	id := s.Get().LineItems[0].ID

	item, err := s.UpdateLineItem(ctx, id, LineItemPatch{Quantity: ptr(1e200), UnitPrice: ptr(1e200)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, item.Total)

	require.NoError(t, s.Merge(ctx, InvoicePatch{LineItems: []model.LineItem{{Quantity: 1e200, UnitPrice: 1e200}}}))
	require.NoError(t, s.Merge(ctx, InvoicePatch{Notes: ptr("still saved")}))

	raw, _, err := kv.Get(ctx, model.KeyInvoiceData)
	require.NoError(t, err)
	assert.Contains(t, raw, "still saved")
}
