package render

import (
	"io"
	"sync"

	"invoicegen/internal/model"
	"invoicegen/internal/store"
	"invoicegen/internal/visual"

	"github.com/sirupsen/logrus"
)

// Source is the slice of the invoice store the live preview needs
type Source interface {
	Get() model.InvoiceDocument
	Template() model.TemplateType
	Snapshot() store.Event
	Subscribe(fn func(store.Event)) func()
}

// LivePreview keeps a rendered preview mounted in a document and re-renders
// it whenever the source changes.
type LivePreview struct {
	registry *Registry
	source   Source
	logger   *logrus.Logger
	doc      *visual.Document

	mu          sync.Mutex
	mounted     *visual.Node
	seq         uint64
	version     uint64
	unsubscribe func()
}

// NewLivePreview renders the current state and starts following changes
func NewLivePreview(registry *Registry, source Source, logger *logrus.Logger) (*LivePreview, error) {
	p := &LivePreview{
		registry: registry,
		source:   source,
		logger:   logger,
		doc:      visual.NewDocument(),
	}
	if err := p.mount(source.Snapshot()); err != nil {
		return nil, err
	}
	p.unsubscribe = source.Subscribe(p.onChange)
	return p, nil
}

// Document is the live document holding the mounted preview
func (p *LivePreview) Document() *visual.Document {
	return p.doc
}

// Version increments on every successful re-mount
func (p *LivePreview) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// Refresh re-renders from the source's current state
func (p *LivePreview) Refresh() error {
	return p.mount(p.source.Snapshot())
}

// Close stops following the source
func (p *LivePreview) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

// WritePage writes the full printable page around the mounted preview
func (p *LivePreview) WritePage(w io.Writer) error {
	return p.writePage(w, false)
}

// WritePrintPage is WritePage plus a script that opens the print dialog
func (p *LivePreview) WritePrintPage(w io.Writer) error {
	return p.writePage(w, true)
}

func (p *LivePreview) writePage(w io.Writer, autoPrint bool) error {
	p.mu.Lock()
	mounted := p.mounted
	p.mu.Unlock()
	return p.registry.RenderPage(w, Page{
		Selected:      p.source.Template(),
		InvoiceNumber: p.source.Get().InvoiceNumber,
		Preview:       mounted,
		AutoPrint:     autoPrint,
	})
}

func (p *LivePreview) onChange(evt store.Event) {
	if err := p.mount(evt); err != nil {
		p.logger.WithError(err).WithField("event", evt.Kind).Error("Failed to refresh invoice preview")
	}
}

// mount renders snap and swaps it in unless a newer state is already mounted
func (p *LivePreview) mount(snap store.Event) error {
	tree, err := p.registry.RenderTree(snap.Template, snap.Document)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mounted != nil && snap.Seq < p.seq {
		p.logger.WithFields(logrus.Fields{"seq": snap.Seq, "mounted": p.seq}).Debug("Skipping stale invoice preview")
		return nil
	}
	p.doc.Replace(p.mounted, tree)
	p.mounted = tree
	p.seq = snap.Seq
	p.version++
	return nil
}
