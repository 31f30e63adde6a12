// Package export turns the live invoice preview into a downloadable PDF.
//
// The preview is cloned off-screen, its styles are normalized to colors the
// rasterizer can paint, the clone is captured to a bitmap and the bitmap is
// placed on a single A4 page. The live preview itself is never modified.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"invoicegen/internal/notify"
	"invoicegen/internal/pdf"
	"invoicegen/internal/raster"
	"invoicegen/internal/render"
	"invoicegen/internal/snapshot"
	"invoicegen/internal/visual"

	"github.com/sirupsen/logrus"
)

const (
	DefaultSettleDelay = 300 * time.Millisecond
	DefaultScale       = raster.DefaultScale

	// ExcludeClass marks elements left out of the capture
	ExcludeClass = "no-pdf"
)

var (
	ErrPreviewNotFound  = errors.New("invoice preview not found")
	ErrExportInProgress = errors.New("an export is already in progress")
)

// RasterizationError wraps any failure of the capture step
type RasterizationError struct {
	Err error
}

func (e *RasterizationError) Error() string {
	return "failed to capture invoice: " + e.Err.Error()
}

func (e *RasterizationError) Unwrap() error { return e.Err }

type State int32

const (
	StateIdle State = iota
	StateRendering
	StateRasterizing
	StateEmbedding
	StateSaved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateRasterizing:
		return "rasterizing"
	case StateEmbedding:
		return "embedding"
	case StateSaved:
		return "saved"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// DOM is the document the preview is mounted in
type DOM interface {
	GetElementByID(id string) *visual.Node
	AppendToBody(n *visual.Node)
	Remove(n *visual.Node) bool
}

type Normalizer interface {
	Normalize(root visual.Element) snapshot.Report
}

type Embedder interface {
	Embed(img image.Image, meta pdf.Meta) ([]byte, error)
}

// EmbedderFunc adapts a function to Embedder
type EmbedderFunc func(img image.Image, meta pdf.Meta) ([]byte, error)

func (f EmbedderFunc) Embed(img image.Image, meta pdf.Meta) ([]byte, error) { return f(img, meta) }

type Notifier interface {
	Push(level notify.Level, message string) notify.Notification
}

type nopNotifier struct{}

func (nopNotifier) Push(level notify.Level, message string) notify.Notification {
	return notify.Notification{Level: level, Message: message}
}

// Result describes a saved export
type Result struct {
	FileName string          `json:"file_name"`
	Location string          `json:"location,omitempty"`
	Size     int             `json:"size"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Report   snapshot.Report `json:"report"`
	Duration time.Duration   `json:"duration"`
	Data     []byte          `json:"-"`
}

type Option func(*Pipeline)

func WithNormalizer(n Normalizer) Option { return func(p *Pipeline) { p.normalizer = n } }
func WithEmbedder(e Embedder) Option { return func(p *Pipeline) { p.embedder = e } }
func WithNotifier(n Notifier) Option { return func(p *Pipeline) { p.notifier = n } }
func WithGuard(g Guard) Option { return func(p *Pipeline) { p.guard = g } }
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }
func WithLogger(l *logrus.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithSettleDelay sets the pause between normalizing and capturing
func WithSettleDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.settle = d
		}
	}
}

func WithScale(scale float64) Option {
	return func(p *Pipeline) {
		if scale > 0 {
			p.scale = scale
		}
	}
}

// WithWindowWidth sets the viewport width used when the preview declares none
func WithWindowWidth(w int) Option {
	return func(p *Pipeline) {
		if w > 0 {
			p.windowWidth = w
		}
	}
}

// Pipeline runs one export at a time
type Pipeline struct {
	dom         DOM
	rasterizer  raster.Rasterizer
	downloader  Downloader
	normalizer  Normalizer
	embedder    Embedder
	notifier    Notifier
	guard       Guard
	logger      *logrus.Logger
	now         func() time.Time
	settle      time.Duration
	scale       float64
	windowWidth int

	state atomic.Int32
}

func NewPipeline(dom DOM, rasterizer raster.Rasterizer, downloader Downloader, opts ...Option) *Pipeline {
	p := &Pipeline{
		dom:         dom,
		rasterizer:  rasterizer,
		downloader:  downloader,
		normalizer:  snapshot.NewNormalizer(),
		embedder:    EmbedderFunc(pdf.EmbedBitmap),
		notifier:    nopNotifier{},
		guard:       NewLocalGuard(),
		logger:      logrus.StandardLogger(),
		now:         time.Now,
		settle:      DefaultSettleDelay,
		scale:       DefaultScale,
		windowWidth: raster.DefaultWindowWidth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State is the current step of the running export, or idle
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
}

// Export captures the preview and hands the PDF to the downloader. A call
// made while another export runs fails with ErrExportInProgress.
func (p *Pipeline) Export(ctx context.Context) (res Result, err error) {
	release, err := p.guard.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	start := p.now()
	log := p.logger.WithField("component", "export")
	defer func() {
		if err != nil {
			p.setState(StateFailed)
			p.notifier.Push(notify.LevelError, "PDF Generation Error: "+err.Error())
			log.WithError(err).Error("Failed to generate PDF")
		}
		p.setState(StateIdle)
	}()

	p.setState(StateRendering)
	preview := p.dom.GetElementByID(render.PreviewID)
	if preview == nil {
		return Result{}, ErrPreviewNotFound
	}

	width := p.naturalWidth(preview)
	clone := preview.Clone(true)
	style := clone.Style()
	style.Set("position", "absolute", false)
	style.Set("left", "-9999px", false)
	style.Set("top", "0", false)
	style.Set("width", strconv.Itoa(width)+"px", false)
	style.Set("background-color", "#ffffff", false)

	p.dom.AppendToBody(clone)
	defer p.dom.Remove(clone)

	report := p.normalizer.Normalize(clone)
	log.WithFields(logrus.Fields{
		"nodes":              report.Nodes,
		"colors_rewritten":   report.ColorsRewritten,
		"paint_stripped":     report.PaintStripped,
		"filters_stripped":   report.FiltersStripped,
		"backgrounds_forced": report.BackgroundsForced,
		"unresolved":         report.Unresolved,
	}).Debug("Normalized preview clone")

	if err := p.wait(ctx); err != nil {
		return Result{}, err
	}

	p.setState(StateRasterizing)
	img, err := p.rasterizer.Rasterize(ctx, clone, raster.Options{
		Scale:       p.scale,
		Background:  color.White,
		WindowWidth: width,
		Ignore:      func(el visual.Element) bool { return el.HasClass(ExcludeClass) },
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, err
		}
		return Result{}, &RasterizationError{Err: err}
	}

	p.setState(StateEmbedding)
	stamp := p.now()
	data, err := p.embedder.Embed(img, pdf.Meta{Title: "Invoice", Creator: "invoicegen", CreatedAt: stamp})
	if err != nil {
		return Result{}, fmt.Errorf("failed to build pdf: %w", err)
	}

	name := fmt.Sprintf("invoice-%d.pdf", stamp.UnixMilli())
	location, err := p.downloader.Download(ctx, name, data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to save %s: %w", name, err)
	}

	p.setState(StateSaved)
	res = Result{
		FileName: name,
		Location: location,
		Size:     len(data),
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		Report:   report,
		Duration: p.now().Sub(start),
		Data:     data,
	}
	log.WithFields(logrus.Fields{"file": name, "bytes": res.Size}).Info("PDF saved")
	return res, nil
}

func (p *Pipeline) wait(ctx context.Context) error {
	if p.settle <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// naturalWidth is the preview's declared pixel width, or the window width
func (p *Pipeline) naturalWidth(el *visual.Node) int {
	if v, ok := el.Style().Get("width"); ok {
		v = strings.TrimSpace(v)
		if px, found := strings.CutSuffix(v, "px"); found {
			if f, err := strconv.ParseFloat(px, 64); err == nil && f > 0 {
				return int(f)
			}
		}
	}
	return p.windowWidth
}
