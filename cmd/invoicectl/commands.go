package main

import (
	"fmt"
	"io"
	"os"

	"invoicegen/internal/calc"
	"invoicegen/internal/export"
	"invoicegen/internal/model"
	"invoicegen/internal/raster"
	"invoicegen/internal/render"
	"invoicegen/internal/repository"
	"invoicegen/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:   "invoicectl",
		Usage:  "compute, render and export invoices from JSON documents",
		Writer: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn"},
		},
		Commands: []*cli.Command{
			{
				Name:   "totals",
				Usage:  "print subtotal, tax, discount and grand total",
				Flags:  []cli.Flag{fileFlag()},
				Action: totalsAction,
			},
			{
				Name:  "render",
				Usage: "write the preview HTML",
				Flags: []cli.Flag{
					fileFlag(), templateFlag(),
					&cli.BoolFlag{Name: "page", Usage: "wrap the preview in the standalone page"},
				},
				Action: renderAction,
			},
			{
				Name:  "export",
				Usage: "export the invoice to PDF or XLSX",
				Flags: []cli.Flag{
					fileFlag(), templateFlag(),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "."},
					&cli.StringFlag{Name: "format", Value: "pdf", Usage: "pdf or xlsx"},
					&cli.Float64Flag{Name: "scale", Value: raster.DefaultScale},
					&cli.StringFlag{Name: "fallback-font", Usage: "font file for glyphs the Go fonts lack"},
				},
				Action: exportAction,
			},
		},
	}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "invoice JSON document", Required: true}
}

func templateFlag() cli.Flag {
	return &cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "template id", Value: string(model.DefaultTemplate)}
}

func newLogger(c *cli.Context) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(c.String("log-level")); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// loadStore hydrates an in-memory store from the document file
func loadStore(c *cli.Context, logger *logrus.Logger) (*store.Store, error) {
	raw, err := os.ReadFile(c.String("file"))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	kv := repository.NewMemoryKVRepository()
	if err := kv.Set(c.Context, model.KeyInvoiceData, string(raw)); err != nil {
		return nil, err
	}
	s := store.New(c.Context, kv, logger)

	if t := c.String("template"); t != "" {
		if err := s.SelectTemplate(c.Context, model.TemplateType(t)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func totalsAction(c *cli.Context) error {
	s, err := loadStore(c, newLogger(c))
	if err != nil {
		return err
	}
	doc := s.Get()
	t := calc.Summarize(doc.LineItems, doc.DiscountPercent)
	sym := doc.Currency.Symbol

	w := c.App.Writer
	fmt.Fprintf(w, "Subtotal: %s\n", calc.FormatMoney(t.Subtotal, sym))
	fmt.Fprintf(w, "Tax: %s\n", calc.FormatMoney(t.TotalTax, sym))
	if doc.DiscountPercent > 0 {
		fmt.Fprintf(w, "Discount (%s%%): -%s\n", calc.FormatNumber(doc.DiscountPercent), calc.FormatMoney(t.DiscountAmount, sym))
	}
	fmt.Fprintf(w, "Total: %s\n", calc.FormatMoney(t.GrandTotal, sym))
	return nil
}

func renderAction(c *cli.Context) error {
	logger := newLogger(c)
	s, err := loadStore(c, logger)
	if err != nil {
		return err
	}
	if !c.Bool("page") {
		return render.MustRegistry().RenderTo(c.App.Writer, s.Template(), s.Get())
	}

	preview, err := render.NewLivePreview(render.MustRegistry(), s, logger)
	if err != nil {
		return err
	}
	defer preview.Close()
	return preview.WritePage(c.App.Writer)
}

func exportAction(c *cli.Context) error {
	logger := newLogger(c)
	s, err := loadStore(c, logger)
	if err != nil {
		return err
	}
	downloads := export.NewDirDownloader(c.String("out"))

	var res export.Result
	switch c.String("format") {
	case "pdf":
		res, err = exportPDF(c, s, downloads, logger)
	case "xlsx":
		res, err = export.NewSpreadsheetExporter(s, downloads, logger).Export(c.Context)
	default:
		return fmt.Errorf("unsupported format %q", c.String("format"))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, res.Location)
	return nil
}

func exportPDF(c *cli.Context, s *store.Store, downloads export.Downloader, logger *logrus.Logger) (export.Result, error) {
	preview, err := render.NewLivePreview(render.MustRegistry(), s, logger)
	if err != nil {
		return export.Result{}, err
	}
	defer preview.Close()

	var opts []raster.CanvasOption
	if path := c.String("fallback-font"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return export.Result{}, fmt.Errorf("failed to read fallback font: %w", err)
		}
		opts = append(opts, raster.WithFallbackFont(data))
	}
	rasterizer, err := raster.NewCanvasRasterizer(opts...)
	if err != nil {
		return export.Result{}, err
	}
	pipeline := export.NewPipeline(preview.Document(), rasterizer, downloads,
		export.WithSettleDelay(0),
		export.WithScale(c.Float64("scale")),
		export.WithLogger(logger),
	)
	return pipeline.Export(c.Context)
}
