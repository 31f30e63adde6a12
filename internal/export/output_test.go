package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"invoicegen/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type pageFunc func(w io.Writer) error

func (f pageFunc) WritePrintPage(w io.Writer) error { return f(w) }

func TestPrinter(t *testing.T) {
	ok := NewPrinter(pageFunc(func(w io.Writer) error {
		_, err := io.WriteString(w, "<html>invoice</html>")
		return err
	}), newLogger())
	assert.Equal(t, "<html>invoice</html>", string(ok.Print(context.Background())))

	failing := NewPrinter(pageFunc(func(io.Writer) error { return errors.New("template broke") }), newLogger())
	assert.Equal(t, unavailablePage, string(failing.Print(context.Background())))

	panicking := NewPrinter(pageFunc(func(io.Writer) error { panic("nil preview") }), newLogger())
	assert.NotPanics(t, func() {
		assert.Equal(t, unavailablePage, string(panicking.Print(context.Background())))
	})
}

func TestDirDownloader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	d := NewDirDownloader(dir)

	path, err := d.Download(context.Background(), "../invoice-1.pdf", []byte("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "invoice-1.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-"), data)
}

func TestNewDownloader(t *testing.T) {
	assert.IsType(t, &BufferDownloader{}, NewDownloader(""))

	dir := t.TempDir()
	d := NewDownloader(dir)
	require.IsType(t, &DirDownloader{}, d)
	path, err := d.Download(context.Background(), "invoice-2.pdf", []byte("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "invoice-2.pdf"), path)
}

func TestBufferDownloader(t *testing.T) {
	b := NewBufferDownloader()
	_, ok := b.Take()
	assert.False(t, ok)

	_, err := b.Download(context.Background(), "a.pdf", []byte("1"))
	require.NoError(t, err)
	f, ok := b.Take()
	require.True(t, ok)
	assert.Equal(t, File{Name: "a.pdf", Data: []byte("1")}, f)

	_, ok = b.Take()
	assert.False(t, ok)
}

type staticSource struct{}

func (staticSource) Get() model.InvoiceDocument { return sampleDocument() }

func TestSpreadsheetExporter(t *testing.T) {
	downloads := NewBufferDownloader()
	e := NewSpreadsheetExporter(staticSource{}, downloads, newLogger())
	e.now = func() time.Time { return fixedNow }

	res, err := e.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "invoice-1773480600000.xlsx", res.FileName)

	f, err := excelize.OpenReader(bytes.NewReader(res.Data))
	require.NoError(t, err)
	defer f.Close()

	raw := excelize.Options{RawCellValue: true}
	cell := func(axis string) string {
		v, err := f.GetCellValue(sheetName, axis, raw)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "INV-2026-0042", cell("B1"))
	assert.Equal(t, "Globex", cell("B5"))
	assert.Equal(t, "USD", cell("B6"))
	assert.Equal(t, "Description", cell("A8"))
	assert.Equal(t, "Design", cell("A9"))
	assert.Equal(t, "110", cell("E9"))
	assert.Equal(t, "Hosting", cell("A10"))

	assert.Equal(t, "Subtotal", cell("D12"))
	assert.Equal(t, "120", cell("E12"))
	assert.Equal(t, "Tax", cell("D13"))
	assert.Equal(t, "10", cell("E13"))
	assert.Equal(t, "Discount (50%)", cell("D14"))
	assert.Equal(t, "-65", cell("E14"))
	assert.Equal(t, "Total", cell("D15"))
	assert.Equal(t, "65", cell("E15"))
	assert.Equal(t, "Thanks for your business", cell("B17"))
}
