// Package pdf places a rendered invoice bitmap on a single A4 page.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

const (
	// PageWidthMM is the A4 portrait width the image is scaled to
	PageWidthMM = 210.0
	// PageHeightMM is the A4 portrait height; taller images run off the page
	PageHeightMM = 297.0

	imageName = "invoice"
)

var ErrEmptyBitmap = errors.New("bitmap has no pixels")

// Meta is written into the document info dictionary
type Meta struct {
	Title     string
	Creator   string
	CreatedAt time.Time
}

// ImageHeightMM is the height the bitmap occupies when scaled to the page width
func ImageHeightMM(bounds image.Rectangle) float64 {
	if bounds.Dx() == 0 {
		return 0
	}
	return float64(bounds.Dy()) * PageWidthMM / float64(bounds.Dx())
}

// EmbedBitmap encodes img as PNG and draws it at the top-left of one A4
// page, full width, preserving the aspect ratio. Content beyond the page
// height is clipped; no second page is added.
func EmbedBitmap(img image.Image, meta Meta) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, ErrEmptyBitmap
	}

	var png bytes.Buffer
	if err := imaging.Encode(&png, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode bitmap: %w", err)
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	if meta.Title != "" {
		doc.SetTitle(meta.Title, true)
	}
	if meta.Creator != "" {
		doc.SetCreator(meta.Creator, true)
	}
	if !meta.CreatedAt.IsZero() {
		doc.SetCreationDate(meta.CreatedAt)
	}
	doc.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader(imageName, opts, &png)
	doc.ImageOptions(imageName, 0, 0, PageWidthMM, ImageHeightMM(bounds), false, opts, 0, "")

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return out.Bytes(), nil
}
