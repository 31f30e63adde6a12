package pdf

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedBitmap(t *testing.T) {
	img := imaging.New(420, 600, color.White)

	out, err := EmbedBitmap(img, Meta{Title: "INV-2026-0001", Creator: "invoicegen", CreatedAt: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, 1, bytes.Count(out, []byte("/Type /Page\n")), "exactly one page")
	assert.Contains(t, string(out), "/Subtype /Image")
}

func TestImageHeightMM(t *testing.T) {
	assert.InDelta(t, 300.0, ImageHeightMM(image.Rect(0, 0, 1400, 2000)), 1e-9)
	assert.InDelta(t, 105.0, ImageHeightMM(image.Rect(0, 0, 200, 100)), 1e-9)
	assert.Equal(t, 0.0, ImageHeightMM(image.Rectangle{}))
}

func TestEmbedBitmapRejectsEmptyImage(t *testing.T) {
	_, err := EmbedBitmap(image.NewRGBA(image.Rectangle{}), Meta{})
	assert.ErrorIs(t, err, ErrEmptyBitmap)
}
