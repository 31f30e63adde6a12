package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/url"
	"strings"

	"invoicegen/internal/visual"

	"github.com/disintegration/imaging"
)

// decodeDataURI reads the payload of a data: URI
func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		return data, err
	}
	s, err := url.PathUnescape(payload)
	return []byte(s), err
}

// loadImage decodes an img source. Anything but an embedded data: URI would
// taint the canvas.
func (l *layout) loadImage(src string) (image.Image, error) {
	if img, ok := l.images[src]; ok {
		return img, nil
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(src)), "data:") {
		shown := src
		if len(shown) > 64 {
			shown = shown[:64] + "..."
		}
		return nil, fmt.Errorf("%w: %s", ErrTaintedCanvas, shown)
	}
	data, err := decodeDataURI(strings.TrimSpace(src))
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedded image: %w", err)
	}
	l.images[src] = img
	return img, nil
}

// imageSize resolves the rendered size from width/height, keeping the aspect ratio
func (l *layout) imageSize(el visual.Element, avail float64) (float64, float64, error) {
	img, err := l.loadImage(el.Attr("src"))
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	nw, nh := float64(b.Dx()), float64(b.Dy())
	if nw == 0 || nh == 0 {
		return 0, 0, nil
	}

	fs := fontSize(el)
	w, hasW := l.declaredLength(el, "width", fs, avail)
	h, hasH := l.declaredLength(el, "height", fs, 0)
	switch {
	case hasW && hasH:
	case hasW:
		h = w * nh / nw
	case hasH:
		w = h * nw / nh
	default:
		w, h = nw, nh
	}
	if avail > 0 && w > avail {
		h = h * avail / w
		w = avail
	}
	return w, h, nil
}

func (l *layout) image(el visual.Element, x, y, avail float64) (float64, float64, error) {
	w, h, err := l.imageSize(el, avail)
	if err != nil {
		return 0, 0, err
	}
	m := l.boxEdges(el, "margin", fontSize(el), avail)
	img := l.images[el.Attr("src")]
	if img != nil && w > 0 && h > 0 {
		l.push(&imageOp{x: x + m.left, y: y + m.top, w: w, h: h, img: img})
	}
	return w + m.horizontal(), h + m.vertical(), nil
}
