package maps

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"path"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxSVGSide bounds the longer side of a rasterised SVG.
const MaxSVGSide = 16384

// ErrUnsupported is returned for content no decoder recognises.
var ErrUnsupported = errors.New("maps: unsupported image format")

// Decode reads a raster or SVG image. name is only used as a format hint.
func Decode(r io.Reader, name string) (image.Image, string, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(512)

	if isSVG(name, head) {
		img, err := decodeSVG(br)
		if err != nil {
			return nil, "", err
		}
		return img, "svg", nil
	}

	img, format, err := image.Decode(br)
	if errors.Is(err, image.ErrFormat) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err != nil {
		return nil, "", fmt.Errorf("maps: decode %s: %w", name, err)
	}
	return img, format, nil
}

func isSVG(name string, head []byte) bool {
	ext := strings.ToLower(path.Ext(strings.SplitN(name, "?", 2)[0]))
	if ext == ".svg" {
		return true
	}
	trimmed := bytes.TrimSpace(head)
	if bytes.HasPrefix(trimmed, []byte("<svg")) {
		return true
	}
	return bytes.HasPrefix(trimmed, []byte("<?xml")) && bytes.Contains(head, []byte("<svg"))
}

// decodeSVG rasterises at the viewBox size, scaled down when the longer
// side exceeds MaxSVGSide.
func decodeSVG(r io.Reader) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(r, oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("maps: parse svg: %w", err)
	}

	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("maps: svg has no usable viewBox (%gx%g)", w, h)
	}
	if longest := math.Max(w, h); longest > MaxSVGSide {
		w *= MaxSVGSide / longest
		h *= MaxSVGSide / longest
	}
	iw, ih := int(math.Ceil(w)), int(math.Ceil(h))

	icon.SetTarget(0, 0, float64(iw), float64(ih))
	rgba := image.NewRGBA(image.Rect(0, 0, iw, ih))
	scanner := rasterx.NewScannerGV(iw, ih, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(iw, ih, scanner), 1)
	return rgba, nil
}
