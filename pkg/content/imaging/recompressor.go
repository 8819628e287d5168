package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif" // register decoders for formats we accept but re-encode

	"golang.org/x/image/draw"
)

// Recompressor scales images down to a maximum dimension and re-encodes them.
// Sources without transparency become JPEG at the given quality; sources with
// an alpha channel stay PNG so transparency survives.
type Recompressor struct{}

func NewRecompressor() *Recompressor {
	return &Recompressor{}
}

func (r *Recompressor) Recompress(img []byte, maxDim, quality int) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	src = scaleDown(src, maxDim)

	var buf bytes.Buffer
	if hasAlpha(src) {
		if err := png.Encode(&buf, src); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}

	if quality <= 0 || quality > 100 {
		quality = 80
	}
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// scaleDown shrinks the image so its longer side fits maxDim, preserving
// aspect ratio. Images already within bounds pass through untouched.
func scaleDown(src image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = h * maxDim / w
	} else {
		nh = maxDim
		nw = w * maxDim / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// hasAlpha samples the image for any non-opaque pixel. Bounded sampling keeps
// this cheap on large images; a missed translucent pixel only costs us a JPEG
// re-encode, not correctness.
func hasAlpha(img image.Image) bool {
	b := img.Bounds()
	step := 1
	if b.Dx() > 512 || b.Dy() > 512 {
		step = 8
	}
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xffff {
				return true
			}
		}
	}
	return false
}
