// Package thumbs decodes raster images and produces JPEG thumbnails and
// face crops.
package thumbs

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// Generate returns a JPEG thumbnail whose longest side is at most maxSize.
// Images already smaller than maxSize are re-encoded without scaling.
func Generate(src []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w > maxSize || h > maxSize {
		var tw, th int
		if w >= h {
			tw = maxSize
			th = h * maxSize / w
		} else {
			th = maxSize
			tw = w * maxSize / h
		}
		if tw < 1 {
			tw = 1
		}
		if th < 1 {
			th = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, tw, th))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	return encodeJPEG(img)
}

// Crop extracts the bbox region (x1, y1, x2, y2) with 10% padding and
// returns it as JPEG, for sending a single face to the recognition service.
func Crop(src []byte, bbox [4]int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	x1, y1, x2, y2 := bbox[0], bbox[1], bbox[2], bbox[3]

	padW := (x2 - x1) / 10
	padH := (y2 - y1) / 10
	x1 -= padW
	y1 -= padH
	x2 += padW
	y2 += padH

	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}
	if x2-x1 <= 0 || y2-y1 <= 0 {
		return nil, fmt.Errorf("bbox %v outside image bounds %v", bbox, bounds)
	}

	crop := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	draw.Copy(crop, image.Point{}, img, image.Rect(x1, y1, x2, y2), draw.Over, nil)

	return encodeJPEG(crop)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
