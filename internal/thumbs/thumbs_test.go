package thumbs

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	return img
}

func TestGenerateScalesLandscape(t *testing.T) {
	out, err := Generate(encodePNG(t, 200, 100), 50)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	img := decodeJPEG(t, out)
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 25 {
		t.Fatalf("bounds = %v, want 50x25", img.Bounds())
	}
}

func TestGenerateScalesPortrait(t *testing.T) {
	out, err := Generate(encodePNG(t, 100, 200), 50)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	img := decodeJPEG(t, out)
	if img.Bounds().Dx() != 25 || img.Bounds().Dy() != 50 {
		t.Fatalf("bounds = %v, want 25x50", img.Bounds())
	}
}

func TestGenerateKeepsSmallImages(t *testing.T) {
	out, err := Generate(encodePNG(t, 30, 20), 50)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	img := decodeJPEG(t, out)
	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
		t.Fatalf("bounds = %v, want original 30x20", img.Bounds())
	}
}

func TestGenerateRejectsGarbage(t *testing.T) {
	if _, err := Generate([]byte("definitely not an image"), 50); err == nil {
		t.Fatal("want decode error")
	}
}

func TestCropWithPadding(t *testing.T) {
	out, err := Crop(encodePNG(t, 100, 100), [4]int{30, 30, 70, 70})
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	// 40px box with 10% padding on each side becomes 48px.
	img := decodeJPEG(t, out)
	if img.Bounds().Dx() != 48 || img.Bounds().Dy() != 48 {
		t.Fatalf("bounds = %v, want 48x48", img.Bounds())
	}
}

func TestCropClampsToImage(t *testing.T) {
	out, err := Crop(encodePNG(t, 50, 50), [4]int{0, 0, 50, 50})
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	img := decodeJPEG(t, out)
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 50 {
		t.Fatalf("bounds = %v, want clamped 50x50", img.Bounds())
	}
}

func TestCropRejectsOutOfBoundsBox(t *testing.T) {
	if _, err := Crop(encodePNG(t, 50, 50), [4]int{200, 200, 300, 300}); err == nil {
		t.Fatal("want error for bbox outside the image")
	}
}
