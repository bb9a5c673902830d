package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return img
}

func TestNormalizeJPEG(t *testing.T) {
	photo, err := NormalizePhoto(bytes.NewReader(encodeJPEG(solid(100, 60, color.RGBA{255, 0, 0, 255}))))
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	if photo.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", photo.MIME)
	}
	if b := decode(t, photo.Data).Bounds(); b.Dx() != 100 || b.Dy() != 60 {
		t.Errorf("small photo should keep its size, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestNormalizePNGIsReencodedAsJPEG(t *testing.T) {
	photo, err := NormalizePhoto(bytes.NewReader(encodePNG(solid(40, 40, color.RGBA{0, 0, 255, 255}))))
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	if photo.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", photo.MIME)
	}
}

func TestNormalizeTransparentPNGOnWhite(t *testing.T) {
	photo, err := NormalizePhoto(bytes.NewReader(encodePNG(solid(20, 20, color.RGBA{0, 0, 0, 0}))))
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	r, g, b, _ := decode(t, photo.Data).At(10, 10).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("expected transparent pixels to become white, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestNormalizeDownscalesKeepingAspect(t *testing.T) {
	photo, err := NormalizePhoto(bytes.NewReader(encodeJPEG(solid(1600, 400, color.RGBA{0, 255, 0, 255}))))
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	b := decode(t, photo.Data).Bounds()
	if b.Dx() != MaxDimension || b.Dy() != 200 {
		t.Errorf("expected %dx200, got %dx%d", MaxDimension, b.Dx(), b.Dy())
	}
}

func TestNormalizeRejectsOtherFormats(t *testing.T) {
	for name, data := range map[string][]byte{
		"text": []byte("not an image"),
		"gif":  []byte("GIF89a..."),
	} {
		if _, err := NormalizePhoto(bytes.NewReader(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNormalizeRejectsOversizedUpload(t *testing.T) {
	data := make([]byte, MaxUploadBytes+10)
	copy(data, "\xff\xd8\xff")
	_, err := NormalizePhoto(bytes.NewReader(data))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{100, 100, 100, 100},
		{1600, 800, 800, 400},
		{800, 1600, 400, 800},
		{4000, 2, 800, 1},
	}
	for _, tt := range tests {
		gotW, gotH := scaledSize(tt.w, tt.h, 800)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("scaledSize(%d, %d) = %d, %d; want %d, %d", tt.w, tt.h, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}
