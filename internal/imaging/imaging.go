// Package imaging normalizes equipment photos for the catalogue.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height of a stored photo.
const MaxDimension = 800

// MaxUploadBytes caps the size of an uploaded photo before decoding.
const MaxUploadBytes = 10 << 20

// JPEGQuality is the compression quality for stored photos.
const JPEGQuality = 80

// ErrTooLarge is returned when the upload exceeds MaxUploadBytes.
var ErrTooLarge = errors.New("photo exceeds upload limit")

// AllowedMIME lists the accepted upload types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a normalized equipment photo.
type Photo struct {
	Data []byte
	MIME string
}

// NormalizePhoto validates the upload by sniffing its bytes, flattens any
// transparency onto white, scales it to fit MaxDimension and re-encodes it
// as JPEG.
func NormalizePhoto(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	// Client headers are not trusted.
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported photo format %s: only JPEG and PNG are accepted", detected)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding photo: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fit(src, MaxDimension), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// fit draws src onto a white canvas no larger than maxDim on either side,
// keeping the aspect ratio. Smaller images keep their size.
func fit(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	w, h := scaledSize(bounds.Dx(), bounds.Dy(), maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func scaledSize(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	var nw, nh int
	if w > h {
		nw, nh = maxDim, int(float64(h)*float64(maxDim)/float64(w))
	} else {
		nw, nh = int(float64(w)*float64(maxDim)/float64(h)), maxDim
	}
	return max(nw, 1), max(nh, 1)
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
