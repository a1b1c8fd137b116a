// Package codec converts tightly packed 8-bit RGBA buffers to and from encoded
// image files.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// BytesPerPixel is the size of one RGBA pixel.
const BytesPerPixel = 4

// ErrBufferSize is returned when a pixel buffer does not match its dimensions.
var ErrBufferSize = errors.New("pixel buffer size does not match dimensions")

// Encode encodes pixels as the image format named by extension.
func Encode(pixels []byte, width, height uint32, extension string) ([]byte, error) {
	img, err := wrap(pixels, width, height)
	if err != nil {
		return nil, err
	}
	format, err := imaging.FormatFromExtension(extension)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", extension, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Decode decodes an encoded image into a tightly packed RGBA buffer.
func Decode(data []byte) ([]byte, uint32, uint32, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}
	return unwrap(imaging.Clone(img))
}

// Crop cuts rect out of pixels. The rectangle is clipped to the image bounds.
func Crop(pixels []byte, width, height uint32, rect image.Rectangle) ([]byte, uint32, uint32, error) {
	img, err := wrap(pixels, width, height)
	if err != nil {
		return nil, 0, 0, err
	}
	return unwrap(imaging.Crop(img, rect))
}

// ContentType returns the MIME type for an image file extension.
func ContentType(extension string) string {
	format, err := imaging.FormatFromExtension(extension)
	if err != nil {
		return "application/octet-stream"
	}
	switch format {
	case imaging.JPEG:
		return "image/jpeg"
	case imaging.GIF:
		return "image/gif"
	case imaging.TIFF:
		return "image/tiff"
	case imaging.BMP:
		return "image/bmp"
	default:
		return "image/png"
	}
}

func wrap(pixels []byte, width, height uint32) (*image.NRGBA, error) {
	if uint64(len(pixels)) != uint64(width)*uint64(height)*BytesPerPixel {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrBufferSize, len(pixels), width, height)
	}
	return &image.NRGBA{
		Pix:    pixels,
		Stride: int(width) * BytesPerPixel,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}, nil
}

// unwrap copies img into a fresh buffer whose stride is exactly 4*width.
func unwrap(img *image.NRGBA) ([]byte, uint32, uint32, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rowBytes := w * BytesPerPixel
	out := make([]byte, rowBytes*h)
	for y := 0; y < h; y++ {
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*rowBytes:(y+1)*rowBytes], img.Pix[src:src+rowBytes])
	}
	return out, uint32(w), uint32(h), nil
}
