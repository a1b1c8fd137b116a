// Package capture grabs the full display as a tightly packed RGBA buffer.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/vova616/screenshot"

	"github.com/sampic/sampic/internal/codec"
)

// ErrEmptyFrame is returned when the display reports no pixels.
var ErrEmptyFrame = errors.New("empty frame")

// Capture is one full-display frame. Pixels are 8-bit RGBA with a stride of
// exactly 4*Width.
type Capture struct {
	Pixels []byte
	Width  uint32
	Height uint32
}

// FrameSource supplies full-display frames.
type FrameSource interface {
	Grab(ctx context.Context) (Capture, error)
}

// Screen grabs the primary display.
type Screen struct {
	grab func() (*image.RGBA, error)
}

// NewScreen returns a FrameSource reading the primary display.
func NewScreen() *Screen {
	return &Screen{grab: screenshot.CaptureScreen}
}

// Grab captures the display once.
func (s *Screen) Grab(ctx context.Context) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return Capture{}, err
	}
	img, err := s.grab()
	if err != nil {
		return Capture{}, fmt.Errorf("capture screen: %w", err)
	}
	return FromImage(img)
}

// FromImage packs img into a Capture, forcing every pixel opaque.
func FromImage(img *image.RGBA) (Capture, error) {
	if img == nil || img.Bounds().Empty() {
		return Capture{}, ErrEmptyFrame
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rowBytes := w * codec.BytesPerPixel

	pixels := make([]byte, rowBytes*h)
	for y := 0; y < h; y++ {
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := pixels[y*rowBytes : (y+1)*rowBytes]
		copy(row, img.Pix[src:src+rowBytes])
		for i := 3; i < len(row); i += codec.BytesPerPixel {
			row[i] = 255
		}
	}
	return Capture{Pixels: pixels, Width: uint32(w), Height: uint32(h)}, nil
}
