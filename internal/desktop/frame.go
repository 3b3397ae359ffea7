package desktop

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"
)

const MIMEType = "image/png"

// Frame is one captured screen image. It is never modified after NewFrame returns.
type Frame struct {
	png        []byte
	Width      int
	Height     int
	Name       string
	CapturedAt time.Time
}

type Capturer interface {
	Capture(ctx context.Context) (*Frame, error)
}

type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

func NewFrame(img image.Image, at time.Time) (*Frame, error) {
	if img == nil {
		return nil, &CaptureError{Err: fmt.Errorf("no image")}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &CaptureError{Err: fmt.Errorf("encode: %w", err)}
	}
	b := img.Bounds()
	return &Frame{
		png:        buf.Bytes(),
		Width:      b.Dx(),
		Height:     b.Dy(),
		Name:       fmt.Sprintf("screenshot_%s.png", at.Format("20060102_150405")),
		CapturedAt: at,
	}, nil
}

// NewFrameFromPNG wraps already encoded PNG bytes; the slice is copied.
func NewFrameFromPNG(data []byte, width, height int, at time.Time) *Frame {
	return &Frame{
		png:        bytes.Clone(data),
		Width:      width,
		Height:     height,
		Name:       fmt.Sprintf("screenshot_%s.png", at.Format("20060102_150405")),
		CapturedAt: at,
	}
}

// PNG returns a copy of the encoded image.
func (f *Frame) PNG() []byte {
	return bytes.Clone(f.png)
}

func (f *Frame) Size() int {
	return len(f.png)
}
