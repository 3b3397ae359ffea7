package robot

import (
	"context"
	"fmt"
	"github.com/go-vgo/robotgo"
	"go-omnicontrol/internal/desktop"
	"time"
)

// Robot drives the local display through robotgo: screen capture plus pointer and keyboard
// synthesis.
type Robot struct{}

func New() *Robot {
	return &Robot{}
}

func (r *Robot) Capture(ctx context.Context) (*desktop.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, &desktop.CaptureError{Err: err}
	}
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, &desktop.CaptureError{Err: err}
	}
	return desktop.NewFrame(img, time.Now())
}

func (r *Robot) Move(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (r *Robot) Click(button string) error {
	switch button {
	case "left", "right":
		robotgo.Click(button, false)
		return nil
	default:
		return fmt.Errorf("unsupported mouse button %q", button)
	}
}

func (r *Robot) Type(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func (r *Robot) Scroll(amount int) error {
	if amount < 0 {
		robotgo.ScrollDir(-amount, "up")
		return nil
	}
	robotgo.ScrollDir(amount, "down")
	return nil
}

// Chord presses every key at once; the last key is tapped while the others are held.
func (r *Robot) Chord(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("no keys")
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = desktop.KeyName(k)
	}
	last := names[len(names)-1]
	if len(names) == 1 {
		return robotgo.KeyTap(last)
	}
	return robotgo.KeyTap(last, names[:len(names)-1])
}
