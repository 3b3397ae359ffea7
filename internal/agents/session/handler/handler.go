package handler

import (
	"context"
	"errors"
	"go-omnicontrol/internal/coords"
	"go-omnicontrol/internal/decision"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/executor"
	"go-omnicontrol/internal/perception"
	"time"
)

type Options struct {
	HideDuringCapture bool
	Pacing            time.Duration
}

func DefaultOptions() Options {
	return Options{
		HideDuringCapture: true,
		Pacing:            500 * time.Millisecond,
	}
}

// Handler does the session's blocking work on the control thread: capture, action execution and
// pacing between cycles.
type Handler struct {
	capturer desktop.Capturer
	executor *executor.Executor
	opts     Options
}

func New(capturer desktop.Capturer, exec *executor.Executor, opts Options) *Handler {
	return &Handler{
		capturer: capturer,
		executor: exec,
		opts:     opts,
	}
}

// Capture grabs the screen, with the agent window hidden when configured. Every failure is
// reported as a *desktop.CaptureError.
func (h *Handler) Capture(ctx context.Context) (*desktop.Frame, error) {
	var frame *desktop.Frame
	capture := func(ctx context.Context) error {
		f, err := h.capturer.Capture(ctx)
		if err != nil {
			return err
		}
		frame = f
		return nil
	}

	var err error
	if h.opts.HideDuringCapture {
		err = h.executor.Bracket(ctx, capture)
	} else {
		err = capture(ctx)
	}
	if err != nil {
		var ce *desktop.CaptureError
		if !errors.As(err, &ce) {
			err = &desktop.CaptureError{Err: err}
		}
		return nil, err
	}
	if frame == nil {
		return nil, &desktop.CaptureError{Err: errors.New("no frame")}
	}
	return frame, nil
}

// Act validates act, maps its element onto frame and executes it. The returned point is the
// pixel the action targeted, if any.
func (h *Handler) Act(ctx context.Context, act decision.Action, elements perception.ElementMap, frame *desktop.Frame) (*coords.Point, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}

	var target *coords.Point
	if act.Kind.NeedsElement() {
		p, err := coords.Resolve(elements, act.ElementID, frame.Width, frame.Height)
		if err != nil {
			return nil, &decision.ValidationError{Kind: act.Kind, Field: "action_element_id", Reason: "cannot be resolved", Err: err}
		}
		target = &p
	}

	var at coords.Point
	if target != nil {
		at = *target
	}
	if err := h.executor.Execute(ctx, act, at); err != nil {
		return target, err
	}
	return target, nil
}

// Pace waits between the end of one cycle and the next capture.
func (h *Handler) Pace(ctx context.Context) error {
	if h.opts.Pacing <= 0 {
		return nil
	}
	t := time.NewTimer(h.opts.Pacing)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
