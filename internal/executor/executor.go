package executor

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"go-omnicontrol/internal/coords"
	"go-omnicontrol/internal/decision"
	"time"
)

// Input synthesizes pointer and keyboard events on the display.
type Input interface {
	Move(x, y int) error
	Click(button string) error
	Type(text string) error
	Scroll(amount int) error
	Chord(keys []string) error
}

// Window hides and restores the agent's own window around screen interaction.
type Window interface {
	Hide(ctx context.Context) error
	Show(ctx context.Context) error
}

type Timing struct {
	Settle       time.Duration
	FocusSettle  time.Duration
	ScrollAmount int
}

func DefaultTiming() Timing {
	return Timing{
		Settle:       2 * time.Second,
		FocusSettle:  500 * time.Millisecond,
		ScrollAmount: 10,
	}
}

type ExecutionError struct {
	Kind decision.Kind
	Op   string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

type Executor struct {
	input  Input
	window Window
	timing Timing
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(input Input, window Window, timing Timing) *Executor {
	return &Executor{
		input:  input,
		window: window,
		timing: timing,
		sleep:  sleep,
	}
}

// Bracket runs fn with the agent window hidden. The window is shown again whatever fn returns;
// a failure to show it is joined onto fn's error.
func (e *Executor) Bracket(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if e.window == nil {
		return fn(ctx)
	}
	if err := e.window.Hide(ctx); err != nil {
		return fmt.Errorf("hide window: %w", err)
	}
	defer func() {
		// show even when ctx is already cancelled
		if showErr := e.window.Show(context.WithoutCancel(ctx)); showErr != nil {
			err = errors.Join(err, fmt.Errorf("show window: %w", showErr))
		}
	}()
	return fn(ctx)
}

// Execute performs act at target inside the window bracket. Complete has no physical effect and
// does not touch the window.
func (e *Executor) Execute(ctx context.Context, act decision.Action, target coords.Point) error {
	if act.Kind == decision.Complete {
		return nil
	}
	var keys []string
	if act.Kind == decision.Keybind {
		var err error
		if keys, err = ParseKeybind(act.Value); err != nil {
			return err
		}
	}

	log.Debug().Str("action", act.String()).Float64("x", target.X).Float64("y", target.Y).Msg("executing action")

	return e.Bracket(ctx, func(ctx context.Context) error {
		x, y := target.Pixel()
		switch act.Kind {
		case decision.Click:
			return e.point(ctx, act.Kind, x, y, "left")
		case decision.RightClick:
			return e.point(ctx, act.Kind, x, y, "right")
		case decision.Type:
			if err := e.do(act.Kind, "move", func() error { return e.input.Move(x, y) }); err != nil {
				return err
			}
			if err := e.do(act.Kind, "click", func() error { return e.input.Click("left") }); err != nil {
				return err
			}
			if err := e.sleep(ctx, e.timing.FocusSettle); err != nil {
				return err
			}
			if err := e.do(act.Kind, "type", func() error { return e.input.Type(act.Value) }); err != nil {
				return err
			}
			return e.sleep(ctx, e.timing.Settle)
		case decision.Scroll:
			if err := e.do(act.Kind, "move", func() error { return e.input.Move(x, y) }); err != nil {
				return err
			}
			if err := e.do(act.Kind, "scroll", func() error { return e.input.Scroll(e.timing.ScrollAmount) }); err != nil {
				return err
			}
			return e.sleep(ctx, e.timing.Settle)
		case decision.Keybind:
			if err := e.do(act.Kind, "chord", func() error { return e.input.Chord(keys) }); err != nil {
				return err
			}
			return e.sleep(ctx, e.timing.Settle)
		default:
			return &ExecutionError{Kind: act.Kind, Op: "dispatch", Err: fmt.Errorf("unsupported action")}
		}
	})
}

func (e *Executor) point(ctx context.Context, kind decision.Kind, x, y int, button string) error {
	if err := e.do(kind, "move", func() error { return e.input.Move(x, y) }); err != nil {
		return err
	}
	if err := e.do(kind, "click", func() error { return e.input.Click(button) }); err != nil {
		return err
	}
	return e.sleep(ctx, e.timing.Settle)
}

func (e *Executor) do(kind decision.Kind, op string, fn func() error) error {
	if err := fn(); err != nil {
		return &ExecutionError{Kind: kind, Op: op, Err: err}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
