package actor

import (
	"errors"
	"go-omnicontrol/internal/coords"
	"go-omnicontrol/internal/decision"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/executor"
	"go-omnicontrol/internal/perception"
)

var (
	ErrBusy           = errors.New("a job is already running")
	ErrEmptyObjective = errors.New("objective is empty")
	ErrCycleLimit     = errors.New("cycle limit reached before the objective completed")
	ErrStopped        = errors.New("job stopped")
	ErrNotRunning     = errors.New("no job is running")
)

// category names the failing stage of err for status reports.
func category(err error) string {
	var (
		captureErr    *desktop.CaptureError
		perceptionErr *perception.Error
		coordsErr     *perception.MalformedCoordinatesError
		validationErr *decision.ValidationError
		decisionErr   *decision.Error
		executionErr  *executor.ExecutionError
		boxErr        *coords.InvalidBoxError
	)
	switch {
	case errors.As(err, &captureErr):
		return "capture"
	case errors.As(err, &coordsErr):
		return "malformed_coordinates"
	case errors.As(err, &perceptionErr):
		return "perception"
	case errors.As(err, &validationErr), errors.As(err, &boxErr):
		return "validation"
	case errors.As(err, &decisionErr):
		return "decision"
	case errors.Is(err, executor.ErrEmptyKeybind):
		return "empty_keybind"
	case errors.As(err, &executionErr):
		return "execution"
	case errors.Is(err, ErrCycleLimit):
		return "cycle_limit"
	case errors.Is(err, ErrStopped):
		return "stopped"
	default:
		return "internal"
	}
}
