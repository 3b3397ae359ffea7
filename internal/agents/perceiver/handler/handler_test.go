package handler

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/perception"
	"testing"
	"time"
)

type flakySubmitter struct {
	failures  int
	malformed bool
	calls     int
}

func (s *flakySubmitter) Submit(_ context.Context, _ *desktop.Frame, th perception.Thresholds) (*perception.Result, error) {
	s.calls++
	if s.calls <= s.failures {
		if s.malformed {
			return nil, &perception.MalformedCoordinatesError{Literal: "{oops", Err: errors.New("bad")}
		}
		return nil, &perception.Error{Reason: "submit", StatusCode: 502}
	}
	return &perception.Result{Text: "7: gear icon", Elements: perception.ElementMap{"7": {XMin: 0.4, YMin: 0.1, XMax: 0.6, YMax: 0.15}}}, nil
}

func fastPolicy() Policy {
	p := DefaultPolicy()
	p.Delay = time.Millisecond
	return p
}

func TestPerceive_RecoversOnThirdAttempt(t *testing.T) {
	s := &flakySubmitter{failures: 2}
	var failed []int
	out, err := New(s, fastPolicy()).Perceive(context.Background(), &desktop.Frame{}, func(attempt int, _ error) {
		failed = append(failed, attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Attempts)
	assert.Contains(t, out.Result.Elements, "7")
	assert.Equal(t, []int{1, 2}, failed)
}

func TestPerceive_GivesUpAfterCeiling(t *testing.T) {
	s := &flakySubmitter{failures: 5}
	var failed []int
	out, err := New(s, fastPolicy()).Perceive(context.Background(), &desktop.Frame{}, func(attempt int, _ error) {
		failed = append(failed, attempt)
	})
	var pe *perception.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, s.calls)
	assert.Equal(t, []int{1, 2, 3}, failed)
}

func TestPerceive_MalformedCoordinatesNotRetried(t *testing.T) {
	s := &flakySubmitter{failures: 5, malformed: true}
	var failed []int
	out, err := New(s, fastPolicy()).Perceive(context.Background(), &desktop.Frame{}, func(attempt int, _ error) {
		failed = append(failed, attempt)
	})
	var me *perception.MalformedCoordinatesError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "{oops", me.Literal)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, []int{1}, failed)
}

func TestPerceive_SingleAttemptPolicy(t *testing.T) {
	p := fastPolicy()
	p.Attempts = 1
	s := &flakySubmitter{failures: 5, malformed: true}
	_, err := New(s, p).Perceive(context.Background(), &desktop.Frame{}, nil)
	var me *perception.MalformedCoordinatesError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "perception: malformed coordinates \"{oops\": bad", err.Error())
	assert.Equal(t, 1, s.calls)
}

func TestPerceive_WaitsBetweenAttempts(t *testing.T) {
	p := DefaultPolicy()
	p.Delay = 30 * time.Millisecond
	start := time.Now()
	_, err := New(&flakySubmitter{failures: 2}, p).Perceive(context.Background(), &desktop.Frame{}, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestPerceive_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &flakySubmitter{failures: 5}
	_, err := New(s, fastPolicy()).Perceive(ctx, &desktop.Frame{}, func(int, error) { cancel() })
	assert.Error(t, err)
	assert.Equal(t, 1, s.calls)
}
