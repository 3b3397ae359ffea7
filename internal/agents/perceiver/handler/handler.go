package handler

import (
	"context"
	"errors"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/perception"
	"time"
)

type Policy struct {
	Attempts   int
	Delay      time.Duration
	Thresholds perception.Thresholds
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Delay:      time.Second,
		Thresholds: perception.DefaultThresholds(),
	}
}

type Handler struct {
	submitter perception.Submitter
	policy    Policy
}

func New(submitter perception.Submitter, policy Policy) *Handler {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &Handler{
		submitter: submitter,
		policy:    policy,
	}
}

// Outcome is the parsed result and the number of submissions it took.
type Outcome struct {
	Result   *perception.Result
	Attempts int
}

// Perceive submits frame until it succeeds or the attempt ceiling is reached, waiting a constant
// delay between attempts. A malformed coordinates literal is not retried. onFailure sees every
// failed attempt, the last one included.
func (h *Handler) Perceive(ctx context.Context, frame *desktop.Frame, onFailure func(attempt int, err error)) (Outcome, error) {
	attempt := 0
	op := func() (*perception.Result, error) {
		attempt++
		res, err := h.submitter.Submit(ctx, frame, h.policy.Thresholds)
		if err == nil {
			return res, nil
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}
		var malformed *perception.MalformedCoordinatesError
		if ctx.Err() != nil || errors.As(err, &malformed) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(h.policy.Delay)),
		backoff.WithMaxTries(uint(h.policy.Attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debug().Err(err).Dur("next", next).Msg("retrying perception")
		}),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return Outcome{Result: res, Attempts: attempt}, err
}
