package actor

import (
	"context"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"
	"go-omnicontrol/internal/agents/perceiver/handler"
	"go-omnicontrol/pkg/logger"
	"go-omnicontrol/pkg/messages"
)

// Perceiver runs one perception request with retries, reports every failed attempt and the final
// outcome to its parent, then stops.
type Perceiver struct {
	handler *handler.Handler
}

func New(h *handler.Handler) actor.Producer {
	return func() actor.Actor {
		return &Perceiver{handler: h}
	}
}

func (agent *Perceiver) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{logger.ActorIDField: ac.Self().GetId(), logger.AgentNameField: "perceiver"}).Logger()
	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping actor")
	case *actor.Stopped:
		l.Debug().Msg("stopped actor")
	case *actor.Restarting:
		l.Debug().Msg("restarting actor")
	case messages.Perceive:
		l = l.With().Str(logger.JobIDField, msg.JobID.String()).Int(logger.CycleField, msg.Cycle).Logger()
		l.Info().Msg("submitting frame to the parser...")

		parent := ac.Parent()
		out, err := agent.handler.Perceive(context.Background(), msg.Frame, func(attempt int, err error) {
			l.Warn().Err(err).Int("attempt", attempt).Msg("perception attempt failed")
			ac.Send(parent, messages.PerceptionAttemptFailed{Tag: msg.Tag, Attempt: attempt, Err: err})
		})
		if err != nil {
			ac.Send(parent, messages.PerceptionFailed{Tag: msg.Tag, Attempts: out.Attempts, Err: err})
		} else {
			ac.Send(parent, messages.PerceptionSucceeded{Tag: msg.Tag, Attempts: out.Attempts, Result: out.Result})
		}
		ac.Stop(ac.Self())
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
}
