package actor

import (
	"context"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"
	"go-omnicontrol/internal/decision"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/pkg/logger"
	"go-omnicontrol/pkg/messages"
)

type Decider interface {
	Decide(ctx context.Context, frame *desktop.Frame, elements, objective string) (decision.Action, error)
}

// DecisionAgent asks the decision model for the next action once, reports it to its parent, then
// stops. Failures are not retried.
type DecisionAgent struct {
	decider Decider
}

func New(d Decider) actor.Producer {
	return func() actor.Actor {
		return &DecisionAgent{decider: d}
	}
}

func (agent *DecisionAgent) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{logger.ActorIDField: ac.Self().GetId(), logger.AgentNameField: "decider"}).Logger()
	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping actor")
	case *actor.Stopped:
		l.Debug().Msg("stopped actor")
	case *actor.Restarting:
		l.Debug().Msg("restarting actor")
	case messages.Decide:
		l = l.With().Str(logger.JobIDField, msg.JobID.String()).Int(logger.CycleField, msg.Cycle).Logger()
		l.Info().Msg("asking the model for the next action...")

		act, err := agent.decider.Decide(context.Background(), msg.Frame, msg.Elements, msg.Objective)
		if err != nil {
			l.Error().Err(err).Msg("decision failed")
			ac.Send(ac.Parent(), messages.DecisionFailed{Tag: msg.Tag, Err: err})
		} else {
			l.Info().Str("action", act.String()).Msg("action decided")
			ac.Send(ac.Parent(), messages.DecisionMade{Tag: msg.Tag, Action: act})
		}
		ac.Stop(ac.Self())
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
}
