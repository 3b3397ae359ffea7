package actor

import (
	"context"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	deciderActor "go-omnicontrol/internal/agents/decider/actor"
	perceiverActor "go-omnicontrol/internal/agents/perceiver/actor"
	perceiverHandler "go-omnicontrol/internal/agents/perceiver/handler"
	"go-omnicontrol/internal/agents/session/handler"
	"go-omnicontrol/internal/decision"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/eventlog"
	"go-omnicontrol/internal/perception"
	"go-omnicontrol/pkg/logger"
	"go-omnicontrol/pkg/messages"
	"go-omnicontrol/pkg/models"
	"strings"
	"time"
)

type Config struct {
	// MaxCycles bounds the cycles of one job; zero means unbounded.
	MaxCycles          int
	KeepConversation   bool
	PerceptionAttempts int
}

func DefaultConfig() Config {
	return Config{
		MaxCycles:          50,
		PerceptionAttempts: 3,
	}
}

type Deps struct {
	Handler   *handler.Handler
	Perceiver *perceiverHandler.Handler
	Decider   deciderActor.Decider
	Events    *eventlog.Log
	Config    Config
}

// Session owns the agent loop for one display: it sequences capture, perception, decision and
// action, one job at a time. Perception and decision run in child actors; their results come back
// through the mailbox tagged with the job id and cycle they belong to.
type Session struct {
	handler   *handler.Handler
	perceiver *perceiverHandler.Handler
	decider   deciderActor.Decider
	events    *eventlog.Log
	cfg       Config

	id         uuid.UUID
	objective  string
	state      models.State
	busy       bool
	cycle      int
	frame      *desktop.Frame
	perception *models.Perception
	elements   perception.ElementMap
	action     *models.Action
	err        *models.Error
	startedAt  *time.Time
	endedAt    *time.Time
}

func New(deps Deps) actor.Producer {
	return func() actor.Actor {
		events := deps.Events
		if events == nil {
			events = eventlog.NewGlobal()
		}
		return &Session{
			handler:   deps.Handler,
			perceiver: deps.Perceiver,
			decider:   deps.Decider,
			events:    events,
			cfg:       deps.Config,
			id:        uuid.Nil,
			state:     models.Idle,
		}
	}
}

func (agent *Session) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{logger.ActorIDField: ac.Self().GetId(), logger.AgentNameField: "session"}).Logger()
	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping actor")
	case *actor.Stopped:
		l.Debug().Msg("stopped actor and its children")
	case *actor.Restarting:
		l.Debug().Msg("restarting actor")
	case *actor.Terminated:
		l.Debug().Msg("child actor terminated")
	case messages.StartObjective:
		agent.start(ac, l, msg)
	case messages.StopObjective:
		if !agent.busy {
			ac.Respond(ErrNotRunning)
			return
		}
		id := agent.id
		agent.fail(agent.logger(l), ErrStopped)
		ac.Respond(messages.StopAccepted{JobID: id})
	case messages.GetStatus:
		ac.Respond(agent.status())
	case messages.GetEvents:
		ac.Respond(agent.events.Since(msg.Since))
	case messages.GetFrame:
		ac.Respond(agent.frame)
	case messages.GetPerception:
		ac.Respond(agent.perception)
	case messages.Capture:
		if agent.stale(l, msg.Tag) {
			return
		}
		agent.capture(ac, agent.logger(l))
	case messages.PerceptionAttemptFailed:
		if agent.stale(l, msg.Tag) {
			return
		}
		agent.events.Append(eventlog.Perception, "attempt %d/%d failed: %v", msg.Attempt, agent.cfg.PerceptionAttempts, msg.Err)
	case messages.PerceptionFailed:
		if agent.stale(l, msg.Tag) {
			return
		}
		agent.fail(agent.logger(l), msg.Err)
	case messages.PerceptionSucceeded:
		if agent.stale(l, msg.Tag) {
			return
		}
		agent.perceived(ac, agent.logger(l), msg)
	case messages.DecisionFailed:
		if agent.stale(l, msg.Tag) {
			return
		}
		agent.fail(agent.logger(l), msg.Err)
	case messages.DecisionMade:
		if agent.stale(l, msg.Tag) {
			return
		}
		agent.act(ac, agent.logger(l), msg.Action)
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
}

func (agent *Session) start(ac actor.Context, l zerolog.Logger, msg messages.StartObjective) {
	objective := strings.TrimSpace(msg.Objective)
	if objective == "" {
		ac.Respond(ErrEmptyObjective)
		return
	}
	if agent.busy {
		ac.Respond(ErrBusy)
		return
	}

	now := time.Now()
	agent.id = uuid.New()
	agent.objective = objective
	agent.busy = true
	agent.cycle = 1
	agent.frame = nil
	agent.perception = nil
	agent.elements = nil
	agent.action = nil
	agent.err = nil
	agent.startedAt = &now
	agent.endedAt = nil
	if r, ok := agent.decider.(interface{ Reset() }); ok && !agent.cfg.KeepConversation {
		r.Reset()
	}

	l = agent.logger(l)
	l.Info().Str("objective", objective).Msg("starting job")
	agent.events.Append(eventlog.System, "job %s started: %s", agent.id, objective)
	ac.Respond(messages.StartAccepted{JobID: agent.id})

	agent.next(ac)
}

// next moves to capturing and queues the capture of the current cycle.
func (agent *Session) next(ac actor.Context) {
	agent.state = models.Capturing
	ac.Send(ac.Self(), messages.Capture{Tag: agent.tag()})
}

func (agent *Session) capture(ac actor.Context, l zerolog.Logger) {
	if agent.cfg.MaxCycles > 0 && agent.cycle > agent.cfg.MaxCycles {
		agent.fail(l, ErrCycleLimit)
		return
	}

	agent.events.Append(eventlog.Phase, "cycle %d: capturing screen", agent.cycle)
	frame, err := agent.handler.Capture(context.Background())
	if err != nil {
		agent.fail(l, err)
		return
	}
	agent.frame = frame
	agent.events.Append(eventlog.Phase, "captured %s (%dx%d)", frame.Name, frame.Width, frame.Height)

	agent.state = models.Perceiving
	agent.events.Append(eventlog.Phase, "perceiving")
	child := ac.Spawn(actor.PropsFromProducer(perceiverActor.New(agent.perceiver)))
	ac.Send(child, messages.Perceive{Tag: agent.tag(), Frame: frame})
}

func (agent *Session) perceived(ac actor.Context, l zerolog.Logger, msg messages.PerceptionSucceeded) {
	res := msg.Result
	agent.elements = res.Elements
	agent.perception = toPerception(agent.cycle, msg.Attempts, res)
	agent.events.Append(eventlog.Perception, "detected %d elements after %d attempt(s)", len(res.Elements), msg.Attempts)
	l.Debug().Int("elements", len(res.Elements)).Msg("perception succeeded")

	agent.state = models.Deciding
	agent.events.Append(eventlog.Phase, "deciding")
	child := ac.Spawn(actor.PropsFromProducer(deciderActor.New(agent.decider)))
	ac.Send(child, messages.Decide{Tag: agent.tag(), Frame: agent.frame, Elements: res.Text, Objective: agent.objective})
}

func (agent *Session) act(ac actor.Context, l zerolog.Logger, act decision.Action) {
	agent.state = models.Acting
	agent.action = &models.Action{Kind: string(act.Kind), ElementID: act.ElementID, Value: act.Value, Reasoning: act.Reasoning}
	if act.Reasoning != "" {
		agent.events.Append(eventlog.Decision, "%s (%s)", act, act.Reasoning)
	} else {
		agent.events.Append(eventlog.Decision, "%s", act)
	}

	if act.Kind == decision.Complete {
		now := time.Now()
		agent.state = models.Completed
		agent.busy = false
		agent.endedAt = &now
		agent.events.Append(eventlog.System, "objective complete after %d cycle(s)", agent.cycle)
		l.Info().Msg("job completed")
		return
	}

	agent.events.Append(eventlog.Phase, "acting")
	target, err := agent.handler.Act(context.Background(), act, agent.elements, agent.frame)
	if err != nil {
		agent.fail(l, err)
		return
	}
	if target != nil {
		x, y := target.Pixel()
		agent.action.Point = &[2]int{x, y}
		agent.events.Append(eventlog.Action, "%s at (%d, %d)", act, x, y)
	} else {
		agent.events.Append(eventlog.Action, "%s", act)
	}

	if err := agent.handler.Pace(context.Background()); err != nil {
		agent.fail(l, err)
		return
	}
	agent.cycle++
	agent.next(ac)
}

func (agent *Session) fail(l zerolog.Logger, err error) {
	now := time.Now()
	agent.state = models.Failed
	agent.busy = false
	agent.endedAt = &now
	agent.err = &models.Error{Category: category(err), Message: err.Error(), Time: &now}
	agent.events.Append(eventlog.Error, "%v", err)
	l.Error().Err(err).Str("category", agent.err.Category).Msg("job failed")
}

// stale reports whether a cycle message belongs to anything but the running cycle.
func (agent *Session) stale(l zerolog.Logger, tag messages.Tag) bool {
	if agent.busy && tag == agent.tag() {
		return false
	}
	l.Debug().Str(logger.JobIDField, tag.JobID.String()).Int(logger.CycleField, tag.Cycle).Msg("dropping stale message")
	return true
}

func (agent *Session) tag() messages.Tag {
	return messages.Tag{JobID: agent.id, Cycle: agent.cycle}
}

func (agent *Session) logger(l zerolog.Logger) zerolog.Logger {
	return l.With().Str(logger.JobIDField, agent.id.String()).Int(logger.CycleField, agent.cycle).Logger()
}

func (agent *Session) status() models.Status {
	s := models.Status{
		Objective: agent.objective,
		State:     agent.state,
		Busy:      agent.busy,
		Cycle:     agent.cycle,
		Err:       agent.err,
		StartedAt: agent.startedAt,
		EndedAt:   agent.endedAt,
	}
	if agent.id != uuid.Nil {
		s.JobID = agent.id.String()
	}
	if agent.action != nil {
		a := *agent.action
		s.Action = &a
	}
	if e, ok := agent.events.Last(); ok {
		s.LastEvent = e.String()
	}
	return s
}

func toPerception(cycle, attempts int, res *perception.Result) *models.Perception {
	p := &models.Perception{
		Cycle:          cycle,
		AnnotatedImage: res.AnnotatedImage,
		Text:           res.Text,
		Elements:       make(map[string][4]float64, len(res.Elements)),
		Attempts:       attempts,
	}
	for id, b := range res.Elements {
		p.Elements[id] = [4]float64{b.XMin, b.YMin, b.XMax, b.YMax}
	}
	return p
}
