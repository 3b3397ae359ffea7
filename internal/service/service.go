package service

import (
	"context"
	"fmt"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"
	perceiverHandler "go-omnicontrol/internal/agents/perceiver/handler"
	sessionActor "go-omnicontrol/internal/agents/session/actor"
	sessionHandler "go-omnicontrol/internal/agents/session/handler"
	"go-omnicontrol/internal/config"
	"go-omnicontrol/internal/decision"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/eventlog"
	"go-omnicontrol/internal/executor"
	"go-omnicontrol/internal/perception"
	"go-omnicontrol/pkg/messages"
	"go-omnicontrol/pkg/models"
	"go-omnicontrol/pkg/prompts"
	"io"
	"time"
)

// Display is the local screen: something that can be captured and driven.
type Display interface {
	desktop.Capturer
	executor.Input
}

// Components overrides the collaborators built from config. Nil fields are built from config.
type Components struct {
	Display   Display
	Window    executor.Window
	Submitter perception.Submitter
	Oracle    decision.Oracle
}

type Service struct {
	Root    *actor.RootContext
	Session *actor.PID
	Events  *eventlog.Log
	Client  *decision.Client
}

func New(ctx context.Context, cfg *config.Config, c Components) (*Service, error) {
	if c.Display == nil {
		return nil, fmt.Errorf("no display")
	}

	oracle := c.Oracle
	if oracle == nil {
		var err error
		if oracle, err = NewOracle(ctx, cfg.Decision); err != nil {
			return nil, fmt.Errorf("decision oracle: %w", err)
		}
	}
	client := decision.NewClient(oracle, decision.WithRequestsPerMinute(cfg.Decision.RequestsPerMinute))

	submitter := c.Submitter
	if submitter == nil {
		submitter = perception.NewClient(cfg.Perception.BaseURL,
			perception.WithTimeout(cfg.Perception.Timeout),
			perception.WithWaitForComplete(cfg.Perception.WaitForComplete),
		)
	}

	window := c.Window
	if window == nil {
		window = &desktop.CommandWindow{
			HideCommand: cfg.Window.HideCommand,
			ShowCommand: cfg.Window.ShowCommand,
			Settle:      cfg.Window.Settle,
		}
	}

	exec := executor.New(c.Display, window, executor.Timing{
		Settle:       cfg.Executor.Settle,
		FocusSettle:  cfg.Executor.FocusSettle,
		ScrollAmount: cfg.Executor.ScrollAmount,
	})

	events := eventlog.NewGlobal()
	deps := sessionActor.Deps{
		Handler: sessionHandler.New(c.Display, exec, sessionHandler.Options{
			HideDuringCapture: cfg.Agent.HideDuringCapture,
			Pacing:            cfg.Agent.Pacing,
		}),
		Perceiver: perceiverHandler.New(submitter, perceiverHandler.Policy{
			Attempts: cfg.Perception.Attempts,
			Delay:    cfg.Perception.RetryDelay,
			Thresholds: perception.Thresholds{
				Box: cfg.Perception.BoxThreshold,
				IOU: cfg.Perception.IOUThreshold,
			},
		}),
		Decider: client,
		Events:  events,
		Config: sessionActor.Config{
			MaxCycles:          cfg.Agent.MaxCycles,
			KeepConversation:   cfg.Agent.KeepConversation,
			PerceptionAttempts: cfg.Perception.Attempts,
		},
	}

	decider := func(reason interface{}) actor.Directive {
		log.Error().Msgf("handling failure for session. reason: %v", reason)
		return actor.RestartDirective
	}
	strategy := actor.NewOneForOneStrategy(3, 10000, decider)

	root := actor.NewActorSystem().Root
	pid := root.Spawn(actor.PropsFromProducer(sessionActor.New(deps), actor.WithSupervisor(strategy)))

	return &Service{
		Root:    root,
		Session: pid,
		Events:  events,
		Client:  client,
	}, nil
}

func NewOracle(ctx context.Context, cfg config.DecisionConfig) (decision.Oracle, error) {
	switch cfg.Provider {
	case "gemini":
		return decision.NewGemini(ctx, decision.GeminiConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			BaseURL:      cfg.BaseURL,
			Temperature:  float32(cfg.Temperature),
			Timeout:      cfg.Timeout,
			Instructions: prompts.Instructions,
		})
	case "openai":
		return decision.NewOpenAI(decision.OpenAIConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			BaseURL:      cfg.BaseURL,
			Temperature:  cfg.Temperature,
			Instructions: prompts.Instructions,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Run starts objective and blocks until the job reaches a terminal state or ctx is done, writing
// every event to out as it is emitted. Cancelling ctx stops the job.
func (s *Service) Run(ctx context.Context, objective string, out io.Writer, poll time.Duration) (models.Status, error) {
	seen := s.Events.Len()
	res, err := s.Root.RequestFuture(s.Session, messages.StartObjective{Objective: objective}, time.Minute).Result()
	if err != nil {
		return models.Status{}, fmt.Errorf("start: %w", err)
	}
	if err, ok := res.(error); ok {
		return models.Status{}, err
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		for _, e := range s.Events.Since(seen) {
			fmt.Fprintln(out, e.String())
			seen++
		}

		status, err := s.Status()
		if err != nil {
			return models.Status{}, err
		}
		if !status.Busy && status.State.Terminal() {
			for _, e := range s.Events.Since(seen) {
				fmt.Fprintln(out, e.String())
			}
			return status, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.Root.Send(s.Session, messages.StopObjective{})
			return status, ctx.Err()
		}
	}
}

func (s *Service) Status() (models.Status, error) {
	res, err := s.Root.RequestFuture(s.Session, messages.GetStatus{}, time.Minute).Result()
	if err != nil {
		return models.Status{}, fmt.Errorf("status: %w", err)
	}
	status, ok := res.(models.Status)
	if !ok {
		return models.Status{}, fmt.Errorf("unknown status from session: %v", res)
	}
	return status, nil
}

func (s *Service) Shutdown() {
	s.Root.Stop(s.Session)
}
