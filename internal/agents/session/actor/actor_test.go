package actor

import (
	"context"
	"errors"
	"fmt"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	perceiverHandler "go-omnicontrol/internal/agents/perceiver/handler"
	"go-omnicontrol/internal/agents/session/handler"
	"go-omnicontrol/internal/decision"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/eventlog"
	"go-omnicontrol/internal/executor"
	"go-omnicontrol/internal/perception"
	"go-omnicontrol/pkg/messages"
	"go-omnicontrol/pkg/models"
	"strings"
	"sync"
	"testing"
	"time"
)

type screen struct{}

func (screen) Capture(context.Context) (*desktop.Frame, error) {
	return desktop.NewFrameFromPNG([]byte("png"), 1920, 1080, time.Now()), nil
}

type brokenScreen struct{}

func (brokenScreen) Capture(context.Context) (*desktop.Frame, error) {
	return nil, &desktop.CaptureError{Err: errors.New("no display")}
}

type parser struct {
	mu        sync.Mutex
	failures  int
	malformed bool
	calls     int
}

func (p *parser) Submit(context.Context, *desktop.Frame, perception.Thresholds) (*perception.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		if p.malformed {
			return nil, &perception.MalformedCoordinatesError{Literal: "{'7': (0.4, 0.1", Err: errors.New("unexpected EOF")}
		}
		return nil, &perception.Error{Reason: "submit", StatusCode: 503}
	}
	return &perception.Result{
		Text:     "7: gear icon",
		Elements: perception.ElementMap{"7": {XMin: 0.4, YMin: 0.1, XMax: 0.6, YMax: 0.15}},
	}, nil
}

// model replays actions in order, repeating the last one. A non-nil gate blocks every call until
// it is closed.
type model struct {
	mu      sync.Mutex
	actions []decision.Action
	err     error
	gate    chan struct{}
	calls   int
	resets  int
}

func (m *model) Decide(ctx context.Context, _ *desktop.Frame, elements, _ string) (decision.Action, error) {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return decision.Action{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return decision.Action{}, m.err
	}
	if elements != "7: gear icon" {
		return decision.Action{}, fmt.Errorf("unexpected elements %q", elements)
	}
	i := m.calls - 1
	if i >= len(m.actions) {
		i = len(m.actions) - 1
	}
	return m.actions[i], nil
}

func (m *model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

type pointer struct {
	mu    sync.Mutex
	calls []string
}

func (p *pointer) add(s string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, s)
	return nil
}

func (p *pointer) Move(x, y int) error       { return p.add(fmt.Sprintf("move %d,%d", x, y)) }
func (p *pointer) Click(button string) error { return p.add("click " + button) }
func (p *pointer) Type(text string) error    { return p.add("type " + text) }
func (p *pointer) Scroll(amount int) error   { return p.add(fmt.Sprintf("scroll %d", amount)) }
func (p *pointer) Chord(keys []string) error { return p.add("chord " + strings.Join(keys, "+")) }

func (p *pointer) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type fixture struct {
	root   *actor.RootContext
	pid    *actor.PID
	input  *pointer
	events *eventlog.Log
}

type option func(*Deps, *fixture)

func withCapturer(c desktop.Capturer) option {
	return func(d *Deps, f *fixture) {
		d.Handler = handler.New(c, executor.New(f.input, nil, executor.Timing{ScrollAmount: 10}), handler.Options{})
	}
}

func withMaxCycles(n int) option {
	return func(d *Deps, _ *fixture) {
		d.Config.MaxCycles = n
	}
}

func newFixture(t *testing.T, p perception.Submitter, m *model, opts ...option) *fixture {
	t.Helper()
	f := &fixture{
		root:   actor.NewActorSystem().Root,
		input:  &pointer{},
		events: eventlog.NewGlobal(),
	}
	policy := perceiverHandler.DefaultPolicy()
	policy.Delay = time.Millisecond
	deps := Deps{
		Handler:   handler.New(screen{}, executor.New(f.input, nil, executor.Timing{ScrollAmount: 10}), handler.Options{HideDuringCapture: true}),
		Perceiver: perceiverHandler.New(p, policy),
		Decider:   m,
		Events:    f.events,
		Config:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&deps, f)
	}
	f.pid = f.root.Spawn(actor.PropsFromProducer(New(deps)))
	t.Cleanup(func() { f.root.Stop(f.pid) })
	return f
}

func (f *fixture) request(t *testing.T, msg interface{}) interface{} {
	t.Helper()
	res, err := f.root.RequestFuture(f.pid, msg, 5*time.Second).Result()
	require.NoError(t, err)
	return res
}

func (f *fixture) status(t *testing.T) models.Status {
	t.Helper()
	s, ok := f.request(t, messages.GetStatus{}).(models.Status)
	require.True(t, ok)
	return s
}

func (f *fixture) waitFor(t *testing.T, state models.State) models.Status {
	t.Helper()
	var s models.Status
	require.Eventually(t, func() bool {
		s = f.status(t)
		return s.State == state
	}, 5*time.Second, 10*time.Millisecond, "last status: %+v", s)
	return s
}

func (f *fixture) start(t *testing.T, objective string) messages.StartAccepted {
	t.Helper()
	accepted, ok := f.request(t, messages.StartObjective{Objective: objective}).(messages.StartAccepted)
	require.True(t, ok)
	return accepted
}

func (f *fixture) eventsOf(category eventlog.Category) []string {
	var out []string
	for _, e := range f.events.Entries() {
		if e.Category == category {
			out = append(out, e.Message)
		}
	}
	return out
}

func TestSession_OpenSettings(t *testing.T) {
	m := &model{actions: []decision.Action{
		{Kind: decision.Click, ElementID: "7", Reasoning: "open settings"},
		{Kind: decision.Complete},
	}}
	f := newFixture(t, &parser{}, m)

	accepted := f.start(t, "open settings")
	s := f.waitFor(t, models.Completed)

	assert.Equal(t, accepted.JobID.String(), s.JobID)
	assert.False(t, s.Busy)
	assert.Equal(t, 2, s.Cycle)
	assert.Nil(t, s.Err)
	assert.NotNil(t, s.EndedAt)
	assert.Equal(t, []string{"move 1344,189", "click left"}, f.input.snapshot())
	assert.Equal(t, []string{"click element 7 at (1344, 189)"}, f.eventsOf(eventlog.Action))
	assert.Contains(t, f.eventsOf(eventlog.Phase), "cycle 2: capturing screen")
	assert.Equal(t, 1, m.resets)

	frame, ok := f.request(t, messages.GetFrame{}).(*desktop.Frame)
	require.True(t, ok)
	assert.Equal(t, 1920, frame.Width)

	p, ok := f.request(t, messages.GetPerception{}).(*models.Perception)
	require.True(t, ok)
	assert.Equal(t, [4]float64{0.4, 0.1, 0.6, 0.15}, p.Elements["7"])
	assert.Equal(t, 2, p.Cycle)
}

func TestSession_PerceptionRecoversAfterTwoFailures(t *testing.T) {
	gate := make(chan struct{})
	t.Cleanup(func() { close(gate) })
	f := newFixture(t, &parser{failures: 2}, &model{gate: gate, actions: []decision.Action{{Kind: decision.Complete}}})

	f.start(t, "open settings")
	s := f.waitFor(t, models.Deciding)

	assert.True(t, s.Busy)
	assert.Len(t, f.eventsOf(eventlog.Perception), 3)
	assert.Contains(t, f.eventsOf(eventlog.Perception)[2], "after 3 attempt(s)")
}

func TestSession_PerceptionExhausted(t *testing.T) {
	p := &parser{failures: 3}
	f := newFixture(t, p, &model{actions: []decision.Action{{Kind: decision.Complete}}})

	f.start(t, "open settings")
	s := f.waitFor(t, models.Failed)

	assert.False(t, s.Busy)
	require.NotNil(t, s.Err)
	assert.Equal(t, "perception", s.Err.Category)
	assert.Len(t, f.eventsOf(eventlog.Perception), 3)
	assert.Len(t, f.eventsOf(eventlog.Error), 1)
	assert.Equal(t, 3, p.calls)
}

func TestSession_MalformedCoordinatesFailWithoutRetry(t *testing.T) {
	p := &parser{failures: 3, malformed: true}
	f := newFixture(t, p, &model{actions: []decision.Action{{Kind: decision.Complete}}})

	f.start(t, "open settings")
	s := f.waitFor(t, models.Failed)

	assert.False(t, s.Busy)
	require.NotNil(t, s.Err)
	assert.Equal(t, "malformed_coordinates", s.Err.Category)
	assert.Len(t, f.eventsOf(eventlog.Perception), 1)
	assert.Len(t, f.eventsOf(eventlog.Error), 1)
	assert.Equal(t, 1, p.calls)
}

func TestSession_RejectsEmptyAndConcurrentStarts(t *testing.T) {
	gate := make(chan struct{})
	t.Cleanup(func() { close(gate) })
	f := newFixture(t, &parser{}, &model{gate: gate, actions: []decision.Action{{Kind: decision.Complete}}})

	assert.Equal(t, ErrEmptyObjective, f.request(t, messages.StartObjective{Objective: "  "}))
	assert.Equal(t, models.Idle, f.status(t).State)

	f.start(t, "open settings")
	assert.Equal(t, ErrBusy, f.request(t, messages.StartObjective{Objective: "something else"}))
	assert.Equal(t, "open settings", f.status(t).Objective)
}

func TestSession_CycleLimit(t *testing.T) {
	f := newFixture(t, &parser{}, &model{actions: []decision.Action{{Kind: decision.Click, ElementID: "7"}}}, withMaxCycles(2))

	f.start(t, "open settings")
	s := f.waitFor(t, models.Failed)

	require.NotNil(t, s.Err)
	assert.Equal(t, "cycle_limit", s.Err.Category)
	assert.Len(t, f.input.snapshot(), 4)
}

func TestSession_Stop(t *testing.T) {
	gate := make(chan struct{})
	m := &model{gate: gate, actions: []decision.Action{{Kind: decision.Click, ElementID: "7"}}}
	f := newFixture(t, &parser{}, m)

	assert.Equal(t, ErrNotRunning, f.request(t, messages.StopObjective{}))

	accepted := f.start(t, "open settings")
	f.waitFor(t, models.Deciding)

	stopped, ok := f.request(t, messages.StopObjective{}).(messages.StopAccepted)
	require.True(t, ok)
	assert.Equal(t, accepted.JobID, stopped.JobID)

	close(gate)
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.calls == 1
	}, 5*time.Second, 10*time.Millisecond)

	s := f.waitFor(t, models.Failed)
	require.NotNil(t, s.Err)
	assert.Equal(t, "stopped", s.Err.Category)
	assert.Empty(t, f.input.snapshot(), "the late decision must be dropped")
}

func TestSession_FailureCategories(t *testing.T) {
	tests := []struct {
		name     string
		model    *model
		opts     []option
		category string
	}{
		{
			name:     "click without element",
			model:    &model{actions: []decision.Action{{Kind: decision.Click}}},
			category: "validation",
		},
		{
			name:     "unknown element",
			model:    &model{actions: []decision.Action{{Kind: decision.Click, ElementID: "99"}}},
			category: "validation",
		},
		{
			name:     "empty keybind",
			model:    &model{actions: []decision.Action{{Kind: decision.Keybind, Value: "+"}}},
			category: "empty_keybind",
		},
		{
			name:     "decision error",
			model:    &model{err: &decision.Error{Reason: "call", Err: errors.New("quota")}},
			category: "decision",
		},
		{
			name:     "capture error",
			model:    &model{actions: []decision.Action{{Kind: decision.Complete}}},
			opts:     []option{withCapturer(brokenScreen{})},
			category: "capture",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &parser{}, tt.model, tt.opts...)
			f.start(t, "open settings")
			s := f.waitFor(t, models.Failed)

			require.NotNil(t, s.Err)
			assert.Equal(t, tt.category, s.Err.Category)
			assert.False(t, s.Busy)
			assert.Empty(t, f.input.snapshot())
			assert.True(t, strings.Contains(s.LastEvent, "ERROR"), s.LastEvent)
		})
	}
}
