package api

import (
	"context"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	perceiverHandler "go-omnicontrol/internal/agents/perceiver/handler"
	sessionActor "go-omnicontrol/internal/agents/session/actor"
	sessionHandler "go-omnicontrol/internal/agents/session/handler"
	"go-omnicontrol/internal/decision"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/eventlog"
	"go-omnicontrol/internal/executor"
	"go-omnicontrol/internal/perception"
	"go-omnicontrol/pkg/models"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type screen struct{}

func (screen) Capture(context.Context) (*desktop.Frame, error) {
	return desktop.NewFrameFromPNG([]byte("\x89PNG"), 800, 600, time.Now()), nil
}

type parser struct{}

func (parser) Submit(context.Context, *desktop.Frame, perception.Thresholds) (*perception.Result, error) {
	return &perception.Result{
		Text:     "ID 2: search box",
		Elements: perception.ElementMap{"2": {XMin: 0.1, YMin: 0.1, XMax: 0.3, YMax: 0.2}},
	}, nil
}

// gatedModel completes the objective once gate is closed.
type gatedModel struct {
	gate chan struct{}
}

func (m gatedModel) Decide(ctx context.Context, _ *desktop.Frame, _, _ string) (decision.Action, error) {
	select {
	case <-m.gate:
		return decision.Action{Kind: decision.Complete}, nil
	case <-ctx.Done():
		return decision.Action{}, ctx.Err()
	}
}

type noInput struct{}

func (noInput) Move(int, int) error  { return nil }
func (noInput) Click(string) error   { return nil }
func (noInput) Type(string) error    { return nil }
func (noInput) Scroll(int) error     { return nil }
func (noInput) Chord([]string) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, chan struct{}) {
	t.Helper()
	gate := make(chan struct{})
	root := actor.NewActorSystem().Root
	pid := root.Spawn(actor.PropsFromProducer(sessionActor.New(sessionActor.Deps{
		Handler:   sessionHandler.New(screen{}, executor.New(noInput{}, nil, executor.Timing{}), sessionHandler.Options{}),
		Perceiver: perceiverHandler.New(parser{}, perceiverHandler.DefaultPolicy()),
		Decider:   gatedModel{gate: gate},
		Events:    eventlog.NewGlobal(),
		Config:    sessionActor.DefaultConfig(),
	})))
	ts := httptest.NewServer(New(root, pid, ":0").Handler())
	t.Cleanup(func() {
		ts.Close()
		root.Stop(pid)
	})
	return ts, gate
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func decode(t *testing.T, body string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), v))
}

func TestServer_JobLifecycle(t *testing.T) {
	ts, gate := newTestServer(t)

	code, _ := do(t, http.MethodGet, ts.URL+"/frame", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, http.MethodPost, ts.URL+"/jobs/stop", "")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, http.MethodPost, ts.URL+"/jobs", `{"objective":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, http.MethodPost, ts.URL+"/jobs", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := do(t, http.MethodPost, ts.URL+"/jobs", `{"objective":"search for golang"}`)
	require.Equal(t, http.StatusAccepted, code, body)
	var job jobResponse
	decode(t, body, &job)
	_, err := uuid.Parse(job.ID)
	require.NoError(t, err)

	code, _ = do(t, http.MethodPost, ts.URL+"/jobs", `{"objective":"something else"}`)
	assert.Equal(t, http.StatusConflict, code)

	require.Eventually(t, func() bool {
		_, body := do(t, http.MethodGet, ts.URL+"/status", "")
		var s getStatus
		decode(t, body, &s)
		return s.Status.State == models.Deciding
	}, 5*time.Second, 10*time.Millisecond)

	code, body = do(t, http.MethodGet, ts.URL+"/frame", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "\x89PNG", body)

	code, body = do(t, http.MethodGet, ts.URL+"/perception", "")
	require.Equal(t, http.StatusOK, code)
	var p getPerception
	decode(t, body, &p)
	assert.Equal(t, "ID 2: search box", p.Perception.Text)
	assert.Equal(t, [4]float64{0.1, 0.1, 0.3, 0.2}, p.Perception.Elements["2"])

	close(gate)
	require.Eventually(t, func() bool {
		_, body := do(t, http.MethodGet, ts.URL+"/status/"+job.ID, "")
		var s getStatus
		decode(t, body, &s)
		return s.Status.State == models.Completed && !s.Status.Busy
	}, 5*time.Second, 10*time.Millisecond)

	code, body = do(t, http.MethodGet, ts.URL+"/events?format=text", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "SYSTEM: objective complete after 1 cycle(s)")

	code, body = do(t, http.MethodGet, ts.URL+"/events?since=1", "")
	assert.Equal(t, http.StatusOK, code)
	var events getEvents
	decode(t, body, &events)
	require.NotEmpty(t, events.Events)
	assert.Equal(t, eventlog.Phase, events.Events[0].Category)
}

func TestServer_StopAndLookup(t *testing.T) {
	ts, _ := newTestServer(t)

	code, _ := do(t, http.MethodGet, ts.URL+"/status/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, http.MethodGet, ts.URL+"/status/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, http.MethodGet, ts.URL+"/events?since=-1", "")
	assert.Equal(t, http.StatusBadRequest, code)

	_, body := do(t, http.MethodPost, ts.URL+"/jobs", `{"objective":"open settings"}`)
	var first jobResponse
	decode(t, body, &first)

	code, body = do(t, http.MethodPost, ts.URL+"/jobs/stop", "")
	require.Equal(t, http.StatusAccepted, code)
	var stopped jobResponse
	decode(t, body, &stopped)
	assert.Equal(t, first.ID, stopped.ID)

	code, body = do(t, http.MethodPost, ts.URL+"/jobs", `{"objective":"open settings again"}`)
	require.Equal(t, http.StatusAccepted, code)
	var second jobResponse
	decode(t, body, &second)
	assert.NotEqual(t, first.ID, second.ID)

	code, body = do(t, http.MethodGet, ts.URL+"/status/"+first.ID, "")
	require.Equal(t, http.StatusOK, code)
	var s getStatus
	decode(t, body, &s)
	assert.Equal(t, models.Failed, s.Status.State)
	require.NotNil(t, s.Status.Err)
	assert.Equal(t, "stopped", s.Status.Err.Category)
}
