package api

import (
	"context"
	"errors"
	"fmt"
	"github.com/asynkron/protoactor-go/actor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/justinas/alice"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	sessionActor "go-omnicontrol/internal/agents/session/actor"
	"go-omnicontrol/internal/desktop"
	"go-omnicontrol/internal/eventlog"
	"go-omnicontrol/pkg/logger"
	"go-omnicontrol/pkg/messages"
	"go-omnicontrol/pkg/models"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const requestTimeout = time.Minute

type command struct {
	Objective string `json:"objective"`
}

type getStatus struct {
	Status models.Status `json:"status"`
}

type getEvents struct {
	Events []eventlog.Entry `json:"events"`
}

type getPerception struct {
	Perception *models.Perception `json:"perception"`
}

type jobResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	ac      *actor.RootContext
	session *actor.PID
	server  *http.Server
	jobs    *jobsCache
}

func New(ac *actor.RootContext, session *actor.PID, addr string) *Server {
	s := &Server{
		ac:      ac,
		session: session,
		jobs:    newJobsCache(),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(logMiddleware())

	r.Post("/jobs", s.startJob)
	r.Post("/jobs/stop", s.stopJob)
	r.Get("/status", s.currentStatus)
	r.Get("/status/{id}", s.jobStatus)
	r.Get("/events", s.events)
	r.Get("/frame", s.frame)
	r.Get("/perception", s.perception)

	return r
}

func (s *Server) startJob(w http.ResponseWriter, r *http.Request) {
	log.Debug().Msg("new job request")
	cmd := command{}
	if err := unmarshalRequestBody(r, &cmd); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	// keep the final status of the job being replaced
	if status, err := s.status(); err == nil {
		s.jobs.observe(status)
	}

	res, err := s.ac.RequestFuture(s.session, messages.StartObjective{Objective: cmd.Objective}, requestTimeout).Result()
	if err != nil {
		log.Error().Err(err).Msg("unable to start job")
		writeError(w, r, http.StatusInternalServerError, "session unavailable")
		return
	}
	switch v := res.(type) {
	case messages.StartAccepted:
		s.jobs.add(v.JobID)
		log.Debug().Str(logger.JobIDField, v.JobID.String()).Msg("agent job has been started")
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, jobResponse{ID: v.JobID.String()})
	case error:
		switch {
		case errors.Is(v, sessionActor.ErrEmptyObjective):
			writeError(w, r, http.StatusBadRequest, v.Error())
		case errors.Is(v, sessionActor.ErrBusy):
			writeError(w, r, http.StatusConflict, v.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, v.Error())
		}
	default:
		log.Error().Msgf("unknown response from session: %v", res)
		writeError(w, r, http.StatusInternalServerError, "unknown response from session")
	}
}

func (s *Server) stopJob(w http.ResponseWriter, r *http.Request) {
	res, err := s.ac.RequestFuture(s.session, messages.StopObjective{}, requestTimeout).Result()
	if err != nil {
		log.Error().Err(err).Msg("unable to stop job")
		writeError(w, r, http.StatusInternalServerError, "session unavailable")
		return
	}
	switch v := res.(type) {
	case messages.StopAccepted:
		if status, err := s.status(); err == nil {
			s.jobs.observe(status)
		}
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, jobResponse{ID: v.JobID.String()})
	case error:
		if errors.Is(v, sessionActor.ErrNotRunning) {
			writeError(w, r, http.StatusConflict, v.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, v.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "unknown response from session")
	}
}

func (s *Server) currentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.status()
	if err != nil {
		log.Error().Err(err).Msg("unable to get status from actor")
		writeError(w, r, http.StatusInternalServerError, "session unavailable")
		return
	}
	s.jobs.observe(status)
	render.JSON(w, r, getStatus{status})
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		log.Debug().Msg("cannot parse id")
		writeError(w, r, http.StatusBadRequest, "unable to parse id")
		return
	}
	if _, ok := s.jobs.get(id); !ok {
		log.Debug().Str(logger.JobIDField, idParam).Msg("cannot find id")
		writeError(w, r, http.StatusNotFound, "unknown job")
		return
	}

	if status, err := s.status(); err == nil {
		s.jobs.observe(status)
	} else {
		log.Error().Str(logger.JobIDField, idParam).Err(err).Msg("unable to get status from actor")
	}
	status, _ := s.jobs.get(id)
	render.JSON(w, r, getStatus{status})
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	since := 0
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = n
	}

	res, err := s.ac.RequestFuture(s.session, messages.GetEvents{Since: since}, requestTimeout).Result()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session unavailable")
		return
	}
	entries, ok := res.([]eventlog.Entry)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "unknown response from session")
		return
	}

	if r.URL.Query().Get("format") == "text" {
		var sb strings.Builder
		for _, e := range entries {
			sb.WriteString(e.String())
			sb.WriteByte('\n')
		}
		render.PlainText(w, r, sb.String())
		return
	}
	if entries == nil {
		entries = []eventlog.Entry{}
	}
	render.JSON(w, r, getEvents{Events: entries})
}

func (s *Server) frame(w http.ResponseWriter, r *http.Request) {
	res, err := s.ac.RequestFuture(s.session, messages.GetFrame{}, requestTimeout).Result()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session unavailable")
		return
	}
	frame, ok := res.(*desktop.Frame)
	if !ok || frame == nil {
		writeError(w, r, http.StatusNotFound, "no frame captured yet")
		return
	}
	w.Header().Set("Content-Type", desktop.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", frame.Name))
	if _, err := w.Write(frame.PNG()); err != nil {
		log.Debug().Err(err).Msg("unable to write frame")
	}
}

func (s *Server) perception(w http.ResponseWriter, r *http.Request) {
	res, err := s.ac.RequestFuture(s.session, messages.GetPerception{}, requestTimeout).Result()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session unavailable")
		return
	}
	p, ok := res.(*models.Perception)
	if !ok || p == nil {
		writeError(w, r, http.StatusNotFound, "no perception result yet")
		return
	}
	render.JSON(w, r, getPerception{Perception: p})
}

func (s *Server) status() (models.Status, error) {
	res, err := s.ac.RequestFuture(s.session, messages.GetStatus{}, requestTimeout).Result() // blocking
	if err != nil {
		return models.Status{}, err
	}
	status, ok := res.(models.Status)
	if !ok {
		return models.Status{}, fmt.Errorf("unknown status from actor: %v", res)
	}
	return status, nil
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	err := s.server.ListenAndServe()
	if err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func logMiddleware() func(http.Handler) http.Handler {
	c := alice.New()
	c = c.Append(hlog.NewHandler(log.Logger))
	c = c.Append(hlog.RemoteAddrHandler("ip"))
	c = c.Append(hlog.UserAgentHandler("user_agent"))
	c = c.Append(hlog.RequestIDHandler("req_id", "Request-Id"))
	c = c.Append(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("verb", r.Method).
			Stringer("url", r.URL).
			Int("size", size).
			Int("status", status).
			Int64("duration", duration.Milliseconds()).
			Msg("REQ")
	}))

	return c.Then
}

func unmarshalRequestBody(req *http.Request, output interface{}) error {
	if req.Body == nil {
		return errors.New("invalid body in request")
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if err = req.Body.Close(); err != nil {
		return err
	}
	return json.Unmarshal(body, output)
}
