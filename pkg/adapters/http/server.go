package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/internal/presentation/graph"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/loader"
	"github.com/aretw0/stepgraph/pkg/ports"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

var _ ports.Service = (*stepgraph.Engine)(nil)

// Server serves the graph API on top of a Service.
type Server struct {
	Service  ports.Service
	Streams  *StreamManager
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the logger used for request logs and handler errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer sets the registry exposed on /metrics.
// Defaults to prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithStreams enables GET /events, fed by the manager's hooks.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// NewHandler creates a new HTTP handler for the service.
func NewHandler(svc ports.Service, opts ...Option) http.Handler {
	s := &Server{
		Service:  svc,
		logger:   logging.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.GetInfo)
	r.Get("/health", s.GetHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Post("/graph/create", s.CreateGraph)
	r.Post("/graph/run", s.RunGraph)
	r.Get("/graph/state/{run_id}", s.GetRunState)
	r.Get("/graph/{graph_id}", s.GetGraph)
	r.Get("/graph/{graph_id}/mermaid", s.GetMermaid)

	r.Get("/graphs", s.ListGraphs)
	r.Get("/runs", s.ListRuns)
	r.Get("/runs/{run_id}", s.GetRun)
	r.Delete("/runs/{run_id}", s.DeleteRun)
	r.Get("/tools", s.ListTools)

	if s.Streams != nil {
		r.Get("/events", s.SubscribeEvents)
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error      string             `json:"error"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// CreateGraphResponse answers POST /graph/create.
type CreateGraphResponse struct {
	GraphID string `json:"graph_id"`
}

// RunGraphRequest is the body of POST /graph/run.
type RunGraphRequest struct {
	GraphID      string          `json:"graph_id"`
	InitialState json.RawMessage `json:"initial_state,omitempty"`
	MaxSteps     int             `json:"max_steps,omitempty"`
}

// RunGraphResponse answers POST /graph/run.
type RunGraphResponse struct {
	RunID      string             `json:"run_id"`
	FinalState domain.State       `json:"final_state"`
	Status     domain.RunStatus   `json:"status"`
	Log        []domain.StepEntry `json:"log"`
	Error      string             `json:"error,omitempty"`
}

// RunStateResponse answers GET /graph/state/{run_id}.
type RunStateResponse struct {
	RunID       string           `json:"run_id"`
	GraphID     string           `json:"graph_id"`
	Status      domain.RunStatus `json:"status"`
	CurrentNode *string          `json:"current_node"`
	State       domain.State     `json:"state"`
	LogLength   int              `json:"log_length"`
	Error       *string          `json:"error"`
}

// CreateGraph handles POST /graph/create.
func (s *Server) CreateGraph(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if !s.decodeBody(w, r, &raw) {
		return
	}
	// Ids are always assigned by the server.
	delete(raw, "id")

	g, err := loader.Decode(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.Service.CreateGraph(r.Context(), g)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CreateGraphResponse{GraphID: id})
}

// RunGraph handles POST /graph/run.
func (s *Server) RunGraph(w http.ResponseWriter, r *http.Request) {
	var body RunGraphRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.GraphID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("graph_id is required"))
		return
	}

	initial := domain.State{}
	if len(body.InitialState) > 0 {
		state, err := loader.ParseState(body.InitialState, loader.FormatJSON)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("initial_state: %w", err))
			return
		}
		initial = state
	}

	run, err := s.Service.Run(r.Context(), body.GraphID, initial, body.MaxSteps)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RunGraphResponse{
		RunID:      run.ID,
		FinalState: run.State,
		Status:     run.Status,
		Log:        run.Log,
		Error:      run.Error,
	})
}

// GetRunState handles GET /graph/state/{run_id}.
func (s *Server) GetRunState(w http.ResponseWriter, r *http.Request) {
	run, err := s.Service.GetRun(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := RunStateResponse{
		RunID:     run.ID,
		GraphID:   run.GraphID,
		Status:    run.Status,
		State:     run.State,
		LogLength: run.Steps(),
	}
	if run.CurrentNode != "" {
		resp.CurrentNode = &run.CurrentNode
	}
	if run.Error != "" {
		resp.Error = &run.Error
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetRun handles GET /runs/{run_id} with the full record.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Service.GetRun(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// GetGraph handles GET /graph/{graph_id}.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.Service.GetGraph(r.Context(), chi.URLParam(r, "graph_id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

// GetMermaid handles GET /graph/{graph_id}/mermaid. With ?run_id= the
// run's path is highlighted.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	g, err := s.Service.GetGraph(r.Context(), chi.URLParam(r, "graph_id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var overlay *graph.GraphOverlay
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err := s.Service.GetRun(r.Context(), runID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		overlay = graph.OverlayFor(run)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(g, overlay)))
}

// ListGraphs handles GET /graphs.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Service.ListGraphs(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"graphs": ids})
}

// ListRuns handles GET /runs. An optional status query parameter keeps only
// the runs in that status.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	var (
		ids []string
		err error
	)
	if name := r.URL.Query().Get("status"); name != "" {
		status, perr := domain.ParseRunStatus(name)
		if perr != nil {
			s.writeError(w, http.StatusBadRequest, perr)
			return
		}
		ids, err = s.Service.ListRunsByStatus(r.Context(), status)
	} else {
		ids, err = s.Service.ListRuns(r.Context())
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

// DeleteRun handles DELETE /runs/{run_id}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.DeleteRun(r.Context(), chi.URLParam(r, "run_id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTools handles GET /tools.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]domain.ToolInfo{"tools": s.Service.Tools().Describe()})
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.Streams != nil {
		body["dropped_events"] = s.Streams.Dropped()
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "stepgraph-http",
		"message": "stepgraph graph execution engine API",
		"version": strings.TrimSpace(stepgraph.Version),
	})
}

// decodeBody reads a size-limited JSON body into v, replying 400/413 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return false
	}

	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// writeServiceError maps domain errors to status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrGraphNotFound), errors.Is(err, domain.ErrRunNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case domain.Violations(err) != nil:
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Violations: domain.Violations(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
