// Package http exposes the command channel as the host bridge API: three
// pull verbs over loopback HTTP. Nothing is pushed; every expensive payload
// leaves the host only on an explicit fetch.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/maquette/internal/logging"
	"github.com/aretw0/maquette/internal/resolver"
	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// DefaultPort is the loopback port the bridge listens on.
const DefaultPort = 8081

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	Code     string `json:"code"`
	Category string `json:"category,omitempty"`
}

// ExecuteResponse mirrors the host's verdict on a script.
type ExecuteResponse struct {
	Status     string `json:"status"`
	Stdout     string `json:"stdout,omitempty"`
	ErrorTrace string `json:"error_trace,omitempty"`
}

// ErrorResponse carries a bridge-level refusal (busy, timeout, capture).
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Server serves the bridge API over a command channel.
type Server struct {
	channel  ports.CommandChannel
	resolver *resolver.Resolver
	surface  ports.Surface
	metrics  http.Handler
	logger   *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithContextProbe enables GET /context using the given surface and resolver.
func WithContextProbe(surface ports.Surface, r *resolver.Resolver) Option {
	return func(s *Server) {
		s.surface = surface
		s.resolver = r
	}
}

// WithMetricsHandler mounts a metrics endpoint at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler builds the bridge HTTP handler around a command channel.
func NewHandler(channel ports.CommandChannel, opts ...Option) http.Handler {
	s := &Server{
		channel: channel,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/execute", s.handleExecute)
	r.Get("/observation", s.handleObservation)
	r.Get("/log", s.handleLog)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.surface != nil && s.resolver != nil {
		r.Get("/context", s.handleContext)
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Message: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Message: "code is required"})
		return
	}

	script := domain.Script{
		Body:     StripFences(req.Code),
		Category: req.Category,
	}

	result, err := s.channel.Execute(r.Context(), script)
	switch {
	case errors.Is(err, domain.ErrBusy):
		writeJSON(w, http.StatusConflict, ErrorResponse{Status: "busy", Message: "a script is already running"})
		return
	case errors.Is(err, domain.ErrExecutionTimeout):
		writeJSON(w, http.StatusGatewayTimeout, ErrorResponse{Status: "timeout", Message: "execution did not finish in time"})
		return
	case errors.Is(err, domain.ErrUnresolvedContext):
		writeJSON(w, http.StatusPreconditionFailed, ErrorResponse{Status: "unresolved_context", Message: err.Error()})
		return
	case err != nil:
		s.logger.Error("execute failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: err.Error()})
		return
	}

	if result.Failed() {
		writeJSON(w, http.StatusUnprocessableEntity, ExecuteResponse{
			Status:     string(domain.ResultFailure),
			Stdout:     result.Stdout,
			ErrorTrace: result.ErrorTrace,
		})
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		Status: string(domain.ResultSuccess),
		Stdout: result.Stdout,
	})
}

func (s *Server) handleObservation(w http.ResponseWriter, r *http.Request) {
	kind := domain.ObservationKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = domain.ObservationImage
	}
	if kind != domain.ObservationImage && kind != domain.ObservationLog {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: "error", Message: "kind must be image or log"})
		return
	}

	obs, err := s.channel.FetchObservation(r.Context(), kind)
	switch {
	case errors.Is(err, domain.ErrCaptureFailed):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Status: "capture_failed", Message: err.Error()})
		return
	case err != nil:
		s.logger.Error("observation fetch failed", "kind", kind, "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: err.Error()})
		return
	}

	if kind == domain.ObservationImage {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(obs.Image)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(obs.Text))
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	text, err := s.channel.FetchLog(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if !s.resolver.Known(category) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Status: "not_resolvable", Message: "unknown operation category"})
		return
	}

	state, err := s.surface.Inspect(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: err.Error()})
		return
	}
	override, err := s.resolver.Resolve(category, state)
	if errors.Is(err, domain.ErrUnresolvedContext) {
		writeJSON(w, http.StatusPreconditionFailed, ErrorResponse{Status: "unresolved_context", Message: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, override)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StripFences removes a surrounding markdown code fence from a script body.
// Models habitually wrap generated code in ```python blocks; stripping on the
// bridge means every client benefits.
func StripFences(code string) string {
	trimmed := strings.TrimSpace(code)
	if !strings.HasPrefix(trimmed, "```") {
		return code
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		// Drop the language tag line.
		trimmed = trimmed[idx+1:]
	} else {
		return code
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
