// Package http exposes conversations over HTTP: JSON endpoints for turns,
// a server-sent event stream per session, a websocket bridge for browser
// speech recognition, and optionally the recipe search endpoints of the
// built-in catalog.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/chefmate/internal/logging"
	"github.com/aretw0/chefmate/pkg/adapters/catalog"
	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/observability"
	"github.com/aretw0/chefmate/pkg/session"
	"github.com/aretw0/chefmate/pkg/voice"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// HealthCheck reports whether a dependency (store, search service) is usable.
type HealthCheck func(ctx context.Context) error

// Server holds the collaborators of the HTTP surface.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager
	Metrics  *observability.Metrics
	Catalog  *catalog.Catalog
	Logger   *slog.Logger
	Health   HealthCheck
	Version  string

	// Voice configures the websocket bridge.
	VoiceCooldown time.Duration
	VoiceHooks    domain.LifecycleHooks
}

// Option configures the Server.
type Option func(*Server)

func WithStreams(sm *StreamManager) Option { return func(s *Server) { s.Streams = sm } }

func WithMetrics(m *observability.Metrics) Option { return func(s *Server) { s.Metrics = m } }

// WithCatalog mounts the search service endpoints (/search/, /modify/, /reset_session/).
func WithCatalog(c *catalog.Catalog) Option { return func(s *Server) { s.Catalog = c } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.Logger = l } }

func WithHealthCheck(h HealthCheck) Option { return func(s *Server) { s.Health = h } }

func WithVersion(v string) Option { return func(s *Server) { s.Version = v } }

// WithVoice sets the restart cooldown and hooks of websocket voice sessions.
func WithVoice(cooldown time.Duration, hooks domain.LifecycleHooks) Option {
	return func(s *Server) {
		s.VoiceCooldown = cooldown
		s.VoiceHooks = hooks
	}
}

// NewServer creates a Server. Sessions may be nil when only the catalog is served.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions:      sessions,
		Logger:        logging.NewNop(),
		Version:       "dev",
		VoiceCooldown: voice.DefaultCooldown,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.Logger)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}

	if s.Sessions != nil {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.CreateSession)
			r.Get("/", s.ListSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetSession)
				r.Delete("/", s.DeleteSession)
				r.Post("/input", s.PostInput)
				r.Post("/reset", s.PostReset)
				r.Post("/select", s.PostSelect)
				r.Post("/modify", s.PostModify)
				r.Get("/events", s.SubscribeEvents)
				r.Get("/voice", s.VoiceBridge)
			})
		})
	}

	if s.Catalog != nil {
		newCatalogRoutes(s.Catalog, s.Logger).mount(r)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-CSRFToken")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		if err := s.Health(r.Context()); err != nil {
			s.Logger.Warn("Health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"app":     "chefmate-http",
		"version": s.Version,
	}
	if s.Sessions != nil {
		resp["live_sessions"] = s.Sessions.Live()
	}
	if s.Catalog != nil {
		resp["catalog"] = map[string]any{
			"recipes": s.Catalog.Len(),
			"digest":  s.Catalog.Digest(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// -- Helpers --

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("Request failed", "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor maps caller mistakes to 4xx. Everything else is a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTurnInFlight):
		return http.StatusConflict
	case errors.Is(err, dialogue.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidOrdinal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, dialogue.ErrInvalidUTF8),
		errors.Is(err, domain.ErrUnknownModification),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("invalid request body")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
