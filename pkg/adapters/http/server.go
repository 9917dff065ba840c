package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lander/api"
	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/internal/presentation/graph"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/runner"
	"github.com/aretw0/lander/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodySize bounds request bodies. Answers are further bounded by runner.SanitizeAnswer.
const maxBodySize = 64 << 10

// Server exposes a session.Manager over HTTP.
type Server struct {
	Sessions *session.Manager

	metrics    http.Handler
	version    string
	apiVersion string
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts a metrics handler on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the build version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// Answer is the body of POST /sessions/{sessionId}/answers.
type Answer struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

// Funnel is a listing entry of GET /funnels.
type Funnel struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
	Questions   int    `json:"questions"`
}

// NewServer wraps handler in an http.Server whose Shutdown also ends every session, so
// open event streams finish instead of holding the shutdown until its deadline.
func NewServer(addr string, handler http.Handler, sessions *session.Manager) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(sessions.Close)
	return srv
}

// NewHandler creates a new HTTP handler for the session manager.
// It fails only if the embedded OpenAPI document is invalid.
func NewHandler(sessions *session.Manager, opts ...Option) (http.Handler, error) {
	doc, err := api.Load(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		Sessions:   sessions,
		version:    "dev",
		apiVersion: doc.Info.Version,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(api.Raw())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Get("/funnels", s.ListFunnels)
	r.Route("/funnels/{funnelId}", func(r chi.Router) {
		r.Get("/", s.GetFunnel)
		r.Get("/graph", s.GetFunnelGraph)
		r.Post("/sessions", s.StartSession)
	})

	r.Get("/sessions", s.ListSessions)
	r.Route("/sessions/{sessionId}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Delete("/", s.EndSession)
		r.Post("/answers", s.SubmitAnswer)
		r.Post("/tick", s.TickSession)
		r.Get("/events", s.SubscribeEvents)
		r.Get("/call", s.CallSession)
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Lander API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "lander-http",
		"version":     strings.TrimSpace(s.version),
		"api_version": s.apiVersion,
	})
}

// ListFunnels handles the GET /funnels request.
func (s *Server) ListFunnels(w http.ResponseWriter, r *http.Request) {
	loader := s.Sessions.Loader()
	ids, err := loader.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	funnels := make([]Funnel, 0, len(ids))
	for _, id := range ids {
		script, err := loader.Load(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		funnels = append(funnels, Funnel{
			ID:          script.ID,
			Title:       script.Title,
			Description: script.Description,
			Steps:       len(script.Steps),
			Questions:   script.Questions(),
		})
	}
	s.writeJSON(w, http.StatusOK, funnels)
}

// GetFunnel handles the GET /funnels/{funnelId} request.
func (s *Server) GetFunnel(w http.ResponseWriter, r *http.Request) {
	script, err := s.Sessions.Loader().Load(chi.URLParam(r, "funnelId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, script)
}

// GetFunnelGraph handles the GET /funnels/{funnelId}/graph request.
// The optional "session" query parameter overlays that session's progress.
func (s *Server) GetFunnelGraph(w http.ResponseWriter, r *http.Request) {
	script, err := s.Sessions.Loader().Load(chi.URLParam(r, "funnelId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session"); id != "" {
		rn, err := s.Sessions.Get(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		overlay = &graph.GraphOverlay{CurrentStep: rn.Snapshot().Step}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(script, overlay))
}

// StartSession handles the POST /funnels/{funnelId}/sessions request.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	rn, err := s.Sessions.Start(r.Context(), chi.URLParam(r, "funnelId"), r.URL.Query().Get("phone"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+rn.SessionID())
	s.writeJSON(w, http.StatusCreated, rn.Snapshot())
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Sessions.List())
}

// GetSession handles the GET /sessions/{sessionId} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, rn.Snapshot())
}

// EndSession handles the DELETE /sessions/{sessionId} request.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.End(chi.URLParam(r, "sessionId")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitAnswer handles the POST /sessions/{sessionId}/answers request.
func (s *Server) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.session(w, r)
	if !ok {
		return
	}

	var body Answer
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
		s.writeStatus(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	value, err := runner.SanitizeAnswer(body.Value)
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err)
		return
	}

	snap, err := rn.Submit(r.Context(), strings.TrimSpace(body.Key), value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// TickSession handles the POST /sessions/{sessionId}/tick request.
func (s *Server) TickSession(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, err := rn.Tick(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// CallSession handles the GET /sessions/{sessionId}/call request.
func (s *Server) CallSession(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := rn.Snapshot()
	if snap.CallHref == "" {
		s.writeStatus(w, http.StatusConflict, errors.New("call action is only available on the terminal step"))
		return
	}
	http.Redirect(w, r, snap.CallHref, http.StatusFound)
}

// SubscribeEvents handles the GET /sessions/{sessionId}/events request (SSE).
// The first event carries the full snapshot, later ones carry diffs.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeStatus(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var watch []string
	if v := r.URL.Query().Get("watch"); v != "" {
		watch = strings.Split(v, ",")
	}

	sessionID := rn.SessionID()
	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)

	ch, cancel := rn.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var last *domain.Snapshot
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case snap, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: end\ndata: closed\n\n")
				flusher.Flush()
				return
			}
			event, payload := "snapshot", any(snap)
			if last != nil {
				diff := domain.Diff(last, &snap)
				if diff == nil || !watched(diff, watch) {
					last = &snap
					continue
				}
				event, payload = "diff", diff
			}
			last = &snap

			data, err := json.Marshal(payload)
			if err != nil {
				s.logger.Error("SSE: failed to encode event", "session_id", sessionID, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
			flusher.Flush()
		}
	}
}

// watched reports whether diff touches any of the fields named in watch.
// An empty watch list matches everything.
func watched(diff *domain.SnapshotDiff, watch []string) bool {
	if len(watch) == 0 {
		return true
	}
	for _, field := range watch {
		switch strings.TrimSpace(field) {
		case "messages":
			if len(diff.Appended) > 0 {
				return true
			}
		case "answers":
			if len(diff.Answers) > 0 {
				return true
			}
		case "step":
			if diff.Step != nil || diff.Kind != nil {
				return true
			}
		case "typing":
			if diff.Typing != nil || diff.AwaitingInput != nil {
				return true
			}
		case "loader":
			if diff.LoaderStatus != nil {
				return true
			}
		case "countdown":
			if diff.Countdown != nil || diff.Display != nil {
				return true
			}
		case "terminal":
			if diff.Terminal != nil || diff.ReferenceCode != nil || diff.CallHref != nil {
				return true
			}
		}
	}
	return false
}

// -- Helpers --

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*runner.Runner, bool) {
	rn, err := s.Sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return rn, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeStatus(w, statusFor(err), err)
}

func (s *Server) writeStatus(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrFunnelNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotInteractive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
