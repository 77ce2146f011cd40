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

	"github.com/aretw0/framesync"
	"github.com/aretw0/framesync/internal/logging"
	"github.com/aretw0/framesync/pkg/adapters/websocket"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/history"
	"github.com/aretw0/framesync/pkg/host"
	"github.com/aretw0/framesync/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes page sessions over HTTP.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	logger       *slog.Logger
	gatherer     prometheus.Gatherer
	hostHooks    domain.LifecycleHooks
	readyTimeout time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares a StreamManager the session manager publishes to.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMetrics serves gatherer on /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithHostOptions configures the host controllers run for /ws/host.
func WithHostOptions(hooks domain.LifecycleHooks, readyTimeout time.Duration) Option {
	return func(s *Server) {
		s.hostHooks = hooks
		s.readyTimeout = readyTimeout
	}
}

// NewHandler creates the HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	server := &Server{
		Sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager()
	}
	server.Streams.logger = server.logger

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/routes", server.GetRoutes)
	r.Get("/events", server.SubscribeEvents)
	r.Get("/ws/host", server.HostSocket)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", server.CreateSession)
		r.Get("/", server.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", server.GetSession)
			r.Delete("/", server.DeleteSession)
			r.Get("/frame", server.GetFrame)
			r.Post("/click", server.Click)
			r.Post("/navigate", server.Navigate)
			r.Post("/back", server.Back)
			r.Post("/forward", server.Forward)
			r.Post("/hash", server.SetHash)
		})
	})

	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	URL string `json:"url"`
}

// ClickRequest is the body of POST /sessions/{id}/click.
type ClickRequest struct {
	Label string `json:"label"`
}

// NavigateRequest is the body of POST /sessions/{id}/navigate.
type NavigateRequest struct {
	Route string `json:"route"`
}

// HashRequest is the body of POST /sessions/{id}/hash.
type HashRequest struct {
	Hash string `json:"hash"`
}

// TraverseResponse reports whether back/forward moved.
type TraverseResponse struct {
	Moved    bool            `json:"moved"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":     "framesync-http",
		"version": strings.TrimSpace(framesync.Version),
		"miniapp": s.Sessions.App().Name,
		"live":    s.Sessions.Live(),
	})
}

// GetRoutes handles the GET /routes request.
func (s *Server) GetRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sessions.App().Views())
}

// CreateSession handles the POST /sessions request.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if !s.decode(w, r, &body) {
		return
	}
	snap, err := s.Sessions.Create(r.Context(), body.URL)
	if err != nil {
		s.writeError(w, "CreateSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, "ListSessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Click handles the POST /sessions/{id}/click request.
func (s *Server) Click(w http.ResponseWriter, r *http.Request) {
	var body ClickRequest
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Label) == "" {
		http.Error(w, "label is required", http.StatusBadRequest)
		return
	}
	s.do(w, r, "Click", func(ctx context.Context, p *framesync.Page) error {
		return p.Click(ctx, body.Label)
	})
}

// Navigate handles the POST /sessions/{id}/navigate request.
func (s *Server) Navigate(w http.ResponseWriter, r *http.Request) {
	var body NavigateRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.do(w, r, "Navigate", func(ctx context.Context, p *framesync.Page) error {
		return p.NavigateGuest(ctx, domain.ParseRoute(body.Route))
	})
}

// SetHash handles the POST /sessions/{id}/hash request.
func (s *Server) SetHash(w http.ResponseWriter, r *http.Request) {
	var body HashRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.do(w, r, "SetHash", func(ctx context.Context, p *framesync.Page) error {
		_, err := p.SetHash(ctx, body.Hash)
		return err
	})
}

// Back handles the POST /sessions/{id}/back request.
func (s *Server) Back(w http.ResponseWriter, r *http.Request) {
	s.traverse(w, r, "Back", (*framesync.Page).Back)
}

// Forward handles the POST /sessions/{id}/forward request.
func (s *Server) Forward(w http.ResponseWriter, r *http.Request) {
	s.traverse(w, r, "Forward", (*framesync.Page).Forward)
}

func (s *Server) traverse(w http.ResponseWriter, r *http.Request, op string, fn func(*framesync.Page, context.Context) (bool, error)) {
	var moved bool
	snap, err := s.Sessions.Do(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, p *framesync.Page) error {
		var err error
		moved, err = fn(p, ctx)
		return err
	})
	if err != nil {
		s.writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, TraverseResponse{Moved: moved, Snapshot: snap})
}

func (s *Server) do(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, *framesync.Page) error) {
	snap, err := s.Sessions.Do(r.Context(), chi.URLParam(r, "id"), fn)
	if err != nil {
		s.writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)
	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !watched(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// watched reports whether the encoded diff touches any of the fields.
func watched(msg string, fields []string) bool {
	var diff domain.SnapshotDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range fields {
		switch strings.TrimSpace(field) {
		case "hash":
			if diff.Hash != nil {
				return true
			}
		case "route":
			if diff.Route != nil {
				return true
			}
		case "view":
			if diff.View != nil {
				return true
			}
		case "history":
			if diff.Index != nil || len(diff.Entries) > 0 {
				return true
			}
		case "ready":
			if diff.Ready != nil {
				return true
			}
		}
	}
	return false
}

// HostSocket handles GET /ws/host: it runs a host controller for a remote
// guest, with a history seeded from the url query parameter, until the
// connection closes.
func (s *Server) HostSocket(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")

	conn, err := websocket.Accept(w, r, websocket.WithLogger(s.logger))
	if err != nil {
		s.logger.Warn("HostSocket: upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	hist := history.New(domain.HashFromURL(pageURL))
	ctrl := host.New(hist, conn,
		host.WithLogger(s.logger.With("frame", "host", "remote", r.RemoteAddr)),
		host.WithLifecycleHooks(s.hostHooks),
		host.WithReadyTimeout(s.readyTimeout),
	)

	// The request context ends with the handler; the connection drives the lifetime.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	if err := ctrl.Start(ctx); err != nil {
		s.logger.Error("HostSocket: failed to start host controller", "err", err)
		return
	}
	defer ctrl.Close()

	s.logger.Info("HostSocket: remote guest connected", "hash", hist.Current())
	<-conn.Done()
	s.logger.Info("HostSocket: remote guest disconnected", "hash", hist.Current())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrLinkNotFound):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotReady):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
