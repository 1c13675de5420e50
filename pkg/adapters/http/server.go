// Package http exposes the agent's command edge over HTTP.
//
// The production transport for commands is the real-time session layer;
// this gateway is the local operational surface: attach and detach
// sessions, submit command envelopes, follow dispatch outcomes over
// SSE, and probe health.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/voxlane/vox"
	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/pkg/domain"
)

// Agent is the slice of the vox agent the gateway drives.
type Agent interface {
	Dispatch(ctx context.Context, env domain.Envelope) domain.Response
	AttachSession(ctx context.Context, sessionID string, meta domain.SessionMeta) (*domain.Session, error)
	DetachSession(ctx context.Context, sessionID string) error
	SessionSnapshot(ctx context.Context, sessionID string) (*domain.Session, error)
	HealthCheck(ctx context.Context) error
}

// Server handles the gateway routes.
type Server struct {
	agent   Agent
	streams *StreamManager
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts a metrics endpoint at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler for the agent.
func NewHandler(agent Agent, opts ...Option) http.Handler {
	server := &Server{
		agent:   agent,
		streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/healthz", server.Health)
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}
	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", server.AttachSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", server.GetSession)
			r.Delete("/", server.DetachSession)
			r.Post("/commands", server.SubmitCommand)
			r.Get("/events", server.SubscribeEvents)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type attachRequest struct {
	SessionID     string `json:"sessionId"`
	DatabaseID    string `json:"databaseId"`
	StudyID       string `json:"studyId"`
	ParticipantID string `json:"participantId"`
}

// AttachSession handles POST /v1/sessions.
func (s *Server) AttachSession(w http.ResponseWriter, r *http.Request) {
	var body attachRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	meta := domain.SessionMeta{
		DatabaseID:    body.DatabaseID,
		StudyID:       body.StudyID,
		ParticipantID: body.ParticipantID,
	}
	sess, err := s.agent.AttachSession(r.Context(), body.SessionID, meta)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("attach failed", "session_id", body.SessionID, "err", err)
		writeError(w, http.StatusInternalServerError, "attach failed")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// GetSession handles GET /v1/sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.agent.SessionSnapshot(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DetachSession handles DELETE /v1/sessions/{sessionID}.
func (s *Server) DetachSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.agent.DetachSession(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commandRequest struct {
	Method         domain.Method  `json:"method"`
	Payload        map[string]any `json:"payload"`
	CallerIdentity string         `json:"callerIdentity"`
}

// SubmitCommand handles POST /v1/sessions/{sessionID}/commands. Every
// dispatched command answers 200 with the response envelope in the
// body; dispatch failures ride inside the envelope, not the HTTP
// status.
func (s *Server) SubmitCommand(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body commandRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := s.agent.Dispatch(r.Context(), domain.Envelope{
		Method:         body.Method,
		Payload:        body.Payload,
		CallerIdentity: body.CallerIdentity,
		SessionID:      sessionID,
	})

	if encoded, err := json.Marshal(outcome{Method: body.Method, Response: resp}); err == nil {
		s.streams.Broadcast(sessionID, string(encoded))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /healthz as a data-service health passthrough.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.agent.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "degraded",
			"version": vox.Version,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": vox.Version,
	})
}

// outcome is the SSE record for one dispatched command.
type outcome struct {
	Method   domain.Method   `json:"method"`
	Response domain.Response `json:"response"`
}

// SubscribeEvents handles GET /v1/sessions/{sessionID}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.agent.SessionSnapshot(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := s.streams.Subscribe(sessionID)
	defer unsubscribe()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast fans one message out to the session's subscribers. Slow
// clients with a full buffer drop the message rather than block the
// command path.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if subs, ok := sm.subscribers[sessionID]; ok {
		for ch := range subs {
			select {
			case ch <- msg:
			default:
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
