// Package gateway exposes the webhook HTTP surface of the bridge.
//
// Both systems push change notifications here: Shotgun event daemons post
// to /sg2jira/{handler} and Jira webhooks post to
// /jira2sg/{handler}/issue/{key}. Each registered handler owns one
// entity/issue type pairing.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nucleus/bridge-core/internal/connector/jira"
	"github.com/nucleus/bridge-core/internal/core"
)

// maxBodyBytes caps webhook payload size. Jira events with large
// changelogs stay well under this.
const maxBodyBytes = 4 << 20

// Handler is one registered sync handler, addressed by name in webhook
// URLs.
type Handler interface {
	AcceptJiraEvent(resourceType, resourceID string, event *jira.WebhookEvent) bool
	AcceptShotgunEvent(event *core.ShotgunEvent) bool
	ProcessJiraEvent(ctx context.Context, event *jira.WebhookEvent) (bool, error)
	ProcessShotgunEvent(ctx context.Context, event *core.ShotgunEvent) (bool, error)
}

// Server is the webhook HTTP server.
type Server struct {
	handlers map[string]Handler
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates a server listening on addr, e.g. "0.0.0.0:9090".
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		handlers: map[string]Handler{},
		logger:   logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /sg2jira/{handler}", s.handleShotgunEvent)
	mux.HandleFunc("POST /jira2sg/{handler}/issue/{key}", s.handleJiraEvent)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.withRequestLog(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Register adds a named handler. Names appear in webhook URLs and must be
// unique.
func (s *Server) Register(name string, h Handler) error {
	if _, exists := s.handlers[name]; exists {
		return fmt.Errorf("handler %q already registered", name)
	}
	s.handlers[name] = h
	return nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server listening", "addr", s.server.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown webhook server: %w", err)
	}
	err := <-errCh
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// =============================================================================
// ROUTES
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleShotgunEvent(w http.ResponseWriter, r *http.Request) {
	handler, logger, ok := s.resolveHandler(w, r)
	if !ok {
		return
	}

	var event core.ShotgunEvent
	if !decodeBody(w, r, &event) {
		return
	}
	if !handler.AcceptShotgunEvent(&event) {
		writeJSON(w, http.StatusOK, map[string]any{"processed": false})
		return
	}

	processed, err := handler.ProcessShotgunEvent(r.Context(), &event)
	if err != nil {
		logger.Error("shotgun event processing failed",
			"entity_type", event.EntityType, "entity_id", event.EntityID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"processed": processed})
}

func (s *Server) handleJiraEvent(w http.ResponseWriter, r *http.Request) {
	handler, logger, ok := s.resolveHandler(w, r)
	if !ok {
		return
	}
	issueKey := r.PathValue("key")

	var event jira.WebhookEvent
	if !decodeBody(w, r, &event) {
		return
	}
	if !handler.AcceptJiraEvent("issue", issueKey, &event) {
		writeJSON(w, http.StatusOK, map[string]any{"processed": false})
		return
	}

	processed, err := handler.ProcessJiraEvent(r.Context(), &event)
	if err != nil {
		logger.Error("jira event processing failed",
			"issue", issueKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"processed": processed})
}

// resolveHandler looks up the handler named in the URL, answering 404
// itself when there is none.
func (s *Server) resolveHandler(w http.ResponseWriter, r *http.Request) (Handler, *slog.Logger, bool) {
	name := r.PathValue("handler")
	logger := s.logger.With("handler", name)
	handler, ok := s.handlers[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": fmt.Sprintf("unknown handler %q", name),
		})
		return nil, logger, false
	}
	return handler, logger, true
}

// =============================================================================
// PLUMBING
// =============================================================================

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLog tags each request with an id and logs its outcome.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		s.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(start),
		)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": fmt.Sprintf("malformed payload: %v", err),
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
