package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-panelbridge/internal/audit"
	"github.com/nerrad567/gray-logic-panelbridge/internal/bridges/panel"
)

// defaultWSPath is used when the WebSocket path is not configured.
const defaultWSPath = "/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.accessLogMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = defaultWSPath
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/metrics", s.handleMetrics)

		r.Get("/actuations", s.handleListActuations)
		r.Get("/connections", s.handleListConnections)

		r.Get(wsPath, s.handleWebSocket)
	})

	return r
}

// handleHealth answers 200 while healthy and 503 otherwise, so it can back
// container health checks directly.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, reason := s.currentHealth()

	code := http.StatusOK
	if status != panel.HealthHealthy {
		code = http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":  status,
		"version": s.version,
	}
	if reason != "" {
		body["reason"] = reason
	}
	writeJSON(w, code, body)
}

// statusResponse is the health document plus API-local details.
type statusResponse struct {
	panel.HealthMessage
	WebSocketClients int `json:"websocket_clients"`
}

// handleStatus returns the same document the bridge publishes on its MQTT
// health topic.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status, reason := s.currentHealth()

	msg := panel.NewHealthMessage(s.version, status, s.bridge.Stats(), s.startTime)
	msg.Reason = reason

	writeJSON(w, http.StatusOK, statusResponse{
		HealthMessage:    msg,
		WebSocketClients: s.hub.ClientCount(),
	})
}

// handleListActuations pages through recorded Home Assistant calls.
//
// Query parameters: target (light|climate), limit, offset.
func (s *Server) handleListActuations(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "audit store is disabled")
		return
	}

	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset")
	if !ok {
		return
	}

	result, err := s.audit.ListActuations(r.Context(), audit.Filter{
		Target: r.URL.Query().Get("target"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		if errors.Is(err, audit.ErrInvalidFilter) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("listing actuations failed", "error", err)
		writeInternalError(w, "failed to list actuations")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListConnections returns the most recent subscription transitions.
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "audit store is disabled")
		return
	}

	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	events, err := s.audit.RecentConnections(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing connection events failed", "error", err)
		writeInternalError(w, "failed to list connection events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connections": events,
		"count":       len(events),
	})
}

// queryInt parses an optional non-negative integer query parameter. On
// failure it writes a 400 and returns false.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
