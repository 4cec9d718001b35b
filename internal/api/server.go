// Package api provides the HTTP API for observing and steering the planet.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token when an admin key is configured.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/talgya/earthsim/internal/display"
	"github.com/talgya/earthsim/internal/ecosystem"
	"github.com/talgya/earthsim/internal/engine"
	"github.com/talgya/earthsim/internal/locale"
	"github.com/talgya/earthsim/internal/persistence"
	"github.com/talgya/earthsim/internal/view"
)

// Server serves the planet over HTTP.
type Server struct {
	Sim   *engine.Simulation
	Eng   *engine.Engine
	Board *view.Board
	DB    *persistence.DB // nil disables POST /checkpoint

	Port        int
	AdminKey    string   // Bearer token for POST endpoints. Empty = open.
	CORSOrigins []string // Extra allowed origins; localhost dev servers are always allowed.
	Lang        language.Tag

	// Limits POST /event per client. Nil = unlimited.
	EventLimiter *RateLimiter

	hub *Hub
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.hub == nil {
		s.hub = NewHub()
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/events", s.handleEventKinds)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Control endpoints.
	event := s.handleEvent
	if s.EventLimiter != nil {
		event = RateLimitMiddleware(s.EventLimiter, event)
	}
	mux.HandleFunc("/api/v1/event", s.adminOnly(event))
	mux.HandleFunc("/api/v1/running", s.adminOnly(s.handleRunning))
	mux.HandleFunc("/api/v1/toggle", s.adminOnly(s.handleToggle))
	mux.HandleFunc("/api/v1/reset", s.adminOnly(s.handleReset))
	mux.HandleFunc("/api/v1/checkpoint", s.adminOnly(s.handleCheckpoint))

	return corsMiddleware(s.allowedOrigins(), mux)
}

// Start begins streaming transitions and serving HTTP in the background.
// The listener shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	handler := s.Handler()
	s.StartStream(ctx)

	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "checkpoint", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown error", "error", err)
		}
	}()
}

// StartStream subscribes the WebSocket hub to simulation transitions.
func (s *Server) StartStream(ctx context.Context) {
	if s.hub == nil {
		s.hub = NewHub()
	}
	id, ch, snap, tick := s.Sim.SubscribeWithSnapshot()
	go func() {
		<-ctx.Done()
		s.Sim.Unsubscribe(id)
	}()
	s.hub.seed(engine.Transition{Kind: KindSnapshot, Tick: tick, Snapshot: snap})
	go s.hub.Run(ctx, ch)
}

func (s *Server) allowedOrigins() map[string]bool {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range s.CORSOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = true
		}
	}
	return allowed
}

// corsMiddleware adds CORS headers for allowed frontend origins.
func corsMiddleware(allowedOrigins map[string]bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests
// when an admin key is configured. GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && s.AdminKey != "" && !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// requestLang picks the response language: ?lang=, then Accept-Language, then
// the server default.
func (s *Server) requestLang(r *http.Request) language.Tag {
	if v := r.URL.Query().Get("lang"); v != "" {
		return locale.Match(v)
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		return locale.Match(v)
	}
	if s.Lang == language.Und {
		return language.English
	}
	return s.Lang
}

// statusResponse mirrors GET /api/v1/status.
type statusResponse struct {
	Name           string                      `json:"name"`
	Tick           uint64                      `json:"tick"`
	Running        bool                        `json:"running"`
	IntervalMS     int64                       `json:"interval_ms"`
	Snapshot       ecosystem.Snapshot          `json:"snapshot"`
	Environment    ecosystem.EnvironmentFactor `json:"environment"`
	LastEvent      string                      `json:"last_event,omitempty"`
	Changes        ecosystem.Changes           `json:"changes"`
	ShowEffect     bool                        `json:"show_effect"`
	Display        display.Indicators          `json:"display"`
	DisplayChanges map[string]string           `json:"display_changes"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.Sim.Snapshot()
	f := display.New(s.requestLang(r))

	var frame view.Frame
	if s.Board != nil {
		frame = s.Board.Frame(time.Now())
	}
	if frame.Changes == nil {
		frame.Changes = ecosystem.Changes{}
	}

	status := statusResponse{
		Name:           "Earth",
		Tick:           s.Sim.CurrentTick(),
		Snapshot:       snap,
		Environment:    ecosystem.DeriveEnvironmentFactor(snap),
		LastEvent:      frame.Event,
		Changes:        frame.Changes,
		ShowEffect:     frame.ShowEffect,
		Display:        f.Render(snap),
		DisplayChanges: f.Changes(frame.Changes),
	}
	if s.Eng != nil {
		status.Running = s.Eng.Running()
		status.IntervalMS = s.Eng.Interval.Milliseconds()
	}
	writeJSON(w, status)
}

type eventKindEntry struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

func (s *Server) handleEventKinds(w http.ResponseWriter, r *http.Request) {
	labels := locale.New(s.requestLang(r))
	kinds := ecosystem.EventKinds()
	out := make([]eventKindEntry, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, eventKindEntry{Kind: k.String(), Label: labels.Label(k)})
	}
	writeJSON(w, out)
}

// EventRequest is the body of POST /api/v1/event.
type EventRequest struct {
	Kind      string   `json:"kind"`
	Intensity *float64 `json:"intensity,omitempty"` // default 1
}

// EventResponse is returned by POST /api/v1/event and /api/v1/reset.
type EventResponse struct {
	Applied    bool              `json:"applied"`
	Transition engine.Transition `json:"transition"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Kind) == "" {
		http.Error(w, "kind required", http.StatusBadRequest)
		return
	}

	intensity := 1.0
	if req.Intensity != nil {
		intensity = *req.Intensity
	}

	tr, applied := s.Sim.RequestEvent(req.Kind, intensity)
	writeJSON(w, EventResponse{Applied: applied, Transition: tr})
}

func (s *Server) handleRunning(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Running *bool `json:"running"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Running == nil {
			http.Error(w, "running required", http.StatusBadRequest)
			return
		}
		s.Eng.SetRunning(*req.Running)
	}

	writeJSON(w, map[string]bool{"running": s.Eng.Running()})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]bool{"running": s.Eng.Toggle()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, EventResponse{Applied: true, Transition: s.Sim.RequestReset()})
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	tick := s.Sim.CurrentTick()
	if err := s.DB.SaveCheckpoint(s.Sim.Snapshot(), tick); err != nil {
		slog.Error("checkpoint save failed", "error", err)
		http.Error(w, "checkpoint failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    tick,
		"message": "checkpoint saved",
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write json failed", "error", err)
	}
}
