package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eyelink-control/elg/internal/audit"
	"github.com/eyelink-control/elg/internal/auth"
)

const maxBodyBytes = 64 << 10

// RegisterRoutes registers all endpoints on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Health endpoint (no auth required)
	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/send_command", s.authMiddleware.Require(s.handleSendCommand, auth.ScopeControl))
	mux.HandleFunc("/events", s.authMiddleware.Require(s.handleEvents, auth.ScopeEvents))
}

type commandRequest struct {
	Command string `json:"command"`
}

// handleSendCommand handles POST and OPTIONS /send_command.
func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		s.handlePreflight(w)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		WriteError(w, http.StatusMethodNotAllowed, "Only POST method is allowed", "")
		return
	}

	received := time.Now()
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	setCORSHeaders(w)

	var req commandRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Rejected request %s: malformed body: %v", requestID, err)
		WriteError(w, http.StatusBadRequest, "No command provided", requestID)
		return
	}
	raw := strings.TrimSpace(req.Command)
	if raw == "" {
		WriteError(w, http.StatusBadRequest, "No command provided", requestID)
		return
	}

	s.serialize.Lock()
	defer s.serialize.Unlock()

	ctx := audit.WithRequestID(r.Context(), requestID)
	result, err := s.gateway.Execute(ctx, raw)
	if err != nil {
		status, message := ToAPIError(err)
		WriteError(w, status, message, requestID)
		return
	}

	WriteSuccess(w, result.Message, time.Since(received).Seconds(), requestID)
}

// handlePreflight answers cross-origin pre-flight without touching the
// tracker.
func (s *Server) handlePreflight(w http.ResponseWriter) {
	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": StatusSuccess})
}

func setCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	if h.Get("Access-Control-Allow-Origin") == "" {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
	h.Set("Access-Control-Allow-Methods", "POST,OPTIONS")
}

type healthResponse struct {
	Status           string      `json:"status"`
	UptimeSec        float64     `json:"uptimeSec"`
	DummyMode        bool        `json:"dummyMode"`
	Session          interface{} `json:"session,omitempty"`
	Calibration      string      `json:"calibration,omitempty"`
	CalibrationError string      `json:"calibrationError,omitempty"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Only GET method is allowed", "")
		return
	}

	health := healthResponse{
		Status:    StatusSuccess,
		UptimeSec: time.Since(s.startTime).Seconds(),
		DummyMode: s.opts.DummyMode,
	}
	if s.session != nil {
		health.Session = s.session.Snapshot()
	}
	if s.calibration != nil {
		health.Calibration = string(s.calibration.State())
		health.CalibrationError = s.calibration.LastError()
	}

	writeJSON(w, http.StatusOK, health)
}

// handleEvents handles GET /events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Only GET method is allowed", "")
		return
	}
	if s.events == nil {
		WriteError(w, http.StatusServiceUnavailable, "Event stream not available", "")
		return
	}

	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	if err := s.events.Subscribe(r.Context(), w, r); err != nil {
		log.Printf("Event stream ended: %v", err)
	}
}
