package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Server provides a minimal REST control surface for a running crawl:
// add domains to the dynamic inbox, inspect stats, and request a stop.
type Server struct {
	mux    *http.ServeMux
	port   int
	logger *slog.Logger

	ctrl EngineController
}

// EngineController is the interface the API uses to control the crawl
// engine, implemented by engine.Orchestrator.
type EngineController interface {
	AddDomains(urls []string) (accepted int, err error)
	Stop()
	Snapshot() map[string]any
}

// NewServer creates a new API server bound to ctrl.
func NewServer(port int, ctrl EngineController, logger *slog.Logger) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		port:   port,
		ctrl:   ctrl,
		logger: logger.With("component", "api_server"),
	}
	s.registerRoutes()
	return s
}

// Start starts the API server in a background goroutine.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("control API starting", "addr", addr)

	go func() {
		if err := http.ListenAndServe(addr, s.mux); err != nil {
			s.logger.Error("control API error", "error", err)
		}
	}()
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/stop", s.handleStop)
	s.mux.HandleFunc("POST /api/add-domains", s.handleAddDomains)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleAddDomains(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	accepted, err := s.ctrl.AddDomains(body.URLs)
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"accepted": accepted})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
