// Package api exposes the build orchestrator over HTTP: build lifecycle
// operations, generated file access, and a Server-Sent Events stream of
// build progress.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/foliobuilder/internal/config"
	"git.home.luguber.info/inful/foliobuilder/internal/eventstore"
	"git.home.luguber.info/inful/foliobuilder/internal/orchestrator"
)

// Server is the HTTP API server.
type Server struct {
	addr    string
	router  *chi.Mux
	server  *http.Server
	orch    *orchestrator.Orchestrator
	history *eventstore.Store
	metrics http.Handler
}

// NewServer creates a server over the given orchestrator. history and
// metricsHandler are optional; their routes return 404 when absent.
func NewServer(cfg config.ServerConfig, orch *orchestrator.Orchestrator, history *eventstore.Store, metricsHandler http.Handler) *Server {
	s := &Server{
		addr:    cfg.Addr(),
		router:  chi.NewRouter(),
		orch:    orch,
		history: history,
		metrics: metricsHandler,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout stays zero so SSE streams are not cut off.
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/builds", func(r chi.Router) {
		r.Post("/", s.handleCreateBuild)
		r.Get("/", s.handleListBuilds)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetBuild)
			r.Get("/files", s.handleListFiles)
			r.Get("/files/*", s.handleGetFile)
			r.Post("/cancel", s.handleCancelBuild)
			r.Post("/tasks/{taskID}/retry", s.handleRetryTask)
			r.Post("/sections/{sectionID}/regenerate", s.handleRegenerateSection)
			r.Get("/events", s.handleBuildEvents)
			r.Get("/history", s.handleBuildHistory)
		})
	})

	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the API server and blocks until it stops.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Response is the standard API envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Error writes an error response.
func (s *Server) Error(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: message})
}

// Success writes a success response.
func (s *Server) Success(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
