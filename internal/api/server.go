// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihandler "github.com/mhollert/bret/internal/api/handler/api"
	"github.com/mhollert/bret/internal/api/job"
	"github.com/mhollert/bret/internal/api/middleware"
	"github.com/mhollert/bret/internal/config"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/feed"
	"github.com/mhollert/bret/internal/metrics"
)

// Server is the HTTP front end for evaluation jobs.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	logger     *zap.Logger
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	APIKey      string // empty disables authentication
	JobTTL      time.Duration
	MaxJobs     int
	MetricsPath string
}

// Dependencies holds what the handlers need.
type Dependencies struct {
	Cfg      *config.Config
	Provider feed.Provider
	Registry *metrics.Registry // nil disables the metrics endpoint
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Cfg == nil || deps.Provider == nil {
		return nil, core.WrapError(core.ErrConfigMissing,
			errors.New("server requires a config and a feed provider"))
	}

	router := mux.NewRouter()
	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		logger: logger,
	}

	s.setupRoutes(cfg, deps)

	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	maxJobs := cfg.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 100
	}
	ttl := cfg.JobTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	jobStore := job.NewStore(maxJobs, ttl)

	backtests := apihandler.NewBacktestHandler(
		jobStore, deps.Cfg, deps.Provider, deps.Registry, s.logger)

	// Health check registers before the subrouter so it stays outside auth
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")

	if deps.Registry != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.Handle(path,
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.APIKeyAuth(cfg.APIKey))
	api.Use(metrics.LoggingMiddleware(s.logger))
	if deps.Registry != nil {
		api.Use(metrics.HTTPMiddleware(deps.Registry))
	}

	api.HandleFunc("/backtests", backtests.Create).Methods("POST")
	api.HandleFunc("/backtests", backtests.List).Methods("GET")
	api.HandleFunc("/backtests/{id}", func(w http.ResponseWriter, r *http.Request) {
		backtests.GetStatus(w, r, mux.Vars(r)["id"])
	}).Methods("GET")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
