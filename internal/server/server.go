// Package server wires the query resources into an HTTP API alongside
// the health, readiness, and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bench-archive/internal/common/config"
	"bench-archive/internal/common/logger"
)

type Server struct {
	cfg        config.ServerConfig
	mux        *http.ServeMux
	httpServer *http.Server
	logger     logger.Logger
	readyCheck func(ctx context.Context) error
}

// New builds the server with the standard operational endpoints
// registered. readyCheck reports backend connectivity for /ready.
func New(cfg config.ServerConfig, log logger.Logger, readyCheck func(ctx context.Context) error) *Server {
	s := &Server{
		cfg:        cfg,
		mux:        http.NewServeMux(),
		logger:     log.WithFields(map[string]interface{}{"component": "http-server"}),
		readyCheck: readyCheck,
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      s.mux,
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
	}

	return s
}

// Register mounts a handler under path.
func (s *Server) Register(path string, handler http.Handler) {
	s.mux.Handle(path, handler)
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", map[string]interface{}{
		"address": s.cfg.BindAddress,
	})
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.readyCheck != nil {
		if err := s.readyCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
