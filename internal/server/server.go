// Package server exposes the latest decision and process metrics over HTTP.
// It is display only: nothing it serves feeds back into a cycle.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rustyeddy/polygate/cycle"
	"go.uber.org/zap"
)

type Options struct {
	// AllowedOrigins enables CORS for dashboards. Empty allows none.
	AllowedOrigins []string
	Logger         *zap.SugaredLogger
}

type Server struct {
	router  *mux.Router
	handler http.Handler
	log     *zap.SugaredLogger

	mu     sync.RWMutex
	latest *cycle.Report
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// New builds the router. metrics may be nil, in which case /metrics is not
// served.
func New(metrics http.Handler, opts Options) *Server {
	s := &Server{
		router: mux.NewRouter(),
		log:    opts.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if metrics != nil {
		s.router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/decision", s.handleDecision).Methods(http.MethodGet)

	s.handler = s.router
	if len(opts.AllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet},
		})
		s.handler = c.Handler(s.router)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// SetLatest replaces the report served by /v1/decision.
func (s *Server) SetLatest(rep cycle.Report) {
	s.mu.Lock()
	s.latest = &rep
	s.mu.Unlock()
}

func (s *Server) Latest() (cycle.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return cycle.Report{}, false
	}
	return *s.latest, true
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Infow("server listening", "addr", addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.Latest()
	if !ok {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_ready", Message: "no cycle has completed yet"})
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
