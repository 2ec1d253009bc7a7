// Package api exposes scout's browsers over REST. Every route resolves
// the request's X-Browser-Id / X-Session-Id headers to a live session,
// takes that session's execution slot for the duration of the request,
// and runs the requested operation through the action engine.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/entrhq/scout/pkg/actions"
	"github.com/entrhq/scout/pkg/browser"
	"github.com/entrhq/scout/pkg/logging"
	"github.com/entrhq/scout/pkg/search"
)

// Server is the scout REST server.
type Server struct {
	pool     *browser.Pool
	resolver *browser.Resolver
	actions  *actions.Engine
	search   *search.Service
	logger   *logging.Logger

	searchCount int
	handler     http.Handler
	httpServer  *http.Server
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Address to listen on (default: :8000)
	Address string

	// ReadTimeout and WriteTimeout bound request handling. Writes stay
	// open for long pipelines; zero values fall back to 30s / 5m.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Pool owns the browser instances
	Pool *browser.Pool

	// Resolver maps request identity headers to live sessions
	Resolver *browser.Resolver

	// Actions executes pipelines, selector queries, and content reads
	Actions *actions.Engine

	// Search runs web searches over a resolved session
	Search *search.Service

	// DefaultSearchCount is used when /search requests omit count
	// (default: 5)
	DefaultSearchCount int

	// Logger receives request logs. Nil disables logging.
	Logger *logging.Logger
}

// NewServer creates the API server and wires its routes.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Address == "" {
		cfg.Address = ":8000"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.DefaultSearchCount < 1 {
		cfg.DefaultSearchCount = 5
	}

	s := &Server{
		pool:        cfg.Pool,
		resolver:    cfg.Resolver,
		actions:     cfg.Actions,
		search:      cfg.Search,
		logger:      cfg.Logger,
		searchCount: cfg.DefaultSearchCount,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", s.handlePing)

	mux.HandleFunc("GET /browsers", s.handleListBrowsers)
	mux.HandleFunc("POST /browsers", s.handleCreateBrowser)
	mux.HandleFunc("DELETE /browsers/{browser_id}", s.handleDeleteBrowser)

	mux.HandleFunc("POST /start_session", s.handleStartSession)
	mux.HandleFunc("DELETE /end_session", s.handleEndSession)

	mux.HandleFunc("POST /content", s.handleContent)
	mux.HandleFunc("POST /selectors", s.handleSelectors)
	mux.HandleFunc("POST /interact", s.handleInteract)
	mux.HandleFunc("POST /search", s.handleSearch)

	s.handler = withCORS(withLogging(mux, cfg.Logger))
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the API server and blocks until it stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the server's root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Middleware
func withLogging(next http.Handler, logger *logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if logger != nil {
			logger.Infof("%s %s %s %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Browser-Id, X-Session-Id")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helpers
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps a coded error to its HTTP status and emits the
// taxonomy payload. Uncoded errors map to 500.
func writeError(w http.ResponseWriter, err error) {
	code, ok := browser.CodeOf(err)
	status := http.StatusInternalServerError
	if ok {
		status = statusForCode(code)
	} else {
		code = "Internal"
	}
	writeJSON(w, status, errorResponse{Error: errorDetail{
		Code:    string(code),
		Message: err.Error(),
	}})
}
