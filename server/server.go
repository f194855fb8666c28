// Package server exposes the event intake service over HTTP: event
// submission, performance metric retrieval, and a status endpoint,
// mounted under a configurable base path.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// ToolkitHeader is set on every response so clients can detect the
// toolkit regardless of which route they hit.
const (
	ToolkitHeader      = "X-Browser-Tools-Enabled"
	ToolkitHeaderValue = "true"
)

// DefaultBasePath is where routes are mounted when none is configured.
const DefaultBasePath = "/devtools"

// Config configures a Server instance.
type Config struct {
	// Service handles the event intake operations. Required.
	Service *EventService

	// BasePath prefixes all routes. Defaults to "/devtools".
	BasePath string

	CORSOrigin string
	MaxBody    int64
	Logger     *slog.Logger
}

// Server is the event intake HTTP server.
type Server struct {
	service    *EventService
	basePath   string
	corsOrigin string
	maxBody    int64
	logger     *slog.Logger
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20 // 1 MB default
	}
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return &Server{
		service:    cfg.Service,
		basePath:   basePath,
		corsOrigin: corsOrigin,
		maxBody:    maxBody,
		logger:     logger,
	}
}

// BasePath returns the mount prefix for all routes.
func (s *Server) BasePath() string {
	return s.basePath
}

// Handler returns an http.Handler with all routes and middleware wired.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = s.corsMiddleware(handler)
	handler = s.maxBodyMiddleware(handler)
	handler = s.toolkitHeaderMiddleware(handler)

	return handler
}

// RegisterRoutes mounts the event intake routes onto an existing mux.
// Use this when composing with other handlers.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+s.basePath+"/health", s.handleHealth)
	mux.HandleFunc("POST "+s.basePath+"/events", s.handleSubmitEvent)
	mux.HandleFunc("GET "+s.basePath+"/metrics/performance", s.handlePerformanceMetrics)
	mux.HandleFunc("GET "+s.basePath+"/status", s.handleStatus)
}

// --- Middleware ---

// toolkitHeaderMiddleware marks every response with the toolkit header
// and continues the chain unconditionally.
func (s *Server) toolkitHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ToolkitHeader, ToolkitHeaderValue)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the standard error envelope.
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{
		Error: apiErrorBody{
			Code:    code,
			Message: message,
		},
	})
}
