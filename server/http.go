// Package server provides the HTTP surface: MCP endpoints, the token-gated
// file gateway, and operational routes.
package server

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/amotivv/youtube-tools-llm-context/cache"
	"github.com/amotivv/youtube-tools-llm-context/router"
	"github.com/amotivv/youtube-tools-llm-context/telemetry"
	"github.com/amotivv/youtube-tools-llm-context/token"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
)

// ServerName identifies this server in MCP handshakes and health payloads.
const ServerName = "youtube-mcp-server"

// ServerVersion is reported in MCP handshakes.
const ServerVersion = "1.0.0"

// Config holds server configuration.
type Config struct {
	// Address to listen on (e.g., ":9000")
	Address string

	// APIKey enables Bearer authentication on the MCP endpoints when set.
	// Health, metrics, and the file gateway stay open: the gateway carries
	// its own per-file tokens.
	APIKey string

	// Router dispatches tool calls, resources, and prompts.
	Router *router.Router

	// Cache resolves file-gateway reads.
	Cache *cache.Store

	// Tokens verifies file-gateway tokens.
	Tokens *token.Service

	// Logger for the server
	Logger *slog.Logger
}

// Server is the HTTP server.
type Server struct {
	config     Config
	httpServer *http.Server
	logger     *slog.Logger
	router     *router.Router
	cache      *cache.Store
	tokens     *token.Service
}

// New creates a new server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Address == "" {
		cfg.Address = ":9000"
	}
	if cfg.Router == nil || cfg.Cache == nil || cfg.Tokens == nil {
		return nil, fmt.Errorf("server: router, cache, and tokens are required")
	}

	s := &Server{
		config: cfg,
		logger: cfg.Logger,
		router: cfg.Router,
		cache:  cfg.Cache,
		tokens: cfg.Tokens,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.loggingMiddleware(s.authMiddleware(gzhttp.GzipHandler(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Minute, // Downloads and transcriptions run inside the request
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// registerRoutes sets up the HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health checks
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /mcp/health", s.handleMCPHealth)

	// Prometheus metrics endpoint (returns 404 if not enabled)
	mux.Handle("GET /metrics", telemetry.PrometheusHandler())

	// MCP session endpoints
	mux.HandleFunc("POST /mcp/initialize", s.handleInitialize)
	mux.HandleFunc("POST /mcp/list_tools", s.handleListTools)
	mux.HandleFunc("POST /mcp/call_tool", s.handleCallTool)

	// Token-gated file gateway
	mux.HandleFunc("GET /files/{token}", s.handleFile)
}

// loggingMiddleware logs HTTP requests with structured fields for analysis.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		// Wrap response writer to capture status and bytes
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := deriveEndpoint(r.URL.Path)

		s.logger.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"endpoint", endpoint,
			"status", wrapped.status,
			"status_class", telemetry.StatusClass(wrapped.status),
			"bytes_sent", wrapped.bytesWritten,
			"duration_ms", duration.Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		telemetry.RecordHTTP(r.Context(), endpoint, wrapped.status, wrapped.bytesWritten, duration)
	})
}

// Start starts the server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "address", s.config.Address, "auth", s.config.APIKey != "")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// Address returns the server's listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// Handler returns the fully wrapped HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// responseWriter wraps http.ResponseWriter to capture the status code and bytes written.
// It preserves http.Flusher and http.Hijacker interfaces for streaming support.
type responseWriter struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher for streaming responses.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker for connection upgrades.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("hijacking not supported")
}

// Unwrap returns the underlying ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// deriveEndpoint classifies the request path for logs and metrics.
func deriveEndpoint(path string) string {
	switch {
	case path == "/health" || path == "/mcp/health":
		return "health"
	case path == "/metrics":
		return "metrics"
	case len(path) >= 7 && path[:7] == "/files/":
		return "files"
	case len(path) >= 5 && path[:5] == "/mcp/":
		return "mcp"
	default:
		return "unknown"
	}
}
