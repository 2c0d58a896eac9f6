package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hep-clue/clue/pkg/api/rest/middleware"
	"github.com/hep-clue/clue/pkg/cache"
	"github.com/hep-clue/clue/pkg/layer"
	"github.com/hep-clue/clue/pkg/observability"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	CORSEnabled bool
	CORSOrigins []string
	Auth        middleware.AuthConfig
	RateLimit   middleware.RateLimitConfig
	Version     string
}

// Server is the HTTP front end over a layer.Registry: it exposes batch
// clustering, layer/cache introspection and health checks, wrapped in an
// auth/rate-limit/logging middleware stack.
type Server struct {
	config     Config
	handler    *Handler
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *observability.Logger
}

// NewServer builds a Server over registry. batchCache may be nil to
// disable batch-result caching; metrics may be nil to disable Prometheus
// instrumentation.
func NewServer(config Config, registry *layer.Registry, batchCache *cache.LRUCache, metrics *observability.Metrics, logger *observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}

	s := &Server{
		config:  config,
		handler: NewHandler(registry, batchCache, metrics, logger, config.Version),
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.withMiddleware(s.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handler.HealthCheck)
	s.mux.HandleFunc("/v1/layers", s.handler.ListLayers)
	s.mux.HandleFunc("/v1/layers/", s.routeLayerPath)
	s.mux.HandleFunc("/v1/cache/stats", s.handler.CacheStats)
	s.mux.HandleFunc("/v1/cache/clear", s.handler.CacheClear)
}

// routeLayerPath dispatches /v1/layers/{name}/cluster and
// /v1/layers/{name}/stats.
func (s *Server) routeLayerPath(w http.ResponseWriter, r *http.Request) {
	name, suffix, ok := layerNameFromPath(r.URL.Path, "/v1/layers/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch suffix {
	case "cluster":
		s.handler.Cluster(w, r, name)
	case "stats":
		s.handler.LayerStats(w, r, name)
	default:
		http.NotFound(w, r)
	}
}

// withMiddleware wraps the handler with logging, CORS, rate limiting and
// authentication. Each wrap becomes the new outer layer, so auth runs
// first, then rate limiting, then CORS, and logging is innermost.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = s.loggingMiddleware(handler)

	if s.config.CORSEnabled {
		handler = corsMiddleware(s.config.CORSOrigins)(handler)
	}

	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit)
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)

	handler = middleware.AuthMiddleware(s.config.Auth)(handler)

	return handler
}

// Start starts the HTTP server; blocks until Stop is called or the server
// fails.
func (s *Server) Start() error {
	s.logger.Info("starting clustering API server", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down clustering API server", nil)
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs every HTTP request via the shared structured
// logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start).String(),
		})
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				allowed = true
				origin = "*"
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
