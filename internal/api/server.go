package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/askgov/askgov/internal/chat"
	"github.com/askgov/askgov/internal/conversation"
	"github.com/askgov/askgov/internal/log"
	"github.com/askgov/askgov/internal/notify"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       log.Logger
	Orchestrator *chat.Orchestrator // Required
	Store        conversation.Store // Required
	Registry     *notify.Registry   // Required
	Pool         *pgxpool.Pool      // Optional: nil skips the database readiness check
	Redis        *redis.Client      // Optional: nil skips the redis readiness check
	CORSOrigins  []string           // Allowed origins for CORS and WebSocket upgrades
	IsDev        bool               // Relaxes origin checks and disables HSTS
	TrustProxy   bool               // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst    int                // Rate limiter burst size per IP (0 = default 60)
}

// Server is the HTTP server carrying the chat WebSocket endpoint and the
// staff reporting API.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("conversation store is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("notify registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := newChatHandler(cfg.Orchestrator, cfg.Registry, cfg.CORSOrigins, cfg.IsDev, logger)
	rh := &reportingHandler{store: cfg.Store, logger: logger}

	mux := http.NewServeMux()

	// Chat (WebSocket upgrade)
	mux.Handle("GET /api/v1/chat", ch)

	// Staff reporting
	mux.HandleFunc("GET /api/v1/reports/conversations", rh.listConversations)
	mux.HandleFunc("GET /api/v1/reports/conversations/{id}", rh.getConversation)
	mux.HandleFunc("GET /api/v1/escalations", rh.listEscalations)
	mux.HandleFunc("GET /api/v1/escalations/{id}", rh.getEscalation)
	mux.HandleFunc("DELETE /api/v1/escalations/{id}", rh.deleteEscalation)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newIPLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	// CORS must be before RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Wrap with security headers
	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to separate health probes from middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.HandleFunc("GET /ready", readiness(cfg.Pool, cfg.Redis, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
