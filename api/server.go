// Package api provides the HTTP surface for the chat service.
//
// Endpoints:
//
//	POST /api/chat  - action dispatch (chat, create_session, load_session,
//	                  reset_session, delete_session)
//	GET  /health    - liveness probe
//	GET  /ready     - readiness probe (pings the session store)
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, logging, CORS, body cap
//   - ratelimit.go: per-IP token-bucket rate limiting
//   - health.go: health check endpoints
//   - chat.go: action dispatch endpoint
//   - response.go: JSON response helpers and error mapping
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nubra-ai/nubra-chat/internal/chat"
	"github.com/nubra-ai/nubra-chat/internal/log"
	"github.com/nubra-ai/nubra-chat/internal/security"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = ":8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to resist Slowloris clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response. Chat
	// turns wait on the completion API, so this is generous.
	WriteTimeout = 180 * time.Second

	// IdleTimeout is the keep-alive limit between requests.
	IdleTimeout = 120 * time.Second
)

// ServerConfig carries the transport-level settings for a Server.
type ServerConfig struct {
	MaxPromptChars     int
	MaxBodyBytes       int64
	RateLimitPerMinute int
	CORSOrigins        []string
	TrustProxy         bool
}

// Server is the HTTP server for the chat service.
type Server struct {
	mux     *http.ServeMux
	cfg     ServerConfig
	limiter *rateLimiter
	logger  log.Logger

	health *HealthHandler
	chat   *ChatHandler
}

// NewServer creates an HTTP server with all routes registered. pinger may be
// nil when the session store has no external dependency.
func NewServer(orch *chat.Orchestrator, pinger Pinger, cfg ServerConfig, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimitPerMinute),
		logger:  logger,
		health:  NewHealthHandler(pinger, logger),
		chat:    NewChatHandler(orch, security.NewPromptValidator(), cfg.MaxPromptChars, logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery → logging → CORS → rate limit → body cap → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		corsMiddleware(s.cfg.CORSOrigins),
		rateLimitMiddleware(s.limiter, s.cfg.TrustProxy, s.logger),
		bodyLimitMiddleware(s.cfg.MaxBodyBytes),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
