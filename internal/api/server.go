package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"github.com/eyelink-control/elg/internal/auth"
)

// Options configures the HTTP server.
type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	DummyMode      bool
}

// Server represents the HTTP API server.
type Server struct {
	httpServer     *http.Server
	gateway        GatewayPort
	events         EventsPort
	session        SessionPort
	calibration    CalibrationPort
	authMiddleware *auth.Middleware
	opts           Options
	startTime      time.Time

	// serialize holds one /send_command from dispatch until its response
	// is written
	serialize sync.Mutex
}

// NewServer creates a new API server. events, sess and cal may be nil.
func NewServer(gateway GatewayPort, events EventsPort, sess SessionPort, cal CalibrationPort, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		gateway:     gateway,
		events:      events,
		session:     sess,
		calibration: cal,
		opts:        opts,
		startTime:   time.Now(),
	}
}

// SetAuthMiddleware enables bearer authentication on the command and event
// routes.
func (s *Server) SetAuthMiddleware(m *auth.Middleware) {
	s.authMiddleware = m
}

// Handler returns the routed handler wrapped for cross-origin access.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:     s.opts.AllowedOrigins,
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"Content-Type", "Authorization", "Last-Event-ID"},
		OptionsPassthrough: true,
	})
	return c.Handler(mux)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
