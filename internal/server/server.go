// Package server exposes the insights service over HTTP with Fiber.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	fiber "github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/hyp3rd/ewrap"
	"go.uber.org/zap"

	"github.com/KaramelBytes/docloom-insights/internal/insights"
)

// Option configures the HTTP server.
type Option func(*Server)

// WithReadTimeout sets read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithWriteTimeout sets write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.writeTimeout = d }
}

// WithBodyLimit caps the request body size in bytes. Larger uploads get 413.
func WithBodyLimit(n int) Option {
	return func(s *Server) { s.bodyLimit = n }
}

// WithLogger sets the access and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCORSOrigins enables CORS for the given origins.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.corsOrigins = append(s.corsOrigins, origins...) }
}

// WithAppName sets the name reported by Fiber.
func WithAppName(name string) Option {
	return func(s *Server) { s.appName = name }
}

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultBodyLimit    = 10 << 20
)

// Server holds the Fiber app and its listener.
type Server struct {
	addr         string
	app          *fiber.App
	svc          insights.Service
	logger       *zap.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	bodyLimit    int
	corsOrigins  []string
	appName      string

	mu      sync.Mutex
	ln      net.Listener
	started bool
	errc    chan error
}

// New builds a server for svc that will listen on addr once started.
func New(addr string, svc insights.Service, opts ...Option) *Server {
	s := &Server{
		addr:         addr,
		svc:          svc,
		logger:       zap.NewNop(),
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		bodyLimit:    defaultBodyLimit,
		appName:      "docloom-insights",
		errc:         make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:      s.appName,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		BodyLimit:    s.bodyLimit,
		ErrorHandler: errorHandler(s.logger),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	s.app.Use(requestID())
	s.app.Use(accessLog(s.logger))
	s.app.Use(recoverer.New())
	if len(s.corsOrigins) > 0 {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins:  s.corsOrigins,
			AllowMethods:  []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions},
			ExposeHeaders: []string{HeaderRequestID, HeaderDatasetDigest},
		}))
	}
	s.mountRoutes()
	return s
}

// App exposes the Fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App { return s.app }

// Start binds the listener and serves in the background. It is idempotent.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return ewrap.Wrap(err, "listen")
	}
	s.ln = ln
	s.started = true

	go func() {
		s.errc <- s.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Err delivers the error the serve loop exited with.
func (s *Server) Err() <-chan error { return s.errc }

// Address returns the bound address (useful when passing ":0" for ephemeral port). Empty if not started yet.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown stops accepting uploads and waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return ewrap.Wrap(err, "shutdown")
	}
	return nil
}
