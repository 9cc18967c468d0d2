// Package http implements the VoiceMentor REST API, the websocket live feed
// and the operational endpoints on a chi router.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/voicementor/voicementor/internal/application/command"
	"github.com/voicementor/voicementor/internal/application/query"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/user"
	"github.com/voicementor/voicementor/internal/infrastructure/metrics"
	"github.com/voicementor/voicementor/internal/interface/http/handlers"
	"github.com/voicementor/voicementor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// EnableCORS answers preflights and sets Access-Control headers for AllowedOrigins.
	EnableCORS     bool
	AllowedOrigins []string

	// EnableMetrics mounts /metrics when Dependencies.Metrics is set.
	EnableMetrics bool

	// RateLimitPerSecond is the per-IP request rate. 0 disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		EnableMetrics:      true,
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains everything the route handlers call into.
type Dependencies struct {
	RegisterUser       *command.RegisterUserHandler
	Login              *command.LoginHandler
	UpdateUser         *command.UpdateUserHandler
	UpdateMentorStatus *command.UpdateMentorStatusHandler
	Sessions           *command.SessionHandler

	Users         *query.UserQueries
	Mentors       *query.MentorQueries
	SessionsQuery *query.SessionQueries

	// Optional collaborators.
	Health  handlers.HealthChecker
	Live    *LiveHub
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// Repositories are the storage ports the API is built on.
type Repositories struct {
	Users    user.Repository
	Mentors  mentor.Repository
	Sessions session.Repository
}

// NewDependencies builds every command and query handler over repos.
// pinCost is the bcrypt cost for login PINs; 0 uses the library default.
func NewDependencies(repos Repositories, deps command.Deps, pinCost int) Dependencies {
	return Dependencies{
		RegisterUser:       command.NewRegisterUserHandler(repos.Users, deps, pinCost),
		Login:              command.NewLoginHandler(repos.Users, deps),
		UpdateUser:         command.NewUpdateUserHandler(repos.Users, deps),
		UpdateMentorStatus: command.NewUpdateMentorStatusHandler(repos.Mentors, deps),
		Sessions:           command.NewSessionHandler(repos.Sessions, repos.Mentors, deps),
		Users:              query.NewUserQueries(repos.Users),
		Mentors:            query.NewMentorQueries(repos.Mentors),
		SessionsQuery:      query.NewSessionQueries(repos.Sessions),
		Logger:             deps.Logger,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	router     chi.Router
	httpServer *http.Server
	logger     *logger.Logger
	limiter    *handlers.IPRateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: chi.NewRouter(),
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if config.RateLimitPerSecond > 0 {
		s.limiter = handlers.NewIPRateLimiter(config.RateLimitPerSecond, config.RateLimitBurst)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler returns the root handler, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupMiddleware() {
	s.router.Use(chiMiddleware.RequestID)
	s.router.Use(chiMiddleware.RealIP)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)
	if s.deps.Metrics != nil {
		s.router.Use(s.metricsMiddleware)
	}
	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	if s.limiter != nil {
		s.router.Use(s.rateLimitMiddleware)
	}
}

func (s *Server) setupRoutes() {
	r := s.router

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	if s.config.EnableMetrics && s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.handlePing)

		r.Post("/users", s.handleCreateUser)
		r.Get("/users", s.handleListUsers)
		r.Get("/users/{id}", s.handleGetUser)
		r.Put("/users/{id}", s.handleUpdateUser)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/mentors", s.handleListMentors)
		r.Get("/mentors/{id}", s.handleGetMentor)
		r.Put("/mentors/{id}/status", s.handleUpdateMentorStatus)
		r.Get("/skills", s.handleSkills)
		r.Get("/languages", s.handleLanguages)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Put("/sessions/{id}", s.handleUpdateSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Post("/sessions/{id}/join", s.handleJoinSession)
		r.Post("/sessions/{id}/end", s.handleEndSession)

		if s.deps.Live != nil {
			r.Get("/live", s.deps.Live.ServeHTTP)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, false, "Route not found")
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown closes live connections and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	if s.deps.Live != nil {
		s.deps.Live.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
