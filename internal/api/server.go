package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/garagedoor/internal/audit"
	"github.com/nerrad567/garagedoor/internal/garage"
	"github.com/nerrad567/garagedoor/internal/infrastructure/config"
	"github.com/nerrad567/garagedoor/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Controller is the part of garage.Controller the API drives.
type Controller interface {
	Post(ev garage.Event) error
	Snapshot() garage.Snapshot
	ExportLog(ctx context.Context) (string, error)
}

// Lifecycle receives background/foreground notifications.
type Lifecycle interface {
	EnterBackground() error
	EnterForeground() (time.Duration, error)
	InBackground() bool
}

// HealthCheck reports whether a component is usable.
type HealthCheck func(ctx context.Context) error

// PersistedAt reports when a stored value was last written.
type PersistedAt func(ctx context.Context) (time.Time, bool, error)

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Controller Controller
	Lifecycle  Lifecycle
	Hub        *Hub

	// Audit records accepted commands; nil disables the trail.
	Audit audit.Repository

	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer

	// Checks are run by /health, keyed by component name.
	Checks map[string]HealthCheck

	// LogPersistedAt backs log_persisted_at in /health; nil omits it.
	LogPersistedAt PersistedAt

	Version string
}

// Server is the HTTP API server for the garage door controller.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg            config.APIConfig
	wsCfg          config.WebSocketConfig
	logger         *logging.Logger
	controller     Controller
	lifecycle      Lifecycle
	hub            *Hub
	audit          audit.Repository
	gatherer       prometheus.Gatherer
	checks         map[string]HealthCheck
	logPersistedAt PersistedAt
	version        string
	startTime      time.Time
	server         *http.Server
	listener       net.Listener
	cancel         context.CancelFunc // stops the hub on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called. A hub is created
// when none is supplied; pass the one given to the controller as its
// StatusSink so updates reach WebSocket clients.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, ErrMissingLogger
	}
	if deps.Controller == nil {
		return nil, ErrMissingController
	}

	s := &Server{
		cfg:            deps.Config,
		wsCfg:          deps.WS,
		logger:         deps.Logger,
		controller:     deps.Controller,
		lifecycle:      deps.Lifecycle,
		hub:            deps.Hub,
		audit:          deps.Audit,
		gatherer:       deps.Gatherer,
		checks:         deps.Checks,
		logPersistedAt: deps.LogPersistedAt,
		version:        deps.Version,
		startTime:      time.Now(),
	}
	if s.hub == nil {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	if s.cfg.Auth.TokenSecret == "" {
		s.logger.Warn("API token secret not set; control routes are unauthenticated")
	}
	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It binds the listener synchronously, so a port already in use is
// reported here, then serves in a background goroutine until Close().
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
