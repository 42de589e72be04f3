package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-panelbridge/internal/audit"
	"github.com/nerrad567/gray-logic-panelbridge/internal/bridges/panel"
	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// StatusSource exposes live bridge counters. Satisfied by *panel.Bridge.
type StatusSource interface {
	Stats() panel.Stats
	IsConnected() bool
}

// HealthSource evaluates the bridge's health. Satisfied by
// *panel.HealthReporter.
type HealthSource interface {
	Status() (panel.HealthStatus, string)
}

// PoolStatsSource exposes database pool statistics. Satisfied by
// *database.DB.
type PoolStatsSource interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger
	Bridge StatusSource

	// Health is optional. Without it health follows the subscription state.
	Health HealthSource

	// Audit is optional. The history endpoints answer 503 without it.
	Audit audit.Repository

	// DB is optional and only feeds /metrics.
	DB PoolStatsSource

	// Hub is optional. When nil the server creates and runs its own.
	Hub *Hub

	Version   string
	StartTime time.Time
}

// Server is the bridge's HTTP status API and live event feed.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	bridge      StatusSource
	health      HealthSource
	audit       audit.Repository
	db          PoolStatsSource
	hub         *Hub
	externalHub bool
	version     string
	startTime   time.Time

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Logger and Bridge are required; everything else is optional
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge status source is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		bridge:    deps.Bridge,
		health:    deps.Health,
		audit:     deps.Audit,
		db:        deps.DB,
		version:   deps.Version,
		startTime: deps.StartTime,
	}
	if s.startTime.IsZero() {
		s.startTime = time.Now()
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}

	return s, nil
}

// Hub returns the WebSocket hub, for registering it as a bridge observer.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in a background goroutine.
//
// Parameters:
//   - ctx: Parent of the hub's lifetime (not the listener's)
//
// Returns:
//   - error: If the address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("binding API listener on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.logger.Info("API server listening", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
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

// HealthCheck verifies the API server is running.
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

// currentHealth returns the reporter's verdict, or one derived from the
// subscription state when no reporter is configured.
func (s *Server) currentHealth() (panel.HealthStatus, string) {
	if s.health != nil {
		return s.health.Status()
	}
	if !s.bridge.IsConnected() {
		return panel.HealthDegraded, "panel publisher disconnected"
	}
	return panel.HealthHealthy, ""
}
