// Package api provides the HTTP route layer and WebSocket push channel for
// Pawl Core.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/pawl-core/internal/auth"
	"github.com/nerrad567/pawl-core/internal/infrastructure/config"
	"github.com/nerrad567/pawl-core/internal/infrastructure/logging"
	"github.com/nerrad567/pawl-core/internal/notify"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports whether a backing resource is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Auth     *auth.Service
	Bus      *notify.Bus
	DB       HealthChecker // optional; /health reports degraded when it fails
	Version  string
}

// Server is the HTTP API server for Pawl Core.
//
// It owns the HTTP listener, the router and the WebSocket hub. The hub is
// subscribed to the bus in New, so Handler is usable before Start.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	auth     *auth.Service
	bus      *notify.Bus
	db       HealthChecker
	version  string
	router   http.Handler
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc
	longPoll time.Duration

	// closing is cancelled by Close to release parked long polls, which
	// Shutdown would otherwise wait out.
	closing     context.Context
	stopPolling context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("notification bus is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger.With("component", "api"),
		auth:     deps.Auth,
		bus:      deps.Bus,
		db:       deps.DB,
		version:  deps.Version,
		longPoll: deps.Config.Timeouts.LongPollWindow(),
	}
	s.closing, s.stopPolling = context.WithCancel(context.Background())

	s.hub = NewHub(s.wsCfg, s.logger, func(token string) bool {
		_, err := s.auth.Authenticate(token)
		return err == nil
	})
	s.bus.Subscribe(s.hub.Publish)
	s.router = s.buildRouter()

	return s, nil
}

// Handler returns the fully wired router. Tests serve it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.router,
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// Parked long polls are answered with the current epoch and WebSocket
// clients are disconnected. Shutdown then waits up to 10 seconds for the
// remaining in-flight requests.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.stopPolling()
	s.hub.closeAll()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server has been started.
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
