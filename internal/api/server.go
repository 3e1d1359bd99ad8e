package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/assetsync/internal/asset"
	"github.com/nerrad567/assetsync/internal/audit"
	"github.com/nerrad567/assetsync/internal/infrastructure/config"
	"github.com/nerrad567/assetsync/internal/infrastructure/logging"
	"github.com/nerrad567/assetsync/internal/infrastructure/metrics"
	"github.com/nerrad567/assetsync/internal/workflow"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 30 * time.Second

// defaultReconcileTimeout bounds one reconciliation when no write timeout is configured.
const defaultReconcileTimeout = 2 * time.Minute

// EventHandler reconciles one change event. Implemented by *workflow.Service.
type EventHandler interface {
	Handle(ctx context.Context, ev asset.ChangeEvent) workflow.Result
}

// LogReader lists recorded reconciliations. Implemented by *audit.SQLiteRepository.
type LogReader interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// HealthChecker is any dependency that can report its health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Events  EventHandler
	Log     LogReader
	Metrics *metrics.Metrics
	Checks  map[string]HealthChecker // reported by /api/v1/health
	Version string
	Clock   func() time.Time
}

// Server is the HTTP intake server.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	events  EventHandler
	log     LogReader
	metrics *metrics.Metrics
	checks  map[string]HealthChecker
	version string
	clock   func() time.Time
	server  *http.Server
}

// New creates a new API server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Events == nil {
		return nil, errors.New("event handler is required")
	}

	s := &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		events:  deps.Events,
		log:     deps.Log,
		metrics: deps.Metrics,
		checks:  deps.Checks,
		version: deps.Version,
		clock:   deps.Clock,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s, nil
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start launches the HTTP listener in a background goroutine.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close waits for in-flight reconciliations to finish, up to the graceful
// shutdown timeout.
func (s *Server) Close() error {
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

// HealthCheck reports whether the listener has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}

// reconcileTimeout is the budget for one event, matched to the write timeout
// so the caller still gets the result.
func (s *Server) reconcileTimeout() time.Duration {
	if s.cfg.Timeouts.Write > 0 {
		return time.Duration(s.cfg.Timeouts.Write) * time.Second
	}
	return defaultReconcileTimeout
}
