// Package api serves the SecureScout HTTP API over a scan store.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/0x6d61/securescout/internal/model"
)

// Service is the scan store the API serves. *scan.Manager implements it.
type Service interface {
	Create(ctx context.Context, rawURL string, modules []string) (string, error)
	CreateBatch(ctx context.Context, urls []string, modules []string) []model.ScanResponse
	Status(id string) (model.Scan, error)
	List() []model.Scan
	Active() []model.Scan
	ActiveCount() int
	Cancel(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error

	Results() []model.Scan
	Result(id string) (model.Scan, error)
	DeleteResult(ctx context.Context, id string) error

	Config() model.ScanConfig
	SaveConfig(ctx context.Context, patch model.ConfigPatch) (model.ScanConfig, error)
	ResetConfig(ctx context.Context) model.ScanConfig
	Library() model.Definitions
	UpdateRule(ctx context.Context, vulnType string, patch model.RulePatch) (model.VulnerabilityDefinition, error)
}

// Server routes API requests to a Service.
type Server struct {
	svc     Service
	logger  *slog.Logger
	now     func() time.Time
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now for the report summary window.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Server for svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = requestID(s.accessLog(s.recoverPanic(mux)))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, waiting at most shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("stopping API server")
	shctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
