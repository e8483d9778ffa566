// Package server runs the HTTP surface of a linked import with graceful
// shutdown and in-place reloads.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-lci/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining on shutdown
const DefaultShutdownTimeout = 30 * time.Second

// ReloadFunc rebuilds the handler, e.g. after the workflow file changed
type ReloadFunc func(ctx context.Context) (http.Handler, error)

// GracefulServer wraps an HTTP server whose handler can be swapped while
// serving. It shuts down when its context is cancelled and reloads on
// SIGHUP.
type GracefulServer struct {
	server          *http.Server
	handler         atomic.Pointer[http.Handler]
	shutdownCh      chan struct{}
	shutdownOnce    sync.Once
	shutdownTimeout time.Duration
	reloadFn        ReloadFunc
	reloadMu        sync.Mutex
	logger          logging.Logger
}

// Option configures a GracefulServer
type Option func(*GracefulServer)

// WithLogger sets the server logger
func WithLogger(logger logging.Logger) Option {
	return func(gs *GracefulServer) { gs.logger = logger }
}

// WithShutdownTimeout sets how long in-flight requests may drain
func WithShutdownTimeout(d time.Duration) Option {
	return func(gs *GracefulServer) { gs.shutdownTimeout = d }
}

// WithReload sets the function run on SIGHUP or Reload
func WithReload(fn ReloadFunc) Option {
	return func(gs *GracefulServer) { gs.reloadFn = fn }
}

// NewGracefulServer creates a server for addr serving handler
func NewGracefulServer(addr string, handler http.Handler, opts ...Option) *GracefulServer {
	gs := &GracefulServer{
		shutdownCh:      make(chan struct{}),
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(gs)
	}
	gs.logger = logging.OrDefault(gs.logger).With(logging.Component("server"))
	gs.SetHandler(handler)

	gs.server = &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			(*gs.handler.Load()).ServeHTTP(w, r)
		}),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return gs
}

// SetHandler replaces the handler for subsequent requests
func (gs *GracefulServer) SetHandler(h http.Handler) {
	gs.handler.Store(&h)
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled
func (gs *GracefulServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests. SIGHUP triggers Reload while serving.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-sigCh:
				gs.logger.Info("received SIGHUP, reloading")
				_ = gs.Reload(ctx)
			case <-ctx.Done():
				if err := gs.Shutdown(); err != nil {
					gs.logger.Error("shutdown failed", logging.Error(err))
				}
				return
			case <-done:
				return
			}
		}
	}()

	gs.logger.Info("serving", logging.String("addr", ln.Addr().String()))
	if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-gs.shutdownCh
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (gs *GracefulServer) Shutdown() error {
	var err error
	gs.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), gs.shutdownTimeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", gs.shutdownTimeout))
		err = gs.server.Shutdown(ctx)
		close(gs.shutdownCh)
	})
	return err
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// Reload rebuilds the handler with the reload function. On failure the
// current handler keeps serving.
func (gs *GracefulServer) Reload(ctx context.Context) error {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()

	if gs.reloadFn == nil {
		gs.logger.Warn("reload requested, but no reload function configured")
		return nil
	}

	timer := logging.StartTimer(gs.logger, "reload")
	h, err := gs.reloadFn(ctx)
	if err != nil {
		timer.EndError(err)
		return err
	}
	gs.SetHandler(h)
	timer.End()
	return nil
}
