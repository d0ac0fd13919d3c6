// Package server runs an http.Server until its context is cancelled and then
// drains connections.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-orderviz/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining
const DefaultShutdownTimeout = 30 * time.Second

// ConfigReloadFunc is a function that reloads configuration
type ConfigReloadFunc func() error

// GracefulServer wraps an HTTP server with graceful shutdown and SIGHUP reload
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
	shutdownCh      chan struct{}
	shutdownOnce    sync.Once
	configReloadFn  ConfigReloadFunc
	configMu        sync.RWMutex
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// layouts run to convergence before the response is written
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger:          logger.With(logging.Component("server")),
		shutdownTimeout: DefaultShutdownTimeout,
		shutdownCh:      make(chan struct{}),
	}
}

// SetTLSConfig makes the server speak TLS with tc
func (gs *GracefulServer) SetTLSConfig(tc *tls.Config) {
	gs.server.TLSConfig = tc
}

// SetShutdownTimeout changes how long Run waits for connections to drain
func (gs *GracefulServer) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		gs.shutdownTimeout = d
	}
}

// Run listens on the configured address until ctx is done
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down.
// SIGHUP triggers ReloadConfig while serving.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("starting HTTP server",
			logging.String("addr", ln.Addr().String()),
			logging.Bool("tls", gs.server.TLSConfig != nil))
		if gs.server.TLSConfig != nil {
			errCh <- gs.server.ServeTLS(ln, "", "")
			return
		}
		errCh <- gs.server.Serve(ln)
	}()

	for {
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case <-hup:
			gs.logger.Info("received SIGHUP, reloading configuration")
			_ = gs.ReloadConfig()

		case <-ctx.Done():
			if err := gs.Shutdown(gs.shutdownTimeout); err != nil {
				return err
			}
			<-errCh
			return nil
		}
	}
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))
		if err = gs.server.Shutdown(ctx); err != nil {
			gs.logger.Error("error during shutdown", logging.Error(err))
		} else {
			gs.logger.Info("server shutdown complete")
		}
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

// SetConfigReloadFunc sets the function to call when configuration reload is triggered
func (gs *GracefulServer) SetConfigReloadFunc(fn ConfigReloadFunc) {
	gs.configMu.Lock()
	defer gs.configMu.Unlock()
	gs.configReloadFn = fn
}

// ReloadConfig runs the reload function, if any
func (gs *GracefulServer) ReloadConfig() error {
	gs.configMu.RLock()
	reloadFn := gs.configReloadFn
	gs.configMu.RUnlock()

	if reloadFn == nil {
		gs.logger.Debug("configuration reload requested, but no reload function configured")
		return nil
	}

	if err := reloadFn(); err != nil {
		gs.logger.Error("configuration reload failed", logging.Error(err))
		return err
	}
	gs.logger.Info("configuration reload complete")
	return nil
}
