package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/R3E-Network/records_service/internal/config"
	"github.com/R3E-Network/records_service/pkg/logger"
)

// httpServer runs the API listener as a lifecycle-managed service.
type httpServer struct {
	srv             *http.Server
	addr            string
	shutdownTimeout time.Duration
	log             *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	errCh    chan error
}

func newHTTPServer(cfg config.ServerConfig, handler http.Handler, log *logger.Logger) *httpServer {
	return &httpServer{
		srv: &http.Server{
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		addr:            cfg.Addr(),
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             log,
		errCh:           make(chan error, 1),
	}
}

func (s *httpServer) Name() string { return "http-server" }

// Start binds the listener synchronously so address errors surface here and
// serves in the background.
func (s *httpServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Infof("HTTP server listening on %s", ln.Addr())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()
	return nil
}

func (s *httpServer) Stop(ctx context.Context) error {
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *httpServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Errors yields a serve failure, if any, and is closed when serving ends.
func (s *httpServer) Errors() <-chan error { return s.errCh }
