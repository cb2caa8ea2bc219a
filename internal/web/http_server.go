package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rook-computer/msgboard/internal/logging"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	Addr    string
	Handler http.Handler
	Logger  logging.Logger

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func NewHTTPServer(addr string, handler http.Handler, logger logging.Logger) *HTTPServer {
	return &HTTPServer{Addr: addr, Handler: handler, Logger: logger}
}

// Start binds the listener and serves in the background.
func (s *HTTPServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil
	}

	addr := s.Addr
	if addr == "" {
		addr = ":8080"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srv = srv
	s.ln = ln

	log := logging.OrNoop(s.Logger)
	log.Infof("web", "status server listening on %s", ln.Addr())
	go func() {
		err := srv.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		log.Errorf("web", "serve failed: %v", err)
	}()
	return nil
}

// ListenAddr is the bound address, or "" before Start.
func (s *HTTPServer) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *HTTPServer) Stop() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Serve starts the server and shuts it down when ctx is done.
func (s *HTTPServer) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	if err := s.Stop(); err != nil {
		logging.OrNoop(s.Logger).Errorf("web", "shutdown failed: %v", err)
	}
	return ctx.Err()
}
