// Package server exposes the live view model over HTTP as JSON so kiosk and
// web displays can render it without talking to the backend themselves.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/mawaqit/internal/controller"
)

// Source is the controller surface the server reads and drives.
type Source interface {
	Snapshot() controller.ViewModel
	Select(city string)
	Subscribe(fn func(controller.ViewModel)) (unsubscribe func())
}

// CitySaver persists the selected city.
type CitySaver interface {
	SetSelectedCity(ctx context.Context, city string) error
}

// Server serves the view model feed.
type Server struct {
	addr    string
	src     Source
	saver   CitySaver
	origins []string
	now     func() time.Time
	log     zerolog.Logger
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithCitySaver persists cities selected through POST /api/city.
func WithCitySaver(s CitySaver) Option {
	return func(srv *Server) { srv.saver = s }
}

// WithAllowedOrigins sets the CORS origins. Without any, browsers get no
// cross-origin access.
func WithAllowedOrigins(origins ...string) Option {
	return func(srv *Server) { srv.origins = origins }
}

// WithLogger sets the request and lifecycle logger.
func WithLogger(l zerolog.Logger) Option {
	return func(srv *Server) { srv.log = l }
}

// WithClock replaces time.Now for the schedule endpoint.
func WithClock(now func() time.Time) Option {
	return func(srv *Server) { srv.now = now }
}

// New builds a Server listening on addr once Run is called.
func New(addr string, src Source, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		src:     src,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HTTPServer returns the configured *http.Server. WriteTimeout is left unset
// because /api/events streams.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := s.HTTPServer()
	// Streams end when ctx does, so Shutdown does not wait on them.
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("http feed listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info().Msg("http feed stopped")
	return <-errCh
}
