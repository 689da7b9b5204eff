package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/logging"
)

const (
	shutdownTimeout = 5 * time.Second
	evictInterval   = time.Minute
)

type Server struct {
	addr    string
	handler *Handler
	logger  logging.Logger
}

func NewServer(addr string, handler *Handler, logger logging.Logger) *Server {
	return &Server{addr: addr, handler: handler, logger: logger.With("module", "http")}
}

// Run serves until ctx is canceled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go s.evictLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server started", "addr", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "http server stopping")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) evictLoop(ctx context.Context) {
	t := time.NewTicker(evictInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.handler.limiter.EvictStale(); n > 0 {
				s.logger.Debug(ctx, "evicted idle rate limiters", "count", n)
			}
		}
	}
}
