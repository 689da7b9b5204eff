package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger reports whether the ledger RPC is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer exposes grpc.health.v1 with a status that follows the
// reachability of the ledger.
type HealthServer struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	ledger   Pinger
	interval time.Duration
}

const defaultProbeInterval = 15 * time.Second

func NewHealthServer(a string, l logging.Logger, ledger Pinger, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &HealthServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
		ledger:   ledger,
		interval: interval,
	}
}

func (s *HealthServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

func (s *HealthServer) Serve(ctx context.Context, listen net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)
	go s.probeLoop(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
