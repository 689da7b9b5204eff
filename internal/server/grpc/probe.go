package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/server/metrics"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func (s *HealthServer) probeLoop(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.probe(ctx)
		}
	}
}

// probe pings the ledger once and publishes the result for both the overall
// server and the named service.
func (s *HealthServer) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	up := 1.0
	if err := s.ledger.Ping(pctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		status = healthpb.HealthCheckResponse_NOT_SERVING
		up = 0
		s.logger.Warn(ctx, "ledger unreachable", "error", err.Error())
	}

	metrics.LedgerUp.Set(up)
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(common.ServiceName, status)
}
