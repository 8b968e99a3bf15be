package grpc

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("")
// status.
const ServiceName = "bazaar.Marketplace"

const (
	defaultCheckInterval = 10 * time.Second
	pingTimeout          = 3 * time.Second
)

// Pinger reports whether the backing store is reachable. *sql.DB implements
// it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// check pings the store once and publishes the result.
func (s *GRPCServer) check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING

	if s.pinger != nil {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.pinger.PingContext(pctx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "database ping failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return st
}

func (s *GRPCServer) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}
