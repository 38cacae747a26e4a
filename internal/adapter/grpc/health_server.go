package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-check service reported alongside the server-wide "" entry.
const ServiceName = "oms.OrderService"

// HealthServer exposes the standard gRPC health protocol for the order API.
type HealthServer struct {
	srv *grpc.Server
	hs  *health.Server
	log *slog.Logger
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	if log == nil {
		log = slog.Default()
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	h := &HealthServer{srv: srv, hs: hs, log: log}
	h.SetServing(false)
	return h
}

func (h *HealthServer) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ServiceName, st)
}

// Serve blocks until Stop is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	return h.srv.Serve(lis)
}

// Watch runs probe every interval and reports its outcome as the serving
// status until ctx is cancelled.
func (h *HealthServer) Watch(ctx context.Context, interval time.Duration, probe func(ctx context.Context) error) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := probe(pctx)
		if err != nil && ctx.Err() == nil {
			h.log.Warn("health probe failed", "err", err)
		}
		h.SetServing(err == nil)
	}

	check()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}

func (h *HealthServer) Stop() {
	h.hs.Shutdown()
	h.srv.GracefulStop()
}
