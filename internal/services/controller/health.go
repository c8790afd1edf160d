package controller

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC service name reported by the health server.
const HealthService = "greenhouse.Controller"

// HealthServer publishes the controller's serving status over gRPC.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	ready  func() bool
}

func NewHealthServer(ready func() bool) *HealthServer {
	h := &HealthServer{srv: grpc.NewServer(), health: health.NewServer(), ready: ready}
	healthpb.RegisterHealthServer(h.srv, h.health)
	h.set(false)
	return h
}

func (h *HealthServer) set(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(HealthService, st)
	h.health.SetServingStatus("", st)
}

// Serve listens on addr and refreshes the status every interval until ctx is done.
func (h *HealthServer) Serve(ctx context.Context, addr string, interval time.Duration) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", addr, err)
	}
	go h.watch(ctx, interval)
	go func() {
		<-ctx.Done()
		h.health.Shutdown()
		h.srv.GracefulStop()
	}()
	log.Printf("controller: gRPC health listening on %s", addr)
	return h.srv.Serve(lis)
}

func (h *HealthServer) watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		h.set(h.ready == nil || h.ready())
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
