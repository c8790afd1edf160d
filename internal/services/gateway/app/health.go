package app

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ControllerHealthService matches the service name the controller registers.
const ControllerHealthService = "greenhouse.Controller"

// HealthProbe asks the controller's gRPC health service for its status.
type HealthProbe struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

func NewHealthProbe(addr string) (*HealthProbe, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc client %s: %w", addr, err)
	}
	return &HealthProbe{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

// Status returns SERVING, NOT_SERVING, UNKNOWN or UNREACHABLE.
func (h *HealthProbe) Status(ctx context.Context) string {
	if h == nil {
		return "UNKNOWN"
	}
	resp, err := h.client.Check(ctx, &healthpb.HealthCheckRequest{Service: ControllerHealthService})
	if err != nil {
		return "UNREACHABLE"
	}
	return resp.GetStatus().String()
}

func (h *HealthProbe) Close() {
	if h != nil && h.conn != nil {
		_ = h.conn.Close()
	}
}
