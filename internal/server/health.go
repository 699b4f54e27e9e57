package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Health service names published next to the overall "" status.
const (
	HealthExtraction    = "extraction"
	HealthAnonymization = "anonymization"
	HealthRestructuring = "restructuring"
)

// HealthServer publishes component availability over grpc.health.v1.
type HealthServer struct {
	hs     *health.Server
	status StatusProvider
	logger *slog.Logger
}

func NewHealthServer(status StatusProvider, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	hs := health.NewServer()
	for _, svc := range []string{"", HealthExtraction, HealthAnonymization, HealthRestructuring} {
		hs.SetServingStatus(svc, healthpb.HealthCheckResponse_UNKNOWN)
	}
	return &HealthServer{hs: hs, status: status, logger: logger}
}

// NewGRPCServer returns a gRPC server with the health service and reflection
// (for grpcurl) registered.
func NewGRPCServer(h *HealthServer, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.hs)
	reflection.Register(s)
	return s
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Refresh re-reads component availability. The overall status follows
// extraction alone, since the other phases degrade without failing documents.
func (h *HealthServer) Refresh(ctx context.Context) {
	st := h.status.ServiceStatus(ctx)
	h.hs.SetServingStatus(HealthExtraction, servingStatus(st.Extractor.Available))
	h.hs.SetServingStatus(HealthAnonymization, servingStatus(st.Anonymizer.Available))
	h.hs.SetServingStatus(HealthRestructuring, servingStatus(st.Restructurer.Available))
	h.hs.SetServingStatus("", servingStatus(st.Extractor.Available))
	h.logger.Debug("health.refresh",
		"extraction", st.Extractor.Available,
		"anonymization", st.Anonymizer.Available,
		"restructuring", st.Restructurer.Available,
	)
}

// Run refreshes every interval until ctx is done.
func (h *HealthServer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	h.Refresh(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.Refresh(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING.
func (h *HealthServer) Shutdown() {
	h.hs.Shutdown()
}
