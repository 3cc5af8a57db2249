package health

import (
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewGRPCServer returns a gRPC server exposing the standard health service.
// Its overall serving status follows the checker.
func NewGRPCServer(c *Checker) (*grpc.Server, *grpchealth.Server) {
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	Mirror(c, hs)
	return srv, hs
}

// Mirror keeps the gRPC health status in sync with the checker
func Mirror(c *Checker, hs *grpchealth.Server) {
	set := func(healthy bool) {
		status := healthpb.HealthCheckResponse_SERVING
		if !healthy {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}
	set(c.IsSystemHealthy())
	c.OnChange(set)
}
