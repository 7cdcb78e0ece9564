package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"videotube/backend/internal/server/interceptors"
)

// Health check methods are callable without an access token and are not logged.
var healthMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
}

// NewGRPCServer returns a gRPC server with tracing, request logging and access-token
// authentication on every unary call, and the standard health service registered.
// Collaborator services registered on the returned server inherit the interceptors.
func NewGRPCServer(auth interceptors.TokenAuthenticator, logger *slog.Logger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.LoggingUnary(logger, healthMethods),
			interceptors.AuthUnary(auth, healthMethods),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}
