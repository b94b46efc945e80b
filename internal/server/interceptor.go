package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
)

// RequestIDHeader is the metadata key a caller may set to correlate logs.
const RequestIDHeader = "x-request-id"

// UnaryInterceptor tags every call with a request ID, maps domain errors to
// gRPC status codes and logs the call.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(RequestIDHeader); len(v) > 0 && v[0] != "" {
				ctx = common.WithRequestID(ctx, v[0])
			}
		}
		ctx, rid := common.EnsureRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, rid))

		start := time.Now()
		resp, err := handler(ctx, req)
		err = common.StatusFromError(err)

		code := status.Code(err)
		attrs := []any{"method", info.FullMethod, "code", code.String(), "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds()}
		if err != nil {
			logger.Warn("api.grpc.request", append(attrs, "error", err)...)
		} else {
			logger.Info("api.grpc.request", attrs...)
		}
		return resp, err
	}
}
