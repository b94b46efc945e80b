package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/payment-orchestrator/internal/app"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/server"
)

const (
	sessionIdle     = 30 * time.Minute
	artifactMaxAge  = 24 * time.Hour
	janitorInterval = 5 * time.Minute
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Logging)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		a.Close(context.Background())
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(server.UnaryInterceptor(logger)))

	svc := server.NewPaymentService(server.Deps{
		NewOrchestrator: a.NewOrchestrator,
		Registry:        a.Registry,
		Gateway:         a.Gateway,
		Payments:        a.API,
		Export:          a.Export,
	}, logger)
	server.RegisterPaymentServer(grpcServer, svc)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go janitor(ctx, svc, a, logger)

	if *configPath != "" {
		if inst, ok := a.Opener.(installedSetter); ok {
			err := common.WatchConfig(*configPath, logger, func(next *common.Config) {
				inst.SetInstalled(next.Platform.InstalledSchemes)
			})
			if err != nil {
				logger.Warn("config watch disabled", "error", err)
			}
		}
	}

	logger.Info("paymentd listening", "addr", cfg.Server.GRPCAddr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Orchestrator.FeedbackTimeout)
	defer cancel()
	a.Close(shutdownCtx)
}

// installedSetter is implemented by openers whose installed schemes come
// from configuration.
type installedSetter interface {
	SetInstalled(schemes []string)
}

// janitor drops idle sessions and stale QR PDFs until ctx ends.
func janitor(ctx context.Context, svc *server.PaymentService, a *app.App, logger *slog.Logger) {
	t := time.NewTicker(janitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			svc.Sweep(sessionIdle)
			if n, err := a.Artifacts.Cleanup(artifactMaxAge); err != nil {
				logger.Warn("artifact.cleanup.failed", "error", err)
			} else if n > 0 {
				logger.Info("artifact.cleanup", "removed", n)
			}
		}
	}
}
