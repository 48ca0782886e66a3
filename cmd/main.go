package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcapi "narration-timeline-service/internal/api/grpc"
	"narration-timeline-service/internal/app"
	"narration-timeline-service/internal/config"
	httpapi "narration-timeline-service/internal/http"
	"narration-timeline-service/internal/observability"
	"narration-timeline-service/internal/observability/logging"
	"narration-timeline-service/internal/observability/metrics"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("Failed to listen")
	}

	server := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)),
	)

	// Register gRPC health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	// Register application services
	grpcapi.Register(server, application)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(server)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(application),
		ReadHeaderTimeout: 5 * time.Second,
	}
	obsServer := observability.NewServer(cfg.Service.MetricsAddr, application.Ready)

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Startup failed")
	}
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Service.GRPCPort).Msg("Narration timeline gRPC server started")
		return server.Serve(lis)
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Service.HTTPPort).Msg("Narration timeline HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(obsServer.ListenAndServe)

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down servers")
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		application.MarkNotReady()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
		defer cancel()

		// Drain both servers before closing the publisher that runs use.
		stopped := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(stopped)
		}()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown incomplete")
		}
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			server.Stop()
		}
		application.Close()
		return obsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Shutdown complete")
}
