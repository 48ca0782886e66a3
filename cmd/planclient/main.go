// Plan client - sends a script file to TimelineService.PlanTimeline and
// prints the returned plan.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"narration-timeline-service/internal/api"
	grpcapi "narration-timeline-service/internal/api/grpc"
	"narration-timeline-service/internal/observability/logging"
	"narration-timeline-service/internal/service/timeline"
)

func main() {
	serverAddr := flag.String("server", "localhost:50061", "gRPC server address")
	scriptPath := flag.String("script", "", "Path to a script JSON file")
	audioPath := flag.String("audio", "", "Audio file whose duration the plan spans, relative to the server INPUT_ROOT")
	duration := flag.Float64("duration", 0, "Audio duration in seconds when -audio is not given")
	notes := flag.String("notes", "", "Free-form plan notes")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	flag.Parse()

	logging.InitWriter(logging.Config{Level: "info", Format: "console"}, os.Stderr)

	if *scriptPath == "" {
		log.Fatal().Msg("-script is required")
	}
	script, err := timeline.LoadScript(*scriptPath)
	if err != nil {
		log.Fatal().Err(err).Str("script", *scriptPath).Msg("Failed to load script")
	}

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	health, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: grpcapi.ServiceName})
	if err != nil {
		log.Fatal().Err(err).Str("server", *serverAddr).Msg("Health check failed")
	}
	log.Info().Str("server", *serverAddr).Str("status", health.GetStatus().String()).Msg("Connected")

	var resp api.PlanTimelineResponse
	err = grpcapi.Invoke(ctx, conn, grpcapi.MethodPlanTimeline, api.PlanTimelineRequest{
		Script:        &script,
		AudioPath:     *audioPath,
		AudioDuration: *duration,
		Notes:         *notes,
	}, &resp)
	if err != nil {
		log.Fatal().Err(err).Msg("PlanTimeline failed")
	}

	log.Info().
		Str("runId", resp.RunID).
		Int("segmentCount", len(resp.Plan.Segments)).
		Float64("totalDuration", resp.Plan.TotalDuration).
		Msg("Plan received")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp.Plan); err != nil {
		log.Fatal().Err(err).Msg("Failed to print plan")
	}
}
