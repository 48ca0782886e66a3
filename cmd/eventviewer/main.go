// Event Viewer - live view of timeline run events.
// Consumes the content and plan topics and relays them to websocket clients.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"narration-timeline-service/internal/config"
	"narration-timeline-service/internal/events"
	"narration-timeline-service/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", strings.Join(cfg.Kafka.Brokers, ","), "Kafka brokers (comma-separated)")
	topicContent := flag.String("topic-content", cfg.Kafka.TopicContent, "Content event topic")
	topicPlan := flag.String("topic-plan", cfg.Kafka.TopicPlan, "Plan event topic")
	since := flag.Duration("since", time.Hour, "Replay events newer than this")
	flag.Parse()

	logging.Init(logging.Config{Level: cfg.Observability.LogLevel, Format: "console"})
	if *brokers == "" {
		*brokers = "localhost:9092"
	}
	brokerList := strings.Split(*brokers, ",")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub()
	go hub.Run(ctx)

	for _, topic := range []string{*topicContent, *topicPlan} {
		reader := events.NewReader(ctx, brokerList, topic, *since)
		defer reader.Close()
		go events.Consume(ctx, reader, hub)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("port", *port).
		Strs("brokers", brokerList).
		Str("topicContent", *topicContent).
		Str("topicPlan", *topicPlan).
		Msg("Event viewer starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server error")
	}
}
