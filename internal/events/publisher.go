// Package events publishes pipeline results to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/observability/metrics"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event publisher closed")

// Publisher publishes run events to two Kafka topics: content events
// (segments, transcripts, slides, failures) and plan events.
type Publisher struct {
	writerContent *kafka.Writer
	writerPlan    *kafka.Writer
	principal     string
	topicContent  string
	topicPlan     string
	enabled       bool
	metrics       *metrics.Metrics
	now           func() time.Time
	closed        atomic.Bool
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicContent string
	TopicPlan    string
	Principal    string
	Enabled      bool
}

// New creates a Kafka publisher. A nil or disabled config yields a
// log-only publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{enabled: false, metrics: m, now: time.Now}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:    cfg.Principal,
			topicContent: cfg.TopicContent,
			topicPlan:    cfg.TopicPlan,
			enabled:      false,
			metrics:      m,
			now:          time.Now,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{Dial: dialer.DialFunc}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicContent", cfg.TopicContent).
		Str("topicPlan", cfg.TopicPlan).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerContent: newWriter(cfg.Brokers, cfg.TopicContent, transport),
		writerPlan:    newWriter(cfg.Brokers, cfg.TopicPlan, transport),
		principal:     cfg.Principal,
		topicContent:  cfg.TopicContent,
		topicPlan:     cfg.TopicPlan,
		enabled:       true,
		metrics:       m,
		now:           time.Now,
	}
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Publish wraps payload in an Event envelope keyed by runID and routes it
// to the plan topic for plan events and the content topic otherwise.
func (p *Publisher) Publish(ctx context.Context, runID, eventType string, payload any) error {
	if p.closed.Load() {
		return ErrClosed
	}
	event := p.Envelope(runID, eventType, payload)
	if eventType == models.EventPlanCreated {
		return p.publish(ctx, p.writerPlan, p.topicPlan, event)
	}
	return p.publish(ctx, p.writerContent, p.topicContent, event)
}

// Envelope builds the event written for payload.
func (p *Publisher) Envelope(runID, eventType string, payload any) models.Event {
	return models.Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		RunID:     runID,
		Timestamp: p.now().UnixMilli(),
		Payload:   payload,
	}
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic string, event models.Event) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("runId", event.RunID).
		Str("eventType", event.EventType).
		Int("bytes", len(payload)).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, event.EventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.EventType)},
			{Key: "eventId", Value: []byte(event.EventID)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("runId", event.RunID).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, event.EventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, event.EventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers. Later calls to Publish fail with
// ErrClosed, so it must run after in-flight requests have drained.
func (p *Publisher) Close() error {
	if p == nil || p.closed.Swap(true) {
		return nil
	}
	var err error
	if p.writerContent != nil {
		if e := p.writerContent.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing content writer")
			err = e
		}
	}
	if p.writerPlan != nil {
		if e := p.writerPlan.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing plan writer")
			err = e
		}
	}
	return err
}
