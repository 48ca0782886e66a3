package app

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"narration-timeline-service/internal/artifact"
	"narration-timeline-service/internal/config"
	"narration-timeline-service/internal/events"
	"narration-timeline-service/internal/observability/logging"
	"narration-timeline-service/internal/schema"
	"narration-timeline-service/internal/service/audio"
	"narration-timeline-service/internal/service/pipeline"
	"narration-timeline-service/internal/service/slides"
	"narration-timeline-service/internal/service/timeline"
	"narration-timeline-service/internal/service/transcript"
)

// Application holds process-wide state for the service: configuration and
// the timeline components shared by every transport.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Aligner   *transcript.Aligner
	Splitter  *slides.Splitter
	Planner   *timeline.Planner
	Validator *schema.Validator
	Publisher *events.Publisher
	Store     *artifact.Store
	Runner    *pipeline.Runner

	ready atomic.Bool
}

// New constructs an Application from cfg. It fails only on settings that
// have no safe default, such as an unknown overflow policy.
func New(cfg *config.Configuration) (*Application, error) {
	a := &Application{
		Cfg:    cfg,
		Logger: logging.WithComponent("application"),
	}

	if _, err := slides.ParseOverflowPolicy(cfg.Slides.Overflow); err != nil {
		return nil, err
	}
	if _, err := audio.NewSegmenter(a.SegmenterConfig()); err != nil {
		return nil, err
	}
	planner, err := timeline.NewPlanner(cfg.Planner.DefaultSegmentDuration)
	if err != nil {
		return nil, err
	}
	format, err := artifact.ParseFormat(cfg.Service.ArtifactFormat)
	if err != nil {
		return nil, err
	}
	store, err := artifact.NewStore(filepath.Join(cfg.Service.OutputRoot, "artifacts"), format)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}

	a.Aligner = transcript.NewAligner(transcript.Config{
		CharsPerSecond: cfg.Aligner.CharsPerSecond,
		MinRowDuration: cfg.Aligner.MinRowDuration,
	})
	a.Splitter = slides.NewSplitter()
	a.Planner = planner
	a.Validator = schema.New()
	a.Store = store
	a.Publisher = events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicContent: cfg.Kafka.TopicContent,
		TopicPlan:    cfg.Kafka.TopicPlan,
		Principal:    cfg.Kafka.Principal,
	})
	a.Runner = pipeline.NewRunner(pipeline.Deps{
		Segmenter: a.SegmenterConfig(),
		Aligner:   a.Aligner,
		Splitter:  a.Splitter,
		Planner:   a.Planner,
		Validator: a.Validator,
		Publisher: a.Publisher,
		Store:     a.Store,
	})

	a.Logger.Info().
		Str("method", "New").
		Str("outputRoot", cfg.Service.OutputRoot).
		Str("artifactFormat", string(format)).
		Bool("kafkaEnabled", cfg.Kafka.Enabled).
		Msg("Narration timeline application created")
	return a, nil
}

// SegmenterConfig maps the segmenter section of the configuration.
func (a *Application) SegmenterConfig() audio.Config {
	s := a.Cfg.Segmenter
	return audio.Config{
		MinSilenceDuration: s.MinSilence,
		SilenceThreshold:   s.Threshold,
		MinSegmentDuration: s.MinSegment,
		WindowDuration:     s.Window,
		StartIndex:         s.StartIndex,
	}
}

// SlideOptions returns the configured slide limits. A zero character limit
// means unbounded.
func (a *Application) SlideOptions() slides.SplitOptions {
	s := a.Cfg.Slides
	policy, _ := slides.ParseOverflowPolicy(s.Overflow)
	opts := slides.SplitOptions{
		MaxSlides:        s.MaxSlides,
		MaxSlideDuration: s.MaxSlideDuration,
		Overflow:         policy,
	}
	if s.MaxCharsPerSlide > 0 {
		opts.MaxCharsPerSlide = slides.MaxChars(s.MaxCharsPerSlide)
	}
	return opts
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.ready.Store(true)
	a.Logger.Info().
		Str("method", "Start").
		Time("startupTime", a.StartupTime).
		Msg("Narration timeline service starting")
	return nil
}

// Ready reports whether Start has run and MarkNotReady has not.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// MarkNotReady stops reporting ready so load balancers drain traffic.
// Components stay usable for requests already in flight.
func (a *Application) MarkNotReady() {
	a.ready.Store(false)
	a.Logger.Info().Str("method", "MarkNotReady").Msg("Narration timeline service draining")
}

// Close releases the event publisher. Call it only after the servers have
// finished in-flight requests.
func (a *Application) Close() {
	a.ready.Store(false)
	a.Logger.Info().Str("method", "Close").Msg("Narration timeline service shutting down")
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close event publisher")
	}
}
