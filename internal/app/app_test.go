package app

import (
	"context"
	"errors"
	"testing"

	"narration-timeline-service/internal/config"
	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/events"
	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/service/pipeline"
	"narration-timeline-service/internal/service/slides"
)

func testConfig(t *testing.T) *config.Configuration {
	t.Helper()
	t.Setenv("OUTPUT_ROOT", t.TempDir())
	t.Setenv("KAFKA_ENABLED", "false")
	return config.Load()
}

func TestNew_WiresComponents(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Runner == nil || a.Aligner == nil || a.Splitter == nil || a.Planner == nil || a.Store == nil || a.Publisher == nil {
		t.Fatalf("expected all components wired, got %+v", a)
	}
	if a.Ready() {
		t.Error("expected not ready before Start")
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !a.Ready() {
		t.Error("expected ready after Start")
	}
	a.MarkNotReady()
	if a.Ready() {
		t.Error("expected not ready after MarkNotReady")
	}
}

func TestDrainThenClose(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	job := pipeline.PlanJob{
		Script:        &models.Script{Segments: []models.ScriptSegment{{SegmentID: "a", Duration: 10}}},
		AudioDuration: 5,
	}

	a.MarkNotReady()
	if _, err := a.Runner.RunPlan(context.Background(), job); err != nil {
		t.Fatalf("in-flight run after MarkNotReady: %v", err)
	}

	a.Close()
	if _, err := a.Runner.RunPlan(context.Background(), job); !errors.Is(err, events.ErrClosed) {
		t.Errorf("expected run after Close to fail with ErrClosed, got %v", err)
	}
}

func TestNew_RejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		edit func(*config.Configuration)
	}{
		{"overflow", func(c *config.Configuration) { c.Slides.Overflow = "drop" }},
		{"planner default", func(c *config.Configuration) { c.Planner.DefaultSegmentDuration = 0 }},
		{"negative silence", func(c *config.Configuration) { c.Segmenter.MinSilence = -1 }},
		{"artifact format", func(c *config.Configuration) { c.Service.ArtifactFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.edit(cfg)
			_, err := New(cfg)
			if !errors.Is(err, errs.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestSlideOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Slides.MaxCharsPerSlide = 0
	cfg.Slides.MaxSlides = 5
	cfg.Slides.Overflow = "reject"
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	opts := a.SlideOptions()
	if opts.MaxCharsPerSlide != nil {
		t.Errorf("expected unbounded chars, got %d", *opts.MaxCharsPerSlide)
	}
	if opts.MaxSlides != 5 || opts.Overflow != slides.OverflowReject {
		t.Errorf("unexpected options %+v", opts)
	}

	a.Cfg.Slides.MaxCharsPerSlide = 120
	if got := a.SlideOptions().MaxCharsPerSlide; got == nil || *got != 120 {
		t.Errorf("expected 120 char limit, got %v", got)
	}
}
