package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/observability/logging"
	"narration-timeline-service/internal/observability/metrics"
	"narration-timeline-service/internal/service/segment"
)

// Config tunes silence detection. Durations are in seconds.
type Config struct {
	MinSilenceDuration float64 // silence at least this long splits
	SilenceThreshold   float64 // fraction of peak amplitude, clamped to [0, 1]
	MinSegmentDuration float64 // shorter segments are merged into a neighbour
	WindowDuration     float64 // analysis window, <= 0 means 10ms
	StartIndex         int     // first output file number, clamped to 1
	DryRun             bool    // detect only, write nothing
}

// DefaultConfig returns the settings used for NotebookLM-style narration.
func DefaultConfig() Config {
	return Config{
		MinSilenceDuration: 0.7,
		SilenceThreshold:   0.02,
		MinSegmentDuration: 1.0,
		WindowDuration:     0.01,
		StartIndex:         1,
	}
}

// Segmenter splits PCM audio at long silences. It holds no mutable state;
// concurrent calls are safe as long as they write to different directories.
type Segmenter struct {
	cfg Config
	log zerolog.Logger
}

// NewSegmenter validates cfg and returns a Segmenter.
func NewSegmenter(cfg Config) (*Segmenter, error) {
	if cfg.MinSilenceDuration < 0 || cfg.MinSegmentDuration < 0 {
		return nil, fmt.Errorf("%w: negative silence or segment duration", errs.ErrConfiguration)
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = 0.01
	}
	cfg.SilenceThreshold = clamp01(cfg.SilenceThreshold)
	if cfg.StartIndex < 1 {
		cfg.StartIndex = 1
	}
	return &Segmenter{cfg: cfg, log: logging.WithComponent("segmenter")}, nil
}

// Config returns the normalised configuration.
func (s *Segmenter) Config() Config {
	return s.cfg
}

// SplitFile decodes inputPath and splits it into outDir.
func (s *Segmenter) SplitFile(inputPath, outDir string) (*models.SplitResult, error) {
	buf, err := Decode(inputPath)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("input", inputPath).
		Int("sampleRate", buf.SampleRate).
		Int("channels", buf.Channels).
		Float64("durationSec", buf.Duration()).
		Msg("Decoded input audio")
	return s.Split(buf, outDir)
}

// Split detects boundaries in buf and, unless DryRun is set, writes one
// 16-bit WAV per segment into outDir named 001.wav, 002.wav, ...
// Output files keep the input's channel layout.
func (s *Segmenter) Split(buf Buffer, outDir string) (*models.SplitResult, error) {
	start := time.Now()
	result := &models.SplitResult{
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
		Boundaries: []models.Boundary{},
		Files:      []models.AudioInfo{},
		DryRun:     s.cfg.DryRun,
	}

	if len(buf.Samples) > 0 {
		if buf.SampleRate <= 0 || buf.Channels <= 0 || len(buf.Samples)%buf.Channels != 0 {
			return nil, fmt.Errorf("%w: sample rate %d, channels %d, %d samples",
				errs.ErrUnsupportedFormat, buf.SampleRate, buf.Channels, len(buf.Samples))
		}
	}
	if buf.Frames() == 0 {
		s.log.Info().Msg("Empty audio buffer, nothing to split")
		return result, nil
	}

	result.Boundaries = s.Detect(buf)

	if !s.cfg.DryRun {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	names := segment.NewGenerator(s.cfg.StartIndex)
	for _, b := range result.Boundaries {
		_, name := names.Next()
		path := filepath.Join(outDir, name)
		info := models.AudioInfo{
			FilePath:   path,
			Duration:   float64(b.Frames()) / float64(buf.SampleRate),
			SampleRate: buf.SampleRate,
			Channels:   buf.Channels,
		}
		if !s.cfg.DryRun {
			if err := writeWAV(path, buf.SampleRate, buf.Channels, buf.Slice(b.StartFrame, b.EndFrame)); err != nil {
				return nil, err
			}
		}
		result.Files = append(result.Files, info)
	}

	written := len(result.Files)
	if s.cfg.DryRun {
		written = 0
	}
	metrics.DefaultMetrics.RecordSegmentation(len(result.Boundaries), written, buf.Duration())

	s.log.Info().
		Int("segmentCount", len(result.Boundaries)).
		Bool("dryRun", s.cfg.DryRun).
		Str("outDir", outDir).
		Dur("elapsed", time.Since(start)).
		Msg("Audio split complete")

	return result, nil
}
