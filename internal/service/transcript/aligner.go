// Package transcript turns (speaker, text) rows into a contiguous, timestamped
// transcript, either from per-row audio clips or from one total duration.
package transcript

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/observability/logging"
	"narration-timeline-service/internal/observability/metrics"
)

// Alignment modes, also used as metric labels.
const (
	ModePerRow    = "per_row"
	ModeAggregate = "aggregate"
)

// DefaultSpeaker is used for rows with a blank speaker column.
const DefaultSpeaker = "Speaker"

// Row is one transcript input line.
type Row struct {
	Index   int // 1-based
	Speaker string
	Text    string
}

// Config holds the reading-speed heuristics.
type Config struct {
	CharsPerSecond float64 // estimate for rows without measured audio
	MinRowDuration float64 // seconds; floor for estimated rows
}

// DefaultConfig returns 6 chars/s and a one second floor.
func DefaultConfig() Config {
	return Config{CharsPerSecond: 6.0, MinRowDuration: 1.0}
}

// Source describes the audio that timings are derived from. When PerRow is
// non-empty it must have one entry per row; otherwise Total (or, failing
// that, a text-length estimate) is distributed across the rows.
type Source struct {
	Title  string
	PerRow []models.AudioInfo
	Total  *models.AudioInfo
}

// Aligner assigns timestamps to rows. It holds no mutable state.
type Aligner struct {
	cfg Config
	log zerolog.Logger
}

// NewAligner returns an Aligner. Non-positive settings fall back to defaults.
func NewAligner(cfg Config) *Aligner {
	def := DefaultConfig()
	if cfg.CharsPerSecond <= 0 {
		cfg.CharsPerSecond = def.CharsPerSecond
	}
	if cfg.MinRowDuration <= 0 {
		cfg.MinRowDuration = def.MinRowDuration
	}
	return &Aligner{cfg: cfg, log: logging.WithComponent("aligner")}
}

// Align picks per-row or aggregate mode from src.
func (a *Aligner) Align(rows []Row, src Source) (*models.TranscriptInfo, error) {
	var (
		info *models.TranscriptInfo
		err  error
	)
	if len(src.PerRow) > 0 {
		info, err = a.AlignPerRow(rows, src.PerRow)
	} else {
		total := 0.0
		if src.Total != nil {
			total = src.Total.Duration
		}
		info, err = a.AlignAggregate(rows, total)
	}
	if err != nil {
		return nil, err
	}

	info.Title = src.Title
	if src.Total != nil {
		info.SourceAudioPath = src.Total.FilePath
	}
	return info, nil
}

// AlignPerRow gives row i the duration of audio[i], laid end to end from 0.
// A zero duration is replaced by a text-length estimate. The counts must
// match even when there are no rows.
func (a *Aligner) AlignPerRow(rows []Row, audio []models.AudioInfo) (*models.TranscriptInfo, error) {
	if len(audio) != len(rows) {
		return nil, fmt.Errorf("%w: %d rows, %d audio clips", errs.ErrAlignmentMismatch, len(rows), len(audio))
	}
	if len(rows) == 0 {
		return emptyTranscript(), nil
	}

	durations := make([]float64, len(rows))
	for i, clip := range audio {
		switch {
		case clip.Duration < 0:
			return nil, fmt.Errorf("%w: negative duration %.3fs for %s", errs.ErrConfiguration, clip.Duration, clip.FilePath)
		case clip.Duration == 0:
			durations[i] = a.estimate(rows[i].Text)
			a.log.Debug().Int("row", i+1).Float64("estimatedSec", durations[i]).Msg("Row audio has no duration, estimating from text")
		default:
			durations[i] = clip.Duration
		}
	}

	return a.build(rows, durations, ModePerRow), nil
}

// AlignAggregate distributes total across rows, proportional to text length
// above a common floor. With N rows, weights w_i = max(runes_i, 1) summing to
// W and floor b = min(MinRowDuration, total/2N), row i gets
// b + (total - N*b) * w_i / W. The last row absorbs rounding so the sum is
// exactly total. A zero total is estimated from the text.
func (a *Aligner) AlignAggregate(rows []Row, total float64) (*models.TranscriptInfo, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: negative total duration %.3fs", errs.ErrConfiguration, total)
	}
	if len(rows) == 0 {
		return emptyTranscript(), nil
	}

	n := len(rows)
	weights := make([]float64, n)
	chars, weightSum := 0, 0.0
	for i, r := range rows {
		c := textLen(r.Text)
		chars += c
		weights[i] = float64(max(c, 1))
		weightSum += weights[i]
	}

	if total == 0 {
		if chars > 0 {
			total = float64(chars) / a.cfg.CharsPerSecond
		} else {
			total = float64(n) * a.cfg.MinRowDuration
		}
		a.log.Debug().Float64("estimatedTotalSec", total).Msg("No total duration, estimating from text")
	}

	floor := min(a.cfg.MinRowDuration, total/float64(2*n))
	spread := total - float64(n)*floor

	durations := make([]float64, n)
	allotted := 0.0
	for i := 0; i < n-1; i++ {
		durations[i] = floor + spread*weights[i]/weightSum
		allotted += durations[i]
	}
	durations[n-1] = total - allotted

	info := a.build(rows, durations, ModeAggregate)
	info.Segments[n-1].EndTime = total
	info.TotalDuration = total
	return info, nil
}

func (a *Aligner) build(rows []Row, durations []float64, mode string) *models.TranscriptInfo {
	start := time.Now()
	segments := make([]models.TranscriptSegment, len(rows))
	current := 0.0
	for i, r := range rows {
		id := r.Index
		if id <= 0 {
			id = i + 1
		}
		speaker := r.Speaker
		if speaker == "" {
			speaker = DefaultSpeaker
		}
		segments[i] = models.TranscriptSegment{
			ID:        id,
			Speaker:   speaker,
			Text:      r.Text,
			StartTime: current,
			EndTime:   current + durations[i],
			KeyPoints: []string{},
		}
		current += durations[i]
	}

	info := &models.TranscriptInfo{
		Segments:      segments,
		TotalDuration: current,
	}

	metrics.DefaultMetrics.RecordAlignment(mode, len(rows), current)
	a.log.Info().
		Str("mode", mode).
		Int("rowCount", len(rows)).
		Float64("totalSec", current).
		Dur("elapsed", time.Since(start)).
		Msg("Transcript aligned")
	return info
}

func (a *Aligner) estimate(text string) float64 {
	return max(a.cfg.MinRowDuration, float64(textLen(text))/a.cfg.CharsPerSecond)
}

// textLen counts runes after NFC so composed and decomposed kana weigh the same.
func textLen(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}

func emptyTranscript() *models.TranscriptInfo {
	return &models.TranscriptInfo{Segments: []models.TranscriptSegment{}}
}
