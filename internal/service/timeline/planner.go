// Package timeline lays script segments out against measured narration audio.
package timeline

import (
	"fmt"
	"maps"

	"github.com/rs/zerolog"

	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/observability/logging"
	"narration-timeline-service/internal/observability/metrics"
)

// DefaultSegmentDuration is the fallback segment length in seconds.
const DefaultSegmentDuration = 15.0

// FallbackSegmentID names the single segment of a plan built without a script.
const FallbackSegmentID = "seg_1"

// Plan modes, also used as metric labels.
const (
	ModeScaled   = "scaled"
	ModeDeclared = "declared"
	ModeFallback = "fallback"
)

// Planner builds timeline plans. It holds no mutable state.
type Planner struct {
	defaultDuration float64
	log             zerolog.Logger
}

// NewPlanner returns a Planner whose fallback segment lasts defaultDuration
// seconds. A non-positive default is a configuration error.
func NewPlanner(defaultDuration float64) (*Planner, error) {
	if defaultDuration <= 0 {
		return nil, fmt.Errorf("%w: default segment duration must be positive, got %.3f", errs.ErrConfiguration, defaultDuration)
	}
	return &Planner{defaultDuration: defaultDuration, log: logging.WithComponent("planner")}, nil
}

// Plan scales the declared durations of script so that they span exactly
// audioDuration seconds, preserving their ratios. Segments with a
// non-positive declared duration get zero length. An empty script, or one
// with no positive durations, yields a single fallback segment. When the
// audio has not been measured (zero) the declared durations are used as is.
func (p *Planner) Plan(script models.Script, audioDuration float64, notes string) (*models.TimelinePlan, error) {
	if audioDuration < 0 {
		return nil, fmt.Errorf("%w: negative audio duration %.3f", errs.ErrConfiguration, audioDuration)
	}

	declared := 0.0
	for _, s := range script.Segments {
		if s.Duration > 0 {
			declared += s.Duration
		}
	}

	if len(script.Segments) == 0 || declared <= 0 {
		plan := &models.TimelinePlan{
			TotalDuration: p.defaultDuration,
			Segments: []models.TimelineSegment{{
				SegmentID: FallbackSegmentID,
				Start:     0,
				End:       p.defaultDuration,
				ScriptRef: map[string]any{},
				Assets:    []map[string]any{},
				Effects:   []map[string]any{},
			}},
			Notes: notes,
		}
		p.record(ModeFallback, plan, 0)
		return plan, nil
	}

	mode, scale, total := ModeScaled, audioDuration/declared, audioDuration
	if audioDuration == 0 {
		mode, scale, total = ModeDeclared, 1, declared
	}

	segments := make([]models.TimelineSegment, len(script.Segments))
	cursor := 0.0
	for i, s := range script.Segments {
		length := 0.0
		if s.Duration > 0 {
			length = s.Duration * scale
		}
		end := cursor + length
		if i == len(script.Segments)-1 {
			end = total
		}
		segments[i] = models.TimelineSegment{
			SegmentID: segmentID(s, i),
			Start:     cursor,
			End:       end,
			ScriptRef: scriptRef(s, i),
			Assets:    []map[string]any{},
			Effects:   []map[string]any{},
		}
		cursor = end
	}

	plan := &models.TimelinePlan{TotalDuration: total, Segments: segments, Notes: notes}
	p.record(mode, plan, scale)
	return plan, nil
}

func (p *Planner) record(mode string, plan *models.TimelinePlan, scale float64) {
	metrics.DefaultMetrics.RecordPlan(mode, len(plan.Segments), scale)
	p.log.Info().
		Str("mode", mode).
		Int("segmentCount", len(plan.Segments)).
		Float64("totalSec", plan.TotalDuration).
		Float64("scale", scale).
		Msg("Timeline planned")
}

func segmentID(s models.ScriptSegment, i int) string {
	if s.SegmentID != "" {
		return s.SegmentID
	}
	return fmt.Sprintf("seg_%d", i+1)
}

// scriptRef carries the originating segment to downstream renderers.
func scriptRef(s models.ScriptSegment, i int) map[string]any {
	ref := make(map[string]any, len(s.Attributes)+3)
	maps.Copy(ref, s.Attributes)
	ref["segment_id"] = segmentID(s, i)
	ref["content"] = s.Content
	ref["duration"] = s.Duration
	return ref
}
