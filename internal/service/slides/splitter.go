// Package slides packs transcript segments into slide-sized chunks.
package slides

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
	"narration-timeline-service/internal/observability/logging"
	"narration-timeline-service/internal/observability/metrics"
)

// DefaultMaxSlideDuration caps how many seconds of narration one slide holds.
const DefaultMaxSlideDuration = 30.0

// OverflowPolicy decides what happens to segments left over once MaxSlides
// slides exist.
type OverflowPolicy string

const (
	// OverflowMerge appends the remaining segments to the last slide.
	OverflowMerge OverflowPolicy = "merge"
	// OverflowExtend ignores the cap and keeps emitting slides.
	OverflowExtend OverflowPolicy = "extend"
	// OverflowReject fails with errs.ErrSlideLimitExceeded.
	OverflowReject OverflowPolicy = "reject"
)

// ParseOverflowPolicy maps a config string to a policy. Empty means merge.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return OverflowMerge, nil
	case OverflowMerge, OverflowExtend, OverflowReject:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown overflow policy %q", errs.ErrConfiguration, s)
	}
}

// SplitOptions are passed per call so concurrent splits never share limits.
type SplitOptions struct {
	MaxCharsPerSlide *int    // nil means unbounded
	MaxSlides        int     // 0 means unbounded
	MaxSlideDuration float64 // seconds, 0 means DefaultMaxSlideDuration
	Overflow         OverflowPolicy
}

// MaxChars is a convenience for building SplitOptions.MaxCharsPerSlide.
func MaxChars(n int) *int {
	return &n
}

// Splitter packs transcripts into slides. It holds no mutable state.
type Splitter struct {
	log zerolog.Logger
}

// NewSplitter returns a Splitter.
func NewSplitter() *Splitter {
	return &Splitter{log: logging.WithComponent("splitter")}
}

type pending struct {
	segments []models.TranscriptSegment
	runes    int
	duration float64
}

func (p *pending) add(s models.TranscriptSegment) {
	if len(p.segments) > 0 {
		p.runes++ // joining space
	}
	p.segments = append(p.segments, s)
	p.runes += utf8.RuneCountInString(s.Text)
	p.duration += s.Duration()
}

// Split greedily packs consecutive segments. A new slide starts before a
// segment when the joined text would exceed MaxCharsPerSlide, when the
// speaker changes or when the slide would run past MaxSlideDuration.
func (sp *Splitter) Split(info models.TranscriptInfo, opts SplitOptions) ([]models.SlideContent, error) {
	if opts.MaxCharsPerSlide != nil && *opts.MaxCharsPerSlide <= 0 {
		return nil, fmt.Errorf("%w: max chars per slide must be positive, got %d", errs.ErrConfiguration, *opts.MaxCharsPerSlide)
	}
	if opts.MaxSlides < 0 {
		return nil, fmt.Errorf("%w: negative max slides %d", errs.ErrConfiguration, opts.MaxSlides)
	}
	if opts.MaxSlideDuration < 0 {
		return nil, fmt.Errorf("%w: negative max slide duration %.3f", errs.ErrConfiguration, opts.MaxSlideDuration)
	}
	if opts.MaxSlideDuration == 0 {
		opts.MaxSlideDuration = DefaultMaxSlideDuration
	}
	policy, err := ParseOverflowPolicy(string(opts.Overflow))
	if err != nil {
		return nil, err
	}

	var (
		groups     [][]models.TranscriptSegment
		buf        pending
		overflowed bool
	)
	for _, seg := range info.Segments {
		if len(buf.segments) > 0 && sp.breaksBefore(&buf, seg, opts) {
			capped := opts.MaxSlides > 0 && len(groups)+1 >= opts.MaxSlides
			switch {
			case !capped:
				groups = append(groups, buf.segments)
				buf = pending{}
			case policy == OverflowMerge:
				overflowed = true
			case policy == OverflowExtend:
				overflowed = true
				groups = append(groups, buf.segments)
				buf = pending{}
			case policy == OverflowReject:
				metrics.DefaultMetrics.RecordSlideOverflow(string(policy))
				return nil, fmt.Errorf("%w: transcript needs more than %d slides", errs.ErrSlideLimitExceeded, opts.MaxSlides)
			}
		}
		buf.add(seg)
	}
	if len(buf.segments) > 0 {
		groups = append(groups, buf.segments)
	}

	slides := make([]models.SlideContent, len(groups))
	for i, g := range groups {
		slides[i] = buildSlide(i+1, g)
	}

	if overflowed {
		metrics.DefaultMetrics.RecordSlideOverflow(string(policy))
		sp.log.Warn().
			Int("maxSlides", opts.MaxSlides).
			Str("policy", string(policy)).
			Int("slideCount", len(slides)).
			Msg("Slide limit reached")
	}
	metrics.DefaultMetrics.RecordSlides(len(slides))
	sp.log.Info().
		Int("segmentCount", len(info.Segments)).
		Int("slideCount", len(slides)).
		Msg("Transcript split into slides")

	return slides, nil
}

func (sp *Splitter) breaksBefore(buf *pending, seg models.TranscriptSegment, opts SplitOptions) bool {
	if opts.MaxCharsPerSlide != nil && buf.runes+1+utf8.RuneCountInString(seg.Text) > *opts.MaxCharsPerSlide {
		return true
	}
	if seg.Speaker != buf.segments[len(buf.segments)-1].Speaker {
		return true
	}
	return buf.duration+seg.Duration() > opts.MaxSlideDuration
}

func buildSlide(id int, segs []models.TranscriptSegment) models.SlideContent {
	slide := models.SlideContent{
		SlideID:        id,
		Speakers:       []string{},
		SourceSegments: make([]int, 0, len(segs)),
		KeyPoints:      []string{},
	}

	texts := make([]string, 0, len(segs))
	seenSpeaker := map[string]bool{}
	seenPoint := map[string]bool{}
	for _, s := range segs {
		texts = append(texts, s.Text)
		slide.SourceSegments = append(slide.SourceSegments, s.ID)
		slide.Duration += s.Duration()
		if !seenSpeaker[s.Speaker] {
			seenSpeaker[s.Speaker] = true
			slide.Speakers = append(slide.Speakers, s.Speaker)
		}
		for _, kp := range s.KeyPoints {
			if !seenPoint[kp] {
				seenPoint[kp] = true
				slide.KeyPoints = append(slide.KeyPoints, kp)
			}
		}
	}
	slide.Text = strings.Join(texts, " ")
	slide.Title = slideTitle(segs[0].Text, slide.KeyPoints)
	slide.ImageSuggestions = imageSuggestions(slide.KeyPoints, slide.Text)
	return slide
}
