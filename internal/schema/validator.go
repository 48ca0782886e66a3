// Package schema checks stage outputs against their structural invariants
// before they leave the service.
package schema

import (
	"errors"
	"fmt"
	"math"

	"narration-timeline-service/internal/models"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("schema validation failed")

// tolerance absorbs floating point drift when comparing summed durations.
const tolerance = 1e-6

// Validator validates transcripts, slide sets and timeline plans.
type Validator struct{}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate dispatches on the concrete type of v.
func (v *Validator) Validate(doc any) error {
	switch d := doc.(type) {
	case *models.TranscriptInfo:
		return v.ValidateTranscript(*d)
	case models.TranscriptInfo:
		return v.ValidateTranscript(d)
	case *models.TimelinePlan:
		return v.ValidatePlan(*d)
	case models.TimelinePlan:
		return v.ValidatePlan(d)
	case *models.SplitResult:
		return v.ValidateSplit(*d)
	case models.SplitResult:
		return v.ValidateSplit(d)
	default:
		return fmt.Errorf("%w: unsupported document %T", ErrInvalid, doc)
	}
}

// ValidateTranscript checks ids, ordering, contiguity and the total.
func (v *Validator) ValidateTranscript(t models.TranscriptInfo) error {
	if len(t.Segments) == 0 {
		if t.TotalDuration != 0 {
			return fmt.Errorf("%w: empty transcript with total %.3f", ErrInvalid, t.TotalDuration)
		}
		return nil
	}
	for i, s := range t.Segments {
		if s.ID != i+1 {
			return fmt.Errorf("%w: segment %d has id %d", ErrInvalid, i, s.ID)
		}
		if s.Text == "" {
			return fmt.Errorf("%w: segment %d has empty text", ErrInvalid, s.ID)
		}
		if s.EndTime < s.StartTime {
			return fmt.Errorf("%w: segment %d ends before it starts", ErrInvalid, s.ID)
		}
		if i > 0 && s.StartTime != t.Segments[i-1].EndTime {
			return fmt.Errorf("%w: gap before segment %d", ErrInvalid, s.ID)
		}
	}
	span := t.Segments[len(t.Segments)-1].EndTime - t.Segments[0].StartTime
	if math.Abs(span-t.TotalDuration) > tolerance {
		return fmt.Errorf("%w: total %.6f does not match span %.6f", ErrInvalid, t.TotalDuration, span)
	}
	return nil
}

// ValidateSlides checks that slides cover every transcript segment exactly
// once, in order, and that their durations add up to the transcript total.
func (v *Validator) ValidateSlides(slides []models.SlideContent, t models.TranscriptInfo) error {
	next := 0
	total := 0.0
	for i, s := range slides {
		if s.SlideID != i+1 {
			return fmt.Errorf("%w: slide %d has id %d", ErrInvalid, i, s.SlideID)
		}
		if len(s.SourceSegments) == 0 {
			return fmt.Errorf("%w: slide %d has no source segments", ErrInvalid, s.SlideID)
		}
		for _, id := range s.SourceSegments {
			if next >= len(t.Segments) || t.Segments[next].ID != id {
				return fmt.Errorf("%w: slide %d references segment %d out of order", ErrInvalid, s.SlideID, id)
			}
			next++
		}
		total += s.Duration
	}
	if next != len(t.Segments) {
		return fmt.Errorf("%w: %d of %d segments not covered by slides", ErrInvalid, len(t.Segments)-next, len(t.Segments))
	}
	if math.Abs(total-t.TotalDuration) > tolerance {
		return fmt.Errorf("%w: slide durations %.6f do not match transcript %.6f", ErrInvalid, total, t.TotalDuration)
	}
	return nil
}

// ValidatePlan checks that plan segments tile [0, TotalDuration].
func (v *Validator) ValidatePlan(p models.TimelinePlan) error {
	if len(p.Segments) == 0 {
		return fmt.Errorf("%w: plan has no segments", ErrInvalid)
	}
	if p.Segments[0].Start != 0 {
		return fmt.Errorf("%w: plan starts at %.6f", ErrInvalid, p.Segments[0].Start)
	}
	for i, s := range p.Segments {
		if s.SegmentID == "" {
			return fmt.Errorf("%w: segment %d has no id", ErrInvalid, i)
		}
		if s.End < s.Start {
			return fmt.Errorf("%w: segment %s ends before it starts", ErrInvalid, s.SegmentID)
		}
		if i > 0 && s.Start != p.Segments[i-1].End {
			return fmt.Errorf("%w: segment %s overlaps or leaves a gap", ErrInvalid, s.SegmentID)
		}
		if s.Assets == nil || s.Effects == nil {
			return fmt.Errorf("%w: segment %s has nil assets or effects", ErrInvalid, s.SegmentID)
		}
	}
	if end := p.Segments[len(p.Segments)-1].End; end != p.TotalDuration {
		return fmt.Errorf("%w: plan ends at %.6f, total is %.6f", ErrInvalid, end, p.TotalDuration)
	}
	return nil
}

// ValidateSplit checks that split boundaries tile the buffer from frame 0.
func (v *Validator) ValidateSplit(r models.SplitResult) error {
	for i, b := range r.Boundaries {
		if b.StartFrame < 0 || b.EndFrame <= b.StartFrame {
			return fmt.Errorf("%w: boundary %d is empty or negative", ErrInvalid, i)
		}
		if i == 0 && b.StartFrame != 0 {
			return fmt.Errorf("%w: first boundary starts at frame %d", ErrInvalid, b.StartFrame)
		}
		if i > 0 && b.StartFrame != r.Boundaries[i-1].EndFrame {
			return fmt.Errorf("%w: gap before boundary %d", ErrInvalid, i)
		}
	}
	if len(r.Files) != len(r.Boundaries) {
		return fmt.Errorf("%w: %d files for %d boundaries", ErrInvalid, len(r.Files), len(r.Boundaries))
	}
	return nil
}
