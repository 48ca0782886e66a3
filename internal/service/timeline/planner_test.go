package timeline

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
)

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	p, err := NewPlanner(DefaultSegmentDuration)
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	return p
}

func script(durations ...float64) models.Script {
	s := models.Script{}
	for i, d := range durations {
		s.Segments = append(s.Segments, models.ScriptSegment{
			SegmentID: []string{"intro", "body", "outro", "extra"}[i%4],
			Duration:  d,
			Content:   "content",
		})
	}
	return s
}

func assertContiguous(t *testing.T, plan *models.TimelinePlan) {
	t.Helper()
	if plan.Segments[0].Start != 0 {
		t.Errorf("plan starts at %v", plan.Segments[0].Start)
	}
	for i := 1; i < len(plan.Segments); i++ {
		if plan.Segments[i].Start != plan.Segments[i-1].End {
			t.Errorf("segment %d starts at %v, previous ends at %v", i, plan.Segments[i].Start, plan.Segments[i-1].End)
		}
		if plan.Segments[i].End < plan.Segments[i].Start {
			t.Errorf("segment %d ends before it starts", i)
		}
	}
	if last := plan.Segments[len(plan.Segments)-1]; last.End != plan.TotalDuration {
		t.Errorf("last segment ends at %v, total is %v", last.End, plan.TotalDuration)
	}
}

func TestPlan_ScalesToAudio(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.Plan(script(30, 60, 45), 120.0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.TotalDuration != 120.0 {
		t.Errorf("expected total 120, got %v", plan.TotalDuration)
	}
	if len(plan.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(plan.Segments))
	}
	ids := []string{plan.Segments[0].SegmentID, plan.Segments[1].SegmentID, plan.Segments[2].SegmentID}
	if diff := cmp.Diff([]string{"intro", "body", "outro"}, ids); diff != "" {
		t.Errorf("order mismatch: %s", diff)
	}
	if plan.Segments[2].End != 120.0 {
		t.Errorf("expected last end 120, got %v", plan.Segments[2].End)
	}
	assertContiguous(t, plan)

	// Ratios 30:60:45 survive scaling.
	d0 := plan.Segments[0].End - plan.Segments[0].Start
	d1 := plan.Segments[1].End - plan.Segments[1].Start
	d2 := plan.Segments[2].End - plan.Segments[2].Start
	if math.Abs(d1/d0-2) > 1e-9 || math.Abs(d2/d0-1.5) > 1e-9 {
		t.Errorf("ratios not preserved: %v %v %v", d0, d1, d2)
	}
}

func TestPlan_Fallback(t *testing.T) {
	p := newTestPlanner(t)

	tests := []struct {
		name   string
		script models.Script
		audio  float64
	}{
		{"empty script no audio", models.Script{}, 0},
		{"empty script with audio", models.Script{}, 42},
		{"only zero durations", script(0, 0), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := p.Plan(tt.script, tt.audio, "note")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := &models.TimelinePlan{
				TotalDuration: 15,
				Segments: []models.TimelineSegment{{
					SegmentID: "seg_1",
					Start:     0,
					End:       15,
					ScriptRef: map[string]any{},
					Assets:    []map[string]any{},
					Effects:   []map[string]any{},
				}},
				Notes: "note",
			}
			if diff := cmp.Diff(want, plan); diff != "" {
				t.Errorf("plan mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlan_NonPositiveDeclaredGetsZeroLength(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.Plan(script(10, 0, 10), 40, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := plan.Segments[1].End - plan.Segments[1].Start; got != 0 {
		t.Errorf("expected zero-length middle segment, got %v", got)
	}
	if plan.Segments[0].End != 20 {
		t.Errorf("expected first segment to end at 20, got %v", plan.Segments[0].End)
	}
	assertContiguous(t, plan)
}

func TestPlan_UnmeasuredAudioUsesDeclared(t *testing.T) {
	p := newTestPlanner(t)

	plan, err := p.Plan(script(5, 7), 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.TotalDuration != 12 || plan.Segments[0].End != 5 {
		t.Errorf("expected declared layout, got %+v", plan)
	}
	assertContiguous(t, plan)
}

func TestPlan_ScriptRefAndEmptyCollections(t *testing.T) {
	p := newTestPlanner(t)
	s := models.Script{Segments: []models.ScriptSegment{{
		Duration:   3,
		Content:    "hello",
		Attributes: map[string]any{"visual_tags": []any{"chart"}},
	}}}

	plan, err := p.Plan(s, 6, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seg := plan.Segments[0]
	want := map[string]any{"segment_id": "seg_1", "content": "hello", "duration": 3.0, "visual_tags": []any{"chart"}}
	if diff := cmp.Diff(want, seg.ScriptRef); diff != "" {
		t.Errorf("script ref mismatch (-want +got):\n%s", diff)
	}
	if seg.Assets == nil || seg.Effects == nil || len(seg.Assets) != 0 || len(seg.Effects) != 0 {
		t.Errorf("expected empty non-nil assets and effects, got %v %v", seg.Assets, seg.Effects)
	}
}

func TestPlan_ConfigurationErrors(t *testing.T) {
	if _, err := NewPlanner(0); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for zero default, got %v", err)
	}
	if _, err := newTestPlanner(t).Plan(script(1), -1, ""); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for negative audio, got %v", err)
	}
}
