package slides

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"narration-timeline-service/internal/errs"
	"narration-timeline-service/internal/models"
)

type seg struct {
	speaker string
	text    string
	dur     float64
}

func transcript(in ...seg) models.TranscriptInfo {
	info := models.TranscriptInfo{}
	t := 0.0
	for i, s := range in {
		info.Segments = append(info.Segments, models.TranscriptSegment{
			ID:        i + 1,
			Speaker:   s.speaker,
			Text:      s.text,
			StartTime: t,
			EndTime:   t + s.dur,
			KeyPoints: []string{},
		})
		t += s.dur
	}
	info.TotalDuration = t
	return info
}

func sourceIDs(slides []models.SlideContent) []int {
	var ids []int
	for _, s := range slides {
		ids = append(ids, s.SourceSegments...)
	}
	return ids
}

func TestSplit_PacksBySpeakerAndChars(t *testing.T) {
	info := transcript(
		seg{"A", "hello", 1},
		seg{"A", "world", 1},
		seg{"B", "next speaker", 2},
		seg{"B", "more words here", 2},
	)

	slides, err := NewSplitter().Split(info, SplitOptions{MaxCharsPerSlide: MaxChars(20)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []models.SlideContent{
		{SlideID: 1, Title: "hello", Text: "hello world", Speakers: []string{"A"}, SourceSegments: []int{1, 2}, KeyPoints: []string{}, ImageSuggestions: []string{}, Duration: 2},
		{SlideID: 2, Title: "next speaker", Text: "next speaker", Speakers: []string{"B"}, SourceSegments: []int{3}, KeyPoints: []string{}, ImageSuggestions: []string{}, Duration: 2},
		{SlideID: 3, Title: "more words here", Text: "more words here", Speakers: []string{"B"}, SourceSegments: []int{4}, KeyPoints: []string{}, ImageSuggestions: []string{}, Duration: 2},
	}
	if diff := cmp.Diff(want, slides); diff != "" {
		t.Errorf("slides mismatch (-want +got):\n%s", diff)
	}
}

func TestSplit_OversizedSegmentStandsAlone(t *testing.T) {
	long := strings.Repeat("x", 50)
	info := transcript(seg{"A", "hi", 1}, seg{"A", long, 5}, seg{"A", "bye", 1})

	slides, err := NewSplitter().Split(info, SplitOptions{MaxCharsPerSlide: MaxChars(10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(slides))
	}
	if slides[1].Text != long {
		t.Errorf("expected oversized segment untouched, got %q", slides[1].Text)
	}
}

func TestSplit_MaxSlideDuration(t *testing.T) {
	info := transcript(seg{"A", "a", 20}, seg{"A", "b", 15}, seg{"A", "c", 10})

	slides, err := NewSplitter().Split(info, SplitOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, sourceIDs(slides)); diff != "" {
		t.Errorf("source ids mismatch: %s", diff)
	}
	if len(slides) != 2 {
		t.Fatalf("expected 2 slides (20 | 15+10), got %d", len(slides))
	}
}

func TestSplit_OverflowPolicies(t *testing.T) {
	info := transcript(
		seg{"A", "one", 1}, seg{"B", "two", 1}, seg{"A", "three", 1}, seg{"B", "four", 1},
	)

	tests := []struct {
		name       string
		policy     OverflowPolicy
		wantSlides int
		wantErr    error
	}{
		{"merge into last", OverflowMerge, 2, nil},
		{"default merges", "", 2, nil},
		{"extend past cap", OverflowExtend, 4, nil},
		{"reject", OverflowReject, 0, errs.ErrSlideLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slides, err := NewSplitter().Split(info, SplitOptions{MaxSlides: 2, Overflow: tt.policy})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(slides) != tt.wantSlides {
				t.Fatalf("expected %d slides, got %d", tt.wantSlides, len(slides))
			}
			if diff := cmp.Diff([]int{1, 2, 3, 4}, sourceIDs(slides)); diff != "" {
				t.Errorf("segments lost or duplicated: %s", diff)
			}
		})
	}
}

func TestSplit_MergeKeepsSpeakersInOrder(t *testing.T) {
	info := transcript(seg{"A", "one", 1}, seg{"B", "two", 1}, seg{"C", "three", 1}, seg{"B", "four", 1})

	slides, err := NewSplitter().Split(info, SplitOptions{MaxSlides: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := slides[len(slides)-1]
	if diff := cmp.Diff([]string{"B", "C"}, last.Speakers); diff != "" {
		t.Errorf("speakers mismatch: %s", diff)
	}
	if last.Text != "two three four" {
		t.Errorf("unexpected merged text %q", last.Text)
	}
}

func TestSplit_InvalidOptions(t *testing.T) {
	info := transcript(seg{"A", "x", 1})

	tests := []struct {
		name string
		opts SplitOptions
	}{
		{"zero chars", SplitOptions{MaxCharsPerSlide: MaxChars(0)}},
		{"negative slides", SplitOptions{MaxSlides: -1}},
		{"negative duration", SplitOptions{MaxSlideDuration: -5}},
		{"unknown policy", SplitOptions{Overflow: "shrink"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSplitter().Split(info, tt.opts); !errors.Is(err, errs.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	slides, err := NewSplitter().Split(models.TranscriptInfo{}, SplitOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slides) != 0 {
		t.Errorf("expected no slides, got %d", len(slides))
	}
}

func TestSplit_KeyPointsDeduplicated(t *testing.T) {
	info := transcript(seg{"A", "one", 1}, seg{"A", "two", 1})
	info.Segments[0].KeyPoints = []string{"alpha", "beta"}
	info.Segments[1].KeyPoints = []string{"beta", "gamma"}

	slides, err := NewSplitter().Split(info, SplitOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "beta", "gamma"}, slides[0].KeyPoints); diff != "" {
		t.Errorf("key points mismatch: %s", diff)
	}
	if slides[0].Title != "alpha" {
		t.Errorf("expected title from first key point, got %q", slides[0].Title)
	}
}

func TestSplit_RandomTranscriptsCoverEverything(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	speakers := []string{"A", "B", "C"}
	sp := NewSplitter()

	for i := 0; i < 50; i++ {
		var in []seg
		for j := 0; j < 1+rng.Intn(30); j++ {
			in = append(in, seg{
				speaker: speakers[rng.Intn(len(speakers))],
				text:    strings.Repeat("w", 1+rng.Intn(80)),
				dur:     0.5 + rng.Float64()*12,
			})
		}
		info := transcript(in...)
		maxChars := 20 + rng.Intn(100)

		slides, err := sp.Split(info, SplitOptions{MaxCharsPerSlide: MaxChars(maxChars)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		total := 0.0
		for _, s := range slides {
			total += s.Duration
			if len([]rune(s.Text)) > maxChars && len(s.SourceSegments) != 1 {
				t.Errorf("slide %d has %d runes over %d from %d segments", s.SlideID, len([]rune(s.Text)), maxChars, len(s.SourceSegments))
			}
		}
		if math.Abs(total-info.TotalDuration) > 1e-6 {
			t.Errorf("slide durations %v != transcript total %v", total, info.TotalDuration)
		}
		if got := len(sourceIDs(slides)); got != len(info.Segments) {
			t.Errorf("covered %d segments, want %d", got, len(info.Segments))
		}
	}
}

func TestParseOverflowPolicy(t *testing.T) {
	for in, want := range map[string]OverflowPolicy{"": OverflowMerge, "MERGE": OverflowMerge, " extend ": OverflowExtend, "reject": OverflowReject} {
		got, err := ParseOverflowPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseOverflowPolicy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
