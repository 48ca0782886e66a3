package transcript

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"narration-timeline-service/internal/models"
)

const (
	maxCueRunes      = 50
	minCueSeconds    = 1.0
	cueRunesPerSec   = 15.0
	cueOverlapGapSec = 0.1
)

var (
	cueBrackets   = regexp.MustCompile(`[「」『』【】〈〉《》]`)
	cueWhitespace = regexp.MustCompile(`\s+`)
	cueSentence   = regexp.MustCompile(`[。！？]`)
)

type cue struct {
	start, end float64
	text       string
}

// WriteSRT writes one SubRip cue per transcript segment.
func WriteSRT(w io.Writer, info models.TranscriptInfo) error {
	bw := bufio.NewWriter(w)
	for i, c := range optimizeCues(info.Segments) {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1,
			cueTimestamp(c.start, ","), cueTimestamp(c.end, ","), c.text)
	}
	return bw.Flush()
}

// WriteVTT writes the transcript as WebVTT.
func WriteVTT(w io.Writer, info models.TranscriptInfo) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("WEBVTT\n\n")
	for _, c := range optimizeCues(info.Segments) {
		fmt.Fprintf(bw, "%s --> %s\n%s\n\n",
			cueTimestamp(c.start, "."), cueTimestamp(c.end, "."), c.text)
	}
	return bw.Flush()
}

// optimizeCues keeps every cue on screen for at least a second and long
// enough to read at 15 runes per second. Where a cue then runs into the
// next one, it is cut to end 100ms before the next starts, unless that
// would leave it ending at or before its own start.
func optimizeCues(segs []models.TranscriptSegment) []cue {
	cues := make([]cue, 0, len(segs))
	for _, seg := range segs {
		c := cue{start: seg.StartTime, end: seg.EndTime, text: cueText(seg.Text)}
		if c.end-c.start < minCueSeconds {
			c.end = c.start + minCueSeconds
		}
		if reading := float64(utf8.RuneCountInString(c.text)) / cueRunesPerSec; reading > c.end-c.start {
			c.end = c.start + reading
		}
		cues = append(cues, c)
	}

	for i := 1; i < len(cues); i++ {
		prev := &cues[i-1]
		if next := cues[i].start; next < prev.end {
			if trimmed := next - cueOverlapGapSec; trimmed > prev.start {
				prev.end = trimmed
			}
		}
	}
	return cues
}

// cueTimestamp formats seconds as HH:MM:SS<sep>mmm.
func cueTimestamp(seconds float64, sep string) string {
	ms := int64(math.Round(math.Max(seconds, 0) * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms%1000)
}

// cueText strips decorative brackets, collapses whitespace and shortens long
// lines to their first sentence, or 47 runes plus "...".
func cueText(text string) string {
	cleaned := cueBrackets.ReplaceAllString(text, "")
	cleaned = cueWhitespace.ReplaceAllString(cleaned, " ")

	if utf8.RuneCountInString(cleaned) > maxCueRunes {
		sentences := cueSentence.Split(cleaned, -1)
		if len(sentences) > 1 && utf8.RuneCountInString(sentences[0]) <= maxCueRunes {
			cleaned = sentences[0]
			if cleaned != "" {
				cleaned += "。"
			}
		} else {
			cleaned = string([]rune(cleaned)[:maxCueRunes-3]) + "..."
		}
	}
	return strings.TrimSpace(cleaned)
}
