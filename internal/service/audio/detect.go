package audio

import (
	"math"

	"narration-timeline-service/internal/models"
)

// floorEps floors x while tolerating binary representation error, so that
// 0.3/0.01 counts as 30 windows rather than 29.
func floorEps(x float64) int {
	return int(math.Floor(x + 1e-9))
}

// Detect returns contiguous frame boundaries covering the whole buffer.
// An empty buffer yields no boundaries; a buffer with zero peak yields one.
func (s *Segmenter) Detect(buf Buffer) []models.Boundary {
	samples := buf.mono()
	n := len(samples)
	if n == 0 {
		return nil
	}

	maxAmp := peak(samples)
	if maxAmp == 0 {
		return []models.Boundary{{StartFrame: 0, EndFrame: n}}
	}
	level := float64(maxAmp) * clamp01(s.cfg.SilenceThreshold)

	windowFrames := floorEps(float64(buf.SampleRate) * s.cfg.WindowDuration)
	if windowFrames < 1 {
		windowFrames = 1
	}
	minSilentWindows := floorEps(s.cfg.MinSilenceDuration / s.cfg.WindowDuration)
	if minSilentWindows < 1 {
		minSilentWindows = 1
	}

	cuts := []int{0}
	runStart := -1
	for w, start := 0, 0; start < n; w, start = w+1, start+windowFrames {
		end := start + windowFrames
		if end > n {
			end = n
		}
		if float64(peak(samples[start:end])) <= level {
			if runStart < 0 {
				runStart = w
			}
			continue
		}
		// A silent run only splits once speech resumes.
		if runStart >= 0 && w-runStart >= minSilentWindows {
			if frame := runStart * windowFrames; frame > 0 && frame < n {
				cuts = append(cuts, frame)
			}
		}
		runStart = -1
	}
	cuts = append(cuts, n)

	var segments []models.Boundary
	for i := 0; i+1 < len(cuts); i++ {
		if cuts[i+1] > cuts[i] {
			segments = append(segments, models.Boundary{StartFrame: cuts[i], EndFrame: cuts[i+1]})
		}
	}

	return mergeShort(segments, floorEps(s.cfg.MinSegmentDuration*float64(buf.SampleRate)))
}

// mergeShort folds segments shorter than minFrames into their successor; a
// short final segment is folded into its predecessor.
func mergeShort(segments []models.Boundary, minFrames int) []models.Boundary {
	if minFrames <= 0 || len(segments) < 2 {
		return segments
	}

	merged := make([]models.Boundary, 0, len(segments))
	cur := segments[0]
	for _, next := range segments[1:] {
		if cur.Frames() < minFrames {
			cur.EndFrame = next.EndFrame
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	merged = append(merged, cur)

	if last := len(merged) - 1; last >= 1 && merged[last].Frames() < minFrames {
		merged[last-1].EndFrame = merged[last].EndFrame
		merged = merged[:last]
	}
	return merged
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
