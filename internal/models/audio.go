// Package models defines the data structures passed between the timeline stages.
package models

// Boundary is a half-open frame range [StartFrame, EndFrame) into a sample buffer.
type Boundary struct {
	StartFrame int `json:"start_frame"`
	EndFrame   int `json:"end_frame"`
}

// Frames returns the number of frames covered by the boundary.
func (b Boundary) Frames() int {
	return b.EndFrame - b.StartFrame
}

// AudioInfo describes one audio file, either a split segment or a whole clip.
type AudioInfo struct {
	FilePath   string  `json:"file_path"`
	Duration   float64 `json:"duration"` // seconds
	SampleRate int     `json:"sample_rate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
}

// SplitResult is the outcome of a silence split.
type SplitResult struct {
	SampleRate int         `json:"sample_rate"`
	Channels   int         `json:"channels"`
	Boundaries []Boundary  `json:"boundaries"`
	Files      []AudioInfo `json:"files"`
	DryRun     bool        `json:"dry_run"`
}
