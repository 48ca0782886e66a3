package models

// ScriptSegment is one independently authored script unit with a declared duration.
type ScriptSegment struct {
	SegmentID  string         `json:"segment_id"`
	Duration   float64        `json:"duration"`
	Content    string         `json:"content"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Script is an ordered list of script segments.
type Script struct {
	Title    string          `json:"title,omitempty"`
	Segments []ScriptSegment `json:"segments"`
}

// TimelineSegment is one entry of a timeline plan.
type TimelineSegment struct {
	SegmentID string           `json:"segment_id"`
	Start     float64          `json:"start"`
	End       float64          `json:"end"`
	ScriptRef map[string]any   `json:"script_ref"`
	Assets    []map[string]any `json:"assets"`
	Effects   []map[string]any `json:"effects"`
}

// TimelinePlan is the render-ready, contiguous segment list for video composition.
type TimelinePlan struct {
	TotalDuration float64           `json:"total_duration"`
	Segments      []TimelineSegment `json:"segments"`
	Notes         string            `json:"notes,omitempty"`
}
