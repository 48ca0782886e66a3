package models

// TranscriptSegment is one timestamped (speaker, text) unit derived from one input row.
type TranscriptSegment struct {
	ID        int      `json:"id"`
	Speaker   string   `json:"speaker"`
	Text      string   `json:"text"`
	StartTime float64  `json:"start_time"`
	EndTime   float64  `json:"end_time"`
	KeyPoints []string `json:"key_points"`
}

// Duration returns EndTime - StartTime.
func (s TranscriptSegment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// TranscriptInfo is an ordered, contiguous transcript.
type TranscriptInfo struct {
	Title           string              `json:"title"`
	Segments        []TranscriptSegment `json:"segments"`
	TotalDuration   float64             `json:"total_duration"`
	SourceAudioPath string              `json:"source_audio_path,omitempty"`
}
